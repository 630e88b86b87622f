package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type holidayForm struct {
	Name string `form:"name" validate:"required,max=100"`
	Date string `form:"date" validate:"required" msg:"Please choose a date"`
}

func TestValidatorCollectsIssues(t *testing.T) {
	v := New()
	v.Required("reason", "  ", "Reason is required")
	v.Check(false, "leaveTypeId", "Please select a leave type")
	_, ok := v.Date("startDate", "2025-13-40", "Invalid date range")
	assert.False(t, ok)

	err := v.Err()
	require.Error(t, err)

	verr, ok := AsError(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Len(t, verr.Issues, 3)
	assert.Equal(t, "Reason is required", verr.Error())
	assert.Equal(t, "Please select a leave type", verr.Field("leaveTypeId"))
	assert.Equal(t, "Invalid date range", verr.Fields()["startDate"])
}

func TestValidatorNoIssues(t *testing.T) {
	v := New()
	v.Required("name", "Annual", "Name is required")
	parsed, ok := v.Date("date", "2025-03-10", "bad")
	assert.True(t, ok)
	assert.Equal(t, 10, parsed.Day())
	assert.NoError(t, v.Err())
}

func TestStructUsesFormNamesAndMessages(t *testing.T) {
	v := New()
	v.Struct(holidayForm{})

	verr, ok := AsError(v.Err())
	require.True(t, ok)
	assert.Equal(t, "name is required", verr.Field("name"))
	assert.Equal(t, "Please choose a date", verr.Field("date"))
}

func TestStructValid(t *testing.T) {
	v := New()
	v.Struct(&holidayForm{Name: "New Year", Date: "2025-01-01"})
	assert.False(t, v.HasIssues())
}
