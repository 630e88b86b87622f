package leave

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeApplication(t *testing.T, raw string) Application {
	t.Helper()
	var in APIApplication
	require.NoError(t, json.Unmarshal([]byte(raw), &in))
	return MapApplication(in)
}

func TestMapApplicationFieldPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, got Application)
	}{
		{
			name: "numberOfDays wins over days",
			raw:  `{"numberOfDays":3,"days":9}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "3", got.NumberOfDays.String())
				assert.Equal(t, "3", got.Days.String())
			},
		},
		{
			name: "days when numberOfDays absent",
			raw:  `{"days":4}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "4", got.NumberOfDays.String())
			},
		},
		{
			name: "half days keep their fraction",
			raw:  `{"numberOfDays":2.5}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "2.5", got.NumberOfDays.String())
			},
		},
		{
			name: "days default to zero",
			raw:  `{"startDate":"2025-01-01","endDate":"2025-01-03"}`,
			check: func(t *testing.T, got Application) {
				assert.True(t, got.NumberOfDays.IsZero())
			},
		},
		{
			name: "userId wins over employeeId",
			raw:  `{"userId":"u1","employeeId":"e1"}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "u1", got.UserID)
				assert.Equal(t, "u1", got.EmployeeID)
			},
		},
		{
			name: "employeeId fallback",
			raw:  `{"employeeId":"e1"}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "e1", got.UserID)
			},
		},
		{
			name: "leaveTypeName wins over leaveType",
			raw:  `{"leaveTypeName":"Annual","leaveType":"SICK_LEAVE"}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "Annual", got.LeaveTypeName)
			},
		},
		{
			name: "leaveType as string",
			raw:  `{"leaveType":"SICK_LEAVE"}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "SICK_LEAVE", got.LeaveTypeName)
			},
		},
		{
			name: "leaveType as object",
			raw:  `{"leaveType":{"id":"lt1","name":"Sick"}}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "lt1", got.LeaveTypeID)
				assert.Equal(t, "Sick", got.LeaveTypeName)
			},
		},
		{
			name: "reviewer fields and aliases",
			raw:  `{"approverId":"m1","approvalComments":"ok","reviewerComment":"","approverName":"Max"}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "m1", got.ReviewedBy)
				assert.Equal(t, "ok", got.ReviewerComment)
				assert.Equal(t, "ok", got.ApprovalComments)
				assert.Equal(t, "Max", got.ReviewerName)
			},
		},
		{
			name: "documentUrl preserved",
			raw:  `{"documentUrl":"https://files/x.pdf","documents":["https://files/y.pdf"]}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "https://files/x.pdf", got.DocumentURL)
				assert.Equal(t, []string{"https://files/x.pdf"}, got.Documents)
			},
		},
		{
			name: "documents fallback",
			raw:  `{"documents":["https://files/y.pdf"]}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "https://files/y.pdf", got.DocumentURL)
			},
		},
		{
			name: "approved derives approvedAt from reviewedAt",
			raw:  `{"status":"APPROVED","reviewedAt":"2025-02-01T10:00:00Z"}`,
			check: func(t *testing.T, got Application) {
				require.NotNil(t, got.ApprovedAt)
				assert.Nil(t, got.RejectedAt)
				assert.Equal(t, 2025, got.ApprovedAt.Year())
			},
		},
		{
			name: "rejected derives rejectedAt",
			raw:  `{"status":"rejected","reviewedAt":"2025-02-01T10:00:00"}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, StatusRejected, got.Status)
				require.NotNil(t, got.RejectedAt)
				assert.Nil(t, got.ApprovedAt)
			},
		},
		{
			name: "legacy approvedAt fills reviewedAt",
			raw:  `{"status":"APPROVED","approvedAt":"2025-03-01T08:00:00Z"}`,
			check: func(t *testing.T, got Application) {
				require.NotNil(t, got.ReviewedAt)
				assert.Equal(t, got.ReviewedAt, got.ApprovedAt)
			},
		},
		{
			name: "createdAt wins over submittedAt",
			raw:  `{"createdAt":"2025-01-02T00:00:00Z","submittedAt":"2024-01-02T00:00:00Z"}`,
			check: func(t *testing.T, got Application) {
				require.NotNil(t, got.CreatedAt)
				assert.Equal(t, 2025, got.CreatedAt.Year())
				assert.Equal(t, got.CreatedAt, got.SubmittedAt)
			},
		},
		{
			name: "missing status defaults to pending",
			raw:  `{"id":"r1"}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, StatusPending, got.Status)
			},
		},
		{
			name: "dates parsed as calendar dates",
			raw:  `{"startDate":"2025-01-01","endDate":"2025-01-03T00:00:00"}`,
			check: func(t *testing.T, got Application) {
				assert.Equal(t, "2025-01-01", FormatDate(got.StartDate))
				assert.Equal(t, "2025-01-03", FormatDate(got.EndDate))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, decodeApplication(t, tc.raw))
		})
	}
}

func TestMapBalance(t *testing.T) {
	var in APIBalance
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b1","leaveTypeName":"Annual","totalDays":20,"usedDays":5.5,"pendingDays":2,"carryoverDays":3}`), &in))
	got := MapBalance(in)

	assert.True(t, got.TotalAllocated.Equal(decimal.NewFromInt(20)))
	assert.True(t, got.TotalDays.Equal(got.TotalAllocated))
	assert.True(t, got.CarriedOverDays.Equal(decimal.NewFromInt(3)))
	assert.Nil(t, got.AvailableDays, "available days are never derived locally")
	assert.Equal(t, 28, got.UsedPercent())

	in = APIBalance{}
	require.NoError(t, json.Unmarshal([]byte(`{"totalAllocated":10,"totalDays":99,"availableDays":7}`), &in))
	got = MapBalance(in)
	assert.True(t, got.TotalAllocated.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, got.AvailableDays)
	assert.True(t, got.AvailableDays.Equal(decimal.NewFromInt(7)))

	in = APIBalance{}
	require.NoError(t, json.Unmarshal([]byte(`{"totalAllocated":20,"usedDays":5,"pendingDays":1,"carriedOverDays":4,"accruedDays":2,"availableDays":20}`), &in))
	got = MapBalance(in)
	require.NotNil(t, got.AvailableDays)
	assert.Equal(t, "20", got.AvailableDays.String(), "the server figure is shown as sent")
}

func TestBalanceUsedPercentBounds(t *testing.T) {
	assert.Equal(t, 0, Balance{}.UsedPercent())
	over := Balance{TotalAllocated: decimal.NewFromInt(5), UsedDays: decimal.NewFromInt(8)}
	assert.Equal(t, 100, over.UsedPercent())
}

func TestMapLeaveType(t *testing.T) {
	var in APILeaveType
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","name":" Annual ","annualAllocation":21,"requiresReason":true,"maxCarryoverDays":5}`), &in))
	got := MapLeaveType(in)
	assert.Equal(t, "Annual", got.Name)
	assert.True(t, got.MaxDays.Equal(decimal.NewFromInt(21)))
	assert.True(t, got.IsActive, "absent isActive defaults to active")
	require.NotNil(t, got.MaxCarryoverDays)
	assert.True(t, got.RequiresReason)

	in = APILeaveType{}
	require.NoError(t, json.Unmarshal([]byte(`{"maxDays":12,"isActive":false}`), &in))
	got = MapLeaveType(in)
	assert.True(t, got.AnnualAllocation.Equal(decimal.NewFromInt(12)))
	assert.False(t, got.IsActive)
	assert.Nil(t, got.MaxCarryoverDays)
}

func TestMapHolidayAndAdjustment(t *testing.T) {
	var h APIHoliday
	require.NoError(t, json.Unmarshal([]byte(`{"id":"h1","name":"New Year","date":"2026-01-01","recurring":true}`), &h))
	holiday := MapHoliday(h)
	assert.Equal(t, 2026, holiday.Year)
	assert.True(t, holiday.IsRecurring)

	var a APIAdjustment
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a1","adjustmentAmount":-1.5,"previousBalance":10,"newBalance":8.5,"createdAt":"2025-01-01T00:00:00Z"}`), &a))
	adj := MapAdjustment(a)
	assert.Equal(t, "-1.5", adj.AdjustmentAmount.String())
	assert.Equal(t, "8.5", adj.NewBalance.String())
	require.NotNil(t, adj.CreatedAt)
}
