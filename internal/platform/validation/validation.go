package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error is returned when input is rejected before any request leaves the process.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "validation failed"
	}
	return e.Issues[0].Reason
}

// Field returns the first reason recorded for field.
func (e *Error) Field(field string) string {
	if e == nil {
		return ""
	}
	for _, issue := range e.Issues {
		if issue.Field == field {
			return issue.Reason
		}
	}
	return ""
}

// Fields maps each field to its first reason, for template lookups.
func (e *Error) Fields() map[string]string {
	out := map[string]string{}
	if e == nil {
		return out
	}
	for _, issue := range e.Issues {
		if _, ok := out[issue.Field]; !ok {
			out[issue.Field] = issue.Reason
		}
	}
	return out
}

// AsError unwraps err into a *Error.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

type Validator struct {
	issues []Issue
}

func New() *Validator {
	return &Validator{issues: make([]Issue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	field = strings.TrimSpace(field)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, Issue{Field: field, Reason: reason})
}

func (v *Validator) Required(field, value, reason string) bool {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
		return false
	}
	return true
}

// Date parses a YYYY-MM-DD value; the zero time is returned on failure.
func (v *Validator) Date(field, raw, reason string) (time.Time, bool) {
	parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		v.Add(field, reason)
		return time.Time{}, false
	}
	return parsed, true
}

func (v *Validator) Check(ok bool, field, reason string) {
	if !ok {
		v.Add(field, reason)
	}
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []Issue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]Issue, len(v.issues))
	copy(out, v.issues)
	return out
}

// Err returns nil when nothing was recorded.
func (v *Validator) Err() error {
	if !v.HasIssues() {
		return nil
	}
	return &Error{Issues: v.Issues()}
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Decimal fields are range-checked as numbers.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return validate
}

// Struct checks `validate` tags on a form struct. A `msg` tag overrides the
// generated reason for that field.
func (v *Validator) Struct(form any) {
	err := structValidator.Struct(form)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.Add("form", "form could not be validated")
		return
	}

	messages := messageTags(form)
	for _, fe := range fieldErrs {
		if msg, ok := messages[fe.StructField()]; ok {
			v.Add(fe.Field(), msg)
			continue
		}
		v.Add(fe.Field(), describe(fe))
	}
}

func messageTags(form any) map[string]string {
	out := map[string]string{}
	t := reflect.TypeOf(form)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if msg := field.Tag.Get("msg"); msg != "" {
			out[field.Name] = msg
		}
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please enter a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
