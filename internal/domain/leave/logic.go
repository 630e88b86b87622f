package leave

import (
	"errors"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

var (
	ErrEndBeforeStart = errors.New("end date before start date")
	ErrInvalidRange   = errors.New("invalid date range")
)

// CalculateDays returns the inclusive day count between two calendar dates.
// Only the year, month and day of each argument are used.
func CalculateDays(start, end time.Time) (int, error) {
	s := civil(start)
	e := civil(end)
	if e.Before(s) {
		return 0, ErrEndBeforeStart
	}
	// Unix seconds rather than Time.Sub, which saturates past ~292 years.
	days := int((e.Unix()-s.Unix())/secondsPerDay) + 1
	if days <= 0 {
		return 0, ErrInvalidRange
	}
	return days, nil
}

// ParseDate parses a YYYY-MM-DD date. Timestamps are accepted and truncated
// to their calendar date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if t, err2 := time.Parse("2006-01-02T15:04:05", raw); err2 == nil {
			return civil(t), nil
		}
		return time.Time{}, err
	}
	return civil(t), nil
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
