package shared

import (
	"strconv"
	"strings"
)

// ParseYear accepts a four digit year and falls back otherwise.
func ParseYear(raw string, fallback int) int {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || year < 1900 || year > 9999 {
		return fallback
	}
	return year
}
