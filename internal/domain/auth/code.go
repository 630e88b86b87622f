package auth

import "strings"

// NormalizeCode strips spaces and dashes and reports whether what remains is
// exactly six ASCII digits.
func NormalizeCode(raw string) (string, bool) {
	code := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, raw)
	if len(code) != 6 {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return code, false
		}
	}
	return code, true
}
