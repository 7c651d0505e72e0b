package textutil

import (
	"strings"
	"unicode"
)

// NormalizeName lowercases `name` and removes every whitespace character,
// so that "Sub  Category" and "sub category" compare equal.
func NormalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
}

// NormalizeLabel is NormalizeName for form labels, it also drops the
// trailing punctuation portals put after a label ("Ward Name :", "Status*").
func NormalizeLabel(label string) string {
	return strings.TrimRight(NormalizeName(label), ":*-")
}

// IsDigits is true for a non-empty string of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
