package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, collapses internal whitespace runs to one space and
// cuts the result to maxLen runes. A non-positive maxLen disables the cut.
func SanitizeString(input string, maxLen int) string {
	clean := strings.Join(strings.FieldsFunc(input, unicode.IsSpace), " ")
	if maxLen <= 0 {
		return clean
	}
	if runes := []rune(clean); len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen]))
	}
	return clean
}
