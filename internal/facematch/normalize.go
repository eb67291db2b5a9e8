package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeText prepares free text for substring matching: trimmed,
// case-folded and without diacritics. Punctuation is kept as is.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = RemoveDiacritics(s)
	return cases.Fold().String(s)
}
