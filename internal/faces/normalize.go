package faces

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics strips diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Normalize canonicalizes a person name for storage and lookup: trimmed,
// lowercase, diacritics removed, dashes treated as spaces.
func Normalize(name string) string {
	name = removeDiacritics(strings.TrimSpace(name))
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
