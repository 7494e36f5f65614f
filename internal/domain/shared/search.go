package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldSearch lower-cases the non-empty parts, strips diacritics and joins them
// with single spaces, so "Paracétamol" and "PARACETAMOL" fold to the same text.
func FoldSearch(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	joined := strings.Join(kept, " ")
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, joined)
	if err != nil {
		folded = joined
	}
	return strings.ToLower(folded)
}
