package entity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// shaveMarksLatin removes diacritic marks from Latin base characters.
// The text is decomposed (NFD), combining marks attached to a Latin
// letter are dropped, and the result is recomposed (NFC). Marks on
// non-Latin base characters are preserved so that names in other
// scripts survive intact.
func shaveMarksLatin(s string) string {
	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))

	latinBase := false
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) && latinBase {
			continue
		}
		b.WriteRune(r)
		if !unicode.Is(unicode.Mn, r) {
			latinBase = isLatinLetter(r)
		}
	}

	return norm.NFC.String(b.String())
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
