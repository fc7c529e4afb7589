package align

import (
	"strings"
	"unicode"
)

// keepRune reports whether r survives normalization. Kept: ASCII letters and
// digits (plus any Unicode letter/digit), CJK ideographs, Hangul jamo,
// compatibility jamo, and Hangul syllables.
func keepRune(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK extension A
		return true
	case r >= 0x1100 && r <= 0x11FF: // Hangul jamo
		return true
	case r >= 0x3130 && r <= 0x318F: // Hangul compatibility jamo
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// Normalize canonicalizes a token for comparison: case-fold, drop every rune
// that is not alphanumeric or in the CJK/Hangul ranges, and collapse
// whitespace away entirely.
func Normalize(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range strings.ToLower(strings.TrimSpace(word)) {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
