package align

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Similarity returns a normalized Levenshtein similarity between a and b in
// the range [0,1]: (maxLen − distance) / maxLen over rune counts. Two empty
// strings are fully similar; one empty string against a non-empty one is not
// similar at all.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 {
		if lb == 0 {
			return 1
		}
		return 0
	}
	if lb == 0 {
		return 0
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	dist := matchr.Levenshtein(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}
