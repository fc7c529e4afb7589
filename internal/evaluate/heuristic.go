package evaluate

import (
	"math"
	"strings"
	"unicode"

	"github.com/interloq/interloq/pkg/scoring"
)

// HeuristicPronunciation scores the hypothesis against the reference purely
// from text: a positional character-match ratio over the reference length
// for accuracy, and length ratios for the remaining sub-scores. It is an
// intentionally crude fallback for when no assessment backend is reachable,
// not a substitute for one.
func HeuristicPronunciation(hypothesis, reference string) *scoring.PronunciationScore {
	h := []rune(stripSpace(hypothesis))
	r := []rune(stripSpace(reference))
	if len(h) == 0 || len(r) == 0 {
		return &scoring.PronunciationScore{Source: scoring.SourceHeuristic}
	}

	match := 0
	for i := 0; i < len(h) && i < len(r); i++ {
		if h[i] == r[i] {
			match++
		}
	}

	accuracy := float64(match) / float64(len(r)) * 100
	lengthRatio := float64(len(h)) / float64(len(r)) * 100
	fluency := math.Min(100, lengthRatio)

	return &scoring.PronunciationScore{
		Accuracy:     scoring.Clamp(accuracy),
		Fluency:      scoring.Clamp(fluency * 0.9),
		Prosody:      scoring.Clamp(fluency * 0.85),
		Completeness: scoring.Clamp(lengthRatio),
		Source:       scoring.SourceHeuristic,
	}
}

// stripSpace removes every whitespace rune so positional comparison is not
// thrown off by spacing differences between scripts.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
