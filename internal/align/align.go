// Package align locates low-scoring assessment words inside a free-form
// transcript and splits the transcript into display segments with the
// offending spans highlighted.
//
// Matching escalates through three tiers per target word, stopping at the
// first tier that yields any match:
//
//  1. exact case-insensitive substring search (all occurrences);
//  2. token-level partial match — a whitespace token whose normalized form
//     contains, or is contained by, the normalized target (both ≥ 2 runes);
//  3. similarity match — normalized Levenshtein similarity ≥ 0.70 with an
//     absolute raw length difference of at most 2 runes.
//
// Matches across all targets are merged left-to-right, keeping the earliest
// non-overlapping span at each position, so the emitted segments cover the
// transcript exactly once and never overlap.
package align

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/interloq/interloq/pkg/scoring"
)

const (
	// DefaultThreshold is the accuracy score below which a word is flagged.
	DefaultThreshold = 70

	// similarityFloor is the minimum tier-3 Levenshtein similarity.
	similarityFloor = 0.70

	// maxLengthDiff is the maximum raw rune-length difference for tier 3.
	maxLengthDiff = 2

	// minPartialRunes is the minimum normalized length for tier-2 matches.
	minPartialRunes = 2
)

// Segment is one piece of the annotated transcript. Highlighted segments
// carry the tooltip payload of the word that triggered them.
type Segment struct {
	Text      string
	Highlight bool

	// Set only when Highlight is true.
	Word      string
	Accuracy  int
	ErrorType string
}

// match is a candidate span inside the transcript, in byte offsets.
type match struct {
	start, end int
	word       string
	info       *scoring.WordAssessment
}

// Engine runs the three-tier fuzzy matcher. The zero value is not usable;
// construct with New.
type Engine struct {
	threshold int
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold overrides the accuracy threshold below which words are
// flagged for highlighting. Default: 70.
func WithThreshold(t int) Option {
	return func(e *Engine) { e.threshold = t }
}

// New returns an Engine with the supplied options applied.
func New(opts ...Option) *Engine {
	e := &Engine{threshold: DefaultThreshold}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Highlight splits transcript into segments, marking every located
// occurrence of a word whose assessment accuracy is below the threshold.
// The concatenation of the returned segment texts always equals transcript.
func (e *Engine) Highlight(transcript string, words []scoring.WordAssessment) []Segment {
	if transcript == "" {
		return nil
	}

	targets := e.selectTargets(words)
	if len(targets) == 0 {
		return []Segment{{Text: transcript}}
	}

	var all []match
	for _, t := range targets {
		ms := findExact(transcript, t.raw)
		if len(ms) == 0 {
			ms = findPartial(transcript, t.raw)
		}
		if len(ms) == 0 {
			ms = findSimilar(transcript, t.raw)
		}
		for i := range ms {
			ms[i].word = t.raw
			ms[i].info = t.info
		}
		all = append(all, ms...)
	}

	kept := mergeMatches(all)
	return emitSegments(transcript, kept)
}

// target pairs a raw target word with the assessment entry it came from.
type target struct {
	raw        string
	normalized string
	info       *scoring.WordAssessment
}

// selectTargets picks the below-threshold words, normalizes and deduplicates
// them, and orders them longest-normalized-first to reduce partial-match
// ambiguity.
func (e *Engine) selectTargets(words []scoring.WordAssessment) []target {
	seen := make(map[string]struct{}, len(words))
	var targets []target
	for i := range words {
		w := &words[i]
		if w.Accuracy >= e.threshold {
			continue
		}
		norm := Normalize(w.Word)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		targets = append(targets, target{raw: w.Word, normalized: norm, info: w})
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return utf8.RuneCountInString(targets[i].normalized) > utf8.RuneCountInString(targets[j].normalized)
	})
	return targets
}

// findExact returns every case-insensitive occurrence of word in text.
func findExact(text, word string) []match {
	lowText := strings.ToLower(text)
	lowWord := strings.ToLower(word)
	if lowWord == "" || len(lowText) != len(text) {
		// Case-folding changed the byte length; offsets would not map back.
		lowText = text
		lowWord = word
	}
	var ms []match
	for from := 0; ; {
		i := strings.Index(lowText[from:], lowWord)
		if i < 0 {
			break
		}
		start := from + i
		ms = append(ms, match{start: start, end: start + len(lowWord)})
		from = start + 1
	}
	return ms
}

// findPartial scans whitespace tokens for contains-or-contained normalized
// overlap with the target.
func findPartial(text, word string) []match {
	cleanTarget := Normalize(word)
	if utf8.RuneCountInString(cleanTarget) < minPartialRunes {
		return nil
	}
	var ms []match
	forEachToken(text, func(tok string, start, end int) {
		cleanTok := Normalize(tok)
		if utf8.RuneCountInString(cleanTok) < minPartialRunes {
			return
		}
		if strings.Contains(cleanTok, cleanTarget) || strings.Contains(cleanTarget, cleanTok) {
			ms = append(ms, match{start: start, end: end})
		}
	})
	return ms
}

// findSimilar scans whitespace tokens for Levenshtein similarity against the
// target over normalized forms, with a raw length-difference cap.
func findSimilar(text, word string) []match {
	var ms []match
	forEachToken(text, func(tok string, start, end int) {
		sim := Similarity(Normalize(tok), Normalize(word))
		diff := utf8.RuneCountInString(tok) - utf8.RuneCountInString(word)
		if diff < 0 {
			diff = -diff
		}
		if sim >= similarityFloor && diff <= maxLengthDiff {
			ms = append(ms, match{start: start, end: end})
		}
	})
	return ms
}

// forEachToken calls fn for every whitespace-separated token of text with the
// token's byte offsets.
func forEachToken(text string, fn func(tok string, start, end int)) {
	cursor := 0
	for _, tok := range strings.Fields(text) {
		i := strings.Index(text[cursor:], tok)
		if i < 0 {
			continue
		}
		start := cursor + i
		end := start + len(tok)
		fn(tok, start, end)
		cursor = end
	}
}

// mergeMatches sorts candidates by start offset and greedily keeps the
// earliest non-overlapping match at each position.
func mergeMatches(all []match) []match {
	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })
	var kept []match
	lastEnd := 0
	for _, m := range all {
		if len(kept) > 0 && m.start < lastEnd {
			continue
		}
		kept = append(kept, m)
		lastEnd = m.end
	}
	return kept
}

// emitSegments walks the kept matches and produces alternating plain and
// highlighted segments covering text exactly once.
func emitSegments(text string, kept []match) []Segment {
	var segs []Segment
	last := 0
	for _, m := range kept {
		if m.start > last {
			segs = append(segs, Segment{Text: text[last:m.start]})
		}
		seg := Segment{
			Text:      text[m.start:m.end],
			Highlight: true,
			Word:      m.word,
		}
		if m.info != nil {
			seg.Accuracy = m.info.Accuracy
			seg.ErrorType = m.info.ErrorType
		}
		segs = append(segs, seg)
		last = m.end
	}
	if last < len(text) {
		segs = append(segs, Segment{Text: text[last:]})
	}
	if segs == nil {
		segs = []Segment{{Text: text}}
	}
	return segs
}
