// Package scoring defines the score types shared by the evaluation engine,
// the alignment engine, and the prosody timeline: per-word pronunciation
// assessments, long-pause intervals, and the fused pronunciation / content /
// overall scores.
//
// All score fields are integers clamped to the closed range [0,100]. Word
// lists preserve utterance order; that order is the canonical read order for
// "top offending words" selection.
package scoring

// Source identifies which path produced a PronunciationScore.
type Source string

const (
	// SourceAssessment marks scores returned by an external
	// pronunciation-assessment service.
	SourceAssessment Source = "external-assessment"

	// SourceHeuristic marks scores produced by the local text-based
	// fallback scorer.
	SourceHeuristic Source = "heuristic"
)

// Phoneme is a single phoneme-level assessment inside a WordAssessment.
// Accuracy is -1 when the backend did not report a phoneme score.
type Phoneme struct {
	Phoneme  string
	Accuracy int
}

// WordAssessment is the per-word result of a pronunciation assessment.
// Values are immutable once received from the backend.
type WordAssessment struct {
	Word       string
	Accuracy   int
	ErrorType  string
	OffsetMs   int
	DurationMs int
	Phonemes   []Phoneme
}

// LongPause is an interval of silence between two words exceeding the
// fluency-relevant gap threshold. Used only for visualization.
type LongPause struct {
	StartMs    int
	DurationMs int
	BeforeWord string
	AfterWord  string
}

// PronunciationScore is the acoustic half of an evaluation.
// Prosody and Completeness are -1 when the producing path does not report them.
type PronunciationScore struct {
	Accuracy     int
	Fluency      int
	Prosody      int
	Completeness int
	Source       Source
	Words        []WordAssessment
	LongPauses   []LongPause
}

// HasProsody reports whether a prosody sub-score was reported.
func (p PronunciationScore) HasProsody() bool { return p.Prosody >= 0 }

// ContentScore is the semantic half of an evaluation, produced by comparing
// the recognized hypothesis against a reference script.
type ContentScore struct {
	Accuracy     int
	Completeness int
	Fluency      int
	Summary      string
	Tips         string
	Details      []string
}

// Result bundles the two sub-scores and the fused overall score for one
// practice attempt. Either sub-score pointer may be nil when that path was
// skipped or degraded away entirely.
type Result struct {
	Pronunciation *PronunciationScore
	Content       *ContentScore
	Overall       int
}

// Clamp rounds and clamps v to the closed integer range [0,100].
func Clamp(v float64) int {
	if v != v { // NaN
		return 0
	}
	n := int(v + 0.5)
	if v < 0 {
		n = int(v - 0.5)
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// TopOffenders returns the n words with the lowest accuracy, sorted ascending
// by accuracy with ties preserving utterance order. The input slice is not
// modified.
func TopOffenders(words []WordAssessment, n int) []WordAssessment {
	if n <= 0 || len(words) == 0 {
		return nil
	}
	sorted := make([]WordAssessment, len(words))
	copy(sorted, words)
	// Insertion sort keeps the tie order stable for the short lists involved.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Accuracy < sorted[j-1].Accuracy; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// DeriveLongPauses scans consecutive word timings and reports every gap of at
// least minGapMs between one word's end and the next word's start. Words
// without timing data (zero offset and duration) are skipped. Used when the
// assessment backend does not report pause intervals itself.
func DeriveLongPauses(words []WordAssessment, minGapMs int) []LongPause {
	if minGapMs <= 0 || len(words) < 2 {
		return nil
	}
	var pauses []LongPause
	for i := 1; i < len(words); i++ {
		prev, cur := words[i-1], words[i]
		if prev.DurationMs == 0 && prev.OffsetMs == 0 {
			continue
		}
		end := prev.OffsetMs + prev.DurationMs
		gap := cur.OffsetMs - end
		if gap >= minGapMs {
			pauses = append(pauses, LongPause{
				StartMs:    end,
				DurationMs: gap,
				BeforeWord: prev.Word,
				AfterWord:  cur.Word,
			})
		}
	}
	return pauses
}
