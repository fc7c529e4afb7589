package evaluate_test

import (
	"testing"

	"github.com/interloq/interloq/internal/evaluate"
	"github.com/interloq/interloq/pkg/scoring"
)

func TestHeuristicPronunciation_PerfectMatch(t *testing.T) {
	t.Parallel()

	got := evaluate.HeuristicPronunciation("안녕 하세요", "안녕하세요")
	if got.Source != scoring.SourceHeuristic {
		t.Errorf("Source = %q, want %q", got.Source, scoring.SourceHeuristic)
	}
	if got.Accuracy != 100 {
		t.Errorf("Accuracy = %d, want 100", got.Accuracy)
	}
	if got.Fluency != 90 {
		t.Errorf("Fluency = %d, want 90", got.Fluency)
	}
	if got.Prosody != 85 {
		t.Errorf("Prosody = %d, want 85", got.Prosody)
	}
	if got.Completeness != 100 {
		t.Errorf("Completeness = %d, want 100", got.Completeness)
	}
}

func TestHeuristicPronunciation_PartialMatch(t *testing.T) {
	t.Parallel()

	// Position 2 differs; 3 of 4 reference runes match.
	got := evaluate.HeuristicPronunciation("abxd", "abcd")
	if got.Accuracy != 75 {
		t.Errorf("Accuracy = %d, want 75", got.Accuracy)
	}
	if got.Completeness != 100 {
		t.Errorf("Completeness = %d, want 100", got.Completeness)
	}
}

func TestHeuristicPronunciation_ShortHypothesis(t *testing.T) {
	t.Parallel()

	got := evaluate.HeuristicPronunciation("abcde", "abcdefghij")
	if got.Accuracy != 50 {
		t.Errorf("Accuracy = %d, want 50", got.Accuracy)
	}
	if got.Fluency != 45 {
		t.Errorf("Fluency = %d, want 45", got.Fluency)
	}
	if got.Prosody != 43 {
		t.Errorf("Prosody = %d, want 43", got.Prosody)
	}
	if got.Completeness != 50 {
		t.Errorf("Completeness = %d, want 50", got.Completeness)
	}
}

func TestHeuristicPronunciation_EmptyInput(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name     string
		hyp, ref string
	}{
		{"empty hypothesis", "", "안녕하세요"},
		{"empty reference", "안녕하세요", ""},
		{"whitespace only", "   ", "안녕하세요"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluate.HeuristicPronunciation(tt.hyp, tt.ref)
			if got.Accuracy != 0 || got.Fluency != 0 || got.Prosody != 0 || got.Completeness != 0 {
				t.Errorf("scores = %+v, want all zero", got)
			}
			if got.Source != scoring.SourceHeuristic {
				t.Errorf("Source = %q, want %q", got.Source, scoring.SourceHeuristic)
			}
		})
	}
}

func TestCombine(t *testing.T) {
	t.Parallel()

	pron := &scoring.PronunciationScore{Accuracy: 80, Fluency: 70, Prosody: 60, Completeness: 100}
	content := &scoring.ContentScore{Accuracy: 90, Completeness: 80, Fluency: 70}

	if got := evaluate.Combine(nil, nil); got != 0 {
		t.Errorf("Combine(nil, nil) = %d, want 0", got)
	}
	// 80*0.5 + 70*0.3 + 60*0.2 = 73
	if got := evaluate.Combine(pron, nil); got != 73 {
		t.Errorf("Combine(pron, nil) = %d, want 73", got)
	}
	// 90*0.6 + 80*0.25 + 70*0.15 = 84.5
	if got := evaluate.Combine(nil, content); got != 85 {
		t.Errorf("Combine(nil, content) = %d, want 85", got)
	}
	// (73 + 84.5) / 2 = 78.75
	if got := evaluate.Combine(pron, content); got != 79 {
		t.Errorf("Combine(pron, content) = %d, want 79", got)
	}
}

func TestCombine_ProsodyFallsBackToFluency(t *testing.T) {
	t.Parallel()

	// Prosody unreported: fluency stands in. 80*0.5 + 70*0.3 + 70*0.2 = 75.
	pron := &scoring.PronunciationScore{Accuracy: 80, Fluency: 70, Prosody: -1}
	if got := evaluate.Combine(pron, nil); got != 75 {
		t.Errorf("Combine = %d, want 75", got)
	}
}

func TestCombine_Monotonic(t *testing.T) {
	t.Parallel()

	low := &scoring.PronunciationScore{Accuracy: 40, Fluency: 40, Prosody: 40}
	high := &scoring.PronunciationScore{Accuracy: 90, Fluency: 90, Prosody: 90}
	if evaluate.Combine(low, nil) >= evaluate.Combine(high, nil) {
		t.Error("higher sub-scores should produce a higher overall score")
	}
}
