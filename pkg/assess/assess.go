// Package assess defines the pronunciation-assessment capability: providers
// take a recorded clip plus the reference text the speaker was reading and
// return acoustic scores with per-word detail.
package assess

import (
	"context"
	"errors"

	"github.com/interloq/interloq/pkg/audio"
	"github.com/interloq/interloq/pkg/scoring"
)

// ErrNoSpeech is returned when the backend processed the clip but recognized
// no speech in it. Callers usually fall back to the heuristic scorer.
var ErrNoSpeech = errors.New("assess: no speech recognized in clip")

// Request is one assessment call.
type Request struct {
	// Clip is the recorded audio. The provider transcodes it as needed.
	Clip *audio.Clip

	// ReferenceText is the script the speaker was reading.
	ReferenceText string

	// Language is the locale of the reference text (e.g. "ko-KR").
	Language string
}

// Provider scores the pronunciation of a clip against a reference text.
type Provider interface {
	// Assess returns the acoustic score. The returned score's Source is
	// scoring.SourceAssessment.
	Assess(ctx context.Context, req Request) (*scoring.PronunciationScore, error)
}
