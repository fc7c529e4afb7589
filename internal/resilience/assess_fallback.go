package resilience

import (
	"context"

	"github.com/interloq/interloq/pkg/assess"
	"github.com/interloq/interloq/pkg/scoring"
)

// AssessFallback implements [assess.Provider] with automatic failover across
// multiple assessment backends. The evaluation engine adds its own terminal
// heuristic fallback after this chain is exhausted.
type AssessFallback struct {
	group *FallbackGroup[assess.Provider]
}

var _ assess.Provider = (*AssessFallback)(nil)

// NewAssessFallback creates a chain with primary as the preferred backend.
func NewAssessFallback(primary assess.Provider, primaryName string, cfg FallbackConfig) *AssessFallback {
	g := NewFallbackGroup(primary, primaryName, cfg)
	g.kind = "assessor"
	return &AssessFallback{group: g}
}

// AddFallback registers an additional assessment backend.
func (f *AssessFallback) AddFallback(name string, provider assess.Provider) {
	f.group.AddFallback(name, provider)
}

// Assess scores the clip against the first healthy backend.
func (f *AssessFallback) Assess(ctx context.Context, req assess.Request) (*scoring.PronunciationScore, error) {
	return ExecuteWithResult(ctx, f.group, func(p assess.Provider) (*scoring.PronunciationScore, error) {
		return p.Assess(ctx, req)
	})
}
