package resilience

import (
	"context"

	"github.com/interloq/interloq/pkg/recognize"
)

// RecognizeFallback implements [recognize.Provider] with automatic failover
// across multiple recognition backends, e.g. a streaming cloud recognizer
// with a local whisper model behind it. Each backend has its own breaker.
type RecognizeFallback struct {
	group *FallbackGroup[recognize.Provider]
}

var _ recognize.Provider = (*RecognizeFallback)(nil)

// NewRecognizeFallback creates a chain with primary as the preferred
// backend.
func NewRecognizeFallback(primary recognize.Provider, primaryName string, cfg FallbackConfig) *RecognizeFallback {
	g := NewFallbackGroup(primary, primaryName, cfg)
	g.kind = "recognizer"
	return &RecognizeFallback{group: g}
}

// AddFallback registers an additional recognition backend.
func (f *RecognizeFallback) AddFallback(name string, provider recognize.Provider) {
	f.group.AddFallback(name, provider)
}

// StartStream opens a session against the first healthy backend. Failover
// happens only at stream start; an established session is never migrated.
func (f *RecognizeFallback) StartStream(ctx context.Context, cfg recognize.StreamConfig) (recognize.SessionHandle, error) {
	return ExecuteWithResult(ctx, f.group, func(p recognize.Provider) (recognize.SessionHandle, error) {
		return p.StartStream(ctx, cfg)
	})
}
