// Package mock provides a scripted assess.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/interloq/interloq/pkg/assess"
	"github.com/interloq/interloq/pkg/scoring"
)

// Provider implements assess.Provider. Set Score or Err to script the
// result; requests are recorded for inspection.
type Provider struct {
	// Score is returned by Assess when Err is nil.
	Score *scoring.PronunciationScore

	// Err, when non-nil, is returned by Assess.
	Err error

	mu       sync.Mutex
	requests []assess.Request
}

// Assess records the request and returns the scripted result.
func (p *Provider) Assess(_ context.Context, req assess.Request) (*scoring.PronunciationScore, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Score, nil
}

// Requests returns every request received so far.
func (p *Provider) Requests() []assess.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]assess.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

var _ assess.Provider = (*Provider)(nil)
