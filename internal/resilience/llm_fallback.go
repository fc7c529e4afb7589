package resilience

import (
	"context"

	"github.com/interloq/interloq/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across
// multiple model backends. Each backend has its own circuit breaker.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates a chain with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	g := NewFallbackGroup(primary, primaryName, cfg)
	g.kind = "scorer"
	return &LLMFallback{group: g}
}

// AddFallback registers an additional model backend.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends the request to the first healthy backend.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(ctx, f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
