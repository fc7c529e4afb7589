// Package mock provides a scripted llm.Provider for tests: each Complete
// call pops the next scripted response.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/interloq/interloq/pkg/provider/llm"
)

// Call is one scripted Complete result.
type Call struct {
	Response *llm.CompletionResponse
	Err      error
}

// Provider implements llm.Provider. Calls are consumed in order; when the
// script runs out, Complete returns an error.
type Provider struct {
	mu       sync.Mutex
	script   []Call
	requests []llm.CompletionRequest
}

// New creates a Provider with the given script.
func New(script ...Call) *Provider {
	return &Provider{script: script}
}

// Respond appends a plain-text response to the script.
func (p *Provider) Respond(content string) *Provider {
	return p.RespondWith(&llm.CompletionResponse{Content: content, FinishReason: "stop"})
}

// RespondWith appends a full response to the script.
func (p *Provider) RespondWith(resp *llm.CompletionResponse) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, Call{Response: resp})
	return p
}

// Fail appends an error to the script.
func (p *Provider) Fail(err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, Call{Err: err})
	return p
}

// Complete pops the next scripted call.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.script) == 0 {
		return nil, errors.New("mock: no scripted responses left")
	}
	call := p.script[0]
	p.script = p.script[1:]
	return call.Response, call.Err
}

// Requests returns every request received so far.
func (p *Provider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

var _ llm.Provider = (*Provider)(nil)
