package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/interloq/interloq/pkg/assess"
	"github.com/interloq/interloq/pkg/capture"
	"github.com/interloq/interloq/pkg/provider/llm"
	"github.com/interloq/interloq/pkg/recognize"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	recognizers map[string]func(ProviderEntry) (recognize.Provider, error)
	assessors   map[string]func(ProviderEntry) (assess.Provider, error)
	scorers     map[string]func(ProviderEntry) (llm.Provider, error)
	platforms   map[string]func(ProviderEntry) (capture.Platform, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		recognizers: make(map[string]func(ProviderEntry) (recognize.Provider, error)),
		assessors:   make(map[string]func(ProviderEntry) (assess.Provider, error)),
		scorers:     make(map[string]func(ProviderEntry) (llm.Provider, error)),
		platforms:   make(map[string]func(ProviderEntry) (capture.Platform, error)),
	}
}

// RegisterRecognizer registers a speech-recognition provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterRecognizer(name string, factory func(ProviderEntry) (recognize.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognizers[name] = factory
}

// RegisterAssessor registers a pronunciation-assessment provider factory under name.
func (r *Registry) RegisterAssessor(name string, factory func(ProviderEntry) (assess.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assessors[name] = factory
}

// RegisterScorer registers a content-scoring provider factory under name.
func (r *Registry) RegisterScorer(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorers[name] = factory
}

// RegisterPlatform registers a capture platform factory under name.
func (r *Registry) RegisterPlatform(name string, factory func(ProviderEntry) (capture.Platform, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platforms[name] = factory
}

// CreateRecognizer instantiates a recognizer using the factory registered
// under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateRecognizer(entry ProviderEntry) (recognize.Provider, error) {
	r.mu.RLock()
	factory, ok := r.recognizers[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: recognizer/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateAssessor instantiates an assessor using the factory registered under entry.Name.
func (r *Registry) CreateAssessor(entry ProviderEntry) (assess.Provider, error) {
	r.mu.RLock()
	factory, ok := r.assessors[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: assessor/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateScorer instantiates a content scorer using the factory registered under entry.Name.
func (r *Registry) CreateScorer(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.scorers[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: scorer/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreatePlatform instantiates a capture platform using the factory registered under entry.Name.
func (r *Registry) CreatePlatform(entry ProviderEntry) (capture.Platform, error) {
	r.mu.RLock()
	factory, ok := r.platforms[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: platform/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
