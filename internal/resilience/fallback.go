package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/interloq/interloq/internal/observe"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or
// has an open breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the per-entry circuit breaker created for each
// provider in a [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig

	// Metrics receives a provider request count per attempt and an error
	// count per failure. Nil disables recording.
	Metrics *observe.Metrics
}

// fallbackEntry pairs a provider value with its dedicated breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup wraps a primary and zero or more fallback instances of the
// same provider type. When the primary fails (or its breaker is open), the
// next healthy fallback is tried in registration order.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig

	// kind labels the provider slot ("recognizer", "assessor", "scorer")
	// in emitted metrics. Set by the typed wrappers.
	kind string
}

// NewFallbackGroup creates a group with primary as the first entry.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.entries = append(fg.entries, fg.newEntry(primaryName, primary))
	return fg
}

// AddFallback appends a fallback provider, tried after the primary in the
// order added.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.entries = append(fg.entries, fg.newEntry(name, fallback))
}

func (fg *FallbackGroup[T]) newEntry(name string, value T) fallbackEntry[T] {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	return fallbackEntry[T]{name: name, value: value, breaker: NewCircuitBreaker(cbCfg)}
}

// recordAttempt emits the request counter for one provider attempt and the
// error counter when the provider itself failed. Breaker refusals count as a
// request with status "open" but not as a provider error.
func (fg *FallbackGroup[T]) recordAttempt(ctx context.Context, name string, err error) {
	m := fg.cfg.Metrics
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.RecordProviderRequest(ctx, name, fg.kind, "ok")
	case errors.Is(err, ErrCircuitOpen):
		m.RecordProviderRequest(ctx, name, fg.kind, "open")
	default:
		m.RecordProviderRequest(ctx, name, fg.kind, "error")
		m.RecordProviderError(ctx, name, fg.kind)
	}
}

// Execute tries fn against each entry in order until one succeeds. Entries
// with open breakers are skipped. Returns [ErrAllFailed] wrapping the last
// error when every entry fails.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(T) error) error {
	_, err := ExecuteWithResult(ctx, fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry until one succeeds,
// returning the result. A package-level function because Go does not support
// method-level type parameters.
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		fg.recordAttempt(ctx, entry.name, err)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider (circuit open)", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
