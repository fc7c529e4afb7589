package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/interloq/interloq/internal/resilience"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: 3,
		Cooldown:    time.Hour,
	})

	for range 3 {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("err = %v, want errBoom", err)
		}
	}
	if got := cb.State(); got != resilience.StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn was called while breaker open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 2,
		Cooldown:    time.Hour,
	})

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })

	if got := cb.State(); got != resilience.StateClosed {
		t.Fatalf("state = %v, want closed (success should reset the counter)", got)
	}
}

func TestCircuitBreaker_HalfOpenProbesThenCloses(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Millisecond,
		ProbeBudget: 2,
	})

	_ = cb.Execute(func() error { return errBoom })
	if got := cb.State(); got != resilience.StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(5 * time.Millisecond)
	if got := cb.State(); got != resilience.StateHalfOpen {
		t.Fatalf("state = %v, want half-open after cooldown", got)
	}

	for range 2 {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe failed: %v", err)
		}
	}
	if got := cb.State(); got != resilience.StateClosed {
		t.Fatalf("state = %v, want closed after successful probes", got)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Millisecond,
	})

	_ = cb.Execute(func() error { return errBoom })
	time.Sleep(5 * time.Millisecond)

	_ = cb.Execute(func() error { return errBoom })
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen after failed probe", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Hour,
	})
	_ = cb.Execute(func() error { return errBoom })
	cb.Reset()
	if got := cb.State(); got != resilience.StateClosed {
		t.Fatalf("state = %v, want closed after Reset", got)
	}
}
