package resilience_test

import (
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/interloq/interloq/internal/observe"
	"github.com/interloq/interloq/internal/resilience"
	"github.com/interloq/interloq/pkg/provider/llm"
	llmmock "github.com/interloq/interloq/pkg/provider/llm/mock"
)

type fakeScorer struct {
	name string
	err  error
}

func TestFallbackGroup_PrimaryFirst(t *testing.T) {
	t.Parallel()

	fg := resilience.NewFallbackGroup(&fakeScorer{name: "primary"}, "primary", resilience.FallbackConfig{})
	fg.AddFallback("backup", &fakeScorer{name: "backup"})

	got, err := resilience.ExecuteWithResult(t.Context(), fg, func(s *fakeScorer) (string, error) {
		return s.name, s.err
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "primary" {
		t.Fatalf("served by %q, want primary", got)
	}
}

func TestFallbackGroup_FailoverOrder(t *testing.T) {
	t.Parallel()

	fg := resilience.NewFallbackGroup(&fakeScorer{name: "primary", err: errBoom}, "primary", resilience.FallbackConfig{})
	fg.AddFallback("first", &fakeScorer{name: "first", err: errBoom})
	fg.AddFallback("second", &fakeScorer{name: "second"})

	got, err := resilience.ExecuteWithResult(t.Context(), fg, func(s *fakeScorer) (string, error) {
		return s.name, s.err
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "second" {
		t.Fatalf("served by %q, want second", got)
	}
}

func TestFallbackGroup_AllFailed(t *testing.T) {
	t.Parallel()

	fg := resilience.NewFallbackGroup(&fakeScorer{err: errBoom}, "only", resilience.FallbackConfig{})

	err := fg.Execute(t.Context(), func(s *fakeScorer) error { return s.err })
	if !errors.Is(err, resilience.ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_EmitsProviderCounters(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	fb := resilience.NewLLMFallback(llmmock.New().Fail(errBoom), "primary", resilience.FallbackConfig{Metrics: m})
	fb.AddFallback("backup", llmmock.New().Respond("ok"))

	if _, err := fb.Complete(t.Context(), llm.CompletionRequest{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(t.Context(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	requests, ok := findMetric(rm, "interloq.provider.requests")
	if !ok {
		t.Fatal("interloq.provider.requests not found")
	}
	sum, ok := requests.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data type = %T, want Sum[int64]", requests.Data)
	}
	byStatus := map[string]int64{}
	for _, dp := range sum.DataPoints {
		if kind, _ := dp.Attributes.Value(attribute.Key("kind")); kind.AsString() != "scorer" {
			t.Errorf("kind = %q, want scorer", kind.AsString())
		}
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		byStatus[status.AsString()] += dp.Value
	}
	if byStatus["error"] != 1 || byStatus["ok"] != 1 {
		t.Errorf("requests by status = %v, want one error and one ok", byStatus)
	}

	errs, ok := findMetric(rm, "interloq.provider.errors")
	if !ok {
		t.Fatal("interloq.provider.errors not found")
	}
	errSum, ok := errs.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data type = %T, want Sum[int64]", errs.Data)
	}
	var total int64
	for _, dp := range errSum.DataPoints {
		total += dp.Value
	}
	if total != 1 {
		t.Errorf("provider errors = %d, want 1", total)
	}
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	fg := resilience.NewFallbackGroup(&fakeScorer{name: "flaky", err: errBoom}, "flaky", resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{MaxFailures: 1, Cooldown: time.Hour},
	})
	fg.AddFallback("stable", &fakeScorer{name: "stable"})

	// First call trips the flaky breaker, second must not touch it again.
	var calls int
	for range 2 {
		got, err := resilience.ExecuteWithResult(t.Context(), fg, func(s *fakeScorer) (string, error) {
			if s.name == "flaky" {
				calls++
			}
			return s.name, s.err
		})
		if err != nil {
			t.Fatal(err)
		}
		if got != "stable" {
			t.Fatalf("served by %q, want stable", got)
		}
	}
	if calls != 1 {
		t.Fatalf("flaky provider called %d times, want 1", calls)
	}
}
