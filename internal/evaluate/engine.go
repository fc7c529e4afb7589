package evaluate

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/interloq/interloq/internal/observe"
	"github.com/interloq/interloq/pkg/assess"
	"github.com/interloq/interloq/pkg/audio"
	"github.com/interloq/interloq/pkg/scoring"
)

// Request carries everything one evaluation needs. Clip may be nil when no
// audio was captured; ContentReference may be empty when the script has no
// comparison text, in which case the content half is skipped.
type Request struct {
	Clip             *audio.Clip
	RecognizedText   string
	ReferenceText    string
	ContentReference string
	Language         string
}

// Engine runs the pronunciation and content halves of an evaluation
// concurrently and fuses their results. The assessment backend is optional;
// without one (or when it fails) pronunciation falls back to the text
// heuristic. Evaluate always returns a usable Result.
type Engine struct {
	assessor assess.Provider
	content  *ContentEvaluator
	metrics  *observe.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithAssessor sets the pronunciation-assessment backend.
func WithAssessor(p assess.Provider) Option {
	return func(e *Engine) { e.assessor = p }
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an evaluation engine. content may be nil when no
// language-model backend is configured; the content half is then skipped.
func NewEngine(content *ContentEvaluator, opts ...Option) *Engine {
	e := &Engine{content: content}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Evaluate scores one practice attempt. Both halves run concurrently; a
// failure in either degrades that half rather than failing the evaluation.
func (e *Engine) Evaluate(ctx context.Context, req Request) *scoring.Result {
	ctx, span := observe.StartSpan(ctx, "evaluate.attempt")
	defer span.End()

	start := time.Now()
	defer func() {
		e.metrics.EvaluationDuration.Record(ctx, time.Since(start).Seconds())
	}()

	var (
		pron    *scoring.PronunciationScore
		content *scoring.ContentScore
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pron = e.pronunciation(gctx, req)
		return nil
	})
	g.Go(func() error {
		content = e.contentScore(gctx, req)
		return nil
	})
	// Workers only ever return nil; the group is for the joined wait and the
	// shared context.
	_ = g.Wait()

	return &scoring.Result{
		Pronunciation: pron,
		Content:       content,
		Overall:       Combine(pron, content),
	}
}

// pronunciation runs the assessment backend when one is configured and a
// clip exists, falling back to the heuristic on any failure.
func (e *Engine) pronunciation(ctx context.Context, req Request) *scoring.PronunciationScore {
	start := time.Now()
	defer func() {
		e.metrics.AssessmentDuration.Record(ctx, time.Since(start).Seconds())
	}()

	if e.assessor != nil && req.Clip != nil {
		score, err := e.assessor.Assess(ctx, assess.Request{
			Clip:          req.Clip,
			ReferenceText: req.ReferenceText,
			Language:      req.Language,
		})
		if err == nil {
			return score
		}
		if errors.Is(err, assess.ErrNoSpeech) {
			observe.Logger(ctx).Info("assessment found no speech, using heuristic", "language", req.Language)
		} else {
			observe.Logger(ctx).Warn("pronunciation assessment failed, using heuristic", "error", err)
		}
		e.metrics.HeuristicFallbacks.Add(ctx, 1)
	}

	return HeuristicPronunciation(req.RecognizedText, req.ReferenceText)
}

// contentScore runs the semantic half. A nil return means the half was
// skipped or failed in transport; parse failures inside the evaluator have
// already been degraded to a usable score there.
func (e *Engine) contentScore(ctx context.Context, req Request) *scoring.ContentScore {
	if e.content == nil || req.ContentReference == "" || req.RecognizedText == "" {
		return nil
	}
	score, err := e.content.Evaluate(ctx, req.RecognizedText, req.ContentReference, req.Language)
	if err != nil {
		observe.Logger(ctx).Warn("content evaluation failed", "error", err)
		return nil
	}
	return score
}
