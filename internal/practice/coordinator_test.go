package practice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/interloq/interloq/internal/evaluate"
	"github.com/interloq/interloq/internal/observe"
	"github.com/interloq/interloq/internal/practice"
	"github.com/interloq/interloq/internal/refscript"
	"github.com/interloq/interloq/pkg/assess"
	assessmock "github.com/interloq/interloq/pkg/assess/mock"
	"github.com/interloq/interloq/pkg/audio"
	"github.com/interloq/interloq/pkg/capture"
	capturemock "github.com/interloq/interloq/pkg/capture/mock"
	llmmock "github.com/interloq/interloq/pkg/provider/llm/mock"
	recognizemock "github.com/interloq/interloq/pkg/recognize/mock"
	"github.com/interloq/interloq/pkg/scoring"
)

func testUnit() refscript.Unit {
	return refscript.Unit{
		ID:       "u1",
		Language: "zh",
		Primary:  "今天股市上涨了",
		Opposite: "오늘 증시가 올랐습니다",
	}
}

func newEngine() *evaluate.Engine {
	return evaluate.NewEngine(nil)
}

func fastConfig() practice.Config {
	return practice.Config{CountdownTicks: 0, CountdownInterval: time.Millisecond}
}

func TestBeginWithCountdown_NoRecognizer(t *testing.T) {
	t.Parallel()

	c := practice.NewCoordinator(&capturemock.Platform{}, nil, newEngine(), fastConfig())
	err := c.BeginWithCountdown(context.Background(), testUnit())
	if !errors.Is(err, practice.ErrUnsupportedCapability) {
		t.Fatalf("err = %v, want ErrUnsupportedCapability", err)
	}
	if c.State() != practice.StateIdle {
		t.Fatalf("state = %q, want idle after capability failure", c.State())
	}
}

func TestBeginWithCountdown_TicksAndLocale(t *testing.T) {
	t.Parallel()

	recognizer := &recognizemock.Provider{}
	var ticks []int
	c := practice.NewCoordinator(&capturemock.Platform{}, recognizer, newEngine(),
		practice.Config{CountdownTicks: 3, CountdownInterval: time.Millisecond},
		practice.WithCallbacks(practice.Callbacks{
			OnCountdown: func(remaining int) { ticks = append(ticks, remaining) },
		}))

	if err := c.BeginWithCountdown(context.Background(), testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}
	defer c.Reset()

	want := []int{3, 2, 1, 0}
	if len(ticks) != len(want) {
		t.Fatalf("ticks = %v, want %v", ticks, want)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Fatalf("ticks = %v, want %v", ticks, want)
		}
	}

	if c.State() != practice.StateRecording {
		t.Fatalf("state = %q, want recording", c.State())
	}
	// The primary script is Chinese, so the practitioner speaks Korean.
	sessions := recognizer.Sessions()
	if len(sessions) != 1 || sessions[0].Config.Language != "ko-KR" {
		t.Fatalf("sessions = %+v, want one ko-KR stream", sessions)
	}
}

func TestBeginWithCountdown_InvalidFromRecording(t *testing.T) {
	t.Parallel()

	c := practice.NewCoordinator(&capturemock.Platform{}, &recognizemock.Provider{}, newEngine(), fastConfig())
	if err := c.BeginWithCountdown(context.Background(), testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}
	defer c.Reset()

	if err := c.BeginWithCountdown(context.Background(), testUnit()); !errors.Is(err, practice.ErrInvalidState) {
		t.Fatalf("second begin: err = %v, want ErrInvalidState", err)
	}
}

func TestFullAttempt(t *testing.T) {
	t.Parallel()

	platform := &capturemock.Platform{
		Chunks:    []audio.Chunk{{Data: []byte{1, 2, 3}}},
		PCMFrames: [][]byte{{0, 0}, {1, 1}},
	}
	recognizer := &recognizemock.Provider{}
	assessor := &assessmock.Provider{
		Score: &scoring.PronunciationScore{Accuracy: 88, Fluency: 80, Prosody: 75, Source: scoring.SourceAssessment},
	}
	content := evaluate.NewContentEvaluator(
		llmmock.New().Respond(`{"accuracy":90,"completeness":85,"fluency":80,"summary":"good"}`), nil)
	engine := evaluate.NewEngine(content, evaluate.WithAssessor(assessor))

	c := practice.NewCoordinator(platform, recognizer, engine, fastConfig())
	ctx := context.Background()

	if err := c.BeginWithCountdown(ctx, testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}

	session := recognizer.Sessions()[0]
	session.EmitPartial("오늘")
	session.EmitPartial("오늘 증시가")
	session.EmitFinal("오늘 증시가 올랐습니다")

	// Let the audio pump drain the scripted frames before the stream closes.
	waitFor(t, func() bool { return len(session.Audio()) == 2 })

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.State() != practice.StateReady {
		t.Fatalf("state = %q, want ready", c.State())
	}
	if got := c.Transcript(); got != "오늘 증시가 올랐습니다" {
		t.Fatalf("Transcript = %q", got)
	}
	if !session.Closed() {
		t.Error("recognition session should be closed")
	}
	if !platform.Recorders()[0].Stopped() {
		t.Error("microphone should be released")
	}
	// Audio was pumped into the stream while recording.
	if got := session.Audio(); len(got) != 2 {
		t.Errorf("pumped frames = %d, want 2", len(got))
	}

	result, err := c.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if c.State() != practice.StateScored {
		t.Fatalf("state = %q, want scored", c.State())
	}
	if result.Pronunciation == nil || result.Pronunciation.Source != scoring.SourceAssessment {
		t.Fatalf("Pronunciation = %+v, want assessment-sourced", result.Pronunciation)
	}
	if result.Content == nil || result.Content.Accuracy != 90 {
		t.Fatalf("Content = %+v", result.Content)
	}

	// The assessment got the clip, the reference being spoken, and the
	// spoken language.
	req := assessor.Requests()[0]
	if req.Clip == nil || req.ReferenceText != "오늘 증시가 올랐습니다" || req.Language != "ko" {
		t.Fatalf("assess request = %+v", req)
	}
}

func TestStop_MicDeniedDegradesToRecognitionOnly(t *testing.T) {
	t.Parallel()

	platform := &capturemock.Platform{RecordErr: capture.ErrPermissionDenied}
	recognizer := &recognizemock.Provider{}
	c := practice.NewCoordinator(platform, recognizer, newEngine(), fastConfig())
	ctx := context.Background()

	if err := c.BeginWithCountdown(ctx, testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}
	if c.State() != practice.StateRecording {
		t.Fatalf("state = %q, want recording despite denied microphone", c.State())
	}

	recognizer.Sessions()[0].EmitFinal("안녕하세요")
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	result, err := c.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Pronunciation == nil || result.Pronunciation.Source != scoring.SourceHeuristic {
		t.Fatalf("Pronunciation = %+v, want heuristic without audio", result.Pronunciation)
	}
}

func TestStop_ZeroChunksYieldsNilClip(t *testing.T) {
	t.Parallel()

	platform := &capturemock.Platform{} // zero chunks scripted
	recognizer := &recognizemock.Provider{}
	c := practice.NewCoordinator(platform, recognizer, newEngine(), fastConfig())
	ctx := context.Background()

	if err := c.BeginWithCountdown(ctx, testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}
	recognizer.Sessions()[0].EmitFinal("오늘 증시가 올랐습니다")
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.State() != practice.StateReady {
		t.Fatalf("state = %q, want ready", c.State())
	}

	result, err := c.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Pronunciation.Source != scoring.SourceHeuristic {
		t.Fatalf("Source = %q, want heuristic for a zero-chunk recording", result.Pronunciation.Source)
	}
}

func TestStop_InvalidFromIdle(t *testing.T) {
	t.Parallel()

	c := practice.NewCoordinator(&capturemock.Platform{}, &recognizemock.Provider{}, newEngine(), fastConfig())
	if err := c.Stop(context.Background()); !errors.Is(err, practice.ErrInvalidState) {
		t.Fatalf("Stop from idle: err = %v, want ErrInvalidState", err)
	}
}

func TestInterimNeverDuplicatesStable(t *testing.T) {
	t.Parallel()

	recognizer := &recognizemock.Provider{}
	c := practice.NewCoordinator(&capturemock.Platform{}, recognizer, newEngine(), fastConfig())
	ctx := context.Background()

	if err := c.BeginWithCountdown(ctx, testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}
	session := recognizer.Sessions()[0]
	// The same partial replayed twice, then its final.
	session.EmitPartial("오늘 증시가")
	session.EmitPartial("오늘 증시가")
	session.EmitFinal("오늘 증시가")
	session.EmitFinal("올랐습니다")

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := c.Transcript(); got != "오늘 증시가 올랐습니다" {
		t.Fatalf("Transcript = %q, want finals joined exactly once", got)
	}
}

func TestStop_InterimPolicy(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		keep bool
		want string
	}{
		{"discarded by default", false, ""},
		{"kept when configured", true, "오늘 증시가"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			recognizer := &recognizemock.Provider{}
			cfg := fastConfig()
			cfg.KeepInterimOnStop = tc.keep
			c := practice.NewCoordinator(&capturemock.Platform{}, recognizer, newEngine(), cfg)
			ctx := context.Background()

			if err := c.BeginWithCountdown(ctx, testUnit()); err != nil {
				t.Fatalf("BeginWithCountdown: %v", err)
			}
			recognizer.Sessions()[0].EmitPartial("오늘 증시가")
			// Give the interim consumer a moment to observe the partial.
			waitFor(t, func() bool { return c.Transcript() == "오늘 증시가" })

			if err := c.Stop(ctx); err != nil {
				t.Fatalf("Stop: %v", err)
			}
			if got := c.Transcript(); got != tc.want {
				t.Fatalf("Transcript = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEvaluate_NothingToEvaluate(t *testing.T) {
	t.Parallel()

	recognizer := &recognizemock.Provider{}
	c := practice.NewCoordinator(&capturemock.Platform{}, recognizer, newEngine(), fastConfig())
	ctx := context.Background()

	if err := c.BeginWithCountdown(ctx, testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// No transcript and a zero-chunk clip: nothing to score.
	if _, err := c.Evaluate(ctx); !errors.Is(err, practice.ErrInvalidState) {
		t.Fatalf("Evaluate: err = %v, want ErrInvalidState", err)
	}
}

func TestReset_ReleasesMicrophoneFromRecording(t *testing.T) {
	t.Parallel()

	platform := &capturemock.Platform{Chunks: []audio.Chunk{{Data: []byte{1}}}}
	recognizer := &recognizemock.Provider{}
	c := practice.NewCoordinator(platform, recognizer, newEngine(), fastConfig())

	if err := c.BeginWithCountdown(context.Background(), testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}
	c.Reset()

	if c.State() != practice.StateIdle {
		t.Fatalf("state = %q, want idle", c.State())
	}
	if !platform.Recorders()[0].Stopped() {
		t.Error("microphone should be released on reset")
	}
	if !recognizer.Sessions()[0].Closed() {
		t.Error("recognition session should be closed on reset")
	}
	if c.Transcript() != "" || c.Result() != nil {
		t.Error("buffers should be discarded on reset")
	}
}

// blockingAssessor parks Assess until released, letting tests reset the
// session mid-evaluation.
type blockingAssessor struct {
	release chan struct{}
}

func (b *blockingAssessor) Assess(ctx context.Context, _ assess.Request) (*scoring.PronunciationScore, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &scoring.PronunciationScore{Accuracy: 95, Source: scoring.SourceAssessment}, nil
}

func TestReset_DuringEvaluationDropsStaleResult(t *testing.T) {
	t.Parallel()

	platform := &capturemock.Platform{Chunks: []audio.Chunk{{Data: []byte{1}}}}
	recognizer := &recognizemock.Provider{}
	blocker := &blockingAssessor{release: make(chan struct{})}
	engine := evaluate.NewEngine(nil, evaluate.WithAssessor(blocker))
	c := practice.NewCoordinator(platform, recognizer, engine, fastConfig())
	ctx := context.Background()

	if err := c.BeginWithCountdown(ctx, testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}
	recognizer.Sessions()[0].EmitFinal("오늘 증시가 올랐습니다")
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	type evalOut struct {
		result *scoring.Result
		err    error
	}
	done := make(chan evalOut, 1)
	go func() {
		r, err := c.Evaluate(ctx)
		done <- evalOut{r, err}
	}()

	waitFor(t, func() bool { return c.State() == practice.StateEvaluating })
	c.Reset()
	close(blocker.release)

	out := <-done
	if out.err != nil {
		t.Fatalf("Evaluate: %v", out.err)
	}
	if out.result != nil {
		t.Fatalf("result = %+v, want nil after reset", out.result)
	}
	if c.State() != practice.StateIdle || c.Result() != nil {
		t.Fatalf("state = %q result = %+v, want idle with no result", c.State(), c.Result())
	}
}

func TestStop_RecordsRecognitionDuration(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	c := practice.NewCoordinator(&capturemock.Platform{}, &recognizemock.Provider{}, newEngine(),
		fastConfig(), practice.WithMetrics(m))
	ctx := context.Background()

	if err := c.BeginWithCountdown(ctx, testUnit()); err != nil {
		t.Fatalf("BeginWithCountdown: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "interloq.recognition.duration" {
				continue
			}
			hist, ok := metric.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("data type = %T, want Histogram[float64]", metric.Data)
			}
			if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
				t.Fatalf("unexpected data points: %+v", hist.DataPoints)
			}
			return
		}
	}
	t.Fatal("interloq.recognition.duration not recorded")
}

func TestSpokenLocale(t *testing.T) {
	t.Parallel()

	if got := practice.SpokenLocale("ko"); got != "zh-CN" {
		t.Errorf("SpokenLocale(ko) = %q, want zh-CN", got)
	}
	if got := practice.SpokenLocale("zh"); got != "ko-KR" {
		t.Errorf("SpokenLocale(zh) = %q, want ko-KR", got)
	}
	if got := practice.SpokenLanguage("ko"); got != "zh" {
		t.Errorf("SpokenLanguage(ko) = %q, want zh", got)
	}
}

// waitFor polls cond for up to a second.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
