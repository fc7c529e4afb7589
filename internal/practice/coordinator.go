// Package practice orchestrates one interpretation attempt: the countdown,
// microphone capture, live speech recognition, and the hand-off into the
// evaluation engine. One Coordinator owns at most one in-flight recording;
// its microphone handle is released on every exit path.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/interloq/interloq/internal/evaluate"
	"github.com/interloq/interloq/internal/observe"
	"github.com/interloq/interloq/internal/refscript"
	"github.com/interloq/interloq/pkg/audio"
	"github.com/interloq/interloq/pkg/capture"
	"github.com/interloq/interloq/pkg/recognize"
	"github.com/interloq/interloq/pkg/scoring"
)

// ErrUnsupportedCapability is returned by BeginWithCountdown when no
// recognition provider is configured. It is surfaced to the user before any
// state change.
var ErrUnsupportedCapability = errors.New("practice: speech recognition is not available")

// ErrInvalidState is returned when an operation is called outside the state
// it is valid in.
var ErrInvalidState = errors.New("practice: operation not valid in current state")

const (
	// defaultSampleRate is assumed when recording is degraded away and the
	// recognition stream has no recorder to take its format from.
	defaultSampleRate = 16000

	// stopTimeout bounds the capture flush during Reset, which has no
	// caller-supplied context.
	stopTimeout = 5 * time.Second
)

// Config tunes a Coordinator.
type Config struct {
	// CountdownTicks is the number of countdown steps before recording.
	CountdownTicks int

	// CountdownInterval is the delay between countdown ticks.
	CountdownInterval time.Duration

	// KeepInterimOnStop commits the last interim segment to the stable
	// transcript when recording stops before its final arrived.
	KeepInterimOnStop bool
}

// Callbacks deliver live session events. All fields are optional; callbacks
// are invoked from coordinator goroutines and must not call back into the
// Coordinator.
type Callbacks struct {
	// OnCountdown receives the remaining tick count, ending with 0.
	OnCountdown func(remaining int)

	// OnTranscript receives the stable transcript and the current interim
	// segment after every recognition update.
	OnTranscript func(stable, interim string)

	// OnState receives every state change.
	OnState func(s State)
}

// Coordinator drives the practice session state machine.
type Coordinator struct {
	platform   capture.Platform
	recognizer recognize.Provider
	engine     *evaluate.Engine
	cfg        Config
	callbacks  Callbacks
	metrics    *observe.Metrics

	mu       sync.Mutex
	state    State
	attempt  int
	unit     refscript.Unit
	stable   []string
	interim  string
	clip     *audio.Clip
	recorder capture.Recorder
	session  recognize.SessionHandle
	result   *scoring.Result
	warning  string

	// recordingStart marks the Recording transition for the recognition
	// duration histogram.
	recordingStart time.Time

	// consumers tracks the transcript and audio-pump goroutines of the
	// current recording.
	consumers sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCallbacks installs session event callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(c *Coordinator) { c.callbacks = cb }
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a coordinator in StateIdle. platform may be nil
// when no capture capability exists; recording then degrades to
// recognition-only mode. engine may not be nil.
func NewCoordinator(platform capture.Platform, recognizer recognize.Provider, engine *evaluate.Engine, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		platform:   platform,
		recognizer: recognizer,
		engine:     engine,
		cfg:        cfg,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns the live transcript: the stable buffer plus the current
// interim segment.
func (c *Coordinator) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderTranscriptLocked()
}

// Result returns the scored result of the last attempt, or nil before
// StateScored and after evaluation failure.
func (c *Coordinator) Result() *scoring.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Warning returns the non-fatal warning of the last attempt, if any.
func (c *Coordinator) Warning() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warning
}

// BeginWithCountdown starts a new attempt for unit: ticks the countdown,
// then starts capture and recognition. Valid only from StateIdle.
// Returns ErrUnsupportedCapability, without a state change, when no
// recognizer is configured.
func (c *Coordinator) BeginWithCountdown(ctx context.Context, unit refscript.Unit) error {
	if c.recognizer == nil {
		return ErrUnsupportedCapability
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: begin from %q", ErrInvalidState, c.state)
	}
	attempt := c.attempt
	c.unit = unit
	c.setStateLocked(StateCountdown)
	c.mu.Unlock()

	for remaining := c.cfg.CountdownTicks; remaining > 0; remaining-- {
		c.notifyCountdown(remaining)
		select {
		case <-time.After(c.cfg.CountdownInterval):
		case <-ctx.Done():
			c.Reset()
			return ctx.Err()
		}
	}
	c.notifyCountdown(0)

	c.mu.Lock()
	if c.attempt != attempt || c.state != StateCountdown {
		// Reset during the countdown.
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.startRecording(ctx, attempt)
}

// startRecording acquires the microphone and opens the recognition stream.
// A denied microphone degrades to recognition-only mode; a failed stream
// start degrades to capture-only mode.
func (c *Coordinator) startRecording(ctx context.Context, attempt int) error {
	var recorder capture.Recorder
	if c.platform != nil {
		var err error
		recorder, err = c.platform.Record(ctx, audio.PreferredMIMETypes)
		if err != nil {
			if errors.Is(err, capture.ErrPermissionDenied) {
				slog.Warn("microphone access denied, continuing without audio capture")
			} else {
				slog.Warn("audio capture unavailable", "error", err)
			}
			recorder = nil
		}
	}

	sampleRate := defaultSampleRate
	if recorder != nil {
		sampleRate = recorder.SampleRate()
	}
	session, err := c.recognizer.StartStream(ctx, recognize.StreamConfig{
		SampleRate: sampleRate,
		Channels:   1,
		Language:   SpokenLocale(c.unit.Language),
	})
	if err != nil {
		if recorder == nil {
			// Neither capability is live; abort the attempt.
			c.Reset()
			return fmt.Errorf("practice: start recognition: %w", err)
		}
		slog.Warn("recognition stream failed to start, recording without live transcript", "error", err)
		session = nil
	}

	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		releaseRecorder(recorder)
		closeSession(session)
		return nil
	}
	c.recorder = recorder
	c.session = session
	c.recordingStart = time.Now()
	c.setStateLocked(StateRecording)
	c.mu.Unlock()

	c.metrics.ActiveSessions.Add(ctx, 1)

	if session != nil {
		c.consumers.Add(2)
		go c.consumeFinals(attempt, session.Finals())
		go c.consumeInterims(attempt, session.Partials())
	}
	if recorder != nil && session != nil {
		c.consumers.Add(1)
		go c.pumpAudio(recorder.PCM(), session)
	}
	return nil
}

// Stop ends the recording: the recognition stream is closed first
// (best-effort), then capture is stopped and the final chunk awaited before
// the clip is finalized. Valid only from StateRecording.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return fmt.Errorf("%w: stop from %q", ErrInvalidState, c.state)
	}
	c.setStateLocked(StateStopping)
	session := c.session
	recorder := c.recorder
	c.session = nil
	c.recorder = nil
	c.mu.Unlock()

	closeSession(session)

	var clip *audio.Clip
	if recorder != nil {
		var err error
		clip, err = recorder.Stop(ctx)
		if err != nil {
			slog.Warn("capture stop failed, evaluating without audio", "error", err)
			clip = nil
		}
	}

	// Both ends of the pipeline are closed now; wait for the transcript
	// consumers so the stable buffer is complete before it is rendered.
	c.consumers.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateStopping {
		// Reset won the race; the mic was already released above.
		return nil
	}
	if c.cfg.KeepInterimOnStop && c.interim != "" {
		c.stable = append(c.stable, c.interim)
	}
	c.interim = ""
	c.clip = clip
	c.setStateLocked(StateReady)
	c.metrics.RecognitionDuration.Record(ctx, time.Since(c.recordingStart).Seconds())
	c.metrics.ActiveSessions.Add(context.Background(), -1)
	return nil
}

// Evaluate scores the attempt. Valid only from StateReady, and only when a
// transcript or a clip exists. The session always reaches StateScored; an
// engine failure leaves a nil result and a warning instead of an error.
func (c *Coordinator) Evaluate(ctx context.Context) (*scoring.Result, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: evaluate from %q", ErrInvalidState, c.state)
	}
	transcript := c.renderTranscriptLocked()
	clip := c.clip
	if transcript == "" && clip == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: nothing to evaluate", ErrInvalidState)
	}
	attempt := c.attempt
	unit := c.unit
	c.setStateLocked(StateEvaluating)
	c.mu.Unlock()

	result, warning := c.runEngine(ctx, clip, transcript, unit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != attempt {
		// Reset during evaluation: drop the stale result.
		return nil, nil
	}
	c.result = result
	c.warning = warning
	c.setStateLocked(StateScored)
	return result, nil
}

// runEngine calls the evaluation engine, converting a panic or missing
// engine into a nil result plus warning.
func (c *Coordinator) runEngine(ctx context.Context, clip *audio.Clip, transcript string, unit refscript.Unit) (result *scoring.Result, warning string) {
	if c.engine == nil {
		return nil, "evaluation is not configured"
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("evaluation failed", "panic", r)
			result = nil
			warning = "evaluation failed; please try again"
		}
	}()
	result = c.engine.Evaluate(ctx, evaluate.Request{
		Clip:             clip,
		RecognizedText:   transcript,
		ReferenceText:    unit.Opposite,
		ContentReference: unit.ContentReference(),
		Language:         SpokenLanguage(unit.Language),
	})
	return result, ""
}

// Reset tears down any live recognition and capture handles, discards all
// buffers, and returns to StateIdle. Valid from any state.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	wasLive := c.state == StateRecording || c.state == StateStopping
	session := c.session
	recorder := c.recorder
	c.session = nil
	c.recorder = nil
	c.attempt++
	c.stable = nil
	c.interim = ""
	c.clip = nil
	c.result = nil
	c.warning = ""
	c.unit = refscript.Unit{}
	c.setStateLocked(StateIdle)
	c.mu.Unlock()

	closeSession(session)
	releaseRecorder(recorder)
	c.consumers.Wait()
	if wasLive {
		c.metrics.ActiveSessions.Add(context.Background(), -1)
	}
}

// consumeFinals appends every final transcript segment to the stable buffer.
// Each final arrives exactly once, so replayed interims can never duplicate
// stable text.
func (c *Coordinator) consumeFinals(attempt int, finals <-chan recognize.Transcript) {
	defer c.consumers.Done()
	for tr := range finals {
		text := strings.TrimSpace(tr.Text)
		if text == "" {
			continue
		}
		c.mu.Lock()
		if c.attempt != attempt {
			c.mu.Unlock()
			return
		}
		c.stable = append(c.stable, text)
		c.interim = ""
		stable, interim := strings.Join(c.stable, " "), c.interim
		c.mu.Unlock()
		c.notifyTranscript(stable, interim)
	}
}

// consumeInterims keeps only the latest interim segment for live display.
func (c *Coordinator) consumeInterims(attempt int, partials <-chan recognize.Transcript) {
	defer c.consumers.Done()
	for tr := range partials {
		c.mu.Lock()
		if c.attempt != attempt {
			c.mu.Unlock()
			return
		}
		c.interim = strings.TrimSpace(tr.Text)
		stable, interim := strings.Join(c.stable, " "), c.interim
		c.mu.Unlock()
		c.notifyTranscript(stable, interim)
	}
}

// pumpAudio forwards live PCM frames from the recorder to the recognition
// stream until either side ends.
func (c *Coordinator) pumpAudio(frames <-chan []byte, session recognize.SessionHandle) {
	defer c.consumers.Done()
	for frame := range frames {
		if err := session.SendAudio(frame); err != nil {
			// The stream is gone; recognition ends silently and keeps
			// whatever was already transcribed.
			return
		}
	}
}

func (c *Coordinator) renderTranscriptLocked() string {
	if c.interim == "" {
		return strings.Join(c.stable, " ")
	}
	return strings.TrimSpace(strings.Join(c.stable, " ") + " " + c.interim)
}

// setStateLocked updates the state and fires the callback. Callers hold mu.
func (c *Coordinator) setStateLocked(s State) {
	c.state = s
	if c.callbacks.OnState != nil {
		go c.callbacks.OnState(s)
	}
}

func (c *Coordinator) notifyCountdown(remaining int) {
	if c.callbacks.OnCountdown != nil {
		c.callbacks.OnCountdown(remaining)
	}
}

func (c *Coordinator) notifyTranscript(stable, interim string) {
	if c.callbacks.OnTranscript != nil {
		c.callbacks.OnTranscript(stable, interim)
	}
}

func closeSession(s recognize.SessionHandle) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		slog.Debug("recognition close", "error", err)
	}
}

// releaseRecorder stops a recorder purely to free the microphone; the clip
// is discarded.
func releaseRecorder(r capture.Recorder) {
	if r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if _, err := r.Stop(ctx); err != nil {
		slog.Debug("capture release", "error", err)
	}
}

// SpokenLocale maps a unit's primary-script language to the locale of the
// language the practitioner speaks, which is the opposite side of the pair.
func SpokenLocale(primary string) string {
	switch primary {
	case "ko":
		return "zh-CN"
	case "zh":
		return "ko-KR"
	case "en":
		return "ko-KR"
	default:
		return "ko-KR"
	}
}

// SpokenLanguage is the base code of [SpokenLocale].
func SpokenLanguage(primary string) string {
	locale := SpokenLocale(primary)
	if i := strings.IndexByte(locale, '-'); i > 0 {
		return locale[:i]
	}
	return locale
}
