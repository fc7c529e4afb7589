// Package whisper implements recognize.Provider on the whisper.cpp CGO
// bindings for fully local recognition. The whisper.cpp static library
// (libwhisper.a) and headers must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH.
//
// whisper.cpp is a batch model, not a streaming one: a session buffers all
// PCM it receives and runs one inference when the session is closed, emitting
// a single final transcript. There are no interim partials. This makes the
// provider suitable as an offline recognizer for recorded practice audio
// rather than for live-typing display.
package whisper

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/interloq/interloq/pkg/recognize"
)

const defaultSampleRate = 16000

// Provider implements recognize.Provider using a shared whisper.cpp model.
// The model is loaded once and shared across sessions; each session creates
// its own inference context.
type Provider struct {
	model    whisperlib.Model
	language string
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the default transcription language code (e.g. "ko",
// "zh"). Session config languages override it.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// New loads the whisper.cpp model from modelPath. The caller must call Close
// when the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	p := &Provider{model: model}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// StartStream opens a buffering session. Inference runs once on Close.
func (p *Provider) StartStream(ctx context.Context, cfg recognize.StreamConfig) (recognize.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	// whisper.cpp wants a bare ISO 639-1 code, not a full locale tag.
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}
	return &session{
		model:    p.model,
		language: lang,
		channels: ch,
		partials: make(chan recognize.Transcript, 1),
		finals:   make(chan recognize.Transcript, 8),
		done:     make(chan struct{}),
	}, nil
}

// session buffers PCM until Close. It implements recognize.SessionHandle.
type session struct {
	model    whisperlib.Model
	language string
	channels int

	mu     sync.Mutex
	buffer []byte

	partials chan recognize.Transcript
	finals   chan recognize.Transcript
	done     chan struct{}
	once     sync.Once
}

// SendAudio appends a chunk of 16-bit little-endian PCM to the session
// buffer.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("whisper: session is closed")
	default:
	}
	s.mu.Lock()
	s.buffer = append(s.buffer, chunk...)
	s.mu.Unlock()
	return nil
}

// Partials returns a channel that never emits: whisper.cpp has no interim
// results. The channel is closed when the session ends.
func (s *session) Partials() <-chan recognize.Transcript { return s.partials }

// Finals returns the channel carrying the single end-of-session transcript.
func (s *session) Finals() <-chan recognize.Transcript { return s.finals }

// Close runs inference over the buffered audio, emits per-segment final
// transcripts, and closes both channels.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		defer close(s.partials)
		defer close(s.finals)

		s.mu.Lock()
		pcm := s.buffer
		s.buffer = nil
		s.mu.Unlock()

		if len(pcm) == 0 {
			return
		}
		if err := s.infer(pcm); err != nil {
			slog.Warn("whisper inference failed", "error", err)
		}
	})
	return nil
}

// infer runs whisper.cpp over the PCM buffer and pushes every recognized
// segment onto the finals channel.
func (s *session) infer(pcm []byte) error {
	samples := pcmToFloat32Mono(pcm, s.channels)

	// Each context is single-use; the model itself is shared.
	wctx, err := s.model.NewContext()
	if err != nil {
		return fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(s.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", s.language, "error", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return fmt.Errorf("whisper: process audio: %w", err)
	}

	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		t := recognize.Transcript{
			Text:      text,
			IsFinal:   true,
			Timestamp: segment.Start,
			Duration:  segment.End - segment.Start,
		}
		select {
		case s.finals <- t:
		default:
			// Channel full: drop rather than block teardown.
		}
	}
}

// pcmToFloat32Mono converts 16-bit little-endian PCM to mono float32 samples
// normalised to [-1, 1], averaging channels per frame when channels > 1.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		n := len(pcm) / 2
		out := make([]float32, n)
		for i := range n {
			out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
		}
		return out
	}
	frames := len(pcm) / (2 * channels)
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sum += float32(int16(binary.LittleEndian.Uint16(pcm[idx:]))) / 32768.0
		}
		out[i] = sum / float32(channels)
	}
	return out
}

var _ recognize.SessionHandle = (*session)(nil)
var _ recognize.Provider = (*Provider)(nil)
