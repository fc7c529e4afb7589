// Package deepgram implements recognize.Provider on the Deepgram streaming
// WebSocket API, which delivers the interim/final transcript split the
// practice coordinator relies on.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/interloq/interloq/pkg/recognize"
)

const (
	endpoint          = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model (e.g. "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithSampleRate sets the provider-level default sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// Provider implements recognize.Provider backed by Deepgram.
type Provider struct {
	apiKey     string
	model      string
	sampleRate int
}

// New creates a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// StartStream opens a streaming recognition session. It respects
// cfg.SampleRate, cfg.Channels, and cfg.Language.
func (p *Provider) StartStream(ctx context.Context, cfg recognize.StreamConfig) (recognize.SessionHandle, error) {
	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}

	sess := &session{
		conn:     conn,
		partials: make(chan recognize.Transcript, 64),
		finals:   make(chan recognize.Transcript, 64),
		audio:    make(chan []byte, 256),
		done:     make(chan struct{}),
	}
	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)
	return sess, nil
}

func (p *Provider) buildURL(cfg recognize.StreamConfig) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = p.sampleRate
	}

	q := u.Query()
	q.Set("model", p.model)
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	q.Set("encoding", "linear16")
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("sample_rate", strconv.Itoa(sr))
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// response is the JSON shape of a Deepgram Results event.
type response struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is a live Deepgram stream. It implements recognize.SessionHandle.
type session struct {
	conn     *websocket.Conn
	partials chan recognize.Transcript
	finals   chan recognize.Transcript
	audio    chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("deepgram: session is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("deepgram: session is closed")
	}
}

func (s *session) Partials() <-chan recognize.Transcript { return s.partials }

func (s *session) Finals() <-chan recognize.Transcript { return s.finals }

// Close asks Deepgram to flush pending audio, waits for both loops, and
// closes the connection.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain buffered audio before exiting.
			for {
				select {
				case chunk := <-s.audio:
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.partials)
	defer close(s.finals)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Silent termination is tolerated by the coordinator.
			return
		}
		t, ok := parseResponse(msg)
		if !ok {
			continue
		}
		out := s.partials
		if t.IsFinal {
			out = s.finals
		}
		select {
		case out <- t:
		case <-s.done:
		}
	}
}

// parseResponse converts a raw Deepgram message into a Transcript. Returns
// false for messages that should be ignored (metadata, empty alternatives).
func parseResponse(data []byte) (recognize.Transcript, bool) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return recognize.Transcript{}, false
	}
	if resp.Type != "Results" || len(resp.Channel.Alternatives) == 0 {
		return recognize.Transcript{}, false
	}

	alt := resp.Channel.Alternatives[0]
	words := make([]recognize.WordDetail, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, recognize.WordDetail{
			Word:       w.Word,
			Start:      time.Duration(w.Start * float64(time.Second)),
			End:        time.Duration(w.End * float64(time.Second)),
			Confidence: w.Confidence,
		})
	}
	return recognize.Transcript{
		Text:       alt.Transcript,
		IsFinal:    resp.IsFinal,
		Confidence: alt.Confidence,
		Words:      words,
	}, true
}
