// Package mock provides a scripted recognize.Provider for tests: sessions
// replay a fixed sequence of partial and final transcripts on demand.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/interloq/interloq/pkg/recognize"
)

// Provider implements recognize.Provider. The zero value is usable; set
// StartErr to make StartStream fail.
type Provider struct {
	// StartErr, when non-nil, is returned by StartStream.
	StartErr error

	mu       sync.Mutex
	sessions []*Session
}

// StartStream opens a new scripted session.
func (p *Provider) StartStream(_ context.Context, cfg recognize.StreamConfig) (recognize.SessionHandle, error) {
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	s := &Session{
		Config:   cfg,
		partials: make(chan recognize.Transcript, 16),
		finals:   make(chan recognize.Transcript, 16),
	}
	p.mu.Lock()
	p.sessions = append(p.sessions, s)
	p.mu.Unlock()
	return s, nil
}

// Sessions returns every session opened so far.
func (p *Provider) Sessions() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Session, len(p.sessions))
	copy(out, p.sessions)
	return out
}

// Session is a scripted recognition session.
type Session struct {
	// Config records the StreamConfig the session was opened with.
	Config recognize.StreamConfig

	mu       sync.Mutex
	audio    [][]byte
	closed   bool
	partials chan recognize.Transcript
	finals   chan recognize.Transcript
}

// EmitPartial pushes an interim transcript to the consumer.
func (s *Session) EmitPartial(text string) {
	s.partials <- recognize.Transcript{Text: text}
}

// EmitFinal pushes a final transcript to the consumer.
func (s *Session) EmitFinal(text string) {
	s.finals <- recognize.Transcript{Text: text, IsFinal: true}
}

// Audio returns all chunks received via SendAudio.
func (s *Session) Audio() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.audio))
	copy(out, s.audio)
	return out
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("mock: session is closed")
	}
	s.audio = append(s.audio, chunk)
	return nil
}

func (s *Session) Partials() <-chan recognize.Transcript { return s.partials }

func (s *Session) Finals() <-chan recognize.Transcript { return s.finals }

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.partials)
		close(s.finals)
	}
	return nil
}

var _ recognize.Provider = (*Provider)(nil)
var _ recognize.SessionHandle = (*Session)(nil)
