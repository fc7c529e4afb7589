// Package recognize defines the streaming speech-recognition capability the
// practice coordinator consumes. A provider opens a session for a target
// locale; the session accepts raw PCM audio and emits two transcript
// streams — low-latency interim partials for live display and authoritative
// finals for the stable transcript buffer.
//
// The coordinator treats recognition as best-effort: a session that
// terminates silently (network drop, provider error) simply stops emitting,
// preserving whatever was already recognized.
//
// Implementations must be safe for concurrent use.
package recognize

import "context"

// StreamConfig describes the audio format and recognition locale for a new
// session.
type StreamConfig struct {
	// SampleRate is the PCM sample rate in Hz delivered via SendAudio.
	SampleRate int

	// Channels is the number of PCM channels. Most backends require mono.
	Channels int

	// Language is the BCP-47 locale tag for recognition (e.g. "ko-KR",
	// "zh-CN"). Empty lets the backend auto-detect when supported.
	Language string
}

// SessionHandle is an open recognition session. Callers must call Close when
// done; failing to do so may leak goroutines and connections inside the
// provider. All methods are safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw 16-bit little-endian PCM matching
	// the StreamConfig format. Calling SendAudio after Close returns an
	// error.
	SendAudio(chunk []byte) error

	// Partials emits interim transcripts. Interim segments must never be
	// appended to a stable transcript buffer: the next partial or final for
	// the same utterance replaces them. The channel is closed when the
	// session ends.
	Partials() <-chan Transcript

	// Finals emits authoritative transcripts, one per committed utterance
	// segment. The channel is closed when the session ends.
	Finals() <-chan Transcript

	// Close terminates the session, flushes pending audio, and closes both
	// transcript channels. Calling Close more than once is safe.
	Close() error
}

// Provider opens streaming recognition sessions.
type Provider interface {
	// StartStream opens a session ready to accept audio immediately.
	// Returns an error if the session cannot be established.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
