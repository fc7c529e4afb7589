// Package capture defines the audio-capture capability: a platform that can
// acquire a microphone (or an equivalent audio source), negotiate a chunk
// MIME type from a preference list, and deliver compressed chunks plus a live
// PCM tap while recording.
//
// The microphone handle behind a Recorder is a scoped resource exclusively
// owned by its acquirer: Stop must be called on every exit path, and calling
// it more than once is safe.
package capture

import (
	"context"
	"errors"

	"github.com/interloq/interloq/pkg/audio"
)

// ErrPermissionDenied is returned by Record when the platform refuses
// microphone access. Callers may continue in a degraded recognition-only
// mode.
var ErrPermissionDenied = errors.New("capture: microphone permission denied")

// Recorder is one in-flight recording. All methods are safe for concurrent
// use.
type Recorder interface {
	// MIMEType returns the negotiated chunk type (one of the preferences
	// passed to Record, or the platform default).
	MIMEType() string

	// SampleRate returns the PCM tap sample rate in Hz.
	SampleRate() int

	// PCM returns a live tap of 16-bit little-endian mono PCM frames,
	// suitable for feeding a streaming recognizer. The channel is closed
	// when recording stops. Best-effort: platforms may deliver nothing.
	PCM() <-chan []byte

	// Stop ends the capture, waits for the final chunk to flush, and
	// returns the assembled clip. A recording that captured zero chunks
	// returns a nil clip and no error. Stop releases the microphone handle;
	// calling it again returns the same result.
	Stop(ctx context.Context) (*audio.Clip, error)
}

// Platform acquires recorders.
type Platform interface {
	// Record requests audio capture, negotiating the chunk MIME type from
	// preferred (in order). Returns ErrPermissionDenied when the user or
	// host refuses access.
	Record(ctx context.Context, preferred []string) (Recorder, error)
}
