// Package mock provides a scripted capture.Platform for tests: recorders
// deliver preset chunks and PCM frames, and record whether the microphone
// handle was released.
package mock

import (
	"context"
	"sync"

	"github.com/interloq/interloq/pkg/audio"
	"github.com/interloq/interloq/pkg/capture"
)

// Platform implements capture.Platform. The zero value records empty
// (zero-chunk) sessions; set Chunks and PCMFrames to script content, or
// RecordErr to make Record fail.
type Platform struct {
	// RecordErr, when non-nil, is returned by Record. Set it to
	// capture.ErrPermissionDenied to exercise the denied path.
	RecordErr error

	// Chunks are the compressed chunks every recorder returns from Stop.
	Chunks []audio.Chunk

	// PCMFrames are streamed over the tap immediately after Record.
	PCMFrames [][]byte

	// MIME overrides the negotiated chunk type. Empty picks the first
	// preference or the package default.
	MIME string

	mu        sync.Mutex
	recorders []*Recorder
}

// Record opens a scripted recorder.
func (p *Platform) Record(_ context.Context, preferred []string) (capture.Recorder, error) {
	if p.RecordErr != nil {
		return nil, p.RecordErr
	}
	mime := p.MIME
	if mime == "" {
		if len(preferred) > 0 {
			mime = preferred[0]
		} else {
			mime = audio.DefaultMIMEType
		}
	}
	r := &Recorder{
		mime:   mime,
		chunks: p.Chunks,
		pcm:    make(chan []byte, len(p.PCMFrames)+1),
	}
	for _, f := range p.PCMFrames {
		r.pcm <- f
	}
	p.mu.Lock()
	p.recorders = append(p.recorders, r)
	p.mu.Unlock()
	return r, nil
}

// Recorders returns every recorder opened so far.
func (p *Platform) Recorders() []*Recorder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Recorder, len(p.recorders))
	copy(out, p.recorders)
	return out
}

// Recorder is a scripted recording.
type Recorder struct {
	mime   string
	chunks []audio.Chunk
	pcm    chan []byte

	mu      sync.Mutex
	stopped bool
}

func (r *Recorder) MIMEType() string { return r.mime }

func (r *Recorder) SampleRate() int { return 16000 }

func (r *Recorder) PCM() <-chan []byte { return r.pcm }

// Stop returns the scripted chunks as a clip, or nil when no chunks were
// scripted.
func (r *Recorder) Stop(_ context.Context) (*audio.Clip, error) {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.pcm)
	}
	r.mu.Unlock()
	if len(r.chunks) == 0 {
		return nil, nil
	}
	return &audio.Clip{
		Chunks:     r.chunks,
		MIMEType:   r.mime,
		SampleRate: 48000,
		Channels:   2,
	}, nil
}

// Stopped reports whether Stop has been called, i.e. the microphone handle
// was released.
func (r *Recorder) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

var _ capture.Platform = (*Platform)(nil)
var _ capture.Recorder = (*Recorder)(nil)
