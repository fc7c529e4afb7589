// Package file implements capture.Platform on a prerecorded WAV file. It
// stands in for a live microphone in the CLI and in integration-style tests:
// the file's PCM is streamed over the tap in fixed frames and the whole file
// becomes the recording's single chunk.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/interloq/interloq/pkg/audio"
	"github.com/interloq/interloq/pkg/capture"
)

// frameSamples is the PCM tap frame size in samples (20 ms at 16 kHz).
const frameSamples = 320

// Platform implements capture.Platform by replaying a WAV file.
type Platform struct {
	path string
}

// New creates a Platform that records from the WAV file at path.
func New(path string) (*Platform, error) {
	if path == "" {
		return nil, errors.New("file: path must not be empty")
	}
	return &Platform{path: path}, nil
}

// Record opens the file and starts streaming its PCM over the tap. The MIME
// preference list is ignored: the chunk type is always audio/wav.
func (p *Platform) Record(ctx context.Context, _ []string) (capture.Recorder, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("file: read %q: %w", p.path, err)
	}
	pcm, sampleRate, channels, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("file: parse %q: %w", p.path, err)
	}

	r := &recorder{
		data:       data,
		sampleRate: sampleRate,
		pcm:        make(chan []byte, 64),
		done:       make(chan struct{}),
	}
	r.wg.Add(1)
	go r.stream(ctx, pcm, channels)
	return r, nil
}

type recorder struct {
	data       []byte
	sampleRate int

	pcm  chan []byte
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	mu   sync.Mutex
	clip *audio.Clip
}

func (r *recorder) MIMEType() string { return audio.MIMEWav }

func (r *recorder) SampleRate() int { return r.sampleRate }

func (r *recorder) PCM() <-chan []byte { return r.pcm }

// Stop ends the replay and returns the whole file as a one-chunk clip.
func (r *recorder) Stop(_ context.Context) (*audio.Clip, error) {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.mu.Lock()
		r.clip = &audio.Clip{
			Chunks:     []audio.Chunk{{Data: r.data}},
			MIMEType:   audio.MIMEWav,
			SampleRate: r.sampleRate,
			Channels:   1,
		}
		r.mu.Unlock()
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip, nil
}

// stream pushes mono PCM frames over the tap until the file is exhausted or
// the recording stops.
func (r *recorder) stream(ctx context.Context, pcm []byte, channels int) {
	defer r.wg.Done()
	defer close(r.pcm)

	if channels == 2 {
		pcm = audio.StereoToMono(pcm)
	}

	frameBytes := frameSamples * 2
	for off := 0; off < len(pcm); off += frameBytes {
		end := min(off+frameBytes, len(pcm))
		frame := make([]byte, end-off)
		copy(frame, pcm[off:end])
		select {
		case r.pcm <- frame:
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

var _ capture.Platform = (*Platform)(nil)
var _ capture.Recorder = (*recorder)(nil)
