package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"

	"layeh.com/gopus"
)

// Opus capture defaults when the platform does not report a format.
const (
	defaultOpusSampleRate = 48000
	defaultOpusChannels   = 2

	// opusMaxFrameMs is the largest Opus frame duration the decoder must be
	// able to hold (60 ms per RFC 6716).
	opusMaxFrameMs = 60
)

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WAVE"
}

// EncodeWAV wraps mono 16-bit little-endian PCM with a minimal canonical WAV
// header (RIFF/WAVE/fmt /data chunks, mono, 16-bit, the given sample rate).
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	out := make([]byte, 44+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(out[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(out[34:36], 16)                   // bits per sample
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out
}

// ToWAV converts a captured clip into mono 16-bit PCM WAV at the clip's
// sample rate. Already-WAV input is returned unchanged (byte-identical
// short-circuit). Conversion is best-effort: on any decode failure the
// original clip is returned untouched and a warning is logged — downstream
// consumers must tolerate non-WAV input.
func ToWAV(clip *Clip) *Clip {
	if clip.Empty() {
		return clip
	}
	if strings.Contains(clip.MIMEType, "wav") || IsWAV(clip.Chunks[0].Data) {
		return clip
	}

	pcm, sampleRate, err := decodeOpusClip(clip)
	if err != nil {
		slog.Warn("audio: wav conversion failed, passing original through", "mime", clip.MIMEType, "error", err)
		return clip
	}

	return &Clip{
		Chunks:     []Chunk{{Data: EncodeWAV(pcm, sampleRate)}},
		MIMEType:   MIMEWav,
		SampleRate: sampleRate,
		Channels:   1,
	}
}

// DecodeWAV walks the RIFF chunk list of a 16-bit PCM WAV file and returns
// the raw sample payload plus its format. Non-PCM and non-16-bit files are
// rejected.
func DecodeWAV(data []byte) (pcm []byte, sampleRate, channels int, err error) {
	if !IsWAV(data) {
		return nil, 0, 0, fmt.Errorf("not a RIFF/WAVE stream")
	}
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, fmt.Errorf("short fmt chunk (%d bytes)", size)
			}
			if format := binary.LittleEndian.Uint16(data[body:]); format != 1 {
				return nil, 0, 0, fmt.Errorf("unsupported WAV format %d, want PCM", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			if bits := binary.LittleEndian.Uint16(data[body+14:]); bits != 16 {
				return nil, 0, 0, fmt.Errorf("unsupported bit depth %d, want 16", bits)
			}
		case "data":
			pcm = data[body : body+size]
		}
		// Chunks are word-aligned.
		off = body + size + size%2
	}
	if sampleRate == 0 || channels == 0 {
		return nil, 0, 0, fmt.Errorf("missing fmt chunk")
	}
	if pcm == nil {
		return nil, 0, 0, fmt.Errorf("missing data chunk")
	}
	return pcm, sampleRate, channels, nil
}

// decodeOpusClip decodes every Opus packet in the clip and returns mono
// 16-bit PCM plus the decode sample rate.
func decodeOpusClip(clip *Clip) ([]byte, int, error) {
	if !strings.Contains(clip.MIMEType, "opus") && clip.MIMEType != "" {
		return nil, 0, fmt.Errorf("unsupported source type %q", clip.MIMEType)
	}

	sampleRate := clip.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultOpusSampleRate
	}
	channels := clip.Channels
	if channels <= 0 {
		channels = defaultOpusChannels
	}

	dec, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, 0, fmt.Errorf("create opus decoder: %w", err)
	}

	frameSize := sampleRate * opusMaxFrameMs / 1000
	var pcm []byte
	for i, ch := range clip.Chunks {
		if len(ch.Data) == 0 {
			continue
		}
		samples, err := dec.Decode(ch.Data, frameSize, channels == 2)
		if err != nil {
			return nil, 0, fmt.Errorf("decode packet %d: %w", i, err)
		}
		pcm = append(pcm, Int16sToBytes(samples)...)
	}
	if len(pcm) == 0 {
		return nil, 0, fmt.Errorf("no decodable audio in %d chunks", len(clip.Chunks))
	}

	if channels == 2 {
		pcm = StereoToMono(pcm)
	}
	return pcm, sampleRate, nil
}
