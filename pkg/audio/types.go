// Package audio holds the captured-audio clip type, PCM conversion helpers,
// and the WAV transcoder used to normalize recorded practice audio for
// assessment backends that require raw PCM.
package audio

// MIME types negotiated with capture platforms, in order of preference.
// Opus-family codecs come first; PCM WAV passes through untouched.
const (
	MIMEOpus     = "audio/opus"
	MIMEOggOpus  = "audio/ogg;codecs=opus"
	MIMEWebmOpus = "audio/webm;codecs=opus"
	MIMEWav      = "audio/wav"
)

// PreferredMIMETypes is the negotiation order offered to capture platforms.
var PreferredMIMETypes = []string{MIMEOpus, MIMEOggOpus, MIMEWebmOpus}

// DefaultMIMEType is assumed when a platform reports no negotiated type.
const DefaultMIMEType = MIMEWebmOpus

// Chunk is one compressed audio unit delivered by a capture platform during
// recording. For Opus-family MIME types each chunk is a single Opus packet.
type Chunk struct {
	Data []byte
}

// Clip is a finalized recording: the ordered chunks captured during one
// practice attempt plus the negotiated format metadata.
type Clip struct {
	Chunks     []Chunk
	MIMEType   string
	SampleRate int
	Channels   int
}

// Empty reports whether the clip contains no audio data at all.
func (c *Clip) Empty() bool {
	if c == nil {
		return true
	}
	for _, ch := range c.Chunks {
		if len(ch.Data) > 0 {
			return false
		}
	}
	return true
}

// Bytes concatenates all chunk payloads in capture order.
func (c *Clip) Bytes() []byte {
	if c == nil {
		return nil
	}
	size := 0
	for _, ch := range c.Chunks {
		size += len(ch.Data)
	}
	out := make([]byte, 0, size)
	for _, ch := range c.Chunks {
		out = append(out, ch.Data...)
	}
	return out
}
