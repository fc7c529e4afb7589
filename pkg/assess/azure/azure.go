// Package azure implements assess.Provider on the Azure Speech
// pronunciation-assessment REST API (short audio). Clips are transcoded to
// 16 kHz mono WAV before upload.
package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/interloq/interloq/pkg/assess"
	"github.com/interloq/interloq/pkg/audio"
	"github.com/interloq/interloq/pkg/scoring"
)

const (
	// uploadSampleRate is the rate the service expects for short-audio
	// uploads.
	uploadSampleRate = 16000

	defaultTimeout = 30 * time.Second

	// defaultLongPauseGapMs is the silence threshold for deriving pause
	// intervals from word timings; the REST API does not report pauses
	// itself.
	defaultLongPauseGapMs = 1500
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client, e.g. for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithEndpoint overrides the service endpoint. The default is derived from
// the region.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) { p.endpoint = endpoint }
}

// WithLongPauseGap overrides the silence threshold (in milliseconds) above
// which a gap between consecutive words is reported as a long pause.
// Non-positive values keep the default.
func WithLongPauseGap(ms int) Option {
	return func(p *Provider) {
		if ms > 0 {
			p.longPauseGap = ms
		}
	}
}

// Provider implements assess.Provider backed by Azure Speech.
type Provider struct {
	key          string
	endpoint     string
	client       *http.Client
	longPauseGap int
}

// New creates a Provider for the given subscription key and service region
// (e.g. "koreacentral").
func New(key, region string, opts ...Option) (*Provider, error) {
	if key == "" {
		return nil, errors.New("azure: subscription key must not be empty")
	}
	if region == "" {
		return nil, errors.New("azure: region must not be empty")
	}
	p := &Provider{
		key:          key,
		endpoint:     fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", region),
		client:       &http.Client{Timeout: defaultTimeout},
		longPauseGap: defaultLongPauseGapMs,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// assessmentParams is the JSON carried base64-encoded in the
// Pronunciation-Assessment header.
type assessmentParams struct {
	ReferenceText           string `json:"ReferenceText"`
	GradingSystem           string `json:"GradingSystem"`
	Granularity             string `json:"Granularity"`
	Dimension               string `json:"Dimension"`
	EnableProsodyAssessment bool   `json:"EnableProsodyAssessment"`
}

// Assess uploads the clip and parses the detailed NBest result.
func (p *Provider) Assess(ctx context.Context, req assess.Request) (*scoring.PronunciationScore, error) {
	if req.Clip.Empty() {
		return nil, errors.New("azure: clip is empty")
	}

	wav, err := p.prepareWAV(req.Clip)
	if err != nil {
		return nil, fmt.Errorf("azure: prepare upload: %w", err)
	}

	params, err := json.Marshal(assessmentParams{
		ReferenceText:           req.ReferenceText,
		GradingSystem:           "HundredMark",
		Granularity:             "Phoneme",
		Dimension:               "Comprehensive",
		EnableProsodyAssessment: true,
	})
	if err != nil {
		return nil, fmt.Errorf("azure: marshal assessment params: %w", err)
	}

	q := url.Values{}
	q.Set("language", req.Language)
	q.Set("format", "detailed")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"?"+q.Encode(), bytes.NewReader(wav))
	if err != nil {
		return nil, fmt.Errorf("azure: build request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.key)
	httpReq.Header.Set("Content-Type", fmt.Sprintf("audio/wav; codecs=audio/pcm; samplerate=%d", uploadSampleRate))
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(params))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("azure: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("azure: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("azure: unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return parseResult(body, p.longPauseGap)
}

// prepareWAV transcodes the clip to 16 kHz mono WAV.
func (p *Provider) prepareWAV(clip *audio.Clip) ([]byte, error) {
	wavClip := audio.ToWAV(clip)
	data := wavClip.Bytes()
	if !audio.IsWAV(data) {
		return nil, fmt.Errorf("clip with type %q could not be transcoded to WAV", clip.MIMEType)
	}
	pcm, rate, channels, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if channels == 2 {
		pcm = audio.StereoToMono(pcm)
	}
	if rate != uploadSampleRate {
		pcm = audio.ResampleMono16(pcm, rate, uploadSampleRate)
	}
	return audio.EncodeWAV(pcm, uploadSampleRate), nil
}

// result is the detailed-format response shape. Scores use pointers to
// distinguish absent sub-scores from genuine zeros.
type result struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	NBest             []struct {
		Display                 string       `json:"Display"`
		PronunciationAssessment *scoreBlock  `json:"PronunciationAssessment"`
		AccuracyScore           *float64     `json:"AccuracyScore"`
		FluencyScore            *float64     `json:"FluencyScore"`
		CompletenessScore       *float64     `json:"CompletenessScore"`
		PronScore               *float64     `json:"PronScore"`
		Words                   []resultWord `json:"Words"`
	} `json:"NBest"`
}

type scoreBlock struct {
	AccuracyScore     *float64 `json:"AccuracyScore"`
	FluencyScore      *float64 `json:"FluencyScore"`
	CompletenessScore *float64 `json:"CompletenessScore"`
	ProsodyScore      *float64 `json:"ProsodyScore"`
	PronScore         *float64 `json:"PronScore"`
	ErrorType         string   `json:"ErrorType"`
}

type resultWord struct {
	Word                    string      `json:"Word"`
	Offset                  int64       `json:"Offset"`
	Duration                int64       `json:"Duration"`
	PronunciationAssessment *scoreBlock `json:"PronunciationAssessment"`
	AccuracyScore           *float64    `json:"AccuracyScore"`
	ErrorType               string      `json:"ErrorType"`
	Phonemes                []struct {
		Phoneme                 string      `json:"Phoneme"`
		PronunciationAssessment *scoreBlock `json:"PronunciationAssessment"`
		AccuracyScore           *float64    `json:"AccuracyScore"`
	} `json:"Phonemes"`
}

// parseResult maps the NBest head onto a PronunciationScore. The API has
// reported sub-scores both nested under PronunciationAssessment and flat on
// the NBest entry across versions; both shapes are accepted.
func parseResult(body []byte, longPauseGapMs int) (*scoring.PronunciationScore, error) {
	var res result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("azure: decode response: %w", err)
	}
	switch res.RecognitionStatus {
	case "Success":
	case "NoMatch", "InitialSilenceTimeout":
		return nil, assess.ErrNoSpeech
	default:
		return nil, fmt.Errorf("azure: recognition status %q", res.RecognitionStatus)
	}
	if len(res.NBest) == 0 {
		return nil, assess.ErrNoSpeech
	}

	best := res.NBest[0]
	pa := best.PronunciationAssessment
	if pa == nil {
		pa = &scoreBlock{
			AccuracyScore:     best.AccuracyScore,
			FluencyScore:      best.FluencyScore,
			CompletenessScore: best.CompletenessScore,
			PronScore:         best.PronScore,
		}
	}

	score := &scoring.PronunciationScore{
		Accuracy:     clampPtr(pa.AccuracyScore, 0),
		Fluency:      clampPtr(pa.FluencyScore, 0),
		Prosody:      clampPtr(pa.ProsodyScore, -1),
		Completeness: clampPtr(pa.CompletenessScore, -1),
		Source:       scoring.SourceAssessment,
	}

	for _, w := range best.Words {
		wa := scoring.WordAssessment{
			Word:       w.Word,
			OffsetMs:   ticksToMs(w.Offset),
			DurationMs: ticksToMs(w.Duration),
		}
		if w.PronunciationAssessment != nil {
			wa.Accuracy = clampPtr(w.PronunciationAssessment.AccuracyScore, 0)
			wa.ErrorType = w.PronunciationAssessment.ErrorType
		} else {
			wa.Accuracy = clampPtr(w.AccuracyScore, 0)
			wa.ErrorType = w.ErrorType
		}
		for _, ph := range w.Phonemes {
			acc := ph.AccuracyScore
			if ph.PronunciationAssessment != nil {
				acc = ph.PronunciationAssessment.AccuracyScore
			}
			wa.Phonemes = append(wa.Phonemes, scoring.Phoneme{
				Phoneme:  ph.Phoneme,
				Accuracy: clampPtr(acc, -1),
			})
		}
		score.Words = append(score.Words, wa)
	}
	score.LongPauses = scoring.DeriveLongPauses(score.Words, longPauseGapMs)
	return score, nil
}

// ticksToMs converts the API's 100-nanosecond ticks to milliseconds.
func ticksToMs(ticks int64) int { return int(ticks / 10_000) }

// clampPtr clamps a reported score, or returns absent when the field was
// missing.
func clampPtr(v *float64, absent int) int {
	if v == nil {
		return absent
	}
	return scoring.Clamp(*v)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ assess.Provider = (*Provider)(nil)
