// Package timeline maps word-level timing data and long-pause intervals onto
// proportional coordinates for a playback timeline widget. All positions are
// percentages of the utterance duration so the widget can render at any width.
package timeline

import (
	"fmt"

	"github.com/interloq/interloq/pkg/scoring"
)

const (
	// maxLeftPercent keeps markers from being clipped at the right edge.
	maxLeftPercent = 98.0

	// minWidthPercent avoids zero-width markers for very short intervals.
	minWidthPercent = 0.5
)

// Seeker relocates an external playback cursor. Implemented by whatever
// playback surface hosts the timeline.
type Seeker interface {
	SeekTo(ms int)
}

// SeekerFunc adapts a function to the Seeker interface.
type SeekerFunc func(ms int)

func (f SeekerFunc) SeekTo(ms int) { f(ms) }

// Marker is one positioned interval on the timeline.
type Marker struct {
	LeftPercent  float64
	WidthPercent float64
	StartMs      int
	DurationMs   int
	Label        string
}

// Seek moves the playback cursor to the start of the marked interval.
func (m Marker) Seek(s Seeker) {
	if s != nil {
		s.SeekTo(m.StartMs)
	}
}

// Timeline is an immutable projection of one assessment's word timings.
type Timeline struct {
	words   []scoring.WordAssessment
	pauses  []scoring.LongPause
	totalMs int
}

// New builds a timeline over the assessed words and their pause intervals.
// Total duration is the end of the last word; an empty word list yields a
// zero-duration timeline whose projections all collapse to the origin.
func New(words []scoring.WordAssessment, pauses []scoring.LongPause) *Timeline {
	total := 0
	if n := len(words); n > 0 {
		last := words[n-1]
		total = last.OffsetMs + last.DurationMs
	}
	return &Timeline{words: words, pauses: pauses, totalMs: total}
}

// TotalMs returns the utterance duration in milliseconds.
func (t *Timeline) TotalMs() int { return t.totalMs }

// PercentAt projects an absolute position onto the timeline, clamped to
// [0,98] so markers never start off the right edge.
func (t *Timeline) PercentAt(ms int) float64 {
	if t.totalMs <= 0 || ms <= 0 {
		return 0
	}
	p := float64(ms) / float64(t.totalMs) * 100
	if p > maxLeftPercent {
		return maxLeftPercent
	}
	return p
}

// PercentLen projects a duration onto the timeline with a 0.5% floor.
func (t *Timeline) PercentLen(ms int) float64 {
	if t.totalMs <= 0 {
		return minWidthPercent
	}
	p := float64(ms) / float64(t.totalMs) * 100
	if p < minWidthPercent {
		return minWidthPercent
	}
	return p
}

// PauseMarkers positions every long pause on the timeline, in order.
func (t *Timeline) PauseMarkers() []Marker {
	if len(t.pauses) == 0 {
		return nil
	}
	markers := make([]Marker, len(t.pauses))
	for i, p := range t.pauses {
		label := fmt.Sprintf("%s pause", FormatMs(p.DurationMs))
		if p.BeforeWord != "" && p.AfterWord != "" {
			label = fmt.Sprintf("%s pause between %q and %q", FormatMs(p.DurationMs), p.BeforeWord, p.AfterWord)
		}
		markers[i] = Marker{
			LeftPercent:  t.PercentAt(p.StartMs),
			WidthPercent: t.PercentLen(p.DurationMs),
			StartMs:      p.StartMs,
			DurationMs:   p.DurationMs,
			Label:        label,
		}
	}
	return markers
}

// WordMarkers positions every word with timing data on the timeline.
// Words without timing (zero offset and duration, beyond the first) are
// skipped.
func (t *Timeline) WordMarkers() []Marker {
	var markers []Marker
	for i, w := range t.words {
		if i > 0 && w.OffsetMs == 0 && w.DurationMs == 0 {
			continue
		}
		markers = append(markers, Marker{
			LeftPercent:  t.PercentAt(w.OffsetMs),
			WidthPercent: t.PercentLen(w.DurationMs),
			StartMs:      w.OffsetMs,
			DurationMs:   w.DurationMs,
			Label:        w.Word,
		})
	}
	return markers
}

// FormatMs renders a millisecond position as m:ss for timeline labels.
func FormatMs(ms int) string {
	if ms < 0 {
		ms = 0
	}
	sec := ms / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
