package timeline_test

import (
	"testing"

	"github.com/interloq/interloq/internal/timeline"
	"github.com/interloq/interloq/pkg/scoring"
)

func sampleWords() []scoring.WordAssessment {
	return []scoring.WordAssessment{
		{Word: "안녕하세요", OffsetMs: 500, DurationMs: 900},
		{Word: "반갑습니다", OffsetMs: 3000, DurationMs: 1000},
	}
}

func TestNew_TotalDuration(t *testing.T) {
	t.Parallel()

	tl := timeline.New(sampleWords(), nil)
	if tl.TotalMs() != 4000 {
		t.Errorf("TotalMs = %d, want 4000", tl.TotalMs())
	}

	empty := timeline.New(nil, nil)
	if empty.TotalMs() != 0 {
		t.Errorf("empty TotalMs = %d, want 0", empty.TotalMs())
	}
}

func TestPercentAt(t *testing.T) {
	t.Parallel()

	tl := timeline.New(sampleWords(), nil)
	for _, tt := range []struct {
		ms   int
		want float64
	}{
		{0, 0},
		{-10, 0},
		{1000, 25},
		{2000, 50},
		{3960, 98}, // 99% clamps to the marker ceiling
		{4000, 98},
		{9999, 98},
	} {
		if got := tl.PercentAt(tt.ms); got != tt.want {
			t.Errorf("PercentAt(%d) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestPercentAt_ZeroDuration(t *testing.T) {
	t.Parallel()

	tl := timeline.New(nil, nil)
	if got := tl.PercentAt(500); got != 0 {
		t.Errorf("PercentAt on empty timeline = %v, want 0", got)
	}
}

func TestPercentLen_Floor(t *testing.T) {
	t.Parallel()

	tl := timeline.New(sampleWords(), nil)
	if got := tl.PercentLen(2000); got != 50 {
		t.Errorf("PercentLen(2000) = %v, want 50", got)
	}
	// 4ms of 4000ms is 0.1%, below the visible floor.
	if got := tl.PercentLen(4); got != 0.5 {
		t.Errorf("PercentLen(4) = %v, want 0.5", got)
	}
}

func TestPauseMarkers(t *testing.T) {
	t.Parallel()

	pauses := []scoring.LongPause{
		{StartMs: 1400, DurationMs: 1600, BeforeWord: "안녕하세요", AfterWord: "반갑습니다"},
	}
	tl := timeline.New(sampleWords(), pauses)

	markers := tl.PauseMarkers()
	if len(markers) != 1 {
		t.Fatalf("markers = %d, want 1", len(markers))
	}
	m := markers[0]
	if m.LeftPercent != 35 {
		t.Errorf("LeftPercent = %v, want 35", m.LeftPercent)
	}
	if m.WidthPercent != 40 {
		t.Errorf("WidthPercent = %v, want 40", m.WidthPercent)
	}
	if m.StartMs != 1400 {
		t.Errorf("StartMs = %d, want 1400", m.StartMs)
	}
	if m.Label == "" {
		t.Error("marker label should not be empty")
	}
}

func TestMarker_Seek(t *testing.T) {
	t.Parallel()

	pauses := []scoring.LongPause{{StartMs: 1400, DurationMs: 1600}}
	tl := timeline.New(sampleWords(), pauses)

	var sought []int
	tl.PauseMarkers()[0].Seek(timeline.SeekerFunc(func(ms int) {
		sought = append(sought, ms)
	}))
	if len(sought) != 1 || sought[0] != 1400 {
		t.Errorf("sought = %v, want [1400]", sought)
	}
}

func TestWordMarkers_SkipsUntimedWords(t *testing.T) {
	t.Parallel()

	words := []scoring.WordAssessment{
		{Word: "첫", OffsetMs: 0, DurationMs: 500},
		{Word: "빈", OffsetMs: 0, DurationMs: 0},
		{Word: "끝", OffsetMs: 1500, DurationMs: 500},
	}
	tl := timeline.New(words, nil)

	markers := tl.WordMarkers()
	if len(markers) != 2 {
		t.Fatalf("markers = %d, want 2", len(markers))
	}
	if markers[0].Label != "첫" || markers[1].Label != "끝" {
		t.Errorf("labels = %q, %q", markers[0].Label, markers[1].Label)
	}
}

func TestFormatMs(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		ms   int
		want string
	}{
		{0, "0:00"},
		{-5, "0:00"},
		{999, "0:00"},
		{1000, "0:01"},
		{65000, "1:05"},
		{600000, "10:00"},
	} {
		if got := timeline.FormatMs(tt.ms); got != tt.want {
			t.Errorf("FormatMs(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}
