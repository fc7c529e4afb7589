package recognize

import "time"

// Transcript is one recognition result, interim or final.
type Transcript struct {
	// Text is the recognized speech content for this segment.
	Text string

	// IsFinal marks an authoritative (committed) result. Non-final results
	// are replaced by later results for the same utterance.
	IsFinal bool

	// Confidence is the backend's overall confidence (0.0–1.0), zero when
	// not reported.
	Confidence float64

	// Words carries per-word detail when the backend supports it.
	Words []WordDetail

	// Timestamp is the utterance start relative to session start.
	Timestamp time.Duration

	// Duration is the utterance length.
	Duration time.Duration
}

// WordDetail is per-word metadata from backends that report it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}
