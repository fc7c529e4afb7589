package practice

// State is the lifecycle position of a practice session.
type State string

const (
	// StateIdle means no recording is active. The only state a new attempt
	// can start from, and the target of every Reset.
	StateIdle State = "idle"

	// StateCountdown means the pre-recording countdown is ticking.
	StateCountdown State = "countdown"

	// StateRecording means audio capture and recognition are live.
	StateRecording State = "recording"

	// StateStopping means the recognition stream is closing and the final
	// audio chunk is being flushed.
	StateStopping State = "stopping"

	// StateReady means a transcript and/or clip is finalized and waiting
	// for evaluation.
	StateReady State = "ready"

	// StateEvaluating means the evaluation engine is scoring the attempt.
	StateEvaluating State = "evaluating"

	// StateScored is the terminal state of an attempt. The result may be
	// nil when evaluation failed; Reset returns to StateIdle.
	StateScored State = "scored"
)

// validNext lists the forward transitions of the session lifecycle.
// Reset moves to StateIdle from any state and is not listed.
var validNext = map[State][]State{
	StateIdle:       {StateCountdown},
	StateCountdown:  {StateRecording},
	StateRecording:  {StateStopping},
	StateStopping:   {StateReady},
	StateReady:      {StateEvaluating},
	StateEvaluating: {StateScored},
	StateScored:     {},
}

// CanTransition reports whether moving from s to next is a legal forward
// step. Transitions to StateIdle are always legal.
func (s State) CanTransition(next State) bool {
	if next == StateIdle {
		return true
	}
	for _, allowed := range validNext[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
