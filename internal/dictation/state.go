package dictation

import "fmt"

// State is the dictation session state. Exactly one session exists per
// Manager, and every external operation is validated against the current
// state before anything is mutated.
type State string

const (
	Idle         State = "idle"
	Recording    State = "recording"
	Transcribing State = "transcribing"
	Failed       State = "error"
)

// transitions is the complete set of legal state changes. Anything not
// listed is rejected with a StateError.
var transitions = map[State][]State{
	Idle:         {Recording},
	Recording:    {Transcribing, Failed},
	Transcribing: {Idle, Failed},
	Failed:       {Idle},
}

// StateError reports an operation attempted in the wrong state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

func canTransition(from, to State) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
