package model

import "fmt"

type State string

const (
	StateIdle             State = "idle"
	StateValidating       State = "validating"
	StateFetchingMetadata State = "fetching_metadata"
	StateSelectingFormat  State = "selecting_format"
	StateTransferring     State = "transferring"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

var allowedTransitions = map[State]map[State]bool{
	StateIdle: {
		StateValidating: true,
	},
	StateValidating: {
		StateFetchingMetadata: true,
		StateFailed:           true,
	},
	StateFetchingMetadata: {
		StateSelectingFormat: true,
		StateFailed:          true,
	},
	StateSelectingFormat: {
		StateTransferring: true,
		StateFailed:       true,
	},
	StateTransferring: {
		StateCompleted: true,
		StateFailed:    true,
	},
	StateCompleted: {},
	StateFailed:    {},
}

func IsKnownState(s State) bool {
	_, ok := allowedTransitions[s]
	return ok
}

func CanTransition(from, to State) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// IsTerminal reports whether no further transition is possible from s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Attempt tracks the state of one download invocation. It is not safe for
// concurrent use; the orchestrator owns it.
type Attempt struct {
	ID      string
	State   State
	History []State
}

func NewAttempt(id string) *Attempt {
	return &Attempt{ID: id, State: StateIdle, History: []State{StateIdle}}
}

func (a *Attempt) Transition(to State) error {
	from := a.State
	if !IsKnownState(to) {
		return fmt.Errorf("unknown attempt state %q (attempt_id=%s)", to, a.ID)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid attempt state transition: %q -> %q (attempt_id=%s)", from, to, a.ID)
	}
	a.State = to
	a.History = append(a.History, to)
	return nil
}
