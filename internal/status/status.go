// Package status models the document lifecycle as a small state machine.
// A document moves Draft → Sent → Viewed → {Finalized | Rejected}; the two
// terminal states are mutually exclusive by construction. "Whose move is it"
// and "has the OTP been emailed" are orthogonal flags on the document, not
// states.
package status

import "fmt"

type State string

const (
	Draft     State = "draft"
	Sent      State = "sent"
	Viewed    State = "viewed"
	Finalized State = "finalized"
	Rejected  State = "rejected"
)

var transitions = map[State][]State{
	Draft:  {Sent},
	Sent:   {Viewed, Rejected},
	Viewed: {Finalized, Rejected},
	// Finalized and Rejected are terminal.
	Finalized: {},
	Rejected:  {},
}

// TransitionError reports an illegal lifecycle move.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal document transition %s -> %s", e.From, e.To)
}

// Parse validates a raw state string.
func Parse(s string) (State, error) {
	st := State(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown document state %q", s)
	}
	return st, nil
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether moving to dst is legal. A same-state move is
// always allowed as a no-op so repeated client actions (re-opening a shared
// link, double-clicking confirm) stay idempotent.
func (s State) CanTransition(dst State) bool {
	if s == dst {
		return true
	}
	for _, t := range transitions[s] {
		if t == dst {
			return true
		}
	}
	return false
}

// Transition returns dst if the move is legal, or a *TransitionError.
func Transition(from, to State) (State, error) {
	if !from.CanTransition(to) {
		return from, &TransitionError{From: from, To: to}
	}
	return to, nil
}
