package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("statemachine: transition needs from, to and event")
	ErrInvalidEvent      = errors.New("statemachine: nil event")
	ErrInvalidState      = errors.New("statemachine: nil state")

	// ErrNoTransition matches a TransitionError for an event the state does not accept.
	ErrNoTransition = errors.New("statemachine: no transition")
	// ErrRejected matches a TransitionError whose candidates were all vetoed by guards.
	ErrRejected = errors.New("statemachine: rejected by guards")
)

// TransitionError reports why Fire refused an event. Use errors.Is with
// ErrNoTransition or ErrRejected to tell the cases apart.
type TransitionError struct {
	State    string
	Event    string
	Rejected bool
}

func (e *TransitionError) Error() string {
	if e.Rejected {
		return fmt.Sprintf("statemachine: %s on %q rejected by guards", e.Event, e.State)
	}
	return fmt.Sprintf("statemachine: %q does not accept %s", e.State, e.Event)
}

func (e *TransitionError) Is(target error) bool {
	if e.Rejected {
		return target == ErrRejected
	}
	return target == ErrNoTransition
}
