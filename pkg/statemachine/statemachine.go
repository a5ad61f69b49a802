package statemachine

import (
	"context"
	"fmt"
	"slices"
)

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// Action executes side effects during a transition. Returning an error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard evaluates whether a transition is allowed based on runtime data.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Transition defines a state change triggered by an event, with optional guards and actions.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // All must pass for transition to proceed
	Actions []Action // Executed in order before the new state is returned
}

// Machine is an immutable transition table. It holds no current state: callers pass the
// state of the record being transitioned, so one Machine serves any number of records
// concurrently.
type Machine struct {
	transitions map[string]map[string][]Transition
}

func newMachine() *Machine {
	return &Machine{transitions: make(map[string]map[string][]Transition)}
}

func (m *Machine) add(t Transition) error {
	if t.From == nil || t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}

	from, event := t.From.Name(), t.Event.Name()
	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[string][]Transition)
	}
	// Multiple transitions for the same from/event are allowed for guard-based branching.
	m.transitions[from][event] = append(m.transitions[from][event], t)
	return nil
}

// Fire resolves the transition for event from current and runs its actions.
// It returns the target state; current is never modified.
func (m *Machine) Fire(ctx context.Context, current State, event Event, data any) (State, error) {
	if current == nil {
		return nil, ErrInvalidState
	}
	if event == nil {
		return nil, ErrInvalidEvent
	}

	t, err := m.resolve(ctx, current, event, data)
	if err != nil {
		return current, err
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, current, t.To, event, data); err != nil {
			return current, fmt.Errorf("action failed: %w", err)
		}
	}

	return t.To, nil
}

// CanFire reports whether event would be accepted from current.
func (m *Machine) CanFire(ctx context.Context, current State, event Event, data any) bool {
	if current == nil || event == nil {
		return false
	}
	_, err := m.resolve(ctx, current, event, data)
	return err == nil
}

// Events lists event names defined for a state, sorted. Guards are not evaluated.
func (m *Machine) Events(current State) []string {
	if current == nil {
		return nil
	}
	byEvent := m.transitions[current.Name()]
	out := make([]string, 0, len(byEvent))
	for name := range byEvent {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// resolve returns the first transition whose guards all pass.
func (m *Machine) resolve(ctx context.Context, current State, event Event, data any) (*Transition, error) {
	stateName, eventName := current.Name(), event.Name()

	candidates := m.transitions[stateName][eventName]
	if len(candidates) == 0 {
		return nil, &TransitionError{State: stateName, Event: eventName}
	}

	for i := range candidates {
		if guardsPass(ctx, candidates[i].Guards, current, event, data) {
			return &candidates[i], nil
		}
	}

	return nil, &TransitionError{State: stateName, Event: eventName, Rejected: true}
}

func guardsPass(ctx context.Context, guards []Guard, current State, event Event, data any) bool {
	for _, guard := range guards {
		if guard != nil && !guard(ctx, current, event, data) {
			return false
		}
	}
	return true
}

// StringState provides a simple string-based state implementation.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// StringEvent provides a simple string-based event implementation.
type StringEvent string

func (e StringEvent) Name() string {
	return string(e)
}
