// Package statemachine provides a stateless finite-state-machine transition table.
//
// A Machine is built once from transitions and never changes afterwards. It does not
// track a current state: Fire takes the state of the record being transitioned and
// returns the target state. This fits persisted records whose state lives in a
// database row or document, where the caller loads the record, asks the machine for
// the next state and writes the result back under its own concurrency control.
//
// # Usage
//
//	const (
//	    Pending = statemachine.StringState("pending")
//	    Paid    = statemachine.StringState("paid")
//	    Pay     = statemachine.StringEvent("pay")
//	)
//
//	orders := statemachine.MustNew(
//	    statemachine.WithTransition(Pending, Paid, Pay),
//	)
//
//	next, err := orders.Fire(ctx, order.Status, Pay, nil)
//
// # Guards and Actions
//
// Guards veto a transition based on runtime data. When several transitions share a
// source state and event, the first one whose guards all pass wins. Actions run after
// guards and before the target state is returned; an action error aborts the
// transition.
//
// # Error Handling
//
//	errors.Is(err, statemachine.ErrNoTransition) // event not defined for the state
//	errors.Is(err, statemachine.ErrRejected)     // guards vetoed
//
// Machine is safe for concurrent use since it is read-only after construction.
package statemachine
