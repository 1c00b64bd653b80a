package statemachine

import "errors"

var (
	// ErrInvalidTransition indicates an empty from, to, or event name.
	ErrInvalidTransition = errors.New("statemachine: invalid transition")

	// ErrDuplicateTransition indicates a from/event pair registered twice.
	ErrDuplicateTransition = errors.New("statemachine: duplicate transition")

	// ErrNoTransition indicates no transition matches the current state and event.
	ErrNoTransition = errors.New("statemachine: no transition available")

	// ErrRejected indicates the transition's guard refused the event.
	ErrRejected = errors.New("statemachine: transition rejected by guard")
)
