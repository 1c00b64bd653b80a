// Package statemachine implements a small guarded finite state machine.
// States and events are plain strings; transitions may carry a guard that
// must pass for the transition to fire and an action executed before the
// state changes. The wildcard state Any matches every source state, which
// suits flows where most events are reachable from anywhere.
package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Any is the wildcard source state: a transition registered from Any fires
// regardless of the current state. An exact-state transition takes priority
// over a wildcard one for the same event.
const Any = "*"

// Guard evaluates whether a transition should be allowed.
type Guard func(ctx context.Context, from string, data any) bool

// Action executes side effects during a transition. Returning an error
// aborts the transition and leaves the current state unchanged.
type Action func(ctx context.Context, from, to string, data any) error

type transition struct {
	to     string
	guard  Guard
	action Action
}

// Machine is a thread-safe finite state machine.
type Machine struct {
	mu          sync.RWMutex
	initial     string
	current     string
	transitions map[string]map[string]transition // [from][event]
}

// New creates a machine starting in the given state.
func New(initial string) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[string]map[string]transition),
	}
}

// Current returns the current state.
func (m *Machine) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// AddTransition registers a transition from state `from` to state `to`
// triggered by `event`. Guard and action may be nil. Registering the same
// from/event pair twice is an error; guard-based branching is not needed
// here and rejecting duplicates catches wiring mistakes early.
func (m *Machine) AddTransition(from, to, event string, guard Guard, action Action) error {
	if from == "" || to == "" || event == "" {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[string]transition)
	}
	if _, dup := m.transitions[from][event]; dup {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateTransition, from, event)
	}
	m.transitions[from][event] = transition{to: to, guard: guard, action: action}
	return nil
}

// Fire triggers event. It returns ErrNoTransition if no transition matches
// the current state, ErrRejected if the guard refuses, and the action's
// error if the action fails; in all three cases the state is unchanged.
func (m *Machine) Fire(ctx context.Context, event string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.lookup(event)
	if !ok {
		return fmt.Errorf("%w: no transition from %q on %q", ErrNoTransition, m.current, event)
	}

	if t.guard != nil && !t.guard(ctx, m.current, data) {
		return fmt.Errorf("%w: from %q on %q", ErrRejected, m.current, event)
	}

	if t.action != nil {
		if err := t.action(ctx, m.current, t.to, data); err != nil {
			return fmt.Errorf("transition action: %w", err)
		}
	}

	m.current = t.to
	return nil
}

// CanFire reports whether Fire would succeed for event, without firing.
func (m *Machine) CanFire(ctx context.Context, event string, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.lookup(event)
	if !ok {
		return false
	}
	return t.guard == nil || t.guard(ctx, m.current, data)
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

// lookup resolves event against the current state, preferring an exact
// source-state match over the wildcard. Callers must hold the lock.
func (m *Machine) lookup(event string) (transition, bool) {
	if byEvent, ok := m.transitions[m.current]; ok {
		if t, ok := byEvent[event]; ok {
			return t, true
		}
	}
	if byEvent, ok := m.transitions[Any]; ok {
		if t, ok := byEvent[event]; ok {
			return t, true
		}
	}
	return transition{}, false
}
