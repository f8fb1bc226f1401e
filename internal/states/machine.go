// Package states implements a cooperative, label-driven state machine.
//
// A Machine does nothing on its own: every Update runs the current state's
// action exactly once. Actions move the machine forward by calling
// ChangeState; the change takes effect on the next Update. There is no
// history, no stack and no implicit looping, so a host can interleave any
// number of machines with its own work, one step per tick.
package states

import (
	"errors"
	"fmt"
)

// ErrUnknownState is returned when changing to a label that was never added.
var ErrUnknownState = errors.New("states: unknown state")

// Action is the work done by one state per Update.
type Action func()

// Machine dispatches Update to the action registered for the current label.
type Machine[L comparable] struct {
	actions  map[L]Action
	current  L
	action   Action
	onChange func(from, to L)
}

// New creates an empty machine.
func New[L comparable]() *Machine[L] {
	return &Machine[L]{actions: make(map[L]Action)}
}

// AddState registers (or replaces) the action for label.
func (m *Machine[L]) AddState(label L, action Action) {
	m.actions[label] = action
	if m.action != nil && m.current == label {
		m.action = action
	}
}

// ChangeState makes label the current state.
func (m *Machine[L]) ChangeState(label L) error {
	action, ok := m.actions[label]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownState, label)
	}
	from := m.current
	m.current = label
	m.action = action
	if m.onChange != nil {
		m.onChange(from, label)
	}
	return nil
}

// MustChangeState is ChangeState for labels known to be registered. It
// panics otherwise.
func (m *Machine[L]) MustChangeState(label L) {
	if err := m.ChangeState(label); err != nil {
		panic(err)
	}
}

// Update runs the current action once. It reports false when no state has
// been entered yet.
func (m *Machine[L]) Update() bool {
	if m.action == nil {
		return false
	}
	m.action()
	return true
}

// Current returns the current label and whether a state has been entered.
func (m *Machine[L]) Current() (L, bool) {
	return m.current, m.action != nil
}

// OnChange installs a hook called after every successful ChangeState.
func (m *Machine[L]) OnChange(fn func(from, to L)) {
	m.onChange = fn
}
