package model

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a device. The string value is the wire and storage form.
type State string

const (
	StateAvailable   State = "AVAILABLE"
	StateInUse       State = "IN_USE"
	StateMaintenance State = "MAINTENANCE"
)

func AllStates() []State {
	return []State{StateAvailable, StateInUse, StateMaintenance}
}

func (s State) String() string {
	return string(s)
}

func (s State) IsValid() bool {
	switch s {
	case StateAvailable, StateInUse, StateMaintenance:
		return true
	default:
		return false
	}
}

// ParseState accepts the state names regardless of case.
func ParseState(s string) (State, error) {
	state := State(strings.ToUpper(strings.TrimSpace(s)))
	if !state.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}

	return state, nil
}

// ParseCanonicalState accepts only the exact upper case state names, the form
// request bodies carry.
func ParseCanonicalState(s string) (State, error) {
	state := State(s)
	if !state.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}

	return state, nil
}
