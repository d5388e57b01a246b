// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"fmt"
)

const (
	// StateCreated indicates the instance was created but Start() not called.
	StateCreated State = iota
	// StateStarting indicates Start() was called and the owner is initializing.
	StateStarting
	// StateReady indicates the owner is running and accepting commands.
	StateReady
	// StateShuttingDown indicates shutdown began; no new commands are accepted.
	StateShuttingDown
	// StateStopped is terminal: the owner has exited or was abandoned.
	StateStopped
)

// ErrInvalidState is returned when a State value is not one of the defined lifecycle states.
var ErrInvalidState = errors.New("invalid state")

type (
	// State represents the lifecycle state of a controller.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=created, 1=starting, 2=ready, 3=shutting_down, 4=stopped)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns nil if the State is one of the defined lifecycle states,
// or an error wrapping ErrInvalidState if it is not.
func (s State) Validate() error {
	switch s {
	case StateCreated, StateStarting, StateReady, StateShuttingDown, StateStopped:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// AcceptsCommands reports whether new commands may be enqueued in this state.
// Commands issued while starting wait for readiness.
func (s State) AcceptsCommands() bool {
	return s == StateCreated || s == StateStarting || s == StateReady
}
