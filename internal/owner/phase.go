// SPDX-License-Identifier: MPL-2.0

package owner

import (
	"errors"
	"fmt"
)

const (
	// PhaseInitializing means the window is being constructed.
	PhaseInitializing Phase = iota
	// PhaseRunning means commands are being executed.
	PhaseRunning
	// PhaseDraining means the loop is applying its drain policy and tearing
	// the window down.
	PhaseDraining
	// PhaseStopped is terminal.
	PhaseStopped
)

const (
	// DrainReject fails queued commands with command.ErrControllerStopped.
	DrainReject DrainPolicy = "reject"
	// DrainExecute runs queued commands before teardown.
	DrainExecute DrainPolicy = "execute"
)

// ErrInvalidDrainPolicy is wrapped by InvalidDrainPolicyError.
var ErrInvalidDrainPolicy = errors.New("invalid drain policy")

type (
	// Phase is the owner loop's position in its lifecycle.
	Phase int32

	// DrainPolicy decides what happens to commands still queued when the
	// terminate signal arrives. The command in flight always finishes.
	DrainPolicy string

	// InvalidDrainPolicyError is returned when a DrainPolicy value is not
	// one of the defined policies.
	InvalidDrainPolicyError struct {
		Value DrainPolicy
	}
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

// Error implements the error interface.
func (e *InvalidDrainPolicyError) Error() string {
	return fmt.Sprintf("invalid drain policy %q (valid: %s, %s)", string(e.Value), DrainReject, DrainExecute)
}

// Unwrap returns ErrInvalidDrainPolicy for errors.Is() compatibility.
func (e *InvalidDrainPolicyError) Unwrap() error { return ErrInvalidDrainPolicy }

// String returns the policy name.
func (d DrainPolicy) String() string { return string(d) }

// Validate returns nil for the defined policies. The zero value is valid and
// means DrainReject.
func (d DrainPolicy) Validate() error {
	switch d {
	case "", DrainReject, DrainExecute:
		return nil
	default:
		return &InvalidDrainPolicyError{Value: d}
	}
}

func (d DrainPolicy) orDefault() DrainPolicy {
	if d == "" {
		return DrainReject
	}
	return d
}
