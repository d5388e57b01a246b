// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStartup is wrapped by StartupError.
	ErrStartup = errors.New("window startup failed")
	// ErrOperation is wrapped by OperationError.
	ErrOperation = errors.New("window operation failed")
	// ErrOperationTimeout is wrapped by OperationTimeoutError.
	ErrOperationTimeout = errors.New("operation timed out")
	// ErrControllerStopped is returned for calls issued after shutdown began
	// and for queued commands rejected while the owner drains.
	ErrControllerStopped = errors.New("controller stopped")
	// ErrChannelClosed is returned by Channel.Push after Close, and by
	// Channel.Pop as the terminate signal.
	ErrChannelClosed = errors.New("command channel closed")
	// ErrUnsupportedKind is wrapped by UnsupportedKindError.
	ErrUnsupportedKind = errors.New("unsupported operation kind")
	// ErrInvalidPayload is wrapped by InvalidPayloadError.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNotResolved is returned by Command.Result before the command completes.
	ErrNotResolved = errors.New("command not resolved")
)

type (
	// StartupError reports that the window could not be constructed. It is
	// fatal to the controller instance and never retried.
	StartupError struct {
		Backend string
		Cause   error
	}

	// OperationError reports a failure raised by the collaborator while
	// executing one specific command.
	OperationError struct {
		Kind      Kind
		CommandID uint64
		Cause     error
	}

	// OperationTimeoutError reports that the caller stopped waiting. The
	// command may still complete later; its result is discarded.
	OperationTimeoutError struct {
		Kind    Kind
		Timeout time.Duration
	}

	// UnsupportedKindError is returned for kinds outside the catalog or not
	// implemented by the active backend.
	UnsupportedKindError struct {
		Value Kind
	}

	// InvalidPayloadError is returned when a payload does not match its kind.
	InvalidPayloadError struct {
		Kind   Kind
		Reason string
	}

	// PanicError carries a panic recovered from the collaborator.
	PanicError struct {
		Value any
		Stack []byte
	}
)

// Error implements the error interface.
func (e *StartupError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("window startup failed: %v", e.Cause)
	}
	return fmt.Sprintf("window startup failed (backend %s): %v", e.Backend, e.Cause)
}

// Unwrap exposes both ErrStartup and the underlying cause.
func (e *StartupError) Unwrap() []error {
	return []error{ErrStartup, e.Cause}
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("%s (command %d): %v", e.Kind, e.CommandID, e.Cause)
}

// Unwrap exposes both ErrOperation and the underlying cause.
func (e *OperationError) Unwrap() []error {
	return []error{ErrOperation, e.Cause}
}

// Error implements the error interface.
func (e *OperationTimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s: no result within %s", e.Kind, e.Timeout)
	}
	return fmt.Sprintf("%s: deadline exceeded", e.Kind)
}

// Unwrap exposes ErrOperationTimeout and context.DeadlineExceeded.
func (e *OperationTimeoutError) Unwrap() []error {
	return []error{ErrOperationTimeout, context.DeadlineExceeded}
}

// Error implements the error interface.
func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported operation kind %q", string(e.Value))
}

// Unwrap returns ErrUnsupportedKind for errors.Is() compatibility.
func (e *UnsupportedKindError) Unwrap() error { return ErrUnsupportedKind }

// Error implements the error interface.
func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.Kind, e.Reason)
}

// Unwrap returns ErrInvalidPayload for errors.Is() compatibility.
func (e *InvalidPayloadError) Unwrap() error { return ErrInvalidPayload }

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
