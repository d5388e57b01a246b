// SPDX-License-Identifier: MPL-2.0

package webproc

import (
	"errors"

	"github.com/invowk/webproc/internal/command"
)

var (
	// ErrStartup matches every *StartupError.
	ErrStartup = command.ErrStartup
	// ErrOperation matches every *OperationError.
	ErrOperation = command.ErrOperation
	// ErrOperationTimeout matches every *OperationTimeoutError.
	ErrOperationTimeout = command.ErrOperationTimeout
	// ErrControllerStopped is returned by calls made after shutdown began,
	// and by calls still queued when the owner went away.
	ErrControllerStopped = command.ErrControllerStopped
	// ErrUnsupportedKind matches every *UnsupportedKindError.
	ErrUnsupportedKind = command.ErrUnsupportedKind
	// ErrInvalidPayload matches every *InvalidPayloadError.
	ErrInvalidPayload = command.ErrInvalidPayload

	// ErrNotStarted is returned by Call before Start.
	ErrNotStarted = errors.New("controller not started")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("controller already started")
)

type (
	// StartupError reports that the window could not be constructed.
	StartupError = command.StartupError
	// OperationError reports a backend failure for one call.
	OperationError = command.OperationError
	// OperationTimeoutError reports that a call was not answered in time.
	OperationTimeoutError = command.OperationTimeoutError
	// UnsupportedKindError reports a kind outside the catalog.
	UnsupportedKindError = command.UnsupportedKindError
	// InvalidPayloadError reports a payload that does not fit its kind.
	InvalidPayloadError = command.InvalidPayloadError
	// PanicError carries a panic recovered from the backend.
	PanicError = command.PanicError
)
