// SPDX-License-Identifier: MPL-2.0

package webproc

import (
	"errors"
	"fmt"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
	"github.com/invowk/webproc/internal/core/lifecycle"
	"github.com/invowk/webproc/internal/owner"
)

// Operation kinds.
const (
	KindPing             = command.KindPing
	KindNavigate         = command.KindNavigate
	KindLoadHTML         = command.KindLoadHTML
	KindEvaluateScript   = command.KindEvaluateScript
	KindGetTitle         = command.KindGetTitle
	KindSetTitle         = command.KindSetTitle
	KindResize           = command.KindResize
	KindGetSize          = command.KindGetSize
	KindMinimize         = command.KindMinimize
	KindMaximize         = command.KindMaximize
	KindRestore          = command.KindRestore
	KindSetMaximized     = command.KindSetMaximized
	KindToggleFullscreen = command.KindToggleFullscreen
	KindPickFiles        = command.KindPickFiles
	KindSaveFile         = command.KindSaveFile
	KindDestroy          = command.KindDestroy
)

// Window defaults applied by backends to zero fields.
const (
	DefaultTitle  = backend.DefaultTitle
	DefaultWidth  = backend.DefaultWidth
	DefaultHeight = backend.DefaultHeight
)

// Controller states.
const (
	StateCreated      = lifecycle.StateCreated
	StateStarting     = lifecycle.StateStarting
	StateReady        = lifecycle.StateReady
	StateShuttingDown = lifecycle.StateShuttingDown
	StateStopped      = lifecycle.StateStopped
)

// Drain policies.
const (
	DrainReject  = owner.DrainReject
	DrainExecute = owner.DrainExecute
)

const (
	// IsolationThread runs the owner on a locked OS thread in this process.
	IsolationThread Isolation = "thread"
	// IsolationProcess runs the owner in a child process.
	IsolationProcess Isolation = "process"
)

// ErrInvalidIsolation is wrapped by InvalidIsolationError.
var ErrInvalidIsolation = errors.New("invalid isolation")

type (
	// WindowConfig is the startup configuration passed to the backend.
	WindowConfig = backend.WindowConfig
	// Kind identifies an operation.
	Kind = command.Kind
	// Size is the result of Size.
	Size = command.Size
	// State is the controller lifecycle state.
	State = lifecycle.State
	// DrainPolicy decides the fate of commands queued at shutdown.
	DrainPolicy = owner.DrainPolicy

	// NavigatePayload is the payload of KindNavigate.
	NavigatePayload = command.NavigatePayload
	// LoadHTMLPayload is the payload of KindLoadHTML.
	LoadHTMLPayload = command.LoadHTMLPayload
	// EvaluateScriptPayload is the payload of KindEvaluateScript.
	EvaluateScriptPayload = command.EvaluateScriptPayload
	// SetTitlePayload is the payload of KindSetTitle.
	SetTitlePayload = command.SetTitlePayload
	// ResizePayload is the payload of KindResize.
	ResizePayload = command.ResizePayload
	// SetMaximizedPayload is the payload of KindSetMaximized.
	SetMaximizedPayload = command.SetMaximizedPayload
	// PickFilesPayload is the payload of KindPickFiles.
	PickFilesPayload = command.PickFilesPayload
	// SaveFilePayload is the payload of KindSaveFile.
	SaveFilePayload = command.SaveFilePayload

	// Isolation selects where the owner runs.
	Isolation string

	// InvalidIsolationError is returned when an Isolation value is not one
	// of the defined modes.
	InvalidIsolationError struct {
		Value Isolation
	}
)

// Error implements the error interface.
func (e *InvalidIsolationError) Error() string {
	return fmt.Sprintf("invalid isolation %q (valid: %s, %s)", string(e.Value), IsolationThread, IsolationProcess)
}

// Unwrap returns ErrInvalidIsolation for errors.Is() compatibility.
func (e *InvalidIsolationError) Unwrap() error { return ErrInvalidIsolation }

// String returns the isolation name.
func (i Isolation) String() string { return string(i) }

// Validate returns nil for the defined modes. The zero value means
// IsolationThread.
func (i Isolation) Validate() error {
	switch i {
	case "", IsolationThread, IsolationProcess:
		return nil
	default:
		return &InvalidIsolationError{Value: i}
	}
}
