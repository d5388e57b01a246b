// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"errors"

	"github.com/invowk/webproc/internal/command"
)

var (
	// ErrUnsupported is returned by Window methods the toolkit cannot perform.
	ErrUnsupported = errors.New("operation not supported by backend")
	// ErrUnavailable is returned by Open when the backend cannot run on this
	// system (missing native libraries, build without toolkit support).
	ErrUnavailable = errors.New("backend not available")
	// ErrWindowDestroyed is returned by Window methods called after Destroy.
	ErrWindowDestroyed = errors.New("window destroyed")
)

type (
	// Backend constructs windows for one toolkit.
	Backend interface {
		// Name returns the registry name ("headless", "webview").
		Name() string
		// Available reports whether Open can succeed on this system.
		Available() bool
		// Open constructs and shows a window. It runs on the owner goroutine,
		// which is locked to its OS thread.
		Open(cfg WindowConfig) (Window, error)
	}

	// Window is a live toolkit window. It is owned by exactly one goroutine.
	Window interface {
		Navigate(url string) error
		LoadHTML(html string) error
		// EvaluateScript runs JavaScript in the page and returns the value of
		// the last expression, exported to a Go value.
		EvaluateScript(script string) (any, error)
		Title() (string, error)
		SetTitle(title string) error
		Resize(width, height int) error
		Size() (command.Size, error)
		Minimize() error
		Maximize() error
		Restore() error
		ToggleFullscreen() error
		// PickFiles opens an open-file dialog. A nil slice means the user
		// cancelled.
		PickFiles(filters []string, multiple bool) ([]string, error)
		// SaveDialog opens a save-file dialog and returns the chosen path, or
		// "" when the user cancelled.
		SaveDialog(directory, fileName string) (string, error)
		// Destroy closes the window and releases toolkit resources.
		Destroy() error
	}

	// EventLoop is implemented by windows whose toolkit must run a native
	// event loop on the owner thread. Run blocks until Terminate is called
	// or the user closes the window. Dispatch schedules fn on the loop and
	// may be called from any goroutine; Terminate likewise.
	EventLoop interface {
		Run()
		Dispatch(fn func())
		Terminate()
	}

	// AsyncEvaluator is implemented by event-loop windows that cannot return
	// a script value synchronously. The call is made on the loop; resolve is
	// invoked exactly once, possibly from a later loop iteration.
	AsyncEvaluator interface {
		EvaluateScriptAsync(script string, resolve func(result any, err error))
	}

	// Interrupter is implemented by windows whose in-flight call can be
	// aborted from another goroutine. Interrupt must be goroutine-safe.
	Interrupter interface {
		Interrupt(reason any)
	}

	// CloseNotifier is implemented by windows that the user can close
	// outside of the command protocol.
	CloseNotifier interface {
		Closed() <-chan struct{}
	}
)
