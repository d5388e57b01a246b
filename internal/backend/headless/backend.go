// SPDX-License-Identifier: MPL-2.0

package headless

import (
	"github.com/invowk/webproc/internal/backend"
)

// Name is the registry name of the headless backend.
const Name = "headless"

type (
	// PickFunc answers an open-file dialog. Returning nil means cancelled.
	PickFunc func(filters []string, multiple bool) []string

	// SaveFunc answers a save-file dialog. Returning "" means cancelled.
	SaveFunc func(directory, fileName string) string

	// Backend opens headless windows.
	Backend struct {
		eventLoop bool
		openErr   error
		bindings  map[string]any
		pick      PickFunc
		save      SaveFunc
		onOpen    func(*Window)
	}

	// Option configures a Backend.
	Option func(*Backend)
)

// New creates a headless backend.
func New(opts ...Option) *Backend {
	b := &Backend{bindings: make(map[string]any)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithEventLoop makes opened windows implement backend.EventLoop and
// backend.AsyncEvaluator, emulating a toolkit with a native loop.
func WithEventLoop() Option {
	return func(b *Backend) { b.eventLoop = true }
}

// WithOpenError makes Open fail with err.
func WithOpenError(err error) Option {
	return func(b *Backend) { b.openErr = err }
}

// WithBinding exposes a Go value as a global in every window's JS runtime.
func WithBinding(name string, value any) Option {
	return func(b *Backend) { b.bindings[name] = value }
}

// WithFileDialogs sets the answers for pick and save dialogs. A nil func
// behaves as a cancelled dialog.
func WithFileDialogs(pick PickFunc, save SaveFunc) Option {
	return func(b *Backend) {
		b.pick = pick
		b.save = save
	}
}

// WithOpenHook registers fn to be called with every window Open creates.
// fn runs on the owner goroutine before the window is handed to the owner.
func WithOpenHook(fn func(*Window)) Option {
	return func(b *Backend) { b.onOpen = fn }
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return Name }

// Available implements backend.Backend. Headless windows can always open.
func (b *Backend) Available() bool { return true }

// Open implements backend.Backend.
func (b *Backend) Open(cfg backend.WindowConfig) (backend.Window, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}

	w, err := newWindow(cfg, b)
	if err != nil {
		return nil, err
	}
	if b.onOpen != nil {
		b.onOpen(w)
	}
	if b.eventLoop {
		return newLoopWindow(w), nil
	}
	return w, nil
}
