// SPDX-License-Identifier: MPL-2.0

package webproc

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/webproc/internal/backend"
)

const (
	// DefaultCallTimeout bounds a call whose context has no deadline.
	DefaultCallTimeout = 30 * time.Second
	// DefaultStartupTimeout bounds Start when its context has no deadline.
	DefaultStartupTimeout = 30 * time.Second
	// DefaultShutdownGrace is the grace period used by Close.
	DefaultShutdownGrace = 5 * time.Second

	// killWait caps how long a forced shutdown waits for a killed or
	// interrupted owner before abandoning it.
	killWait = time.Second
)

type (
	// Option configures a Controller.
	Option func(*options)

	options struct {
		logger         *log.Logger
		backend        backend.Backend
		registry       *backend.Registry
		isolation      Isolation
		drain          DrainPolicy
		callTimeout    time.Duration
		startupTimeout time.Duration
		shutdownGrace  time.Duration

		ownerPath   string
		ownerArgs   []string
		ownerEnv    []string
		ownerStderr io.Writer
	}
)

func defaultOptions() options {
	return options{
		isolation:      IsolationThread,
		drain:          DrainReject,
		callTimeout:    DefaultCallTimeout,
		startupTimeout: DefaultStartupTimeout,
		shutdownGrace:  DefaultShutdownGrace,
	}
}

// WithLogger sets the controller's logger. The owner logs through a child
// logger with the "owner" prefix.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBackend uses b for thread isolation instead of looking
// WindowConfig.Backend up in the registry.
func WithBackend(b backend.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithRegistry sets the registry WindowConfig.Backend is resolved against.
// The default is DefaultRegistry().
func WithRegistry(r *backend.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithIsolation selects where the owner runs. The default is
// IsolationThread.
func WithIsolation(i Isolation) Option {
	return func(o *options) { o.isolation = i }
}

// WithDrainPolicy selects what happens to commands still queued when
// shutdown begins. The default is DrainReject.
func WithDrainPolicy(p DrainPolicy) Option {
	return func(o *options) { o.drain = p }
}

// WithCallTimeout sets the timeout applied to calls whose context has no
// deadline. Zero disables it.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

// WithStartupTimeout bounds how long Start waits for readiness. Zero
// disables it.
func WithStartupTimeout(d time.Duration) Option {
	return func(o *options) { o.startupTimeout = d }
}

// WithShutdownGrace sets the grace period used by Close and by a Start that
// gives up.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *options) { o.shutdownGrace = d }
}

// WithOwnerCommand sets the executable (and arguments) started for process
// isolation. The default is the current executable with "internal owner".
func WithOwnerCommand(path string, args ...string) Option {
	return func(o *options) {
		o.ownerPath = path
		o.ownerArgs = args
	}
}

// WithOwnerEnv appends variables to the owner process environment.
func WithOwnerEnv(env ...string) Option {
	return func(o *options) { o.ownerEnv = append(o.ownerEnv, env...) }
}

// WithOwnerStderr redirects the owner process stderr. The default is
// os.Stderr.
func WithOwnerStderr(w io.Writer) Option {
	return func(o *options) { o.ownerStderr = w }
}
