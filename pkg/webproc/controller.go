// SPDX-License-Identifier: MPL-2.0

package webproc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
	"github.com/invowk/webproc/internal/core/lifecycle"
	"github.com/invowk/webproc/internal/owner"
	"github.com/invowk/webproc/internal/ownerproc"
)

// Controller runs one window on its own owner and serializes every
// operation onto it. A Controller is single-use: once stopped, create a new
// one. All methods are safe for concurrent use.
type Controller struct {
	// Immutable after New
	id      string
	cfg     WindowConfig
	opts    options
	backend backend.Backend
	logger  *log.Logger

	base   *lifecycle.Base
	ch     *command.Channel
	nextID atomic.Uint64

	runnerMu sync.Mutex
	runner   owner.Runner

	// Commands handed to the owner whose caller is still waiting.
	pendingMu sync.Mutex
	pending   map[uint64]*command.Command

	shutdownOnce sync.Once
	shutdownDone chan struct{}
	graceful     bool
}

// New creates a controller for cfg. The owner is not started until Start.
func New(cfg WindowConfig, opts ...Option) (*Controller, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.isolation == "" {
		o.isolation = IsolationThread
	}
	if err := o.isolation.Validate(); err != nil {
		return nil, err
	}
	if err := o.drain.Validate(); err != nil {
		return nil, err
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}

	c := &Controller{
		id:           uuid.NewString(),
		cfg:          cfg,
		opts:         o,
		base:         lifecycle.NewBase(),
		ch:           command.NewChannel(),
		pending:      make(map[uint64]*command.Command),
		shutdownDone: make(chan struct{}),
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "webproc", Level: log.WarnLevel})
	}
	c.logger = logger.With("controller", c.id[:8])

	// In process isolation the child resolves the backend itself.
	if o.isolation == IsolationThread {
		c.backend = o.backend
		if c.backend == nil {
			b, err := o.registry.Get(cfg.Backend)
			if err != nil {
				return nil, &StartupError{Backend: cfg.Backend, Cause: err}
			}
			c.backend = b
		}
	}
	return c, nil
}

// Launch creates a controller and starts it.
func Launch(ctx context.Context, cfg WindowConfig, opts ...Option) (*Controller, error) {
	c, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// ID returns the controller's unique instance ID.
func (c *Controller) ID() string { return c.id }

// Config returns the window configuration the controller was created with.
func (c *Controller) Config() WindowConfig { return c.cfg }

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.base.State() }

// IsRunning reports whether the controller accepts and executes calls.
func (c *Controller) IsRunning() bool { return c.base.IsRunning() }

// Done is closed once the controller has stopped, whether through Shutdown,
// a startup failure, or the owner ending on its own.
func (c *Controller) Done() <-chan struct{} { return c.base.StoppedGate().Done() }

// Wait blocks until the controller stops or ctx is done. It returns the
// error that ended the owner, if any; a user closing the window is not an
// error.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.Done():
		return c.base.LastError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start spawns the owner and blocks until the window is ready. A backend
// failure is returned as a *StartupError and is not retried. If ctx is done
// or the startup timeout elapses first, the owner is shut down and a
// *StartupError wrapping the context error is returned.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.base.TransitionToStarting(ctx); err != nil {
		if ctx.Err() != nil {
			return &StartupError{Backend: c.backendName(), Cause: err}
		}
		return fmt.Errorf("%w: %w", ErrAlreadyStarted, err)
	}

	runner := c.newRunner()
	c.runnerMu.Lock()
	c.runner = runner
	c.runnerMu.Unlock()

	c.logger.Debug("starting owner", "isolation", c.opts.isolation, "backend", c.backendName())
	go c.runOwner(runner)

	if c.opts.startupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.startupTimeout)
		defer cancel()
	}

	err := c.base.WaitForReady(ctx)
	if err == nil {
		c.logger.Info("window ready", "backend", c.backendName())
		return nil
	}

	var se *StartupError
	if errors.As(err, &se) {
		return se
	}
	if ctx.Err() != nil {
		c.logger.Warn("startup did not complete in time", "error", err)
		c.Shutdown(c.opts.shutdownGrace)
	}
	return &StartupError{Backend: c.backendName(), Cause: err}
}

// Call submits one operation and waits for its outcome.
//
// Unknown kinds and mistyped payloads are rejected before anything is
// queued. A call made while the controller is starting waits for readiness;
// one made before Start fails with ErrNotStarted, and one made after
// shutdown began fails with ErrControllerStopped. The wait is bounded by the
// ctx deadline, or by the call timeout when ctx has none; on expiry an
// *OperationTimeoutError is returned and the late result, if any, is
// dropped. Backend failures come back as *OperationError.
func (c *Controller) Call(ctx context.Context, kind Kind, payload any) (any, error) {
	shape, ok := command.Lookup(kind)
	if !ok {
		return nil, &UnsupportedKindError{Value: kind}
	}
	payload, err := shape.CheckPayload(payload)
	if err != nil {
		return nil, err
	}

	if state := c.base.State(); state == StateCreated {
		return nil, ErrNotStarted
	} else if !state.AcceptsCommands() {
		return nil, ErrControllerStopped
	}

	var timeout time.Duration
	if _, has := ctx.Deadline(); !has && c.opts.callTimeout > 0 {
		timeout = c.opts.callTimeout
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := c.base.WaitForReady(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, waitError(ctx, kind, timeout)
		}
		return nil, ErrControllerStopped
	}

	cmd := command.New(c.nextID.Add(1), kind, payload)
	c.track(cmd)
	if err := c.ch.Push(cmd); err != nil {
		c.untrack(cmd.ID)
		return nil, ErrControllerStopped
	}

	select {
	case <-cmd.Done():
		c.untrack(cmd.ID)
		return cmd.Result()
	case <-ctx.Done():
		c.untrack(cmd.ID)
		c.logger.Debug("caller stopped waiting", "id", cmd.ID, "kind", kind, "error", ctx.Err())
		return nil, waitError(ctx, kind, timeout)
	}
}

// Shutdown stops accepting calls, signals the owner to terminate, and waits
// up to grace for it to tear the window down. If the owner does not finish
// in time it is forcibly terminated, every pending call fails with
// ErrControllerStopped, and the controller is marked stopped anyway.
//
// Shutdown always returns. It reports whether the owner stopped within the
// grace period. Concurrent and repeated calls wait for the first one and
// return its outcome.
func (c *Controller) Shutdown(grace time.Duration) bool {
	c.shutdownOnce.Do(func() {
		c.graceful = c.shutdown(grace)
		close(c.shutdownDone)
	})
	<-c.shutdownDone
	return c.graceful
}

// Close shuts the controller down with the configured grace period. It
// always returns nil.
func (c *Controller) Close() error {
	c.Shutdown(c.opts.shutdownGrace)
	return nil
}

func (c *Controller) shutdown(grace time.Duration) bool {
	if !c.base.TransitionToShuttingDown() {
		// Never started, or the owner already ended on its own.
		c.ch.Close()
		return true
	}

	c.logger.Debug("shutting down", "grace", grace)
	c.ch.Close()
	if c.base.StoppedGate().WaitTimeout(grace) {
		c.logger.Debug("owner stopped")
		return true
	}

	c.logger.Warn("shutdown grace period elapsed, forcing owner termination", "grace", grace)
	c.runnerMu.Lock()
	runner := c.runner
	c.runnerMu.Unlock()
	if runner != nil {
		if err := runner.Kill(); err != nil {
			c.logger.Error("owner could not be terminated, abandoning it", "error", err)
		}
	}

	if !c.base.StoppedGate().WaitTimeout(min(grace, killWait)) {
		for _, cmd := range c.ch.Drain() {
			cmd.Reject(ErrControllerStopped)
		}
		c.rejectPending()
		c.base.TransitionToStopped(nil)
	}
	return false
}

func (c *Controller) newRunner() owner.Runner {
	if c.opts.isolation == IsolationProcess {
		opts := []ownerproc.RemoteOption{
			ownerproc.WithDrainPolicy(c.opts.drain),
			ownerproc.WithLogger(c.logger.WithPrefix("owner-proc")),
			ownerproc.WithEnv(c.opts.ownerEnv...),
		}
		if c.opts.ownerPath != "" {
			opts = append(opts, ownerproc.WithCommand(c.opts.ownerPath, c.opts.ownerArgs...))
		}
		if c.opts.ownerStderr != nil {
			opts = append(opts, ownerproc.WithStderr(c.opts.ownerStderr))
		}
		return ownerproc.NewRemote(c.cfg, opts...)
	}

	return owner.New(c.backend, c.cfg,
		owner.WithDrainPolicy(c.opts.drain),
		owner.WithLogger(c.logger.WithPrefix("owner")),
	)
}

// runOwner runs on its own goroutine for the life of the owner.
func (c *Controller) runOwner(runner owner.Runner) {
	err := runner.Run(c.ch, c.onReady)

	c.ch.Close()
	for _, cmd := range c.ch.Drain() {
		cmd.Reject(ErrControllerStopped)
	}
	c.rejectPending()

	if err != nil {
		c.logger.Error("owner exited", "error", err)
	} else {
		c.logger.Debug("owner exited")
	}
	c.base.TransitionToStopped(err)
}

func (c *Controller) onReady() {
	if !c.base.TransitionToReady() {
		c.logger.Debug("window became ready after shutdown began")
	}
}

func (c *Controller) backendName() string {
	if c.backend != nil {
		return c.backend.Name()
	}
	return c.cfg.Backend
}

func (c *Controller) track(cmd *command.Command) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending[cmd.ID] = cmd
}

func (c *Controller) untrack(id uint64) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	delete(c.pending, id)
}

func (c *Controller) rejectPending() {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]*command.Command)
	c.pendingMu.Unlock()

	for _, cmd := range pending {
		cmd.Reject(ErrControllerStopped)
	}
}

// waitError converts the end of a caller's wait into the call's error.
func waitError(ctx context.Context, kind Kind, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &OperationTimeoutError{Kind: kind, Timeout: timeout}
	}
	return fmt.Errorf("%s: %w", kind, ctx.Err())
}
