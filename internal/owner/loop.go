// SPDX-License-Identifier: MPL-2.0

package owner

import (
	"context"
	"errors"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
)

var (
	// ErrAbandoned is returned by Kill when the owner cannot be interrupted.
	// The goroutine is left to finish on its own; nothing waits for it.
	ErrAbandoned = errors.New("owner thread abandoned")
	// ErrKilled is the reason passed to backend.Interrupter by Kill.
	ErrKilled = errors.New("owner killed")
	// ErrAlreadyRan is returned when Run is called a second time.
	ErrAlreadyRan = errors.New("owner loop already ran")
)

type (
	// Runner executes commands from a channel on an owner execution context.
	// Run blocks until the owner has torn down; ready is called once the
	// window accepts commands. A startup failure is returned as a
	// *command.StartupError without ready being called. Kill is the forced
	// path used when a graceful shutdown did not complete in time; it may be
	// called from any goroutine.
	Runner interface {
		Run(ch *command.Channel, ready func()) error
		Kill() error
	}

	// Loop is the in-process Runner: it owns one backend window on the
	// goroutine that calls Run.
	Loop struct {
		backend backend.Backend
		cfg     backend.WindowConfig
		drain   DrainPolicy
		logger  *log.Logger

		phase atomic.Int32
		ran   atomic.Bool

		// window is published for Kill only; every method call on it
		// happens on the owner goroutine.
		mu     sync.Mutex
		window backend.Window
	}

	// Option configures a Loop.
	Option func(*Loop)

	// execFunc runs one command to completion on the owner and reports
	// whether the owner was still alive to do so.
	execFunc func(cmd *command.Command) bool
)

// WithDrainPolicy sets what happens to commands queued behind the terminate
// signal. The default is DrainReject.
func WithDrainPolicy(p DrainPolicy) Option {
	return func(l *Loop) { l.drain = p }
}

// WithLogger sets the logger used for lifecycle and failure reporting.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a loop that will open a window from b with cfg.
func New(b backend.Backend, cfg backend.WindowConfig, opts ...Option) *Loop {
	l := &Loop{
		backend: b,
		cfg:     cfg,
		logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "owner", Level: log.WarnLevel}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.drain = l.drain.orDefault()
	l.phase.Store(int32(PhaseInitializing))
	return l
}

// Phase returns the loop's current phase.
func (l *Loop) Phase() Phase {
	return Phase(l.phase.Load())
}

// Run opens the window and executes commands from ch until the terminate
// signal, a destroy command, or the user closing the window. The calling
// goroutine is locked to its OS thread for the duration.
//
// Run closes ch before returning so that producers fail fast once the owner
// is gone.
func (l *Loop) Run(ch *command.Channel, ready func()) error {
	if !l.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRan
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer l.phase.Store(int32(PhaseStopped))

	w, err := l.open()
	if err != nil {
		l.logger.Error("window startup failed", "backend", l.backend.Name(), "error", err)
		ch.Close()
		return err
	}
	l.mu.Lock()
	l.window = w
	l.mu.Unlock()

	l.applyInitialState(w)
	l.phase.Store(int32(PhaseRunning))
	l.logger.Debug("window ready", "backend", l.backend.Name())
	if ready != nil {
		ready()
	}

	var destroy *command.Command
	if el, ok := w.(backend.EventLoop); ok {
		destroy = l.runEventLoop(w, el, ch)
	} else {
		destroy = l.runSerial(w, ch)
	}
	l.teardown(w, destroy)
	return nil
}

// Kill interrupts a wedged window call when the backend supports it and
// returns ErrAbandoned otherwise.
func (l *Loop) Kill() error {
	if l.Phase() == PhaseStopped {
		return nil
	}
	l.mu.Lock()
	w := l.window
	l.mu.Unlock()

	if i, ok := w.(backend.Interrupter); ok {
		l.logger.Warn("interrupting owner", "backend", l.backend.Name())
		i.Interrupt(ErrKilled)
		return nil
	}
	return ErrAbandoned
}

func (l *Loop) open() (w backend.Window, err error) {
	defer func() {
		if r := recover(); r != nil {
			w = nil
			err = &command.StartupError{
				Backend: l.backend.Name(),
				Cause:   &command.PanicError{Value: r, Stack: debug.Stack()},
			}
		}
	}()

	w, err = l.backend.Open(l.cfg)
	if err != nil {
		return nil, &command.StartupError{Backend: l.backend.Name(), Cause: err}
	}
	if w == nil {
		return nil, &command.StartupError{Backend: l.backend.Name(), Cause: errors.New("backend returned no window")}
	}
	return w, nil
}

// applyInitialState applies the window states that toolkits can only set
// after construction.
func (l *Loop) applyInitialState(w backend.Window) {
	if l.cfg.Maximized {
		if err := w.Maximize(); err != nil {
			l.logger.Warn("could not maximize window", "error", err)
		}
	}
	if l.cfg.Fullscreen {
		if err := w.ToggleFullscreen(); err != nil {
			l.logger.Warn("could not enter fullscreen", "error", err)
		}
	}
}

// runSerial pops and executes commands directly on the owner goroutine.
func (l *Loop) runSerial(w backend.Window, ch *command.Channel) *command.Command {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cn, ok := w.(backend.CloseNotifier); ok {
		go func() {
			select {
			case <-cn.Closed():
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	exec := func(cmd *command.Command) bool {
		l.execute(w, cmd)
		return true
	}

	for {
		if ctx.Err() != nil {
			return l.stopOnClose(ch)
		}

		cmd, err := ch.Pop(ctx)
		switch {
		case errors.Is(err, command.ErrChannelClosed):
			l.logger.Debug("terminate signal received")
			return l.drainQueue(ch, exec)
		case err != nil:
			return l.stopOnClose(ch)
		case cmd.Kind == command.KindDestroy:
			ch.Close()
			l.rejectQueued(ch)
			return cmd
		default:
			l.execute(w, cmd)
		}
	}
}

// runEventLoop runs the toolkit loop on the owner goroutine and feeds it
// from a pump goroutine, one command at a time.
func (l *Loop) runEventLoop(w backend.Window, el backend.EventLoop, ch *command.Channel) *command.Command {
	exited := make(chan struct{})
	destroyed := make(chan *command.Command, 1)
	go func() {
		destroyed <- l.pump(w, el, ch, exited)
	}()

	el.Run()
	close(exited)
	return <-destroyed
}

func (l *Loop) pump(w backend.Window, el backend.EventLoop, ch *command.Channel, exited <-chan struct{}) *command.Command {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-exited:
			cancel()
		case <-ctx.Done():
		}
	}()

	exec := func(cmd *command.Command) bool {
		el.Dispatch(func() { l.executeOnLoop(w, cmd) })
		select {
		case <-cmd.Done():
			return true
		case <-exited:
			return false
		}
	}

	for {
		cmd, err := ch.Pop(ctx)
		switch {
		case errors.Is(err, command.ErrChannelClosed):
			l.logger.Debug("terminate signal received")
			destroy := l.drainQueue(ch, exec)
			el.Terminate()
			return destroy
		case err != nil:
			return l.stopOnClose(ch)
		case cmd.Kind == command.KindDestroy:
			ch.Close()
			l.rejectQueued(ch)
			el.Terminate()
			return cmd
		}

		if !exec(cmd) {
			cmd.Reject(command.ErrControllerStopped)
			return l.stopOnClose(ch)
		}
	}
}

// executeOnLoop runs on the toolkit loop. Script evaluation goes through
// the asynchronous path when the window offers one; the command then
// resolves from the toolkit's callback.
func (l *Loop) executeOnLoop(w backend.Window, cmd *command.Command) {
	ae, ok := w.(backend.AsyncEvaluator)
	if !ok || cmd.Kind != command.KindEvaluateScript {
		l.execute(w, cmd)
		return
	}
	p, ok := cmd.Payload.(command.EvaluateScriptPayload)
	if !ok {
		l.execute(w, cmd)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.fail(cmd, &command.PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	ae.EvaluateScriptAsync(p.Script, func(result any, err error) {
		if err != nil {
			l.fail(cmd, err)
			return
		}
		cmd.Resolve(result, nil)
	})
}

// stopOnClose handles the user closing the window: no further commands are
// accepted and everything queued is rejected.
func (l *Loop) stopOnClose(ch *command.Channel) *command.Command {
	l.logger.Info("window closed")
	ch.Close()
	l.rejectQueued(ch)
	return nil
}

// drainQueue applies the drain policy to the commands left behind the
// terminate signal. A destroy command found while executing is returned so
// teardown can resolve it; everything after it is rejected.
func (l *Loop) drainQueue(ch *command.Channel, exec execFunc) *command.Command {
	l.phase.Store(int32(PhaseDraining))
	queued := ch.Drain()
	if len(queued) > 0 {
		l.logger.Debug("draining queued commands", "count", len(queued), "policy", l.drain)
	}

	var destroy *command.Command
	alive := l.drain == DrainExecute
	for _, cmd := range queued {
		switch {
		case !alive:
			cmd.Reject(command.ErrControllerStopped)
		case cmd.Kind == command.KindDestroy:
			destroy = cmd
			alive = false
		case !exec(cmd):
			cmd.Reject(command.ErrControllerStopped)
			alive = false
		}
	}
	return destroy
}

func (l *Loop) rejectQueued(ch *command.Channel) {
	l.phase.Store(int32(PhaseDraining))
	for _, cmd := range ch.Drain() {
		cmd.Reject(command.ErrControllerStopped)
	}
}

// teardown destroys the window on the owner goroutine. A destroy command is
// resolved with the outcome.
func (l *Loop) teardown(w backend.Window, destroy *command.Command) {
	l.phase.Store(int32(PhaseDraining))

	err := guard(func() error { return w.Destroy() })
	if err != nil {
		l.logger.Warn("window teardown failed", "error", err)
	}
	if destroy != nil {
		if err != nil {
			l.fail(destroy, err)
		} else {
			destroy.Resolve(nil, nil)
		}
	}

	l.mu.Lock()
	l.window = nil
	l.mu.Unlock()
	l.logger.Debug("owner stopped")
}

// execute runs one command and records its outcome on the command.
func (l *Loop) execute(w backend.Window, cmd *command.Command) {
	var result any
	err := guard(func() error {
		h, ok := handlers[cmd.Kind]
		if !ok {
			return &command.UnsupportedKindError{Value: cmd.Kind}
		}
		var err error
		result, err = h(w, cmd.Payload)
		return err
	})
	if err != nil {
		l.fail(cmd, err)
		return
	}
	cmd.Resolve(result, nil)
}

// fail rejects cmd, attributing err to it. Unsupported kinds are reported
// as they are.
func (l *Loop) fail(cmd *command.Command, err error) {
	var uke *command.UnsupportedKindError
	if !errors.As(err, &uke) {
		err = &command.OperationError{Kind: cmd.Kind, CommandID: cmd.ID, Cause: err}
	}

	var pe *command.PanicError
	if errors.As(err, &pe) {
		l.logger.Error("backend panicked", "id", cmd.ID, "kind", cmd.Kind, "panic", pe.Value)
	} else {
		l.logger.Debug("command failed", "id", cmd.ID, "kind", cmd.Kind, "error", err)
	}
	cmd.Reject(err)
}

// guard converts a panic in fn into a *command.PanicError.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &command.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
