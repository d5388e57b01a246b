// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned by WaitForReady when the instance stopped without
// ever becoming ready and recorded no more specific cause.
var ErrStopped = errors.New("stopped before ready")

// Base provides the lifecycle state machine for a controller.
// Concrete implementations embed this struct.
//
// An instance is single-use: once stopped, create a new one.
type Base struct {
	// State management (atomic for lock-free reads)
	state atomic.Int32

	// Protects lastErr
	stateMu sync.Mutex
	lastErr error

	ready   *Gate
	stopped *Gate
}

// NewBase creates a Base in StateCreated.
func NewBase() *Base {
	b := &Base{
		ready:   NewGate(),
		stopped: NewGate(),
	}
	b.state.Store(int32(StateCreated))
	return b
}

// State returns the current state (atomic, lock-free read).
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsRunning returns true if the instance is in the Ready state.
func (b *Base) IsRunning() bool {
	return b.State() == StateReady
}

// LastError returns the error that stopped the instance, or nil.
func (b *Base) LastError() error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.lastErr
}

// StoppedGate fires when the instance reaches Stopped.
func (b *Base) StoppedGate() *Gate {
	return b.stopped
}

// --- Lifecycle helpers for concrete implementations ---

// TransitionToStarting attempts to transition from Created to Starting.
// Returns an error if the current state is not Created or if the context
// is already cancelled; in the latter case the instance is stopped.
// Must be called at the beginning of Start().
func (b *Base) TransitionToStarting(ctx context.Context) error {
	// Check for already-cancelled context BEFORE any setup so the owner is
	// never spawned for a start that cannot be observed.
	select {
	case <-ctx.Done():
		err := fmt.Errorf("context cancelled before start: %w", ctx.Err())
		if b.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
			b.recordError(err)
			b.stopped.Signal()
		}
		return err
	default:
	}

	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start in state %s", b.State())
	}
	return nil
}

// TransitionToReady marks the instance as ready and fires the ready gate.
// Returns false if the instance was no longer starting (for example because
// shutdown raced with startup).
func (b *Base) TransitionToReady() bool {
	if b.state.CompareAndSwap(int32(StateStarting), int32(StateReady)) {
		b.ready.Signal()
		return true
	}
	return false
}

// TransitionToShuttingDown attempts to transition to ShuttingDown.
// Returns true if this call performed the transition, false if the instance
// was already shutting down or stopped. An instance that was never started
// goes straight to Stopped and false is returned.
func (b *Base) TransitionToShuttingDown() bool {
	for {
		current := b.State()
		switch current {
		case StateStopped, StateShuttingDown:
			return false
		case StateCreated:
			if b.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				b.stopped.Signal()
				return false
			}
			continue
		case StateStarting, StateReady:
			if !b.state.CompareAndSwap(int32(current), int32(StateShuttingDown)) {
				continue
			}
			return true
		default:
			return false
		}
	}
}

// TransitionToStopped marks the instance as stopped and fires the stopped
// gate. A non-nil err is recorded as LastError unless one was recorded earlier.
func (b *Base) TransitionToStopped(err error) {
	if err != nil {
		b.recordError(err)
	}
	b.state.Store(int32(StateStopped))
	b.stopped.Signal()
}

// WaitForReady blocks until the instance is ready, stops, or ctx is done.
// Returns nil when ready, LastError (or ErrStopped) when stopped first, and
// a wrapped ctx.Err() when cancelled.
func (b *Base) WaitForReady(ctx context.Context) error {
	select {
	case <-b.ready.Done():
		return nil
	case <-b.stopped.Done():
		if err := b.LastError(); err != nil {
			return err
		}
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("waiting for ready: %w", ctx.Err())
	}
}

func (b *Base) recordError(err error) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.lastErr == nil {
		b.lastErr = err
	}
}
