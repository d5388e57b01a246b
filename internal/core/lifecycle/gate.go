// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Gate is a single-fire signal. Signal is idempotent and wakes every waiter;
// waiters arriving after the signal return immediately.
type Gate struct {
	once sync.Once
	ch   chan struct{}
}

// NewGate returns an unfired gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Signal fires the gate. Calls after the first are no-ops.
func (g *Gate) Signal() {
	g.once.Do(func() { close(g.ch) })
}

// Done returns a channel that is closed once the gate fires.
func (g *Gate) Done() <-chan struct{} {
	return g.ch
}

// Fired reports whether Signal has been called.
func (g *Gate) Fired() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the gate fires or ctx is done. It reports whether the
// gate fired.
func (g *Gate) Wait(ctx context.Context) bool {
	select {
	case <-g.ch:
		return true
	case <-ctx.Done():
		// Prefer the signal when both are ready.
		return g.Fired()
	}
}

// WaitTimeout blocks until the gate fires or d elapses. A non-positive d
// polls the gate without blocking.
func (g *Gate) WaitTimeout(d time.Duration) bool {
	if d <= 0 {
		return g.Fired()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-g.ch:
		return true
	case <-t.C:
		return g.Fired()
	}
}
