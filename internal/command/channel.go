// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"sync"
)

// Channel is an unbounded, ordered queue carrying Commands from any number of
// producers to a single consumer (the owner).
//
// Close is the terminate signal: once closed, Push fails fast and Pop returns
// ErrChannelClosed even if commands remain queued. The remainder stays
// available through Drain so the owner can execute or reject it.
type Channel struct {
	mu     sync.Mutex
	items  []*Command
	closed bool

	// notify holds at most one pending wake-up for the consumer.
	notify   chan struct{}
	closedCh chan struct{}
}

// NewChannel creates an open, empty channel.
func NewChannel() *Channel {
	return &Channel{
		notify:   make(chan struct{}, 1),
		closedCh: make(chan struct{}),
	}
}

// Push appends cmd. It returns ErrChannelClosed after Close.
func (c *Channel) Push(cmd *Command) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.items = append(c.items, cmd)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop blocks until a command is available, the channel is closed, or ctx is
// done. A closed channel yields ErrChannelClosed regardless of queued items.
func (c *Channel) Pop(ctx context.Context) (*Command, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrChannelClosed
		}
		if len(c.items) > 0 {
			cmd := c.items[0]
			c.items[0] = nil
			c.items = c.items[1:]
			c.mu.Unlock()
			return cmd, nil
		}
		c.mu.Unlock()

		select {
		case <-c.notify:
		case <-c.closedCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops accepting commands and wakes the consumer. It is idempotent and
// reports whether this call closed the channel.
func (c *Channel) Close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.closedCh)
	return true
}

// Closed returns a channel that is closed once Close has been called.
func (c *Channel) Closed() <-chan struct{} {
	return c.closedCh
}

// IsClosed reports whether Close has been called.
func (c *Channel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Drain removes and returns every queued command in enqueue order.
func (c *Channel) Drain() []*Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.items
	c.items = nil
	return items
}

// Len returns the number of queued commands.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
