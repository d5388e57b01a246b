// SPDX-License-Identifier: MPL-2.0

package command

import "sync"

// Command is one requested operation plus its write-once outcome.
//
// The caller creates it and hands it to a Channel; from then on only the
// owner writes to it (through Resolve). The caller reads the outcome after
// Done fires.
type Command struct {
	ID      uint64
	Kind    Kind
	Payload any

	once   sync.Once
	done   chan struct{}
	result any
	err    error
}

// New creates an unresolved command.
func New(id uint64, kind Kind, payload any) *Command {
	return &Command{
		ID:      id,
		Kind:    kind,
		Payload: payload,
		done:    make(chan struct{}),
	}
}

// Resolve records the outcome and fires Done. Only the first call has any
// effect; it reports whether this call was the one that resolved the command.
// When err is non-nil the result is dropped.
func (c *Command) Resolve(result any, err error) bool {
	resolved := false
	c.once.Do(func() {
		if err != nil {
			c.err = err
		} else {
			c.result = result
		}
		close(c.done)
		resolved = true
	})
	return resolved
}

// Reject resolves the command with err.
func (c *Command) Reject(err error) bool {
	return c.Resolve(nil, err)
}

// Done is closed once the command is resolved.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Resolved reports whether the command has an outcome.
func (c *Command) Resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Result returns the outcome. Before Done fires it returns ErrNotResolved.
func (c *Command) Result() (any, error) {
	select {
	case <-c.done:
		return c.result, c.err
	default:
		return nil, ErrNotResolved
	}
}
