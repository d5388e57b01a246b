// SPDX-License-Identifier: MPL-2.0

package ownerproc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
	"github.com/invowk/webproc/internal/owner"
)

// inflight counts replies still to be written. Once closed, no new reply
// may be registered, so Wait never races with Add.
type inflight struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	closing bool
}

func (f *inflight) add() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closing {
		return false
	}
	f.wg.Add(1)
	return true
}

func (f *inflight) done() { f.wg.Done() }

func (f *inflight) closeAndWait() {
	f.mu.Lock()
	f.closing = true
	f.mu.Unlock()
	f.wg.Wait()
}

// Serve is the child side of process isolation. It reads the start message
// from in, opens the requested backend from reg and runs the owner loop on
// the calling goroutine until the parent sends terminate, closes in, or the
// window goes away. Every reply is written to out before the final stopped
// message.
func Serve(in io.Reader, out io.Writer, reg *backend.Registry, logger *log.Logger) error {
	dec := json.NewDecoder(in)
	enc := newEncoder(out)

	var start Message
	if err := dec.Decode(&start); err != nil {
		return fmt.Errorf("read start message: %w", err)
	}
	if start.Type != MsgStart || start.Config == nil {
		return fmt.Errorf("%w: expected start message, got %q", ErrProtocol, start.Type)
	}
	cfg := *start.Config

	b, err := reg.Get(cfg.Backend)
	if err != nil {
		serr := &command.StartupError{Backend: cfg.Backend, Cause: err}
		_ = enc.send(Message{Type: MsgFailed, Backend: cfg.Backend, Error: err.Error()})
		return serr
	}

	loop := owner.New(b, cfg, owner.WithDrainPolicy(start.Drain), owner.WithLogger(logger))
	ch := command.NewChannel()
	var replies inflight

	ready := func() {
		if err := enc.send(Message{Type: MsgReady}); err != nil {
			logger.Error("could not report readiness", "error", err)
			ch.Close()
			return
		}
		go readCalls(dec, ch, enc, &replies, logger)
	}

	if err := loop.Run(ch, ready); err != nil {
		var se *command.StartupError
		msg := err.Error()
		if errors.As(err, &se) && se.Cause != nil {
			msg = se.Cause.Error()
		}
		_ = enc.send(Message{Type: MsgFailed, Backend: b.Name(), Error: msg})
		return err
	}

	replies.closeAndWait()
	return enc.send(Message{Type: MsgStopped})
}

// readCalls forwards call messages into ch until terminate or end of input,
// both of which close ch.
func readCalls(dec *json.Decoder, ch *command.Channel, enc *encoder, replies *inflight, logger *log.Logger) {
	defer ch.Close()

	for {
		var m Message
		if err := dec.Decode(&m); err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error("reading parent messages", "error", err)
			}
			return
		}

		switch m.Type {
		case MsgTerminate:
			return
		case MsgCall:
			cmd := decodeCall(m)
			if !replies.add() {
				cmd.Reject(command.ErrControllerStopped)
				_ = enc.send(resultMessage(cmd))
				continue
			}
			if !cmd.Resolved() {
				if err := ch.Push(cmd); err != nil {
					cmd.Reject(command.ErrControllerStopped)
				}
			}
			go func() {
				defer replies.done()
				<-cmd.Done()
				if err := enc.send(resultMessage(cmd)); err != nil {
					logger.Error("writing result", "id", cmd.ID, "error", err)
				}
			}()
		default:
			logger.Warn("ignoring unexpected message", "type", m.Type)
		}
	}
}

// decodeCall turns a call message into a command. Calls that fail the
// catalog check come back already rejected.
func decodeCall(m Message) *command.Command {
	shape, ok := command.Lookup(m.Kind)
	if !ok {
		cmd := command.New(m.ID, m.Kind, nil)
		cmd.Reject(&command.UnsupportedKindError{Value: m.Kind})
		return cmd
	}
	payload, err := shape.DecodePayload(m.Payload)
	cmd := command.New(m.ID, m.Kind, payload)
	if err != nil {
		cmd.Reject(err)
	}
	return cmd
}
