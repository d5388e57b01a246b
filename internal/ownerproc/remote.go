// SPDX-License-Identifier: MPL-2.0

package ownerproc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
	"github.com/invowk/webproc/internal/owner"
)

// ErrOwnerExited is returned by Run when the child process ended without
// completing the protocol.
var ErrOwnerExited = errors.New("owner process exited unexpectedly")

type (
	// Remote is the parent side of process isolation. It implements
	// owner.Runner by starting a child process that calls Serve and relaying
	// commands to it.
	Remote struct {
		path   string
		args   []string
		env    []string
		stderr io.Writer
		cfg    backend.WindowConfig
		drain  owner.DrainPolicy
		logger *log.Logger

		mu   sync.Mutex
		proc *os.Process

		pendingMu sync.Mutex
		pending   map[uint64]*command.Command
	}

	// RemoteOption configures a Remote.
	RemoteOption func(*Remote)
)

// WithCommand sets the executable and arguments that start the child. The
// child must call Serve with the streams returned by ProtocolStreams.
func WithCommand(path string, args ...string) RemoteOption {
	return func(r *Remote) {
		r.path = path
		r.args = args
	}
}

// WithEnv appends variables to the child's environment.
func WithEnv(env ...string) RemoteOption {
	return func(r *Remote) { r.env = append(r.env, env...) }
}

// WithStderr sets where the child's stderr goes. The default is os.Stderr.
func WithStderr(w io.Writer) RemoteOption {
	return func(r *Remote) { r.stderr = w }
}

// WithDrainPolicy sets the drain policy applied by both sides.
func WithDrainPolicy(p owner.DrainPolicy) RemoteOption {
	return func(r *Remote) { r.drain = p }
}

// WithLogger sets the parent-side logger.
func WithLogger(logger *log.Logger) RemoteOption {
	return func(r *Remote) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRemote creates a runner that opens cfg in a child process. Without
// WithCommand the current executable is started with "internal owner".
func NewRemote(cfg backend.WindowConfig, opts ...RemoteOption) *Remote {
	r := &Remote{
		args:    []string{"internal", "owner"},
		stderr:  os.Stderr,
		cfg:     cfg,
		logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "owner-proc", Level: log.WarnLevel}),
		pending: make(map[uint64]*command.Command),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run implements owner.Runner.
func (r *Remote) Run(ch *command.Channel, ready func()) error {
	cmd, stdin, stdout, err := r.spawn()
	if err != nil {
		ch.Close()
		return &command.StartupError{Backend: r.cfg.Backend, Cause: err}
	}

	enc := newEncoder(stdin)
	dec := json.NewDecoder(stdout)

	if err := r.handshake(enc, dec); err != nil {
		ch.Close()
		_ = stdin.Close()
		_ = r.Kill()
		_ = cmd.Wait()
		_ = stdout.Close()
		r.clearProcess()
		return err
	}
	if ready != nil {
		ready()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	readErr := make(chan error, 1)
	go func() {
		readErr <- r.readResults(dec)
		cancel()
	}()

	r.relay(ctx, ch, enc)

	rerr := <-readErr
	_ = stdin.Close()
	werr := cmd.Wait()
	_ = stdout.Close()
	r.clearProcess()
	r.rejectPending()

	if rerr != nil {
		if werr != nil {
			return fmt.Errorf("%w: %w", rerr, werr)
		}
		return rerr
	}
	return nil
}

// Kill implements owner.Runner by killing the child process.
func (r *Remote) Kill() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.proc == nil {
		return nil
	}
	r.logger.Warn("killing owner process", "pid", r.proc.Pid)
	if err := r.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// protocolPipes are the parent's ends of the protocol streams.
type protocolPipes struct {
	calls     io.WriteCloser
	results   io.ReadCloser
	childEnds []io.Closer
}

func (p *protocolPipes) closeChildEnds() {
	for _, c := range p.childEnds {
		_ = c.Close()
	}
}

func (p *protocolPipes) closeAll() {
	p.closeChildEnds()
	_ = p.calls.Close()
	_ = p.results.Close()
}

func (r *Remote) spawn() (*exec.Cmd, io.WriteCloser, io.ReadCloser, error) {
	path := r.path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("locate executable: %w", err)
		}
		path = exe
	}

	cmd := exec.Command(path, r.args...)
	cmd.Env = append(os.Environ(), r.env...)
	cmd.Stderr = r.stderr

	pipes, err := attachProtocol(cmd, r.stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		pipes.closeAll()
		return nil, nil, nil, fmt.Errorf("start owner process: %w", err)
	}
	// The child holds its own copies; keeping ours open would hide its exit.
	pipes.closeChildEnds()

	r.mu.Lock()
	r.proc = cmd.Process
	r.mu.Unlock()
	r.logger.Debug("owner process started", "pid", cmd.Process.Pid, "path", path)
	return cmd, pipes.calls, pipes.results, nil
}

func (r *Remote) handshake(enc *encoder, dec *json.Decoder) error {
	cfg := r.cfg
	if err := enc.send(Message{Type: MsgStart, Config: &cfg, Drain: r.drain}); err != nil {
		return &command.StartupError{Backend: cfg.Backend, Cause: fmt.Errorf("send start message: %w", err)}
	}

	var reply Message
	if err := dec.Decode(&reply); err != nil {
		return &command.StartupError{Backend: cfg.Backend, Cause: fmt.Errorf("%w before ready: %w", ErrOwnerExited, err)}
	}
	switch reply.Type {
	case MsgReady:
		return nil
	case MsgFailed:
		name := reply.Backend
		if name == "" {
			name = cfg.Backend
		}
		return &command.StartupError{Backend: name, Cause: errors.New(reply.Error)}
	default:
		return &command.StartupError{Backend: cfg.Backend, Cause: fmt.Errorf("%w: got %q before ready", ErrProtocol, reply.Type)}
	}
}

// relay forwards commands until the terminate signal or until the child
// goes away (ctx cancelled by the reader).
func (r *Remote) relay(ctx context.Context, ch *command.Channel, enc *encoder) {
	for {
		cmd, err := ch.Pop(ctx)
		switch {
		case errors.Is(err, command.ErrChannelClosed):
			alive := r.drain == owner.DrainExecute
			for _, queued := range ch.Drain() {
				if !alive || !r.forward(enc, queued) {
					queued.Reject(command.ErrControllerStopped)
					alive = false
				}
			}
			if err := enc.send(Message{Type: MsgTerminate}); err != nil {
				r.logger.Debug("sending terminate", "error", err)
			}
			return
		case err != nil:
			ch.Close()
			for _, queued := range ch.Drain() {
				queued.Reject(command.ErrControllerStopped)
			}
			return
		}

		if !r.forward(enc, cmd) {
			cmd.Reject(command.ErrControllerStopped)
		}
	}
}

func (r *Remote) forward(enc *encoder, cmd *command.Command) bool {
	var payload json.RawMessage
	if cmd.Payload != nil {
		raw, err := json.Marshal(cmd.Payload)
		if err != nil {
			cmd.Reject(&command.InvalidPayloadError{Kind: cmd.Kind, Reason: err.Error()})
			return true
		}
		payload = raw
	}

	r.pendingMu.Lock()
	r.pending[cmd.ID] = cmd
	r.pendingMu.Unlock()

	if err := enc.send(Message{Type: MsgCall, ID: cmd.ID, Kind: cmd.Kind, Payload: payload}); err != nil {
		r.take(cmd.ID)
		r.logger.Debug("forwarding command", "id", cmd.ID, "error", err)
		return false
	}
	return true
}

// readResults resolves pending commands until the child reports stopped.
func (r *Remote) readResults(dec *json.Decoder) error {
	for {
		var m Message
		if err := dec.Decode(&m); err != nil {
			if errors.Is(err, io.EOF) {
				return ErrOwnerExited
			}
			return fmt.Errorf("%w: %w", ErrOwnerExited, err)
		}

		switch m.Type {
		case MsgResult:
			cmd := r.take(m.ID)
			if cmd == nil {
				continue
			}
			if m.Error != "" || m.ErrorKind != "" {
				cmd.Reject(decodeError(m, cmd))
				continue
			}
			shape, _ := command.Lookup(cmd.Kind)
			result, err := shape.DecodeResult(m.Result)
			if err != nil {
				cmd.Reject(&command.OperationError{Kind: cmd.Kind, CommandID: cmd.ID, Cause: err})
				continue
			}
			cmd.Resolve(unwrapNonFinite(result), nil)
		case MsgStopped:
			return nil
		default:
			r.logger.Warn("ignoring unexpected message", "type", m.Type)
		}
	}
}

func (r *Remote) take(id uint64) *command.Command {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	cmd := r.pending[id]
	delete(r.pending, id)
	return cmd
}

func (r *Remote) rejectPending() {
	r.pendingMu.Lock()
	pending := r.pending
	r.pending = make(map[uint64]*command.Command)
	r.pendingMu.Unlock()
	for _, cmd := range pending {
		cmd.Reject(command.ErrControllerStopped)
	}
}

func (r *Remote) clearProcess() {
	r.mu.Lock()
	r.proc = nil
	r.mu.Unlock()
}
