// SPDX-License-Identifier: MPL-2.0

package ownerproc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
	"github.com/invowk/webproc/internal/owner"
)

// Message types.
const (
	MsgStart     MessageType = "start"
	MsgReady     MessageType = "ready"
	MsgFailed    MessageType = "failed"
	MsgCall      MessageType = "call"
	MsgResult    MessageType = "result"
	MsgTerminate MessageType = "terminate"
	MsgStopped   MessageType = "stopped"
)

// Error kinds carried by result messages.
const (
	ErrorKindOperation      ErrorKind = "operation"
	ErrorKindUnsupported    ErrorKind = "unsupported"
	ErrorKindInvalidPayload ErrorKind = "invalid_payload"
	ErrorKindStopped        ErrorKind = "stopped"
)

// ErrProtocol is returned when the peer sends something out of sequence.
var ErrProtocol = errors.New("owner protocol violation")

type (
	// MessageType tags a protocol message.
	MessageType string

	// ErrorKind classifies a failed result so the parent can rebuild the
	// matching error type.
	ErrorKind string

	// Message is one line of the protocol. Fields are populated according
	// to Type.
	Message struct {
		Type MessageType `json:"type"`

		// start
		Config *backend.WindowConfig `json:"config,omitempty"`
		Drain  owner.DrainPolicy     `json:"drain,omitempty"`

		// call / result
		ID        uint64          `json:"id,omitempty"`
		Kind      command.Kind    `json:"kind,omitempty"`
		Payload   json.RawMessage `json:"payload,omitempty"`
		Result    json.RawMessage `json:"result,omitempty"`
		Error     string          `json:"error,omitempty"`
		ErrorKind ErrorKind       `json:"error_kind,omitempty"`

		// failed
		Backend string `json:"backend,omitempty"`
	}

	// encoder serializes messages from several goroutines onto one stream.
	encoder struct {
		mu  sync.Mutex
		enc *json.Encoder
	}
)

func newEncoder(w io.Writer) *encoder {
	return &encoder{enc: json.NewEncoder(w)}
}

func (e *encoder) send(m Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(m)
}

// resultMessage builds the reply for a resolved command.
func resultMessage(cmd *command.Command) Message {
	reply := Message{Type: MsgResult, ID: cmd.ID, Kind: cmd.Kind}

	result, err := cmd.Result()
	if err == nil && result != nil {
		raw, merr := json.Marshal(wrapNonFinite(result))
		if merr != nil {
			err = &command.OperationError{Kind: cmd.Kind, CommandID: cmd.ID, Cause: fmt.Errorf("encode result: %w", merr)}
		} else {
			reply.Result = raw
		}
	}
	if err != nil {
		reply.Error, reply.ErrorKind = encodeError(err)
	}
	return reply
}

// encodeError flattens err into a message and kind.
func encodeError(err error) (string, ErrorKind) {
	var (
		uke *command.UnsupportedKindError
		ipe *command.InvalidPayloadError
		oe  *command.OperationError
	)
	switch {
	case errors.Is(err, command.ErrControllerStopped):
		return err.Error(), ErrorKindStopped
	case errors.As(err, &uke):
		return uke.Error(), ErrorKindUnsupported
	case errors.As(err, &ipe):
		return ipe.Reason, ErrorKindInvalidPayload
	case errors.As(err, &oe) && oe.Cause != nil:
		return oe.Cause.Error(), ErrorKindOperation
	default:
		return err.Error(), ErrorKindOperation
	}
}

// decodeError rebuilds the error reported for cmd.
func decodeError(m Message, cmd *command.Command) error {
	switch m.ErrorKind {
	case ErrorKindStopped:
		return command.ErrControllerStopped
	case ErrorKindUnsupported:
		return &command.UnsupportedKindError{Value: cmd.Kind}
	case ErrorKindInvalidPayload:
		return &command.InvalidPayloadError{Kind: cmd.Kind, Reason: m.Error}
	default:
		return &command.OperationError{Kind: cmd.Kind, CommandID: cmd.ID, Cause: errors.New(m.Error)}
	}
}
