// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package ownerproc

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

const (
	// protocolEnv tells the child which descriptors carry the protocol.
	protocolEnv = "WEBPROC_OWNER_PROTOCOL"
	protocolFDs = "fd3,fd4"
)

// attachProtocol wires cmd so the protocol runs on two dedicated pipes,
// inherited by the child as fds 3 (calls) and 4 (results). The child's
// stdout is redirected to childStdout so stray writes from native code
// cannot corrupt the stream.
func attachProtocol(cmd *exec.Cmd, childStdout io.Writer) (*protocolPipes, error) {
	callsR, callsW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create call pipe: %w", err)
	}
	resultsR, resultsW, err := os.Pipe()
	if err != nil {
		_ = callsR.Close()
		_ = callsW.Close()
		return nil, fmt.Errorf("create result pipe: %w", err)
	}

	cmd.ExtraFiles = []*os.File{callsR, resultsW}
	cmd.Stdout = childStdout
	cmd.Env = append(cmd.Env, protocolEnv+"="+protocolFDs)

	return &protocolPipes{
		calls:     callsW,
		results:   resultsR,
		childEnds: []io.Closer{callsR, resultsW},
	}, nil
}

// ProtocolStreams returns the streams Serve should use in the child: the
// inherited pipes when the parent set them up, else stdin and stdout.
func ProtocolStreams(stdin io.Reader, stdout io.Writer) (io.Reader, io.Writer) {
	if os.Getenv(protocolEnv) != protocolFDs {
		return stdin, stdout
	}
	return os.NewFile(3, "owner-calls"), os.NewFile(4, "owner-results")
}
