// SPDX-License-Identifier: MPL-2.0

//go:build windows

package ownerproc

import (
	"io"
	"os/exec"
)

// attachProtocol runs the protocol over the child's stdin and stdout, since
// exec.Cmd cannot pass extra handles on Windows.
func attachProtocol(cmd *exec.Cmd, _ io.Writer) (*protocolPipes, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	return &protocolPipes{calls: stdin, results: stdout}, nil
}

// ProtocolStreams returns the streams Serve should use in the child.
func ProtocolStreams(stdin io.Reader, stdout io.Writer) (io.Reader, io.Writer) {
	return stdin, stdout
}
