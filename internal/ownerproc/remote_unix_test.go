// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package ownerproc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
)

func TestRemoteChildStdoutDoesNotReachProtocol(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	h := startRemote(t, backend.WindowConfig{Title: "quiet"},
		WithEnv(noisyEnv+"=1"),
		WithStderr(&stderr),
	)

	if got, err := h.call(t, command.KindGetTitle, nil); err != nil || got != "quiet" {
		t.Errorf("get_title = (%v, %v), want quiet", got, err)
	}

	h.ch.Close()
	if err := h.wait(t); err != nil {
		t.Errorf("Run returned %v", err)
	}
	if !strings.Contains(stderr.String(), "native toolkit chatter") {
		t.Errorf("child stdout should be redirected to stderr, got %q", stderr.String())
	}
}
