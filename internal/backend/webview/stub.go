// SPDX-License-Identifier: MPL-2.0

//go:build !(webview && cgo)

package webview

import (
	"fmt"

	"github.com/invowk/webproc/internal/backend"
)

// Backend is the placeholder used when the binary was built without native
// webview support.
type Backend struct{}

// New creates the placeholder backend.
func New() *Backend { return &Backend{} }

// Name implements backend.Backend.
func (b *Backend) Name() string { return Name }

// Available implements backend.Backend. Always false in this build.
func (b *Backend) Available() bool { return false }

// Open implements backend.Backend.
func (b *Backend) Open(backend.WindowConfig) (backend.Window, error) {
	return nil, fmt.Errorf("%s: rebuild with -tags webview and cgo enabled: %w", Name, backend.ErrUnavailable)
}
