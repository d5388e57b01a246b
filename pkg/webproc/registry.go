// SPDX-License-Identifier: MPL-2.0

package webproc

import (
	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/backend/headless"
	"github.com/invowk/webproc/internal/backend/webview"
)

// DefaultRegistry returns a registry with the native webview backend
// followed by the headless backend. With an empty WindowConfig.Backend the
// native backend is used when this binary was built with it, and the
// headless one otherwise.
func DefaultRegistry() *backend.Registry {
	return backend.NewRegistry(webview.New(), headless.New())
}
