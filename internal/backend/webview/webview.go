// SPDX-License-Identifier: MPL-2.0

//go:build webview && cgo

package webview

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	webview "github.com/webview/webview_go"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
)

const resolveBinding = "__webprocResolve"

type (
	// Backend opens native webview windows.
	Backend struct{}

	// Window wraps a webview.WebView. The toolkit exposes no getters, so
	// title and size are tracked on our side.
	Window struct {
		wv     webview.WebView
		title  string
		width  int
		height int
		hint   webview.Hint

		mu      sync.Mutex
		nextID  uint64
		pending map[uint64]func(any, error)
	}
)

// New creates the native backend.
func New() *Backend { return &Backend{} }

// Name implements backend.Backend.
func (b *Backend) Name() string { return Name }

// Available implements backend.Backend.
func (b *Backend) Available() bool { return true }

// Open implements backend.Backend.
func (b *Backend) Open(cfg backend.WindowConfig) (backend.Window, error) {
	cfg = cfg.WithDefaults()

	wv := webview.New(cfg.Debug)
	if wv == nil {
		return nil, errors.New("webview: native window could not be created")
	}

	w := &Window{
		wv:      wv,
		title:   cfg.Title,
		width:   cfg.Width,
		height:  cfg.Height,
		hint:    webview.HintNone,
		pending: make(map[uint64]func(any, error)),
	}
	if !cfg.Resizable {
		w.hint = webview.HintFixed
	}

	if err := wv.Bind(resolveBinding, w.resolve); err != nil {
		wv.Destroy()
		return nil, fmt.Errorf("webview: bind result callback: %w", err)
	}

	wv.SetTitle(w.title)
	wv.SetSize(w.width, w.height, w.hint)
	switch {
	case cfg.HTML != "":
		wv.SetHtml(cfg.HTML)
	case cfg.URL != "":
		wv.Navigate(cfg.URL)
	}
	return w, nil
}

// Run implements backend.EventLoop.
func (w *Window) Run() { w.wv.Run() }

// Dispatch implements backend.EventLoop.
func (w *Window) Dispatch(fn func()) { w.wv.Dispatch(fn) }

// Terminate implements backend.EventLoop.
func (w *Window) Terminate() { w.wv.Terminate() }

// EvaluateScriptAsync implements backend.AsyncEvaluator. The script is
// evaluated in the page with eval() and its value travels back through a
// bound callback as JSON.
func (w *Window) EvaluateScriptAsync(script string, resolve func(any, error)) {
	quoted, err := json.Marshal(script)
	if err != nil {
		resolve(nil, err)
		return
	}

	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.pending[id] = resolve
	w.mu.Unlock()

	w.wv.Eval(fmt.Sprintf(`(async () => {
  try {
    const v = await eval(%s);
    window.%s(%d, JSON.stringify(v === undefined ? null : v), "");
  } catch (e) {
    window.%s(%d, "null", String(e));
  }
})();`, quoted, resolveBinding, id, resolveBinding, id))
}

func (w *Window) resolve(id uint64, raw string, errMsg string) {
	w.mu.Lock()
	fn, ok := w.pending[id]
	delete(w.pending, id)
	w.mu.Unlock()
	if !ok {
		return
	}

	if errMsg != "" {
		fn(nil, errors.New(errMsg))
		return
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		fn(nil, fmt.Errorf("decode script result: %w", err))
		return
	}
	fn(v, nil)
}

// Navigate implements backend.Window.
func (w *Window) Navigate(url string) error {
	w.wv.Navigate(url)
	return nil
}

// LoadHTML implements backend.Window.
func (w *Window) LoadHTML(html string) error {
	w.wv.SetHtml(html)
	return nil
}

// EvaluateScript implements backend.Window. Results only arrive
// asynchronously; the owner uses EvaluateScriptAsync instead.
func (w *Window) EvaluateScript(string) (any, error) {
	return nil, backend.ErrUnsupported
}

// Title implements backend.Window.
func (w *Window) Title() (string, error) { return w.title, nil }

// SetTitle implements backend.Window.
func (w *Window) SetTitle(title string) error {
	w.wv.SetTitle(title)
	w.title = title
	return nil
}

// Resize implements backend.Window.
func (w *Window) Resize(width, height int) error {
	w.wv.SetSize(width, height, w.hint)
	w.width, w.height = width, height
	return nil
}

// Size implements backend.Window.
func (w *Window) Size() (command.Size, error) {
	return command.Size{Width: w.width, Height: w.height}, nil
}

// Minimize implements backend.Window.
func (w *Window) Minimize() error { return backend.ErrUnsupported }

// Maximize implements backend.Window.
func (w *Window) Maximize() error { return backend.ErrUnsupported }

// Restore implements backend.Window.
func (w *Window) Restore() error { return backend.ErrUnsupported }

// ToggleFullscreen implements backend.Window.
func (w *Window) ToggleFullscreen() error { return backend.ErrUnsupported }

// PickFiles implements backend.Window.
func (w *Window) PickFiles([]string, bool) ([]string, error) {
	return nil, backend.ErrUnsupported
}

// SaveDialog implements backend.Window.
func (w *Window) SaveDialog(string, string) (string, error) {
	return "", backend.ErrUnsupported
}

// Destroy implements backend.Window. Pending script callbacks are failed.
func (w *Window) Destroy() error {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[uint64]func(any, error))
	w.mu.Unlock()
	for _, fn := range pending {
		fn(nil, backend.ErrWindowDestroyed)
	}

	w.wv.Destroy()
	return nil
}
