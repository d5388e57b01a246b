// SPDX-License-Identifier: MPL-2.0

package owner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
)

// handler executes one command kind against the window.
type handler func(w backend.Window, payload any) (any, error)

// handlers maps every catalog kind except destroy, which the loop handles
// itself because it ends the loop.
var handlers = map[command.Kind]handler{
	command.KindPing: func(backend.Window, any) (any, error) {
		return true, nil
	},
	command.KindNavigate: typed(func(w backend.Window, p command.NavigatePayload) (any, error) {
		return nil, w.Navigate(p.URL)
	}),
	command.KindLoadHTML: typed(func(w backend.Window, p command.LoadHTMLPayload) (any, error) {
		return nil, w.LoadHTML(p.HTML)
	}),
	command.KindEvaluateScript: typed(func(w backend.Window, p command.EvaluateScriptPayload) (any, error) {
		return w.EvaluateScript(p.Script)
	}),
	command.KindGetTitle: func(w backend.Window, _ any) (any, error) {
		return w.Title()
	},
	command.KindSetTitle: typed(func(w backend.Window, p command.SetTitlePayload) (any, error) {
		return nil, w.SetTitle(p.Title)
	}),
	command.KindResize: typed(func(w backend.Window, p command.ResizePayload) (any, error) {
		return nil, w.Resize(p.Width, p.Height)
	}),
	command.KindGetSize: func(w backend.Window, _ any) (any, error) {
		return w.Size()
	},
	command.KindMinimize: func(w backend.Window, _ any) (any, error) {
		return nil, w.Minimize()
	},
	command.KindMaximize: func(w backend.Window, _ any) (any, error) {
		return nil, w.Maximize()
	},
	command.KindRestore: func(w backend.Window, _ any) (any, error) {
		return nil, w.Restore()
	},
	command.KindSetMaximized: typed(func(w backend.Window, p command.SetMaximizedPayload) (any, error) {
		if p.Maximized {
			return nil, w.Maximize()
		}
		return nil, w.Restore()
	}),
	command.KindToggleFullscreen: func(w backend.Window, _ any) (any, error) {
		return nil, w.ToggleFullscreen()
	},
	command.KindPickFiles: typed(func(w backend.Window, p command.PickFilesPayload) (any, error) {
		return w.PickFiles(p.Filters(), p.Multiple)
	}),
	command.KindSaveFile: typed(saveFile),
}

// typed adapts a handler taking a concrete payload type.
func typed[P any](fn func(backend.Window, P) (any, error)) handler {
	return func(w backend.Window, payload any) (any, error) {
		p, ok := payload.(P)
		if !ok {
			var zero P
			return nil, fmt.Errorf("payload is %T, want %T", payload, zero)
		}
		return fn(w, p)
	}
}

// saveFile asks for a destination and writes the contents there. It
// reports false when the user cancelled the dialog.
func saveFile(w backend.Window, p command.SaveFilePayload) (any, error) {
	path, err := w.SaveDialog(p.Directory, p.Name())
	if err != nil {
		return false, err
	}
	if path == "" {
		return false, nil
	}
	if p.Directory != "" && !filepath.IsAbs(path) {
		path = filepath.Join(p.Directory, path)
	}
	if err := os.WriteFile(path, p.Contents, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
