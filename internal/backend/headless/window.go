// SPDX-License-Identifier: MPL-2.0

package headless

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/command"
)

const blankURL = "about:blank"

type (
	// Window is an in-memory window. Page scripts run in a goja runtime where
	// document.title is bound to the window title.
	Window struct {
		vm   *goja.Runtime
		pick PickFunc
		save SaveFunc

		// mu guards the fields below so tests can take a Snapshot from any
		// goroutine; the owner is still the only writer.
		mu         sync.Mutex
		state      State
		closeOnce  sync.Once
		userClosed chan struct{}
	}

	// State is a point-in-time copy of a Window's observable attributes.
	State struct {
		Title      string
		URL        string
		HTML       string
		Width      int
		Height     int
		Resizable  bool
		Minimized  bool
		Maximized  bool
		Fullscreen bool
		Destroyed  bool
	}
)

func newWindow(cfg backend.WindowConfig, b *Backend) (*Window, error) {
	cfg = cfg.WithDefaults()
	url := cfg.URL
	if url == "" {
		url = blankURL
	}

	w := &Window{
		vm:   goja.New(),
		pick: b.pick,
		save: b.save,
		state: State{
			Title:     cfg.Title,
			URL:       url,
			HTML:      cfg.HTML,
			Width:     cfg.Width,
			Height:    cfg.Height,
			Resizable: cfg.Resizable,
		},
		userClosed: make(chan struct{}),
	}

	if err := w.installDOM(); err != nil {
		return nil, fmt.Errorf("install DOM globals: %w", err)
	}
	for name, value := range b.bindings {
		if err := w.vm.Set(name, value); err != nil {
			return nil, fmt.Errorf("bind %q: %w", name, err)
		}
	}
	return w, nil
}

func (w *Window) installDOM() error {
	vm := w.vm

	document := vm.NewObject()
	titleGetter := vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(w.Snapshot().Title)
	})
	titleSetter := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		w.update(func(s *State) { s.Title = call.Argument(0).String() })
		return goja.Undefined()
	})
	if err := document.DefineAccessorProperty("title", titleGetter, titleSetter, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
		return err
	}
	urlGetter := vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(w.Snapshot().URL)
	})
	if err := document.DefineAccessorProperty("URL", urlGetter, nil, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
		return err
	}

	root := vm.NewObject()
	htmlGetter := vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(w.Snapshot().HTML)
	})
	if err := root.DefineAccessorProperty("outerHTML", htmlGetter, nil, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
		return err
	}
	if err := document.Set("documentElement", root); err != nil {
		return err
	}

	location := vm.NewObject()
	if err := location.DefineAccessorProperty("href", urlGetter, nil, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
		return err
	}

	if err := vm.Set("document", document); err != nil {
		return err
	}
	if err := vm.Set("location", location); err != nil {
		return err
	}
	return vm.Set("window", vm.GlobalObject())
}

// Snapshot returns the window's current attributes.
func (w *Window) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Close simulates the user closing the window from its title bar.
func (w *Window) Close() {
	w.closeOnce.Do(func() { close(w.userClosed) })
}

// Closed implements backend.CloseNotifier.
func (w *Window) Closed() <-chan struct{} {
	return w.userClosed
}

// Interrupt implements backend.Interrupter by aborting the running script.
func (w *Window) Interrupt(reason any) {
	w.vm.Interrupt(reason)
}

func (w *Window) update(fn func(*State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.state)
}

// mutate applies fn unless the window was destroyed.
func (w *Window) mutate(fn func(*State) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Destroyed {
		return backend.ErrWindowDestroyed
	}
	return fn(&w.state)
}

// Navigate implements backend.Window.
func (w *Window) Navigate(url string) error {
	return w.mutate(func(s *State) error {
		s.URL = url
		s.HTML = ""
		return nil
	})
}

// LoadHTML implements backend.Window.
func (w *Window) LoadHTML(html string) error {
	return w.mutate(func(s *State) error {
		s.URL = blankURL
		s.HTML = html
		return nil
	})
}

// EvaluateScript implements backend.Window.
func (w *Window) EvaluateScript(script string) (any, error) {
	if w.Snapshot().Destroyed {
		return nil, backend.ErrWindowDestroyed
	}

	v, err := w.vm.RunString(script)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			w.vm.ClearInterrupt()
		}
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.Export(), nil
}

// Title implements backend.Window.
func (w *Window) Title() (string, error) {
	s := w.Snapshot()
	if s.Destroyed {
		return "", backend.ErrWindowDestroyed
	}
	return s.Title, nil
}

// SetTitle implements backend.Window.
func (w *Window) SetTitle(title string) error {
	return w.mutate(func(s *State) error {
		s.Title = title
		return nil
	})
}

// Resize implements backend.Window.
func (w *Window) Resize(width, height int) error {
	return w.mutate(func(s *State) error {
		if width <= 0 || height <= 0 {
			return fmt.Errorf("invalid size %dx%d", width, height)
		}
		s.Width, s.Height = width, height
		s.Maximized = false
		return nil
	})
}

// Size implements backend.Window.
func (w *Window) Size() (command.Size, error) {
	s := w.Snapshot()
	if s.Destroyed {
		return command.Size{}, backend.ErrWindowDestroyed
	}
	return command.Size{Width: s.Width, Height: s.Height}, nil
}

// Minimize implements backend.Window.
func (w *Window) Minimize() error {
	return w.mutate(func(s *State) error {
		s.Minimized = true
		return nil
	})
}

// Maximize implements backend.Window.
func (w *Window) Maximize() error {
	return w.mutate(func(s *State) error {
		s.Minimized = false
		s.Maximized = true
		return nil
	})
}

// Restore implements backend.Window.
func (w *Window) Restore() error {
	return w.mutate(func(s *State) error {
		s.Minimized = false
		s.Maximized = false
		return nil
	})
}

// ToggleFullscreen implements backend.Window.
func (w *Window) ToggleFullscreen() error {
	return w.mutate(func(s *State) error {
		s.Fullscreen = !s.Fullscreen
		return nil
	})
}

// PickFiles implements backend.Window.
func (w *Window) PickFiles(filters []string, multiple bool) ([]string, error) {
	if w.Snapshot().Destroyed {
		return nil, backend.ErrWindowDestroyed
	}
	if w.pick == nil {
		return nil, nil
	}
	paths := w.pick(filters, multiple)
	if !multiple && len(paths) > 1 {
		paths = paths[:1]
	}
	return paths, nil
}

// SaveDialog implements backend.Window.
func (w *Window) SaveDialog(directory, fileName string) (string, error) {
	if w.Snapshot().Destroyed {
		return "", backend.ErrWindowDestroyed
	}
	if w.save == nil {
		return "", nil
	}
	return w.save(directory, fileName), nil
}

// Destroy implements backend.Window.
func (w *Window) Destroy() error {
	return w.mutate(func(s *State) error {
		s.Destroyed = true
		return nil
	})
}
