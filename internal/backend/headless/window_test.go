// SPDX-License-Identifier: MPL-2.0

package headless

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"

	"github.com/invowk/webproc/internal/backend"
)

func openWindow(t *testing.T, cfg backend.WindowConfig, opts ...Option) *Window {
	t.Helper()

	w, err := New(opts...).Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	hw, ok := w.(*Window)
	if !ok {
		t.Fatalf("Open returned %T, want *Window", w)
	}
	return hw
}

func TestOpenDefaults(t *testing.T) {
	t.Parallel()

	w := openWindow(t, backend.WindowConfig{Title: "A", URL: "http://x"})
	s := w.Snapshot()
	if s.Title != "A" || s.URL != "http://x" {
		t.Errorf("unexpected state %+v", s)
	}
	if s.Width != backend.DefaultWidth || s.Height != backend.DefaultHeight {
		t.Errorf("size = %dx%d, want defaults", s.Width, s.Height)
	}
}

func TestOpenError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no display")
	_, err := New(WithOpenError(boom)).Open(backend.WindowConfig{})
	if !errors.Is(err, boom) {
		t.Errorf("Open() = %v, want %v", err, boom)
	}
}

func TestDocumentTitleBinding(t *testing.T) {
	t.Parallel()

	w := openWindow(t, backend.WindowConfig{Title: "A"})

	got, err := w.EvaluateScript("document.title")
	if err != nil || got != "A" {
		t.Fatalf("document.title = (%v, %v), want A", got, err)
	}

	if _, err := w.EvaluateScript(`document.title = "from js"`); err != nil {
		t.Fatalf("assignment failed: %v", err)
	}
	if title, _ := w.Title(); title != "from js" {
		t.Errorf("Title() = %q after JS assignment", title)
	}

	if err := w.SetTitle("B"); err != nil {
		t.Fatal(err)
	}
	if got, _ := w.EvaluateScript("window.document.title"); got != "B" {
		t.Errorf("document.title = %v after SetTitle", got)
	}
}

func TestEvaluateScript(t *testing.T) {
	t.Parallel()

	w := openWindow(t, backend.WindowConfig{}, WithBinding("answer", 42))

	got, err := w.EvaluateScript("answer + 1")
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(43) {
		t.Errorf("answer + 1 = %#v, want int64(43)", got)
	}

	_, err = w.EvaluateScript(`throw new Error("kaput")`)
	var exc *goja.Exception
	if !errors.As(err, &exc) || !strings.Contains(err.Error(), "kaput") {
		t.Errorf("expected goja exception mentioning kaput, got %v", err)
	}

	if got, err := w.EvaluateScript("1 + 1"); err != nil || got != int64(2) {
		t.Errorf("runtime unusable after exception: (%v, %v)", got, err)
	}
}

func TestInterrupt(t *testing.T) {
	t.Parallel()

	w := openWindow(t, backend.WindowConfig{})
	done := make(chan error, 1)
	go func() {
		_, err := w.EvaluateScript("while (true) {}")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	w.Interrupt("killed")

	select {
	case err := <-done:
		var interrupted *goja.InterruptedError
		if !errors.As(err, &interrupted) {
			t.Fatalf("expected InterruptedError, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("script was not interrupted")
	}

	if got, err := w.EvaluateScript("3"); err != nil || got != int64(3) {
		t.Errorf("runtime unusable after interrupt: (%v, %v)", got, err)
	}
}

func TestWindowGeometry(t *testing.T) {
	t.Parallel()

	w := openWindow(t, backend.WindowConfig{})

	if err := w.Maximize(); err != nil {
		t.Fatal(err)
	}
	if err := w.Resize(1000, 700); err != nil {
		t.Fatal(err)
	}
	size, _ := w.Size()
	if size.Width != 1000 || size.Height != 700 {
		t.Errorf("Size() = %+v", size)
	}
	if w.Snapshot().Maximized {
		t.Error("Resize should leave the maximized state")
	}
	if err := w.Resize(0, 10); err == nil {
		t.Error("Resize(0, 10) should fail")
	}

	_ = w.Minimize()
	_ = w.Restore()
	_ = w.ToggleFullscreen()
	s := w.Snapshot()
	if s.Minimized || s.Maximized || !s.Fullscreen {
		t.Errorf("unexpected state %+v", s)
	}
}

func TestNavigateAndLoadHTML(t *testing.T) {
	t.Parallel()

	w := openWindow(t, backend.WindowConfig{})

	_ = w.LoadHTML("<p>hi</p>")
	if got, _ := w.EvaluateScript("document.documentElement.outerHTML"); got != "<p>hi</p>" {
		t.Errorf("outerHTML = %v", got)
	}
	if got, _ := w.EvaluateScript("location.href"); got != blankURL {
		t.Errorf("location.href = %v after LoadHTML", got)
	}

	_ = w.Navigate("https://example.com/")
	if got, _ := w.EvaluateScript("document.URL"); got != "https://example.com/" {
		t.Errorf("document.URL = %v", got)
	}
}

func TestFileDialogs(t *testing.T) {
	t.Parallel()

	var gotFilters []string
	pick := func(filters []string, _ bool) []string {
		gotFilters = filters
		return []string{"/tmp/a.txt", "/tmp/b.txt"}
	}
	save := func(dir, name string) string { return dir + "/" + name }

	w := openWindow(t, backend.WindowConfig{}, WithFileDialogs(pick, save))

	paths, _ := w.PickFiles([]string{"txt (*.txt)"}, false)
	if len(paths) != 1 || paths[0] != "/tmp/a.txt" {
		t.Errorf("single pick returned %v", paths)
	}
	if !slices.Equal(gotFilters, []string{"txt (*.txt)"}) {
		t.Errorf("filters = %v", gotFilters)
	}
	paths, _ = w.PickFiles(nil, true)
	if len(paths) != 2 {
		t.Errorf("multiple pick returned %v", paths)
	}

	if path, _ := w.SaveDialog("/tmp", "x.txt"); path != "/tmp/x.txt" {
		t.Errorf("SaveDialog() = %q", path)
	}

	cancelled := openWindow(t, backend.WindowConfig{})
	if paths, _ := cancelled.PickFiles(nil, false); paths != nil {
		t.Errorf("default pick should cancel, got %v", paths)
	}
	if path, _ := cancelled.SaveDialog("", "x"); path != "" {
		t.Errorf("default save should cancel, got %q", path)
	}
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	w := openWindow(t, backend.WindowConfig{})
	if err := w.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := w.SetTitle("x"); !errors.Is(err, backend.ErrWindowDestroyed) {
		t.Errorf("SetTitle after Destroy = %v", err)
	}
	if _, err := w.EvaluateScript("1"); !errors.Is(err, backend.ErrWindowDestroyed) {
		t.Errorf("EvaluateScript after Destroy = %v", err)
	}
}

func TestEventLoop(t *testing.T) {
	t.Parallel()

	var opened *Window
	w, err := New(WithEventLoop(), WithOpenHook(func(w *Window) { opened = w })).Open(backend.WindowConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if opened == nil {
		t.Fatal("open hook not called")
	}

	loop, ok := w.(backend.EventLoop)
	if !ok {
		t.Fatalf("%T does not implement backend.EventLoop", w)
	}
	async, ok := w.(backend.AsyncEvaluator)
	if !ok {
		t.Fatalf("%T does not implement backend.AsyncEvaluator", w)
	}

	exited := make(chan struct{})
	go func() {
		loop.Run()
		close(exited)
	}()

	results := make(chan any, 1)
	loop.Dispatch(func() {
		async.EvaluateScriptAsync("6 * 7", func(v any, err error) {
			if err != nil {
				t.Errorf("async eval failed: %v", err)
			}
			results <- v
		})
	})

	select {
	case v := <-results:
		if v != int64(42) {
			t.Errorf("async result = %#v", v)
		}
	case <-time.After(time.Second):
		t.Fatal("async result not delivered")
	}

	opened.Close()
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the user closed the window")
	}
	loop.Terminate()
	loop.Dispatch(func() {})
}
