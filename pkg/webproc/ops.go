// SPDX-License-Identifier: MPL-2.0

package webproc

import (
	"context"
	"fmt"
)

// callAs runs Call and asserts the result type. Kinds without a result
// yield the zero value.
func callAs[T any](ctx context.Context, c *Controller, kind Kind, payload any) (T, error) {
	var zero T
	result, err := c.Call(ctx, kind, payload)
	if err != nil || result == nil {
		return zero, err
	}
	v, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result type %T", kind, result)
	}
	return v, nil
}

func (c *Controller) exec(ctx context.Context, kind Kind, payload any) error {
	_, err := c.Call(ctx, kind, payload)
	return err
}

// Ping round-trips a no-op through the owner.
func (c *Controller) Ping(ctx context.Context) error {
	return c.exec(ctx, KindPing, nil)
}

// Navigate loads url in the window.
func (c *Controller) Navigate(ctx context.Context, url string) error {
	return c.exec(ctx, KindNavigate, NavigatePayload{URL: url})
}

// LoadHTML replaces the window content with html.
func (c *Controller) LoadHTML(ctx context.Context, html string) error {
	return c.exec(ctx, KindLoadHTML, LoadHTMLPayload{HTML: html})
}

// EvaluateScript runs script in the page and returns the value of its last
// expression. Numbers come back as int64 or float64 with thread isolation
// and as float64 with process isolation. NaN and infinities survive both.
func (c *Controller) EvaluateScript(ctx context.Context, script string) (any, error) {
	return c.Call(ctx, KindEvaluateScript, EvaluateScriptPayload{Script: script})
}

// Title returns the window title.
func (c *Controller) Title(ctx context.Context) (string, error) {
	return callAs[string](ctx, c, KindGetTitle, nil)
}

// SetTitle sets the window title.
func (c *Controller) SetTitle(ctx context.Context, title string) error {
	return c.exec(ctx, KindSetTitle, SetTitlePayload{Title: title})
}

// Resize sets the window size in pixels.
func (c *Controller) Resize(ctx context.Context, width, height int) error {
	return c.exec(ctx, KindResize, ResizePayload{Width: width, Height: height})
}

// Size returns the window size in pixels.
func (c *Controller) Size(ctx context.Context) (Size, error) {
	return callAs[Size](ctx, c, KindGetSize, nil)
}

// Minimize minimizes the window.
func (c *Controller) Minimize(ctx context.Context) error {
	return c.exec(ctx, KindMinimize, nil)
}

// Maximize maximizes the window.
func (c *Controller) Maximize(ctx context.Context) error {
	return c.exec(ctx, KindMaximize, nil)
}

// Restore returns the window from minimized or maximized state.
func (c *Controller) Restore(ctx context.Context) error {
	return c.exec(ctx, KindRestore, nil)
}

// SetMaximized maximizes the window when maximized is true and restores it
// otherwise.
func (c *Controller) SetMaximized(ctx context.Context, maximized bool) error {
	return c.exec(ctx, KindSetMaximized, SetMaximizedPayload{Maximized: maximized})
}

// ToggleFullscreen switches fullscreen mode on or off.
func (c *Controller) ToggleFullscreen(ctx context.Context) error {
	return c.exec(ctx, KindToggleFullscreen, nil)
}

// PickFiles opens a file picker limited to fileTypes (bare extensions such
// as "txt"; empty allows any file). It returns nil when the user cancels.
func (c *Controller) PickFiles(ctx context.Context, fileTypes []string, multiple bool) ([]string, error) {
	return callAs[[]string](ctx, c, KindPickFiles, PickFilesPayload{FileTypes: fileTypes, Multiple: multiple})
}

// PickFile opens a single-file picker limited to fileTypes. It returns the
// chosen path and true, or "" and false when the user cancels.
func (c *Controller) PickFile(ctx context.Context, fileTypes []string) (string, bool, error) {
	paths, err := c.PickFiles(ctx, fileTypes, false)
	if err != nil || len(paths) == 0 {
		return "", false, err
	}
	return paths[0], true, nil
}

// SaveFile asks the user where to save contents, suggesting fileName in
// directory, and writes them there. It reports false when the user cancels.
func (c *Controller) SaveFile(ctx context.Context, fileName, directory string, contents []byte) (bool, error) {
	return callAs[bool](ctx, c, KindSaveFile, SaveFilePayload{FileName: fileName, Directory: directory, Contents: contents})
}

// Destroy closes the window. The owner then stops and the controller with
// it; later calls fail with ErrControllerStopped.
func (c *Controller) Destroy(ctx context.Context) error {
	return c.exec(ctx, KindDestroy, nil)
}
