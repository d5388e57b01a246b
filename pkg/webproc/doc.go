// SPDX-License-Identifier: MPL-2.0

// Package webproc runs a webview window on a dedicated owner (a locked OS
// thread, or a child process) and lets any goroutine drive it safely.
//
// GUI toolkits only allow the thread that created a window to touch it. A
// Controller owns that thread: callers submit operations with Call or the
// typed helpers (Navigate, EvaluateScript, SetTitle, ...), the owner runs
// them one at a time in submission order, and each caller blocks until its
// own result, error, or timeout arrives.
//
//	c, err := webproc.Launch(ctx, webproc.WindowConfig{Title: "A", URL: "https://example.com"})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	title, err := c.Title(ctx)
//
// Shutdown is bounded: if the owner does not finish within the grace period
// it is interrupted, killed, or abandoned, and every pending call fails with
// ErrControllerStopped.
package webproc
