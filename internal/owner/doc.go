// SPDX-License-Identifier: MPL-2.0

// Package owner implements the owner loop: the single goroutine, locked to
// its OS thread, that opens a backend window and then executes commands
// against it strictly in arrival order.
//
// Phases:
//
//	initializing -> running -> draining -> stopped
//	      \______________________________/
//	             (open failure)
//
// Each command is dispatched through a table keyed by command.Kind. A
// failure or panic inside the backend is recorded on the command that caused
// it; the loop itself keeps running. The loop leaves running when the
// command channel is closed (the terminate signal), when a destroy command
// executes, or when the user closes the window.
package owner
