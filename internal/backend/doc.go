// SPDX-License-Identifier: MPL-2.0

// Package backend defines the contract between the owner loop and the
// windowing toolkit that actually renders pages.
//
// A Backend constructs Windows. Every Window method is called from the owner
// goroutine only; implementations never need their own locking for window
// state. Optional capabilities (a native event loop, asynchronous script
// evaluation, interruption of a wedged call, user-initiated close) are
// discovered through type assertions on the Window.
package backend
