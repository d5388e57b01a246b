// SPDX-License-Identifier: MPL-2.0

// Package command defines the unit of work exchanged between caller goroutines
// and the window owner: the closed catalog of operation kinds with their
// payload and result types, the write-once Command, the error taxonomy shared
// by both sides of the thread (or process) boundary, and the unbounded FIFO
// Channel that carries Commands to the owner.
package command
