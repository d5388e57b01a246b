// SPDX-License-Identifier: MPL-2.0

// Package lifecycle provides the state machine and one-shot gates shared by
// components that own a long-lived execution context.
//
// State reads are atomic and lock-free; transitions use compare-and-swap so
// they stay monotonic under concurrent Start/Shutdown callers. A Gate is a
// single-fire signal used for "ready" and "fully stopped" notifications.
package lifecycle
