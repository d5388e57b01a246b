// SPDX-License-Identifier: MPL-2.0

// Package headless provides an in-memory window backed by the goja
// JavaScript engine. It needs no display server, which makes it the default
// backend for tests and CI, and it can optionally emulate a native event
// loop so event-loop scheduling is exercised without a toolkit.
package headless
