// SPDX-License-Identifier: MPL-2.0

// Package webview adapts github.com/webview/webview_go to the backend
// contract. The native implementation needs cgo and is only compiled with
// the "webview" build tag; other builds get a stub that reports itself
// unavailable so registries can fall back to another backend.
package webview

// Name is the registry name of the native webview backend.
const Name = "webview"
