// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of troubleshooting
// entries rendered as markdown when a known failure reaches the user.
package issue
