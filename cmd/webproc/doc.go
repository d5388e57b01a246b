// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the webproc command-line interface.
//
// The root command wires configuration loading and logging. Subcommands
// open an interactive window session, list backends, manage the config
// file, and host the owner side of process isolation.
package cmd
