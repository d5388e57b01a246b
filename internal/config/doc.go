// SPDX-License-Identifier: MPL-2.0

// Package config loads webproc settings with Viper, using CUE as the file
// format.
//
// The file lives at $XDG_CONFIG_HOME/webproc/config.cue on Linux,
// ~/Library/Application Support/webproc/config.cue on macOS and
// %APPDATA%\webproc\config.cue on Windows; a config.cue in the working
// directory is used when the platform file is absent. It is validated
// against the embedded config_schema.cue. WEBPROC_* environment variables
// override file values, and LoadOptions.Overrides override both.
package config
