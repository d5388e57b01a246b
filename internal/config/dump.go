// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DumpFormatCUE renders the configuration as CUE.
	DumpFormatCUE DumpFormat = "cue"
	// DumpFormatTOML renders the configuration as TOML.
	DumpFormatTOML DumpFormat = "toml"
)

// DumpFormat selects the output of Dump.
type DumpFormat string

// Settings returns cfg as nested maps keyed like the config file, with
// durations rendered as strings.
func (c *Config) Settings() map[string]any {
	settings := map[string]any{
		"isolation": string(c.Isolation),
		"drain":     string(c.Drain),
		"window": map[string]any{
			"title":      c.Window.Title,
			"url":        c.Window.URL,
			"width":      c.Window.Width,
			"height":     c.Window.Height,
			"resizable":  c.Window.Resizable,
			"fullscreen": c.Window.Fullscreen,
			"maximized":  c.Window.Maximized,
			"debug":      c.Window.Debug,
		},
		"timeouts": map[string]any{
			"startup":        c.Timeouts.Startup.String(),
			"call":           c.Timeouts.Call.String(),
			"shutdown_grace": c.Timeouts.ShutdownGrace.String(),
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": string(c.Log.Format),
		},
		"watch": map[string]any{
			"patterns": nonNil(c.Watch.Patterns),
			"ignore":   nonNil(c.Watch.Ignore),
			"debounce": c.Watch.Debounce.String(),
		},
	}
	if c.Backend != "" {
		settings["backend"] = c.Backend
	}
	return settings
}

// Dump renders cfg in the requested format.
func Dump(cfg *Config, format DumpFormat) (string, error) {
	switch format {
	case "", DumpFormatCUE:
		return GenerateCUE(cfg), nil
	case DumpFormatTOML:
		data, err := toml.Marshal(cfg.Settings())
		if err != nil {
			return "", fmt.Errorf("failed to encode TOML: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported dump format %q (valid: %s, %s)", format, DumpFormatCUE, DumpFormatTOML)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
