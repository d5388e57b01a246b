// SPDX-License-Identifier: MPL-2.0

package backend

const (
	// DefaultWidth is the initial window width when none is configured.
	DefaultWidth = 800
	// DefaultHeight is the initial window height when none is configured.
	DefaultHeight = 600
	// DefaultTitle is the initial window title when none is configured.
	DefaultTitle = "webproc"
)

// WindowConfig is the startup configuration handed to Backend.Open. The
// owner passes it through unchanged apart from filling defaults; fields a
// backend does not understand are ignored.
type WindowConfig struct {
	Title      string `json:"title,omitempty" mapstructure:"title"`
	URL        string `json:"url,omitempty" mapstructure:"url"`
	HTML       string `json:"html,omitempty" mapstructure:"html"`
	Width      int    `json:"width,omitempty" mapstructure:"width"`
	Height     int    `json:"height,omitempty" mapstructure:"height"`
	Resizable  bool   `json:"resizable,omitempty" mapstructure:"resizable"`
	Fullscreen bool   `json:"fullscreen,omitempty" mapstructure:"fullscreen"`
	Maximized  bool   `json:"maximized,omitempty" mapstructure:"maximized"`
	Debug      bool   `json:"debug,omitempty" mapstructure:"debug"`
	// Backend selects a registry entry; empty picks the registry default.
	Backend string `json:"backend,omitempty" mapstructure:"backend"`
}

// WithDefaults returns a copy of c with zero dimensions and title replaced
// by their defaults.
func (c WindowConfig) WithDefaults() WindowConfig {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	return c
}
