// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/invowk/webproc/pkg/webproc"
)

const (
	// LogFormatText is charm's human-readable format.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per record.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits logfmt records.
	LogFormatLogfmt LogFormat = "logfmt"

	// DefaultWatchDebounce coalesces bursts of file events into one reload.
	DefaultWatchDebounce = 100 * time.Millisecond
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
)

type (
	// Config is the webproc configuration.
	Config struct {
		// Backend names the registered backend to open; empty picks the first
		// available one.
		Backend string `json:"backend" mapstructure:"backend"`
		// Isolation is "thread" or "process".
		Isolation webproc.Isolation `json:"isolation" mapstructure:"isolation"`
		// Drain decides the fate of queued operations at shutdown.
		Drain webproc.DrainPolicy `json:"drain" mapstructure:"drain"`
		// Window holds the startup window configuration.
		Window WindowConfig `json:"window" mapstructure:"window"`
		// Timeouts bounds startup, calls and shutdown.
		Timeouts TimeoutsConfig `json:"timeouts" mapstructure:"timeouts"`
		// Log configures the CLI logger.
		Log LogConfig `json:"log" mapstructure:"log"`
		// Watch configures live reload for "webproc open --watch".
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
	}

	// WindowConfig mirrors webproc.WindowConfig without the backend name,
	// which is a top-level key.
	WindowConfig struct {
		Title      string `json:"title" mapstructure:"title"`
		URL        string `json:"url" mapstructure:"url"`
		Width      int    `json:"width" mapstructure:"width"`
		Height     int    `json:"height" mapstructure:"height"`
		Resizable  bool   `json:"resizable" mapstructure:"resizable"`
		Fullscreen bool   `json:"fullscreen" mapstructure:"fullscreen"`
		Maximized  bool   `json:"maximized" mapstructure:"maximized"`
		Debug      bool   `json:"debug" mapstructure:"debug"`
	}

	// TimeoutsConfig holds controller timeouts. Zero disables a timeout.
	TimeoutsConfig struct {
		Startup       time.Duration `json:"startup" mapstructure:"startup"`
		Call          time.Duration `json:"call" mapstructure:"call"`
		ShutdownGrace time.Duration `json:"shutdown_grace" mapstructure:"shutdown_grace"`
	}

	// LogFormat selects the charm log formatter.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not
	// recognized. It wraps ErrInvalidLogFormat for errors.Is() compatibility.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// LogConfig configures the CLI logger.
	LogConfig struct {
		Level  string    `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}

	// WatchConfig configures live reload. Patterns and Ignore are doublestar
	// globs relative to the working directory.
	WatchConfig struct {
		Patterns []string      `json:"patterns" mapstructure:"patterns"`
		Ignore   []string      `json:"ignore" mapstructure:"ignore"`
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
	}

	// InvalidConfigError is returned when a Config has invalid fields. It
	// wraps ErrInvalidConfig for errors.Is() compatibility and collects the
	// field-level errors.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Isolation: webproc.IsolationThread,
		Drain:     webproc.DrainReject,
		Window: WindowConfig{
			Title:     webproc.DefaultTitle,
			Width:     webproc.DefaultWidth,
			Height:    webproc.DefaultHeight,
			Resizable: true,
		},
		Timeouts: TimeoutsConfig{
			Startup:       webproc.DefaultStartupTimeout,
			Call:          webproc.DefaultCallTimeout,
			ShutdownGrace: webproc.DefaultShutdownGrace,
		},
		Log: LogConfig{
			Level:  log.WarnLevel.String(),
			Format: LogFormatText,
		},
		Watch: WatchConfig{
			Ignore:   []string{"**/.git/**", "**/node_modules/**"},
			Debounce: DefaultWatchDebounce,
		},
	}
}

// Error implements the error interface.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: %s, %s, %s)", string(e.Value), LogFormatText, LogFormatJSON, LogFormatLogfmt)
}

// Unwrap returns ErrInvalidLogFormat for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// Validate returns nil for the defined formats. The zero value means text.
func (f LogFormat) Validate() error {
	switch f {
	case "", LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return nil
	default:
		return &InvalidLogFormatError{Value: f}
	}
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns the sentinel and every field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate checks what the CUE schema cannot, and repeats the enum checks
// so that values coming from flags and environment are covered too.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Isolation.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Drain.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Window.Width < 0 || c.Window.Height < 0 {
		errs = append(errs, fmt.Errorf("window: size must not be negative, got %dx%d", c.Window.Width, c.Window.Height))
	}
	for name, d := range map[string]time.Duration{
		"timeouts.startup":        c.Timeouts.Startup,
		"timeouts.call":           c.Timeouts.Call,
		"timeouts.shutdown_grace": c.Timeouts.ShutdownGrace,
		"watch.debounce":          c.Watch.Debounce,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative, got %s", name, d))
		}
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	if err := c.Log.Format.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range slices.Concat(c.Watch.Patterns, c.Watch.Ignore) {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("watch: invalid glob %q", p))
		}
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// WindowConfig returns the controller window configuration.
func (c *Config) WindowConfig() webproc.WindowConfig {
	return webproc.WindowConfig{
		Title:      c.Window.Title,
		URL:        c.Window.URL,
		Width:      c.Window.Width,
		Height:     c.Window.Height,
		Resizable:  c.Window.Resizable,
		Fullscreen: c.Window.Fullscreen,
		Maximized:  c.Window.Maximized,
		Debug:      c.Window.Debug,
		Backend:    c.Backend,
	}
}

// ControllerOptions returns the controller options the configuration
// implies.
func (c *Config) ControllerOptions() []webproc.Option {
	return []webproc.Option{
		webproc.WithIsolation(c.Isolation),
		webproc.WithDrainPolicy(c.Drain),
		webproc.WithStartupTimeout(c.Timeouts.Startup),
		webproc.WithCallTimeout(c.Timeouts.Call),
		webproc.WithShutdownGrace(c.Timeouts.ShutdownGrace),
	}
}
