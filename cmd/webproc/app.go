// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"maps"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/config"
	"github.com/invowk/webproc/pkg/webproc"
)

type (
	// App wires CLI services and shared dependencies. Every Cobra handler
	// receives an App and reaches configuration, backends and the standard
	// streams through it.
	App struct {
		Config   ConfigProvider
		Registry *backend.Registry
		stdin    io.Reader
		stdout   io.Writer
		stderr   io.Writer
		flags    rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Registry *backend.Registry
		Stdin    io.Reader
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// rootFlags holds the persistent flags shared by every subcommand.
	rootFlags struct {
		configPath string
		backend    string
		isolation  string
		logLevel   string
		verbose    bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Registry == nil {
		deps.Registry = webproc.DefaultRegistry()
	}

	return &App{
		Config:   deps.Config,
		Registry: deps.Registry,
		stdin:    deps.Stdin,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}, nil
}

// loadConfig loads the configuration with the persistent flags and the
// given command-specific overrides applied on top.
func (a *App) loadConfig(ctx context.Context, overrides map[string]any) (*config.Config, error) {
	merged := make(map[string]any, len(overrides)+3)
	if a.flags.backend != "" {
		merged["backend"] = a.flags.backend
	}
	if a.flags.isolation != "" {
		merged["isolation"] = a.flags.isolation
	}
	switch {
	case a.flags.logLevel != "":
		merged["log.level"] = a.flags.logLevel
	case a.flags.verbose:
		merged["log.level"] = "debug"
	}
	maps.Copy(merged, overrides)

	return a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: a.flags.configPath,
		Overrides:      merged,
	})
}

// newLogger builds the CLI logger from the log section of cfg. Logs always
// go to stderr so stdout stays parseable.
func (a *App) newLogger(cfg *config.Config) (*log.Logger, error) {
	return cfg.Log.NewLogger(a.stderr, "webproc")
}
