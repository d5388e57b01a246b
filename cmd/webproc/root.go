// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "webproc",
		Short: "Drive a webview window from a dedicated owner thread or process",
		Long: TitleStyle.Render("webproc") + SubtitleStyle.Render(" - Drive a webview window from a dedicated owner") + `

webproc opens a native or headless web window whose toolkit calls all run
on one owner thread, optionally inside a child process, and lets you drive
it with simple line commands.

` + SubtitleStyle.Render("Examples:") + `
  webproc open --url https://example.com      Open a window and read commands from stdin
  webproc open --html index.html --watch '**/*.html'
                                              Reload the page when files change
  webproc backends                            List window backends
  webproc config show                         Show the effective configuration`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/webproc/config.cue)")
	flags.StringVar(&app.flags.backend, "backend", "", "window backend (see 'webproc backends')")
	flags.StringVar(&app.flags.isolation, "isolation", "", "where the owner runs: thread or process")
	flags.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(
		newOpenCommand(app),
		newBackendsCommand(app),
		newConfigCommand(app),
		newTroubleshootCommand(),
		newInternalCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	os.Exit(run(context.Background(), Dependencies{}))
}

// run builds the App, executes the command tree and returns the process
// exit code.
func run(ctx context.Context, deps Dependencies) int {
	app, err := NewApp(deps)
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		return 1
	}

	if err := fang.Execute(
		ctx,
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}
