// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/invowk/webproc/internal/config"
	"github.com/invowk/webproc/internal/issue"
	"github.com/invowk/webproc/internal/watch"
	"github.com/invowk/webproc/pkg/webproc"
)

// openFlagKeys maps open's window flags to configuration keys.
var openFlagKeys = map[string]string{
	"url":        "window.url",
	"title":      "window.title",
	"width":      "window.width",
	"height":     "window.height",
	"maximized":  "window.maximized",
	"fullscreen": "window.fullscreen",
	"debug":      "window.debug",
	"watch":      "watch.patterns",
	"ignore":     "watch.ignore",
}

type openParams struct {
	htmlFile string
}

func newOpenCommand(app *App) *cobra.Command {
	var p openParams

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a window and drive it with line commands",
		Long: `Open a window and drive it with line commands read from stdin.

Each line is split like a shell command line. Type 'help' for the command
list; EOF or 'close' ends the session and shuts the window down.

With --watch, the page is reloaded whenever a file matching one of the
patterns changes: --html files are read again, otherwise --url is
navigated to again.`,
		Example: `  # Drive the headless backend from a script
  printf 'set-title demo\ntitle\n' | webproc open --backend headless

  # Serve a local page and reload it on edits
  webproc open --html site/index.html --watch 'site/**'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true

			overrides := make(map[string]any)
			for flagName, key := range openFlagKeys {
				f := cmd.Flags().Lookup(flagName)
				if f == nil || !f.Changed {
					continue
				}
				switch flagName {
				case "watch", "ignore":
					v, _ := cmd.Flags().GetStringArray(flagName)
					overrides[key] = v
				case "width", "height":
					v, _ := cmd.Flags().GetInt(flagName)
					overrides[key] = v
				case "maximized", "fullscreen", "debug":
					v, _ := cmd.Flags().GetBool(flagName)
					overrides[key] = v
				default:
					overrides[key] = f.Value.String()
				}
			}

			cfg, err := app.loadConfig(cmd.Context(), overrides)
			if err != nil {
				return app.renderError(cmd.ErrOrStderr(), err)
			}
			if err := runOpen(cmd.Context(), app, cfg, p); err != nil {
				return app.renderError(cmd.ErrOrStderr(), err)
			}
			return nil
		},
	}

	cmd.Flags().String("url", "", "initial URL")
	cmd.Flags().String("title", "", "window title")
	cmd.Flags().Int("width", 0, "window width")
	cmd.Flags().Int("height", 0, "window height")
	cmd.Flags().Bool("maximized", false, "start maximized")
	cmd.Flags().Bool("fullscreen", false, "start fullscreen")
	cmd.Flags().Bool("debug", false, "enable developer tools where the backend has them")
	cmd.Flags().StringVar(&p.htmlFile, "html", "", "load this HTML file after startup")
	cmd.Flags().StringArray("watch", nil, "reload when files matching this glob change (repeatable)")
	cmd.Flags().StringArray("ignore", nil, "glob excluded from --watch (repeatable)")

	return cmd
}

// runOpen starts a controller, optionally loads an HTML file and starts
// the watcher, then runs the line session until it ends.
func runOpen(ctx context.Context, app *App, cfg *config.Config, p openParams) error {
	logger, err := app.newLogger(cfg)
	if err != nil {
		return err
	}

	opts := append(cfg.ControllerOptions(),
		webproc.WithLogger(logger),
		webproc.WithRegistry(app.Registry),
	)
	ctl, err := webproc.New(cfg.WindowConfig(), opts...)
	if err != nil {
		return err
	}
	defer ctl.Close()

	if err := ctl.Start(ctx); err != nil {
		return err
	}

	if p.htmlFile != "" {
		html, err := os.ReadFile(p.htmlFile)
		if err != nil {
			return issue.WrapWithContext(err, "read HTML file", p.htmlFile)
		}
		if err := ctl.LoadHTML(ctx, string(html)); err != nil {
			return err
		}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	if len(cfg.Watch.Patterns) > 0 {
		w, err := newReloadWatcher(ctl, cfg, p, logger)
		if err != nil {
			return err
		}
		go func() { watchErr <- w.Run(sessionCtx) }()
	} else {
		close(watchErr)
	}

	s := &session{ctl: ctl, stdout: app.stdout, stderr: app.stderr}
	if err := s.run(sessionCtx, app.stdin); err != nil {
		return err
	}

	cancel()
	if err := <-watchErr; err != nil {
		logger.Error("watcher stopped", "error", err)
	}

	select {
	case <-ctl.Done():
		return ctl.Wait(context.Background())
	default:
		if !ctl.Shutdown(cfg.Timeouts.ShutdownGrace) {
			logger.Warn("window did not close within the grace period")
		}
		return nil
	}
}

func newReloadWatcher(ctl *webproc.Controller, cfg *config.Config, p openParams, logger *log.Logger) (*watch.Watcher, error) {
	onChange, err := watch.Reload(ctl, watch.Target{
		URL:      cfg.Window.URL,
		HTMLFile: p.htmlFile,
		Timeout:  cfg.Timeouts.Call,
	})
	if err != nil {
		if errors.Is(err, watch.ErrNothingToReload) {
			return nil, issue.NewErrorContext().
				WithOperation("start live reload").
				WithSuggestions("Pass --url or --html together with --watch").
				Wrap(err).
				BuildError()
		}
		return nil, err
	}

	w, err := watch.New(watch.Config{
		Patterns: cfg.Watch.Patterns,
		Ignore:   cfg.Watch.Ignore,
		Debounce: cfg.Watch.Debounce,
		OnChange: onChange,
		Logger:   logger.WithPrefix("watch"),
	})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("start live reload").
			WithIssue(issue.WatchFailedId).
			Wrap(err).
			BuildError()
	}
	logger.Info("watching for changes", "dir", w.BaseDir(), "patterns", cfg.Watch.Patterns)
	return w, nil
}
