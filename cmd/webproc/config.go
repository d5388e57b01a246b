// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/webproc/internal/config"
)

// newConfigCommand creates the `webproc config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage webproc configuration",
		Long: `Manage webproc configuration.

Configuration is stored in:
  - Linux: ~/.config/webproc/config.cue
  - macOS: ~/Library/Application Support/webproc/config.cue
  - Windows: %APPDATA%\webproc\config.cue

WEBPROC_* environment variables override the file, for example
WEBPROC_WINDOW_TITLE or WEBPROC_TIMEOUTS_CALL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cfg, err := app.loadConfig(cmd.Context(), nil)
			if err != nil {
				return app.renderError(cmd.ErrOrStderr(), err)
			}
			return showConfig(cmd, cfg)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path, err := config.CreateDefaultConfig(app.flags.configPath, force)
			if errors.Is(err, config.ErrConfigExists) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s already exists (use --force to overwrite)\n",
					WarningStyle.Render("Warning:"), CmdStyle.Render(path))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Created"), CmdStyle.Render(path))
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			cfg, err := app.loadConfig(cmd.Context(), nil)
			if err != nil {
				return err
			}
			out, err := config.Dump(cfg, config.DumpFormat(format))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	dumpCmd.Flags().String("format", string(config.DumpFormatCUE), "output format: cue or toml")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

// configPath returns --config when given, otherwise the default location.
func (a *App) configPath() (string, error) {
	if a.flags.configPath != "" {
		return a.flags.configPath, nil
	}
	return config.DefaultPath("")
}

func showConfig(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	backendName := cfg.Backend
	if backendName == "" {
		backendName = "(first available)"
	}

	fmt.Fprintln(out, TitleStyle.Render("Configuration"))
	rows := []struct{ key, value string }{
		{"backend", backendName},
		{"isolation", cfg.Isolation.String()},
		{"drain", cfg.Drain.String()},
		{"window", fmt.Sprintf("%q %dx%d", cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)},
		{"window.url", cfg.Window.URL},
		{"timeouts", fmt.Sprintf("startup=%s call=%s shutdown_grace=%s",
			cfg.Timeouts.Startup, cfg.Timeouts.Call, cfg.Timeouts.ShutdownGrace)},
		{"log", fmt.Sprintf("level=%s format=%s", cfg.Log.Level, cfg.Log.Format)},
		{"watch", fmt.Sprintf("patterns=%v ignore=%v debounce=%s",
			cfg.Watch.Patterns, cfg.Watch.Ignore, cfg.Watch.Debounce)},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %-10s %s\n", SubtitleStyle.Render(r.key), r.value)
	}
	return nil
}
