// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/invowk/webproc/internal/config"
	"github.com/invowk/webproc/internal/ownerproc"
)

// newInternalCommand creates the hidden parent of commands used between
// webproc processes.
func newInternalCommand(app *App) *cobra.Command {
	internalCmd := &cobra.Command{
		Use:    "internal",
		Short:  "Internal commands (not for direct use)",
		Hidden: true,
	}

	internalCmd.AddCommand(&cobra.Command{
		Use:   "owner",
		Short: "Run a window owner speaking the line protocol",
		Long: `Run a window owner for a controller using process isolation.

The parent sends the window configuration and calls as JSON lines and reads
readiness and results back. A parent that starts this command itself passes
the protocol on inherited descriptors and points stdout at stderr; run by
hand it uses stdin and stdout. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// A broken config must not keep the window from opening; the
			// parent already reported it.
			logCfg := config.DefaultConfig().Log
			if cfg, err := app.loadConfig(cmd.Context(), nil); err == nil {
				logCfg = cfg.Log
			}
			logger, err := logCfg.NewLogger(app.stderr, "owner")
			if err != nil {
				return err
			}
			in, out := ownerproc.ProtocolStreams(app.stdin, app.stdout)
			return ownerproc.Serve(in, out, app.Registry, logger)
		},
	})

	return internalCmd
}
