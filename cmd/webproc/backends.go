// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackendsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List window backends",
		Long: `List the window backends compiled into this binary.

The default backend, used when neither --backend nor the config file names
one, is the first available backend in this list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listBackends(cmd, app)
		},
	}
}

func listBackends(cmd *cobra.Command, app *App) error {
	out := cmd.OutOrStdout()
	def, defErr := app.Registry.Default()

	for _, name := range app.Registry.Names() {
		b, err := app.Registry.Get(name)
		if err != nil {
			return err
		}

		status := WarningStyle.Render("unavailable")
		if b.Available() {
			status = SuccessStyle.Render("available")
		}
		marker := ""
		if defErr == nil && def.Name() == name {
			marker = " " + SubtitleStyle.Render("(default)")
		}
		fmt.Fprintf(out, "%-10s %s%s\n", name, status, marker)
	}
	return nil
}
