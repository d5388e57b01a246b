// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/invowk/webproc/internal/issue"
)

func newTroubleshootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "troubleshoot [ID]",
		Short: "Show troubleshooting notes for known failures",
		Long: `List the known failures webproc has troubleshooting notes for, or render
the notes for one of them.

The same notes are printed automatically when a command fails with one of
these errors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listIssues(cmd)
				return nil
			}
			return showIssue(cmd, args[0])
		},
	}
}

func listIssues(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	for _, i := range issue.Values() {
		fmt.Fprintf(out, "%3d  %s\n", i.Id(), i.Title())
	}
}

func showIssue(cmd *cobra.Command, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid issue id %q: must be a number", arg)
	}
	entry := issue.Get(issue.Id(n))
	if entry == nil {
		return fmt.Errorf("unknown issue id %d (see 'webproc troubleshoot')", n)
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		return fmt.Errorf("render issue %d: %w", n, err)
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
