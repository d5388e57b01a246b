// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/invowk/webproc/internal/backend"
	"github.com/invowk/webproc/internal/issue"
	"github.com/invowk/webproc/internal/ownerproc"
	"github.com/invowk/webproc/pkg/webproc"
)

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their own Format; verbose mode shows the full chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// classifyError maps controller failures to catalog issues. Zero means no
// catalog entry applies.
func classifyError(err error) issue.Id {
	if i := issue.IssueOf(err); i != nil {
		return i.Id()
	}

	switch {
	case errors.Is(err, backend.ErrUnknownBackend):
		return issue.UnknownBackendId
	case errors.Is(err, backend.ErrUnavailable):
		return issue.BackendUnavailableId
	case errors.Is(err, ownerproc.ErrOwnerExited):
		return issue.OwnerProcessExitedId
	case errors.Is(err, webproc.ErrOperationTimeout):
		return issue.OperationTimedOutId
	case errors.Is(err, webproc.ErrStartup) && errors.Is(err, context.DeadlineExceeded):
		return issue.StartupTimedOutId
	case errors.Is(err, webproc.ErrStartup):
		return issue.StartupFailedId
	}
	return 0
}

// renderError prints err and, when it maps to a catalog issue, the issue's
// troubleshooting text. It returns the ExitError the handler should return.
func (a *App) renderError(stderr io.Writer, err error) error {
	fmt.Fprintf(stderr, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.flags.verbose))

	if id := classifyError(err); id != 0 {
		if entry := issue.Get(id); entry != nil {
			rendered, renderErr := entry.Render("dark")
			if renderErr != nil {
				fmt.Fprintf(stderr, "%s failed to render troubleshooting notes: %v\n", WarningStyle.Render("Warning:"), renderErr)
			} else {
				fmt.Fprint(stderr, rendered)
			}
		}
	}
	return &ExitError{Code: 1, Err: err}
}
