// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "open window"},
			expected: "failed to open window",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "open window", Resource: "webview"},
			expected: "failed to open window: webview",
		},
		{
			name:     "operation with cause",
			err:      &ActionableError{Operation: "load configuration", Cause: errors.New("bad syntax")},
			expected: "failed to load configuration: bad syntax",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load configuration",
				Resource:  "/etc/webproc/config.cue",
				Cause:     errors.New("not found"),
			},
			expected: "failed to load configuration: /etc/webproc/config.cue: not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("specific")
	wrapped := fmt.Errorf("outer: %w", &ActionableError{Operation: "test", Cause: cause})

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "test"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil without a cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("no display")
	err := &ActionableError{
		Operation:   "open window",
		Resource:    "webview",
		Suggestions: []string{"Set DISPLAY", "Try --backend headless"},
		Cause:       fmt.Errorf("startup: %w", inner),
	}

	tests := []struct {
		name     string
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "concise",
			contains: []string{"failed to open window: webview", "• Set DISPLAY", "• Try --backend headless"},
			excludes: []string{"Error chain:"},
		},
		{
			name:     "verbose",
			verbose:  true,
			contains: []string{"Error chain:", "1. startup: no display", "2. no display"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := err.Format(tt.verbose)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Format(%v) missing %q:\n%s", tt.verbose, want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("Format(%v) should not contain %q", tt.verbose, unwanted)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	t.Run("requires operation", func(t *testing.T) {
		t.Parallel()

		if NewErrorContext().WithResource("x").Build() != nil {
			t.Error("Build() without an operation should return nil")
		}
		if NewErrorContext().BuildError() != nil {
			t.Error("BuildError() without an operation should return a nil error")
		}
	})

	t.Run("all fields", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("boom")
		ae := NewErrorContext().
			WithOperation("load configuration").
			WithResource("config.cue").
			WithSuggestion("one").
			WithSuggestions("two", "three").
			WithIssue(ConfigLoadFailedId).
			Wrap(cause).
			Build()

		if ae.Operation != "load configuration" || ae.Resource != "config.cue" {
			t.Errorf("unexpected fields: %+v", ae)
		}
		if len(ae.Suggestions) != 3 || !ae.HasSuggestions() {
			t.Errorf("Suggestions = %v", ae.Suggestions)
		}
		if ae.Issue != ConfigLoadFailedId || !errors.Is(ae, cause) {
			t.Errorf("Issue = %d, cause lost: %v", ae.Issue, ae)
		}
	})

	t.Run("builder reuse does not alias", func(t *testing.T) {
		t.Parallel()

		ctx := NewErrorContext().WithOperation("op").WithSuggestion("first")
		a := ctx.Build()
		ctx.WithSuggestion("second")
		b := ctx.Build()

		if len(a.Suggestions) != 1 || len(b.Suggestions) != 2 {
			t.Errorf("a=%v b=%v", a.Suggestions, b.Suggestions)
		}
	})
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
	ae := WrapWithContext(errors.New("x"), "start watcher", "./site")
	if ae.Error() != "failed to start watcher: ./site: x" {
		t.Errorf("Error() = %q", ae.Error())
	}
}

func TestIssueOf(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("cli: %w", NewErrorContext().
		WithOperation("open window").
		WithIssue(StartupFailedId).
		BuildError())
	if got := IssueOf(err); got == nil || got.Id() != StartupFailedId {
		t.Errorf("IssueOf() = %v", got)
	}

	if IssueOf(errors.New("plain")) != nil {
		t.Error("IssueOf(plain error) should be nil")
	}
	if IssueOf(NewErrorContext().WithOperation("op").BuildError()) != nil {
		t.Error("IssueOf without a linked issue should be nil")
	}
}
