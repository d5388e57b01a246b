// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/invowk/webproc/pkg/webproc"
)

// errSessionClosed ends a session after the close command.
var errSessionClosed = errors.New("session closed")

type (
	// session reads line commands and applies them to one controller.
	session struct {
		ctl    *webproc.Controller
		stdout io.Writer
		stderr io.Writer
	}

	sessionCommand struct {
		usage string
		help  string
		run   func(ctx context.Context, s *session, args []string) error
	}
)

// sessionCommands is the line command catalog, keyed by first word.
var sessionCommands = map[string]sessionCommand{
	"ping": {usage: "ping", help: "round-trip through the owner", run: func(ctx context.Context, s *session, _ []string) error {
		if err := s.ctl.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.stdout, "pong")
		return nil
	}},
	"state": {usage: "state", help: "print the controller state", run: func(_ context.Context, s *session, _ []string) error {
		fmt.Fprintln(s.stdout, s.ctl.State())
		return nil
	}},
	"title": {usage: "title", help: "print the window title", run: func(ctx context.Context, s *session, _ []string) error {
		title, err := s.ctl.Title(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.stdout, title)
		return nil
	}},
	"set-title": {usage: "set-title TITLE", help: "change the window title", run: func(ctx context.Context, s *session, args []string) error {
		if len(args) != 1 {
			return errUsage
		}
		return s.ctl.SetTitle(ctx, args[0])
	}},
	"navigate": {usage: "navigate URL", help: "load a URL", run: func(ctx context.Context, s *session, args []string) error {
		if len(args) != 1 {
			return errUsage
		}
		return s.ctl.Navigate(ctx, args[0])
	}},
	"html": {usage: "html MARKUP", help: "replace the page with inline HTML", run: func(ctx context.Context, s *session, args []string) error {
		if len(args) == 0 {
			return errUsage
		}
		return s.ctl.LoadHTML(ctx, strings.Join(args, " "))
	}},
	"eval": {usage: "eval SCRIPT", help: "evaluate JavaScript and print the result", run: func(ctx context.Context, s *session, args []string) error {
		if len(args) == 0 {
			return errUsage
		}
		v, err := s.ctl.EvaluateScript(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(s.stdout, formatValue(v))
		return nil
	}},
	"resize": {usage: "resize WIDTH HEIGHT", help: "resize the window", run: func(ctx context.Context, s *session, args []string) error {
		if len(args) != 2 {
			return errUsage
		}
		w, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("width: %w", err)
		}
		h, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("height: %w", err)
		}
		return s.ctl.Resize(ctx, w, h)
	}},
	"size": {usage: "size", help: "print the window size", run: func(ctx context.Context, s *session, _ []string) error {
		size, err := s.ctl.Size(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.stdout, "%dx%d\n", size.Width, size.Height)
		return nil
	}},
	"minimize": {usage: "minimize", help: "minimize the window", run: func(ctx context.Context, s *session, _ []string) error {
		return s.ctl.Minimize(ctx)
	}},
	"maximize": {usage: "maximize", help: "maximize the window", run: func(ctx context.Context, s *session, _ []string) error {
		return s.ctl.Maximize(ctx)
	}},
	"restore": {usage: "restore", help: "restore the window", run: func(ctx context.Context, s *session, _ []string) error {
		return s.ctl.Restore(ctx)
	}},
	"fullscreen": {usage: "fullscreen", help: "toggle fullscreen", run: func(ctx context.Context, s *session, _ []string) error {
		return s.ctl.ToggleFullscreen(ctx)
	}},
	"pick": {usage: "pick [--multiple] [EXT...]", help: "open a file picker and print the chosen paths", run: func(ctx context.Context, s *session, args []string) error {
		multiple := false
		var exts []string
		for _, a := range args {
			if a == "--multiple" {
				multiple = true
				continue
			}
			exts = append(exts, a)
		}
		if !multiple {
			path, ok, err := s.ctl.PickFile(ctx, exts)
			switch {
			case err != nil:
				return err
			case !ok:
				fmt.Fprintln(s.stdout, "cancelled")
			default:
				fmt.Fprintln(s.stdout, path)
			}
			return nil
		}
		paths, err := s.ctl.PickFiles(ctx, exts, true)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintln(s.stdout, "cancelled")
			return nil
		}
		for _, p := range paths {
			fmt.Fprintln(s.stdout, p)
		}
		return nil
	}},
	"save": {usage: "save NAME CONTENT [DIR]", help: "open a save dialog and write CONTENT", run: func(ctx context.Context, s *session, args []string) error {
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		dir := ""
		if len(args) == 3 {
			dir = args[2]
		}
		saved, err := s.ctl.SaveFile(ctx, args[0], dir, []byte(args[1]))
		if err != nil {
			return err
		}
		if saved {
			fmt.Fprintln(s.stdout, "saved")
		} else {
			fmt.Fprintln(s.stdout, "cancelled")
		}
		return nil
	}},
	"close": {usage: "close", help: "destroy the window and end the session", run: func(ctx context.Context, s *session, _ []string) error {
		if err := s.ctl.Destroy(ctx); err != nil {
			return err
		}
		return errSessionClosed
	}},
}

// errUsage makes exec print the command's usage line.
var errUsage = errors.New("usage")

// run reads commands from in until EOF, the close command, the controller
// stopping, or ctx ending. Command failures are reported and do not end the
// session.
func (s *session) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.ctl.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := s.exec(ctx, line); errors.Is(err, errSessionClosed) {
				return nil
			}
		}
	}
}

// exec runs one line. Blank lines and # comments are skipped.
func (s *session) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	fields, err := shell.Fields(line, func(string) string { return "" })
	if err != nil {
		fmt.Fprintf(s.stderr, "%s %v\n", ErrorStyle.Render("parse:"), err)
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	name, args := fields[0], fields[1:]
	if name == "help" {
		s.printHelp()
		return nil
	}
	c, ok := sessionCommands[name]
	if !ok {
		err := fmt.Errorf("unknown command %q (try 'help')", name)
		fmt.Fprintf(s.stderr, "%s %v\n", ErrorStyle.Render("error:"), err)
		return err
	}

	err = c.run(ctx, s, args)
	switch {
	case err == nil, errors.Is(err, errSessionClosed):
	case errors.Is(err, errUsage):
		fmt.Fprintf(s.stderr, "%s %s\n", ErrorStyle.Render("usage:"), c.usage)
	default:
		fmt.Fprintf(s.stderr, "%s %s: %v\n", ErrorStyle.Render("error:"), name, err)
	}
	return err
}

func (s *session) printHelp() {
	for _, name := range slices.Sorted(maps.Keys(sessionCommands)) {
		c := sessionCommands[name]
		fmt.Fprintf(s.stdout, "  %-28s %s\n", CmdStyle.Render(c.usage), SubtitleStyle.Render(c.help))
	}
}

// formatValue renders a script result. Strings print bare; nil prints as
// "null" to match JavaScript.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
