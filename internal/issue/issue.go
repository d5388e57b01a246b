// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	// BackendUnavailableId: no registered backend can open a window here.
	BackendUnavailableId Id = iota + 1
	// UnknownBackendId: the configured backend name is not registered.
	UnknownBackendId
	// StartupFailedId: the backend failed while constructing the window.
	StartupFailedId
	// StartupTimedOutId: the window never became ready.
	StartupTimedOutId
	// OperationTimedOutId: a window operation was not answered in time.
	OperationTimedOutId
	// OwnerProcessExitedId: the isolated owner process died.
	OwnerProcessExitedId
	// ConfigLoadFailedId: the configuration file could not be loaded.
	ConfigLoadFailedId
	// WatchFailedId: the live reload watcher could not start.
	WatchFailedId
)

type (
	// Id identifies a catalog issue.
	Id int

	// MarkdownMsg is the markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation or reference URL.
	HttpLink string

	// Issue is a troubleshooting entry rendered for the user when a known
	// failure occurs.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		extLinks []HttpLink
	}
)

// Id returns the issue identifier.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the markdown body.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Title returns the text of the first top-level heading of the body.
func (i *Issue) Title() string {
	for line := range strings.Lines(string(i.mdMsg)) {
		if title, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return title
		}
	}
	return ""
}

// ExtLinks returns a copy of the external links.
func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue for a terminal using the named glamour style
// (for example "dark", "light" or "notty").
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	backendUnavailableIssue = &Issue{
		id: BackendUnavailableId,
		mdMsg: `
# No window backend is available

None of the registered backends can open a window on this machine.

## Things you can try
- List what this build supports:
~~~
$ webproc backends
~~~
- The native backend needs a build with cgo and the ` + "`webview`" + ` tag:
~~~
$ CGO_ENABLED=1 go build -tags webview ./cmd/webproc
~~~
- Use the headless backend for scripting and tests:
~~~
$ webproc open --backend headless
~~~`,
		extLinks: []HttpLink{"https://github.com/webview/webview_go"},
	}

	unknownBackendIssue = &Issue{
		id: UnknownBackendId,
		mdMsg: `
# Unknown backend

The backend named in your flags or configuration is not registered.

## Things you can try
- Run ` + "`webproc backends`" + ` to see the registered names
- Remove the ` + "`backend`" + ` key from your config to use the first available one`,
	}

	startupFailedIssue = &Issue{
		id: StartupFailedId,
		mdMsg: `
# The window could not be created

The backend failed while constructing the window. The controller stopped
and cannot be restarted; start a new one after fixing the cause.

## Things you can try
- On Linux, make sure a display is reachable (` + "`$DISPLAY`" + ` or ` + "`$WAYLAND_DISPLAY`" + `)
- Install the WebKitGTK runtime the native backend links against
- Re-run with ` + "`--log-level debug`" + ` to see the backend error`,
		extLinks: []HttpLink{"https://webkitgtk.org/"},
	}

	startupTimedOutIssue = &Issue{
		id: StartupTimedOutId,
		mdMsg: `
# The window never became ready

The owner did not report readiness before the startup timeout.

## Things you can try
- Raise ` + "`timeouts.startup`" + ` in your config
- Try ` + "`--isolation process`" + ` so a stuck toolkit can be killed cleanly`,
	}

	operationTimedOutIssue = &Issue{
		id: OperationTimedOutId,
		mdMsg: `
# A window operation timed out

The owner did not answer in time. Operations run one at a time, so a long
script or a modal dialog delays everything queued behind it.

## Things you can try
- Raise ` + "`timeouts.call`" + ` in your config
- Split long running scripts into smaller steps`,
	}

	ownerProcessExitedIssue = &Issue{
		id: OwnerProcessExitedId,
		mdMsg: `
# The owner process exited

With process isolation the window lives in a child process, and that
process ended before completing the session.

## Things you can try
- Re-run with ` + "`--log-level debug`" + `; the child's stderr is shown in the terminal
- Switch to ` + "`--isolation thread`" + ` to rule out process spawning problems`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

The configuration file exists but could not be read or does not match the
schema.

## Things you can try
- Print the effective configuration and its location:
~~~
$ webproc config show
$ webproc config path
~~~
- Regenerate a default file:
~~~
$ webproc config init --force
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	watchFailedIssue = &Issue{
		id: WatchFailedId,
		mdMsg: `
# Live reload could not start

The file watcher failed to register the requested paths.

## Things you can try
- Check that the ` + "`--watch`" + ` patterns point at existing directories
- On Linux, raise ` + "`fs.inotify.max_user_watches`" + ``,
		extLinks: []HttpLink{"https://github.com/fsnotify/fsnotify"},
	}

	issues = map[Id]*Issue{
		backendUnavailableIssue.Id(): backendUnavailableIssue,
		unknownBackendIssue.Id():     unknownBackendIssue,
		startupFailedIssue.Id():      startupFailedIssue,
		startupTimedOutIssue.Id():    startupTimedOutIssue,
		operationTimedOutIssue.Id():  operationTimedOutIssue,
		ownerProcessExitedIssue.Id(): ownerProcessExitedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		watchFailedIssue.Id():        watchFailedIssue,
	}
)

// Values returns every catalog issue ordered by Id.
func Values() []*Issue {
	values := append(make([]*Issue, 0, len(issues)), maps.Values(issues)...)
	slices.SortFunc(values, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return values
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
