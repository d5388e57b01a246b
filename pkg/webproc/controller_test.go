// SPDX-License-Identifier: MPL-2.0

package webproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/webproc/internal/backend/headless"
	"github.com/invowk/webproc/internal/testutil"
)

const testTimeout = 5 * time.Second

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// launch starts a thread-isolated controller on a headless backend.
func launch(t *testing.T, cfg WindowConfig, b *headless.Backend, opts ...Option) *Controller {
	t.Helper()

	c := newController(t, cfg, b, opts...)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return c
}

func newController(t *testing.T, cfg WindowConfig, b *headless.Backend, opts ...Option) *Controller {
	t.Helper()

	if b == nil {
		b = headless.New()
	}
	opts = append([]Option{WithBackend(b), WithLogger(quietLogger())}, opts...)
	c, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { c.Shutdown(time.Second) })
	return c
}

func TestTitleScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := launch(t, WindowConfig{Title: "A", URL: "http://x"}, nil)

	if !c.IsRunning() || c.State() != StateReady {
		t.Fatalf("State() = %s after Start", c.State())
	}

	title, err := c.Title(ctx)
	if err != nil || title != "A" {
		t.Fatalf("Title() = (%q, %v), want A", title, err)
	}
	if err := c.SetTitle(ctx, "B"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	title, err = c.Title(ctx)
	if err != nil || title != "B" {
		t.Fatalf("Title() = (%q, %v), want B", title, err)
	}

	start := time.Now()
	if !c.Shutdown(2 * time.Second) {
		t.Error("Shutdown should be graceful for a responsive owner")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Shutdown took %s", elapsed)
	}
	if c.State() != StateStopped {
		t.Errorf("State() = %s after Shutdown", c.State())
	}
}

func TestFIFOPerCaller(t *testing.T) {
	t.Parallel()

	const (
		callers = 4
		perCall = 20
	)

	ctx := context.Background()
	c := launch(t, WindowConfig{}, nil)
	if _, err := c.EvaluateScript(ctx, "var order = []"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := range callers {
		wg.Go(func() {
			for i := range perCall {
				script := fmt.Sprintf("order.push(%q); order.length", fmt.Sprintf("%d-%d", g, i))
				if _, err := c.EvaluateScript(ctx, script); err != nil {
					t.Errorf("caller %d: %v", g, err)
					return
				}
			}
		})
	}
	wg.Wait()

	got, err := c.EvaluateScript(ctx, "order.join(',')")
	if err != nil {
		t.Fatal(err)
	}
	entries := strings.Split(got.(string), ",")
	if len(entries) != callers*perCall {
		t.Fatalf("got %d entries, want %d", len(entries), callers*perCall)
	}

	next := make([]int, callers)
	for _, e := range entries {
		var g, i int
		if _, err := fmt.Sscanf(e, "%d-%d", &g, &i); err != nil {
			t.Fatalf("bad entry %q", e)
		}
		if i != next[g] {
			t.Fatalf("caller %d: entry %d executed when %d was expected", g, i, next[g])
		}
		next[g]++
	}
}

func TestConcurrentEvaluateSerialized(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		active    int
		maxActive int
		counter   int
	)
	enter := func() int {
		mu.Lock()
		defer mu.Unlock()
		active++
		maxActive = max(maxActive, active)
		counter++
		return counter
	}
	leave := func() {
		mu.Lock()
		defer mu.Unlock()
		active--
	}

	b := headless.New(headless.WithBinding("enter", enter), headless.WithBinding("leave", leave))
	c := launch(t, WindowConfig{}, b)
	ctx := context.Background()

	script := func(name string) string {
		return fmt.Sprintf(`enter(); var s = 0; for (var i = 0; i < 20000; i++) { s += i; } leave(); %q + ":" + s`, name)
	}

	results := make([]any, 2)
	var wg sync.WaitGroup
	for i, name := range []string{"first", "second"} {
		wg.Go(func() {
			v, err := c.EvaluateScript(ctx, script(name))
			if err != nil {
				t.Errorf("%s: %v", name, err)
			}
			results[i] = v
		})
	}
	wg.Wait()

	if results[0] != "first:199990000" || results[1] != "second:199990000" {
		t.Errorf("results = %v", results)
	}
	if maxActive != 1 {
		t.Errorf("scripts overlapped: %d active at once", maxActive)
	}
	if counter != 2 {
		t.Errorf("counter = %d, want 2", counter)
	}
}

func TestCallBeforeStart(t *testing.T) {
	t.Parallel()

	c := newController(t, WindowConfig{}, nil)
	if _, err := c.Title(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Title() before Start = %v, want ErrNotStarted", err)
	}
}

func TestCallWhileStartingWaitsForReady(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	b := headless.New(headless.WithOpenHook(func(*headless.Window) { <-release }))
	c := newController(t, WindowConfig{Title: "A"}, b)

	startErr := make(chan error, 1)
	go func() { startErr <- c.Start(context.Background()) }()
	for c.State() == StateCreated {
		time.Sleep(time.Millisecond)
	}

	got := make(chan string, 1)
	go func() {
		title, err := c.Title(context.Background())
		if err != nil {
			t.Errorf("Title() = %v", err)
		}
		got <- title
	}()

	select {
	case <-got:
		t.Fatal("call returned before the window was ready")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case title := <-got:
		if title != "A" {
			t.Errorf("Title() = %q", title)
		}
	case <-time.After(testTimeout):
		t.Fatal("call did not complete after readiness")
	}
	if err := <-startErr; err != nil {
		t.Errorf("Start() = %v", err)
	}
}

func TestCallAfterShutdown(t *testing.T) {
	t.Parallel()

	c := launch(t, WindowConfig{}, nil)
	c.Shutdown(time.Second)

	testutil.Within(t, 100*time.Millisecond, "call after shutdown", func() {
		if _, err := c.Title(context.Background()); !errors.Is(err, ErrControllerStopped) {
			t.Errorf("Title() after Shutdown = %v, want ErrControllerStopped", err)
		}
	})
}

func TestShutdownAbandonsWedgedOwner(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	unblock := make(chan struct{})
	t.Cleanup(func() { close(unblock) })
	block := func() {
		close(entered)
		<-unblock
	}

	b := headless.New(headless.WithBinding("block", block))
	c := launch(t, WindowConfig{}, b, WithCallTimeout(0))

	callErr := make(chan error, 1)
	go func() {
		_, err := c.EvaluateScript(context.Background(), "block()")
		callErr <- err
	}()
	<-entered

	queued := make(chan error, 1)
	go func() {
		queued <- c.Ping(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)

	var graceful bool
	testutil.Within(t, 100*time.Millisecond+killWait+time.Second, "Shutdown", func() {
		graceful = c.Shutdown(100 * time.Millisecond)
	})
	if graceful {
		t.Error("Shutdown should report a forced termination")
	}
	if c.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", c.State())
	}

	for name, ch := range map[string]chan error{"wedged": callErr, "queued": queued} {
		select {
		case err := <-ch:
			if !errors.Is(err, ErrControllerStopped) {
				t.Errorf("%s call = %v, want ErrControllerStopped", name, err)
			}
		case <-time.After(time.Second):
			t.Errorf("%s call never returned", name)
		}
	}
}

func TestShutdownInterruptsWedgedScript(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	b := headless.New(headless.WithBinding("started", func() { close(started) }))
	c := launch(t, WindowConfig{}, b, WithCallTimeout(0))

	callErr := make(chan error, 1)
	go func() {
		_, err := c.EvaluateScript(context.Background(), "started(); while (true) {}")
		callErr <- err
	}()
	<-started

	if c.Shutdown(50 * time.Millisecond) {
		t.Error("Shutdown should report a forced termination")
	}
	if c.State() != StateStopped {
		t.Errorf("State() = %s", c.State())
	}

	select {
	case err := <-callErr:
		if !errors.Is(err, ErrOperation) && !errors.Is(err, ErrControllerStopped) {
			t.Errorf("wedged call = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("wedged call never returned")
	}
}

func TestOperationErrorIsolated(t *testing.T) {
	t.Parallel()

	c := launch(t, WindowConfig{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Go(func() {
		_, err := c.EvaluateScript(ctx, `throw new Error("kaput")`)
		var oe *OperationError
		if !errors.As(err, &oe) || oe.Kind != KindEvaluateScript {
			t.Errorf("expected OperationError, got %v", err)
		}
	})
	wg.Go(func() {
		if v, err := c.EvaluateScript(ctx, "21 * 2"); err != nil || v != int64(42) {
			t.Errorf("independent call = (%v, %v)", v, err)
		}
	})
	wg.Wait()

	if err := c.Ping(ctx); err != nil {
		t.Errorf("controller unusable after an operation error: %v", err)
	}
}

func TestCallTimeoutDiscardsLateResult(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	b := headless.New(headless.WithBinding("slow", func() string {
		<-release
		return "late"
	}))
	c := launch(t, WindowConfig{Title: "A"}, b)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var err error
	testutil.Within(t, time.Second, "timed-out call", func() {
		_, err = c.EvaluateScript(ctx, "slow()")
	})
	var te *OperationTimeoutError
	if !errors.As(err, &te) || te.Kind != KindEvaluateScript {
		t.Fatalf("expected OperationTimeoutError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, ErrOperationTimeout) {
		t.Errorf("timeout should match DeadlineExceeded and ErrOperationTimeout: %v", err)
	}

	close(release)
	title, err := c.Title(context.Background())
	if err != nil || title != "A" {
		t.Errorf("Title() after late result = (%q, %v)", title, err)
	}
}

func TestDefaultCallTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	b := headless.New(headless.WithBinding("slow", func() { <-release }))
	c := launch(t, WindowConfig{}, b, WithCallTimeout(50*time.Millisecond))

	_, err := c.EvaluateScript(context.Background(), "slow()")
	var te *OperationTimeoutError
	if !errors.As(err, &te) || te.Timeout != 50*time.Millisecond {
		t.Errorf("expected OperationTimeoutError with the configured timeout, got %v", err)
	}
}

func TestCallCancelled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	b := headless.New(headless.WithBinding("slow", func() { <-release }))
	c := launch(t, WindowConfig{}, b)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := c.EvaluateScript(ctx, "slow()")
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrOperationTimeout) {
		t.Errorf("cancelled call = %v, want context.Canceled", err)
	}
}

func TestCallRejectsBadInput(t *testing.T) {
	t.Parallel()

	c := launch(t, WindowConfig{}, nil)
	ctx := context.Background()

	if _, err := c.Call(ctx, Kind("teleport"), nil); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("unknown kind = %v, want ErrUnsupportedKind", err)
	}
	if _, err := c.Call(ctx, KindSetTitle, 42); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("wrong payload = %v, want ErrInvalidPayload", err)
	}
	if err := c.Resize(ctx, -1, 10); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("negative size = %v, want ErrInvalidPayload", err)
	}
	if _, err := c.Call(ctx, KindSetTitle, &SetTitlePayload{Title: "ptr"}); err != nil {
		t.Errorf("pointer payload = %v", err)
	}
}

func TestStartupFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("no display")
	c := newController(t, WindowConfig{}, headless.New(headless.WithOpenError(cause)))

	err := c.Start(context.Background())
	var se *StartupError
	if !errors.As(err, &se) || se.Backend != headless.Name {
		t.Fatalf("expected StartupError from headless, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("startup error should wrap the backend cause: %v", err)
	}
	if c.State() != StateStopped {
		t.Errorf("State() = %s after startup failure", c.State())
	}
	if _, err := c.Title(context.Background()); !errors.Is(err, ErrControllerStopped) {
		t.Errorf("call after startup failure = %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestStartupTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	b := headless.New(headless.WithOpenHook(func(*headless.Window) { <-release }))
	c := newController(t, WindowConfig{}, b, WithStartupTimeout(50*time.Millisecond), WithShutdownGrace(50*time.Millisecond))

	var err error
	testutil.Within(t, 50*time.Millisecond+killWait+time.Second, "Start", func() {
		err = c.Start(context.Background())
	})
	if !errors.Is(err, ErrStartup) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Start() = %v, want startup error wrapping DeadlineExceeded", err)
	}
	if c.State() != StateStopped {
		t.Errorf("State() = %s", c.State())
	}
}

func TestStartCancelledContext(t *testing.T) {
	t.Parallel()

	c := newController(t, WindowConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Start(ctx); !errors.Is(err, ErrStartup) || !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v", err)
	}
	if c.State() != StateStopped {
		t.Errorf("State() = %s", c.State())
	}
}

func TestUserClosedWindow(t *testing.T) {
	t.Parallel()

	var win *headless.Window
	b := headless.New(headless.WithOpenHook(func(w *headless.Window) { win = w }))
	c := launch(t, WindowConfig{}, b)

	win.Close()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Errorf("Wait() = %v, want nil after a user close", err)
	}
	if c.State() != StateStopped {
		t.Errorf("State() = %s", c.State())
	}
	if err := c.Ping(context.Background()); !errors.Is(err, ErrControllerStopped) {
		t.Errorf("Ping after close = %v", err)
	}
	if !c.Shutdown(time.Second) {
		t.Error("Shutdown of an already stopped controller should be graceful")
	}
}

func TestDestroyStopsController(t *testing.T) {
	t.Parallel()

	c := launch(t, WindowConfig{}, nil)
	if err := c.Destroy(context.Background()); err != nil {
		t.Fatalf("Destroy() = %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(testTimeout):
		t.Fatal("controller did not stop after destroy")
	}
	if err := c.Ping(context.Background()); !errors.Is(err, ErrControllerStopped) {
		t.Errorf("Ping after destroy = %v", err)
	}
}

func TestDrainExecute(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	b := headless.New(headless.WithBinding("hold", func() {
		close(entered)
		<-release
	}))
	c := launch(t, WindowConfig{Title: "A"}, b, WithDrainPolicy(DrainExecute))

	go func() { _, _ = c.EvaluateScript(context.Background(), "hold()") }()
	<-entered

	titleErr := make(chan error, 1)
	go func() {
		titleErr <- c.SetTitle(context.Background(), "drained")
	}()
	time.Sleep(20 * time.Millisecond)

	shutdownDone := make(chan bool, 1)
	go func() { shutdownDone <- c.Shutdown(testTimeout) }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	if !<-shutdownDone {
		t.Error("Shutdown should be graceful")
	}
	if err := <-titleErr; err != nil {
		t.Errorf("queued call should execute under DrainExecute, got %v", err)
	}
}

func TestShutdownConcurrent(t *testing.T) {
	t.Parallel()

	c := launch(t, WindowConfig{}, nil)

	results := make([]bool, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Go(func() { results[i] = c.Shutdown(time.Second) })
	}
	wg.Wait()

	if slices.Contains(results, false) {
		t.Errorf("all Shutdown callers should observe the graceful outcome, got %v", results)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	t.Parallel()

	c := newController(t, WindowConfig{}, nil)
	if !c.Shutdown(time.Second) {
		t.Error("Shutdown before Start should be graceful")
	}
	if c.State() != StateStopped {
		t.Errorf("State() = %s", c.State())
	}
	if err := c.Start(context.Background()); err == nil {
		t.Error("Start after Shutdown should fail")
	}
}

func TestControllersAreIndependent(t *testing.T) {
	t.Parallel()

	a := launch(t, WindowConfig{Title: "left"}, nil)
	b := launch(t, WindowConfig{Title: "right"}, nil)

	if a.ID() == b.ID() {
		t.Error("controllers should have distinct IDs")
	}
	a.Shutdown(time.Second)

	title, err := b.Title(context.Background())
	if err != nil || title != "right" {
		t.Errorf("second controller = (%q, %v) after the first stopped", title, err)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	t.Parallel()

	if _, err := New(WindowConfig{}, WithIsolation("fiber")); !errors.Is(err, ErrInvalidIsolation) {
		t.Errorf("invalid isolation = %v", err)
	}
	if _, err := New(WindowConfig{}, WithDrainPolicy("later")); err == nil {
		t.Error("invalid drain policy should fail")
	}
	if _, err := New(WindowConfig{Backend: "qt"}); !errors.Is(err, ErrStartup) {
		t.Errorf("unknown backend = %v, want startup error", err)
	}
}
