// SPDX-License-Identifier: MPL-2.0

package headless

import "sync"

// loopWindow wraps a Window with an emulated native event loop.
type loopWindow struct {
	*Window

	tasks    chan func()
	quit     chan struct{}
	quitOnce sync.Once
}

func newLoopWindow(w *Window) *loopWindow {
	return &loopWindow{
		Window: w,
		tasks:  make(chan func(), 64),
		quit:   make(chan struct{}),
	}
}

// Run implements backend.EventLoop.
func (l *loopWindow) Run() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			return
		case <-l.userClosed:
			return
		}
	}
}

// Dispatch implements backend.EventLoop. Tasks dispatched after the loop
// has exited are dropped.
func (l *loopWindow) Dispatch(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.quit:
	case <-l.userClosed:
	}
}

// Terminate implements backend.EventLoop.
func (l *loopWindow) Terminate() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// EvaluateScriptAsync implements backend.AsyncEvaluator. The result is
// delivered on a later loop iteration, the way toolkits report script
// results through a bound callback.
func (l *loopWindow) EvaluateScriptAsync(script string, resolve func(any, error)) {
	result, err := l.EvaluateScript(script)
	l.Dispatch(func() { resolve(result, err) })
}
