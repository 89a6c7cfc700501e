// Package uiloop provides the single-threaded cooperative loop that owns all
// mutable UI-facing state. Shared state (history store, permission state,
// widget state) is mutated only from functions executed by this loop; worker
// goroutines hand results back via Post.
package uiloop

import (
	"context"
	"sync"
	"time"
)

// Loop serializes posted functions onto one goroutine.
type Loop struct {
	tasks chan func()

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

func New() *Loop {
	return &Loop{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Run processes posted functions until ctx is cancelled. It must be called
// exactly once; the calling goroutine becomes the UI thread.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		panic("uiloop: Run called twice")
	}
	l.started = true
	l.mu.Unlock()

	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post schedules fn to run on the loop goroutine. Returns false once the
// loop has shut down.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	case l.tasks <- fn:
		return true
	}
}

// Timer is a cancellable one-shot scheduled onto the loop. Cancel is safe
// from any goroutine; once Cancel returns, the callback either already ran
// or will never run.
type Timer struct {
	mu        sync.Mutex
	t         *time.Timer
	cancelled bool
	fired     bool
}

// PostDelayed schedules fn to run on the loop goroutine after d. The
// callback is skipped if the timer is cancelled first, even when the expiry
// has already been queued.
func (l *Loop) PostDelayed(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		l.Post(func() {
			tm.mu.Lock()
			if tm.cancelled || tm.fired {
				tm.mu.Unlock()
				return
			}
			tm.fired = true
			tm.mu.Unlock()
			fn()
		})
	})
	return tm
}

// Cancel stops the timer. Safe to call multiple times and after expiry.
func (tm *Timer) Cancel() {
	tm.mu.Lock()
	tm.cancelled = true
	tm.mu.Unlock()
	tm.t.Stop()
}

// Fired reports whether the callback ran.
func (tm *Timer) Fired() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.fired
}
