package uiloop

import (
	"context"
	"testing"
	"time"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	return l, cancel
}

func TestPostRunsInOrder(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	var got []int
	done := make(chan struct{})
	for i := 1; i <= 3; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Posted tasks did not run")
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("Expected ordered execution [1 2 3], got %v", got)
	}
}

func TestPostDelayedFires(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	done := make(chan struct{})
	tm := l.PostDelayed(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Delayed task did not fire")
	}
	if !tm.Fired() {
		t.Fatal("Expected Fired()=true after callback ran")
	}
}

func TestCancelPreventsCallback(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	fired := make(chan struct{})
	tm := l.PostDelayed(20*time.Millisecond, func() { close(fired) })
	tm.Cancel()

	select {
	case <-fired:
		t.Fatal("Cancelled timer must not fire")
	case <-time.After(100 * time.Millisecond):
	}
	if tm.Fired() {
		t.Fatal("Expected Fired()=false after Cancel")
	}
}

func TestCancelAfterExpiryQueuedIsNoOp(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	// Block the loop so the expiry is queued but not yet executed, then
	// cancel. The queued callback must observe the cancellation.
	release := make(chan struct{})
	l.Post(func() { <-release })

	fired := make(chan struct{})
	tm := l.PostDelayed(time.Millisecond, func() { close(fired) })
	time.Sleep(20 * time.Millisecond)
	tm.Cancel()
	close(release)

	select {
	case <-fired:
		t.Fatal("Callback ran despite Cancel before execution")
	case <-time.After(100 * time.Millisecond):
	}
}
