package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubmitDropWhenBusy(t *testing.T) {
	p := New(1)
	defer p.Close()
	ctx := context.Background()

	block := make(chan struct{})
	done := make(chan struct{})
	ok := p.Submit(ctx, func(context.Context) (string, error) {
		<-block
		return "first", nil
	}, func(string, error) { close(done) })
	if !ok {
		t.Fatal("first submit should succeed")
	}

	// One more may land in the 1-slot queue; the next must drop.
	ok2 := p.Submit(ctx, func(context.Context) (string, error) { return "", nil }, func(string, error) {})
	ok3 := p.Submit(ctx, func(context.Context) (string, error) { return "", nil }, func(string, error) {})
	if ok2 && ok3 {
		t.Fatal("expected at least one submit to drop due to full queue")
	}

	close(block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first job never completed")
	}
}

func TestCallbackReceivesResult(t *testing.T) {
	p := New(2)
	defer p.Close()

	results := make(chan string, 1)
	errs := make(chan error, 1)
	p.Submit(context.Background(), func(context.Context) (string, error) {
		return "payload", nil
	}, func(value string, err error) {
		results <- value
		errs <- err
	})

	select {
	case v := <-results:
		if v != "payload" {
			t.Fatalf("Expected payload, got %q", v)
		}
		if err := <-errs; err != nil {
			t.Fatalf("Expected nil error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestDeadlineCutsOffSlowJob(t *testing.T) {
	p := New(1)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	p.Submit(ctx, func(ctx context.Context) (string, error) {
		time.Sleep(2 * time.Second)
		return "too late", nil
	}, func(_ string, err error) { errCh <- err })

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Expected deadline error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deadline was not enforced")
	}
}
