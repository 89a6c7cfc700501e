package worker

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
)

// Job is a blocking capture or OCR operation run on a pool goroutine. It
// must honor ctx cancellation.
type Job func(ctx context.Context) (string, error)

// ResultCallback is invoked on completion from a worker goroutine. The
// caller passes a closure that posts back into the UI loop; shared state is
// never touched from here directly.
type ResultCallback func(value string, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict
// back-pressure): a submit while a job is queued is dropped.
type Pool struct {
	jobs chan queued
	wg   sync.WaitGroup
}

type queued struct {
	ctx context.Context
	job Job
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size <= 0.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan queued, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for q := range p.jobs {
				value, err := runWithContext(q.ctx, q.job)
				slog.Debug("worker: job finished", "resultLen", len(value), "error", err)
				q.cb(value, err)
			}
		}()
	}
}

// Submit enqueues a job if the single-slot queue is free. Returns false
// when the job was dropped.
func (p *Pool) Submit(ctx context.Context, job Job, cb ResultCallback) bool {
	select {
	case p.jobs <- queued{ctx: ctx, job: job, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// runWithContext runs the job in a sub-goroutine so a ctx deadline is
// honored even when the job's blocking section cannot observe cancellation.
// On timeout the job keeps running in the background; its result is
// discarded.
func runWithContext(ctx context.Context, job Job) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		return job(ctx)
	}
	resCh := make(chan struct {
		value string
		err   error
	}, 1)
	go func() {
		value, err := job(ctx)
		resCh <- struct {
			value string
			err   error
		}{value, err}
	}()
	select {
	case r := <-resCh:
		return r.value, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
