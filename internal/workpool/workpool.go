// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

// Package workpool implements a bounded pool of worker goroutines with
// future-style task handles and an arrival-order completion stream. Pools
// are created for the duration of one evaluation call and torn down with
// [Pool.Close].
package workpool

import (
	"context"
	"runtime"
	"sync"

	"github.com/gammazero/deque"
)

type constError string

func (e constError) Error() string {
	return string(e)
}

// ErrClosed is returned when a task's result is requested after the pool
// was closed without the task ever running, or when submitting to a closed
// pool.
const ErrClosed = constError("pool is closed")

// A Task is the handle for one submitted function. It is a memoizing
// future: the first completed execution fixes the result, and Result may be
// called any number of times afterwards.
type Task struct {
	pool  *Pool
	fn    func(ctx context.Context) (any, error)
	done  chan struct{}
	value any
	err   error
}

// Result blocks until the task has finished and returns its value and
// error. It returns early with the context's error if ctx is canceled, or
// with [ErrClosed] if the pool shuts down before the task runs.
func (t *Task) Result(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.value, t.err
	default:
	}
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.pool.ctx.Done():
		// The task may have completed concurrently with pool shutdown.
		select {
		case <-t.done:
			return t.value, t.err
		default:
			return nil, ErrClosed
		}
	}
}

func (t *Task) run(ctx context.Context) {
	t.value, t.err = t.fn(ctx)
	close(t.done)
}

// A Pool runs submitted tasks on a fixed number of worker goroutines.
// Submission never blocks: pending tasks wait in an unbounded queue until a
// worker frees up.
type Pool struct {
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	completions chan *Task
	signal      chan struct{}

	mu    sync.Mutex
	queue deque.Deque[*Task]
}

// New creates a pool with the given worker count, started immediately.
// A non-positive count means one worker per available CPU. capacity must be
// at least the number of tasks that will be submitted: the completion
// stream is buffered to that size so that workers never stall on callers
// that resolve results in submission order rather than draining
// [Pool.Completions].
func New(ctx context.Context, workers, capacity int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		ctx:         ctx,
		cancel:      cancel,
		completions: make(chan *Task, capacity),
		signal:      make(chan struct{}, 1),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues fn for execution and returns its future handle. The
// returned task completes in pool-arrival order relative to worker
// availability; its result is retrieved with [Task.Result] or observed via
// [Pool.Completions].
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) (any, error)) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.ctx.Err() != nil {
		return nil, ErrClosed
	}
	t := &Task{pool: p, fn: fn, done: make(chan struct{})}
	p.mu.Lock()
	p.queue.PushBack(t)
	p.mu.Unlock()
	p.wake()
	return t, nil
}

// Completions delivers every finished task in the order it completed. The
// channel is buffered to the capacity given to [New], so consuming it is
// optional.
func (p *Pool) Completions() <-chan *Task {
	return p.completions
}

// Close tears the pool down: queued tasks that have not started are
// abandoned, running tasks see their context canceled, and Close blocks
// until all workers have exited. Abandoned task handles resolve to
// [ErrClosed].
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) wake() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *Pool) next() *Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue.Len() == 0 {
		return nil
	}
	t := p.queue.PopFront()
	if p.queue.Len() > 0 {
		// Pass the wakeup along for any other idle worker.
		p.wake()
	}
	return t
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		if p.ctx.Err() != nil {
			return
		}
		t := p.next()
		if t == nil {
			select {
			case <-p.signal:
				continue
			case <-p.ctx.Done():
				return
			}
		}
		t.run(p.ctx)
		select {
		case p.completions <- t:
		case <-p.ctx.Done():
			return
		}
	}
}
