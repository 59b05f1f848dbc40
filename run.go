// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package xyzpy

import (
	"context"
	"fmt"
	"maps"

	"github.com/grailbio/base/log"

	"github.com/adamcallison/xyzpy/graph"
	"github.com/adamcallison/xyzpy/internal/workpool"
)

// Parallel selects among the execution backends that this package creates
// itself. A caller-supplied [Options.Pool] takes precedence over any
// Parallel value.
type Parallel int

const (
	// ParallelNone evaluates sequentially on the calling goroutine unless
	// another option (worker count, scheduler, pool) selects a backend.
	ParallelNone Parallel = iota

	// ParallelAuto runs grid points on a worker pool created for the call,
	// sized automatically unless [Options.NumWorkers] is set. Progress
	// advances in completion order while results stay in grid order.
	ParallelAuto

	// ParallelMPI runs grid points on a fixed pool of workers pinned for
	// the duration of the call, in the style of an MPI rank pool. Results
	// are collected in grid traversal order.
	ParallelMPI

	// ParallelGraph defers every grid point as a lazy node and evaluates
	// the whole batch with a [graph] scheduler strategy.
	ParallelGraph
)

// Options configure one evaluation call. The zero value selects sequential
// execution with no progress reporting.
type Options struct {
	// Parallel picks an execution backend; see the [Parallel] constants.
	Parallel Parallel

	// NumWorkers bounds worker count for the pool and graph backends. Zero
	// means automatic. A non-zero value implies [ParallelAuto] when no
	// other backend is selected.
	NumWorkers int

	// Scheduler is a concrete graph evaluation strategy. Setting it (or
	// SchedulerName) implies [ParallelGraph].
	Scheduler graph.Scheduler

	// SchedulerName is a named graph strategy, resolved through
	// [graph.Lookup] before any work is submitted. An unrecognized name
	// fails the call immediately.
	SchedulerName string

	// Pool is a caller-supplied execution resource. When set it overrides
	// Parallel. The pool's lifecycle remains the caller's responsibility.
	// A pool that also implements [DistributedPool] is drained in
	// completion order.
	Pool Pool

	// Progress receives evaluation progress. Nil means no reporting.
	Progress ProgressSink

	// HideProgress suppresses the configured Progress sink.
	HideProgress bool
}

// backendKind is the closed set of execution backends. Exactly one kind is
// selected per call, by fixed precedence, before any work is submitted.
type backendKind int

const (
	backendSequential backendKind = iota
	backendDistributed
	backendGeneric
	backendMPI
	backendGraph
	backendProcess
)

func (k backendKind) String() string {
	switch k {
	case backendSequential:
		return "sequential"
	case backendDistributed:
		return "distributed-pool"
	case backendGeneric:
		return "generic-pool"
	case backendMPI:
		return "mpi-pool"
	case backendGraph:
		return "graph"
	case backendProcess:
		return "process-pool"
	}
	return "unknown"
}

// Run evaluates fn over every combination of the given parameter ranges,
// merged with constants, and returns the results as a [Tree] whose
// dimensions follow the combination list in order.
//
// The backend is chosen by opts (nil means sequential): a caller-supplied
// pool wins over everything, then an explicit [Parallel] mode, then an
// implicit worker pool when only a worker count is given, and finally
// sequential execution. Whatever the backend, leaf (i, j, ...) of the
// result always holds fn evaluated at value i of the first combination,
// value j of the second, and so on.
//
// Backend execution errors are returned as the backend produced them; this
// layer adds no retry or translation. On error no tree is returned, even if
// some grid points had already resolved.
func Run(ctx context.Context, fn Func, combos Combos, constants Args, opts *Options) (*Tree, error) {
	if opts == nil {
		opts = &Options{}
	}
	if err := combos.Validate(); err != nil {
		return nil, err
	}
	if err := combos.validateConstants(constants); err != nil {
		return nil, err
	}
	// Resolve any named scheduler up front so a bad name fails before any
	// submission, not on the graph path alone.
	scheduler := opts.Scheduler
	if scheduler == nil && opts.SchedulerName != "" {
		var err error
		scheduler, err = graph.Lookup(opts.SchedulerName)
		if err != nil {
			return nil, err
		}
	}

	n := combos.Size()
	kind := chooseBackend(opts, scheduler)
	log.Debug.Printf("xyzpy: evaluating %d combinations on %s backend", n, kind)

	progress := opts.Progress
	if progress == nil || opts.HideProgress {
		progress = NopProgress
	}
	progress.Start(n)
	defer progress.Finish()

	var values []any
	var err error
	switch kind {
	case backendDistributed:
		values, err = runDistributed(ctx, fn, combos, constants, opts.Pool.(DistributedPool), progress)
	case backendGeneric:
		values, err = runPooled(ctx, fn, combos, constants, opts.Pool, progress)
	case backendMPI:
		pool := newScopedPool(ctx, opts.NumWorkers, n)
		defer pool.Close()
		values, err = runPooled(ctx, fn, combos, constants, pool, progress)
	case backendGraph:
		values, err = runGraph(ctx, fn, combos, constants, scheduler, opts.NumWorkers, progress)
	case backendProcess:
		values, err = runProcess(ctx, fn, combos, constants, opts.NumWorkers, n, progress)
	default:
		values, err = runSequential(ctx, fn, combos, constants, progress)
	}
	if err != nil {
		return nil, err
	}
	return newTree(combos.shape(), values), nil
}

// RunSplit is [Run] for functions returning a [Tuple] of output variables:
// the result tree is unzipped into one same-shaped tree per variable.
func RunSplit(ctx context.Context, fn Func, combos Combos, constants Args, opts *Options) ([]*Tree, error) {
	tree, err := Run(ctx, fn, combos, constants, opts)
	if err != nil {
		return nil, err
	}
	return tree.Unzip()
}

// chooseBackend applies the selection precedence: caller pool (distributed
// before generic), explicit MPI or graph mode, implicit process pool when
// parallelism is requested, sequential otherwise.
func chooseBackend(opts *Options, scheduler graph.Scheduler) backendKind {
	switch {
	case opts.Pool != nil:
		if _, ok := opts.Pool.(DistributedPool); ok {
			return backendDistributed
		}
		return backendGeneric
	case opts.Parallel == ParallelMPI:
		return backendMPI
	case opts.Parallel == ParallelGraph || scheduler != nil:
		return backendGraph
	case opts.Parallel == ParallelAuto || opts.NumWorkers > 0:
		return backendProcess
	default:
		return backendSequential
	}
}

// submitFunc produces one pending-work handle for one fully merged argument
// assignment. The assignment is owned by the callee.
type submitFunc func(ctx context.Context, args Args) (Handle, error)

// nestedSubmit walks the combination list head-to-tail, binding one value
// of the head entry per iteration and recursing on the tail, so handles are
// appended to out in row-major grid order. At the innermost entry it merges
// each value into a fresh copy of the accumulated assignment and submits.
// In direct (sequential) mode submission executes the call on the spot,
// making evaluation order identical to traversal order.
func nestedSubmit(ctx context.Context, combos Combos, args Args, submit submitFunc, out []Handle) ([]Handle, error) {
	head, rest := combos[0], combos[1:]
	if len(rest) == 0 {
		for _, v := range head.Values {
			leaf := maps.Clone(args)
			leaf[head.Name] = v
			h, err := submit(ctx, leaf)
			if err != nil {
				return nil, err
			}
			out = append(out, h)
		}
		return out, nil
	}
	var err error
	for _, v := range head.Values {
		args[head.Name] = v
		out, err = nestedSubmit(ctx, rest, args, submit, out)
		if err != nil {
			return nil, err
		}
	}
	delete(args, head.Name)
	return out, nil
}

// submitAll runs a full nested submission over the grid, starting from the
// constants assignment.
func submitAll(ctx context.Context, combos Combos, constants Args, submit submitFunc) ([]Handle, error) {
	args := maps.Clone(constants)
	if args == nil {
		args = make(Args, len(combos))
	}
	return nestedSubmit(ctx, combos, args, submit, make([]Handle, 0, combos.Size()))
}

// collect resolves every handle in grid order. The first failed resolution
// aborts collection; earlier results are kept in memory but never returned,
// and later handles are left to their backend.
func collect(handles []Handle, resolve func(Handle) (any, error)) ([]any, error) {
	values := make([]any, len(handles))
	for i, h := range handles {
		v, err := resolve(h)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func bindTask(fn Func, args Args) Task {
	return func(ctx context.Context) (any, error) {
		return fn(ctx, args)
	}
}

// runSequential evaluates every grid point synchronously during the
// submission walk itself; handles are already concrete values and need no
// collection step. Progress advances as each call returns.
func runSequential(ctx context.Context, fn Func, combos Combos, constants Args, progress ProgressSink) ([]any, error) {
	handles, err := submitAll(ctx, combos, constants, func(ctx context.Context, args Args) (Handle, error) {
		v, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		progress.Step()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	values := make([]any, len(handles))
	for i, h := range handles {
		values[i] = h
	}
	return values, nil
}

// runPooled submits every grid point to pool and resolves the handles in
// grid order through the two-try result accessor. It serves both
// caller-supplied generic pools and the MPI-style pool created per call.
func runPooled(ctx context.Context, fn Func, combos Combos, constants Args, pool Pool, progress ProgressSink) ([]any, error) {
	handles, err := submitAll(ctx, combos, constants, func(ctx context.Context, args Args) (Handle, error) {
		return pool.Submit(ctx, bindTask(fn, args))
	})
	if err != nil {
		return nil, err
	}
	return collect(handles, func(h Handle) (any, error) {
		v, err := resolveHandle(ctx, h)
		if err != nil {
			return nil, err
		}
		progress.Step()
		return v, nil
	})
}

// runDistributed submits to a caller-supplied distributed pool, then drains
// completions in arrival order, caching each result the moment it lands so
// that collection never blocks on a handle twice. Progress follows
// completion order; the returned values still follow grid order.
func runDistributed(ctx context.Context, fn Func, combos Combos, constants Args, pool DistributedPool, progress ProgressSink) ([]any, error) {
	handles, err := submitAll(ctx, combos, constants, func(ctx context.Context, args Args) (Handle, error) {
		return pool.Submit(ctx, bindTask(fn, args))
	})
	if err != nil {
		return nil, err
	}
	cache := make(map[Handle]Completion, len(handles))
	completions := pool.AsCompleted(ctx, handles)
	for range handles {
		select {
		case c, ok := <-completions:
			if !ok {
				return nil, fmt.Errorf("completion stream closed with %d of %d results outstanding", len(handles)-len(cache), len(handles))
			}
			cache[c.Handle] = c
			progress.Step()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return collect(handles, func(h Handle) (any, error) {
		c, ok := cache[h]
		if !ok {
			return nil, fmt.Errorf("no completion recorded for handle %v", h)
		}
		return c.Value, c.Err
	})
}

// runProcess creates a worker pool scoped to the call, drains completions
// in arrival order for progress, then collects in grid order. Pool task
// handles memoize their results, so collection after the drain never
// blocks.
func runProcess(ctx context.Context, fn Func, combos Combos, constants Args, workers, n int, progress ProgressSink) ([]any, error) {
	pool := workpool.New(ctx, workers, n)
	defer pool.Close()
	handles, err := submitAll(ctx, combos, constants, func(ctx context.Context, args Args) (Handle, error) {
		return pool.Submit(ctx, bindTask(fn, args))
	})
	if err != nil {
		return nil, err
	}
	for range handles {
		select {
		case <-pool.Completions():
			progress.Step()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return collect(handles, func(h Handle) (any, error) {
		return h.(*workpool.Task).Result(ctx)
	})
}

// runGraph defers every grid point as a lazy node, computes the batch in
// one call under the selected strategy, and reads the node values back in
// grid order.
func runGraph(ctx context.Context, fn Func, combos Combos, constants Args, scheduler graph.Scheduler, workers int, progress ProgressSink) ([]any, error) {
	handles, err := submitAll(ctx, combos, constants, func(ctx context.Context, args Args) (Handle, error) {
		return graph.Defer(bindTask(fn, args)), nil
	})
	if err != nil {
		return nil, err
	}
	nodes := make([]*graph.Node, len(handles))
	for i, h := range handles {
		nodes[i] = h.(*graph.Node)
	}
	if err := graph.Compute(ctx, nodes, graph.ComputeOptions{
		Workers:   workers,
		Scheduler: scheduler,
	}); err != nil {
		return nil, err
	}
	return collect(handles, func(h Handle) (any, error) {
		v, err := h.(*graph.Node).Value()
		if err != nil {
			return nil, err
		}
		progress.Step()
		return v, nil
	})
}

// scopedPool adapts [workpool.Pool] to the [Pool] interface for backends
// that create their own pool per call.
type scopedPool struct {
	wp *workpool.Pool
}

func newScopedPool(ctx context.Context, workers, capacity int) scopedPool {
	return scopedPool{wp: workpool.New(ctx, workers, capacity)}
}

func (p scopedPool) Submit(ctx context.Context, task Task) (Handle, error) {
	return p.wp.Submit(ctx, task)
}

func (p scopedPool) Close() {
	p.wp.Close()
}
