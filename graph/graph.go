// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

// Package graph provides deferred evaluation of batches of lazy computation
// nodes. A [Node] describes a call without executing it; [Compute] evaluates
// a whole batch at once under a pluggable [Scheduler] strategy.
//
// Nodes may depend on other nodes, forming a directed acyclic graph by
// construction: dependencies must exist before the nodes that use them, so
// cycles cannot be expressed. Shared dependencies are evaluated once per
// batch.
package graph

import (
	"context"
	"runtime"
	"sync/atomic"
)

type constError string

func (e constError) Error() string {
	return string(e)
}

const ErrUnknownScheduler = constError("unknown scheduler")
const ErrNotComputed = constError("node has not been computed")

// nodeSeq orders nodes by creation so scheduler dispatch is deterministic.
var nodeSeq atomic.Uint64

// A Node is a deferred computation: a function that has been described but
// not yet executed. Create nodes with [Defer] and execute them with
// [Compute]; afterwards the result is available from [Node.Value].
type Node struct {
	seq      uint64
	fn       func(ctx context.Context) (any, error)
	deps     []*Node
	computed bool
	value    any
	err      error
}

// Defer wraps fn as a lazy node. Any dependency nodes are guaranteed to
// have been computed before fn runs, so fn may read their values via
// [Node.Value]. fn itself is not called until the node is passed to
// [Compute], directly or as a dependency.
func Defer(fn func(ctx context.Context) (any, error), deps ...*Node) *Node {
	if fn == nil {
		panic("deferred function must be non-nil")
	}
	return &Node{
		seq:  nodeSeq.Add(1),
		fn:   fn,
		deps: deps,
	}
}

// Value returns the node's result. It returns [ErrNotComputed] if the node
// has not yet been evaluated by [Compute].
func (n *Node) Value() (any, error) {
	if !n.computed {
		return nil, ErrNotComputed
	}
	return n.value, n.err
}

// run executes the node's function once and records the outcome. Nodes
// already computed in an earlier batch are skipped.
func (n *Node) run(ctx context.Context) error {
	if n.computed {
		return n.err
	}
	n.value, n.err = n.fn(ctx)
	n.computed = true
	return n.err
}

// ComputeOptions parametrize one call to [Compute].
type ComputeOptions struct {
	// Workers bounds concurrent node evaluation for schedulers that run
	// nodes in parallel. Zero or negative means one worker per available
	// CPU.
	Workers int

	// Scheduler selects the evaluation strategy. Nil means [Workers], the
	// default concurrent strategy. Use [Lookup] to resolve a strategy by
	// name.
	Scheduler Scheduler
}

// Compute evaluates the given nodes and their transitive dependencies in
// one batch. It returns the first evaluation error, after which remaining
// nodes are left uncomputed. Node results, including errors, remain
// readable through [Node.Value] either way.
func Compute(ctx context.Context, nodes []*Node, opts ComputeOptions) error {
	ordered := toposort(nodes)
	sched := opts.Scheduler
	if sched == nil {
		sched = Workers
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return sched.Run(ctx, ordered, workers)
}

// toposort returns the transitive closure of nodes in an order that places
// every dependency before its dependents, deduplicating shared nodes. The
// graph is acyclic by construction, so the walk always terminates.
func toposort(nodes []*Node) []*Node {
	var ordered []*Node
	seen := make(map[*Node]struct{})
	var visit func(n *Node)
	visit = func(n *Node) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		for _, d := range n.deps {
			visit(d)
		}
		ordered = append(ordered, n)
	}
	for _, n := range nodes {
		visit(n)
	}
	return ordered
}
