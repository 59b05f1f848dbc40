// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package graph

import (
	"cmp"
	"context"
	"fmt"
	"sync"

	"github.com/addrummond/heap"
	"golang.org/x/sync/errgroup"
)

// A Scheduler evaluates one batch of nodes. Nodes arrive in topological
// order with dependencies before dependents; workers bounds concurrency for
// strategies that evaluate nodes in parallel.
type Scheduler interface {
	Run(ctx context.Context, nodes []*Node, workers int) error
}

// Sync evaluates nodes one at a time, in deterministic topological order,
// on the calling goroutine. The workers parameter is ignored.
var Sync Scheduler = syncScheduler{}

// Workers evaluates independent nodes concurrently on a bounded set of
// goroutines. Ready nodes are dispatched in creation order; completion
// order is not deterministic, but node results are keyed by node, never by
// completion.
var Workers Scheduler = workersScheduler{}

var (
	schedulersMu sync.RWMutex
	schedulers   = map[string]Scheduler{
		"sync":    Sync,
		"workers": Workers,
	}
)

// Register makes a scheduler strategy available to [Lookup] under the given
// name. It panics if the name is already taken.
func Register(name string, s Scheduler) {
	if s == nil {
		panic("scheduler must be non-nil")
	}
	schedulersMu.Lock()
	defer schedulersMu.Unlock()
	if _, ok := schedulers[name]; ok {
		panic(fmt.Sprintf("scheduler %q already registered", name))
	}
	schedulers[name] = s
}

// Lookup resolves a scheduler strategy by name. Built-in names are "sync"
// and "workers". An unrecognized name is a configuration error wrapping
// [ErrUnknownScheduler].
func Lookup(name string) (Scheduler, error) {
	schedulersMu.RLock()
	defer schedulersMu.RUnlock()
	s, ok := schedulers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheduler, name)
	}
	return s, nil
}

type syncScheduler struct{}

func (syncScheduler) Run(ctx context.Context, nodes []*Node, workers int) error {
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// readyNode adapts *Node to the heap's ordering interface. Ordering ready
// nodes by creation sequence keeps dispatch order deterministic even though
// the ready set is discovered incrementally.
type readyNode struct {
	n *Node
}

func (a *readyNode) Cmp(b *readyNode) int {
	return cmp.Compare(a.n.seq, b.n.seq)
}

type workersScheduler struct{}

func (workersScheduler) Run(ctx context.Context, nodes []*Node, workers int) error {
	// Track how many uncomputed dependencies each node is waiting on.
	// Nodes computed in an earlier batch count as satisfied.
	waiting := make(map[*Node]int, len(nodes))
	dependents := make(map[*Node][]*Node)
	var ready heap.Heap[readyNode, heap.Min]
	total := 0
	for _, n := range nodes {
		if n.computed {
			continue
		}
		total++
		c := 0
		for _, d := range n.deps {
			if !d.computed {
				c++
				dependents[d] = append(dependents[d], n)
			}
		}
		waiting[n] = c
		if c == 0 {
			heap.PushOrderable(&ready, readyNode{n: n})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	donec := make(chan *Node, total)
	completed := 0
	for completed < total {
		for {
			rn, ok := heap.PopOrderable(&ready)
			if !ok {
				break
			}
			n := rn.n
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					donec <- n
					return err
				}
				err := n.run(gctx)
				donec <- n
				return err
			})
		}
		select {
		case n := <-donec:
			completed++
			for _, dep := range dependents[n] {
				waiting[dep]--
				if waiting[dep] == 0 && n.err == nil {
					heap.PushOrderable(&ready, readyNode{n: dep})
				}
			}
		case <-gctx.Done():
			// A node failed or the caller canceled; outstanding
			// goroutines drain before we surface the error.
			return g.Wait()
		}
	}
	return g.Wait()
}
