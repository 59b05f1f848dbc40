// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package graph_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adamcallison/xyzpy/graph"
)

func TestValueBeforeCompute(t *testing.T) {
	chk := require.New(t)
	node := graph.Defer(func(ctx context.Context) (any, error) {
		return 1, nil
	})
	_, err := node.Value()
	chk.ErrorIs(err, graph.ErrNotComputed)
}

func TestComputeSync(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()

	var order []int
	nodes := make([]*graph.Node, 5)
	for i := range nodes {
		i := i
		nodes[i] = graph.Defer(func(ctx context.Context) (any, error) {
			order = append(order, i)
			return i * 10, nil
		})
	}
	chk.NoError(graph.Compute(ctx, nodes, graph.ComputeOptions{Scheduler: graph.Sync}))
	chk.Equal([]int{0, 1, 2, 3, 4}, order)
	for i, node := range nodes {
		v, err := node.Value()
		chk.NoError(err)
		chk.Equal(i*10, v)
	}
}

func TestComputeWorkers(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()

	nodes := make([]*graph.Node, 50)
	for i := range nodes {
		i := i
		nodes[i] = graph.Defer(func(ctx context.Context) (any, error) {
			return i, nil
		})
	}
	chk.NoError(graph.Compute(ctx, nodes, graph.ComputeOptions{Workers: 4}))
	for i, node := range nodes {
		v, err := node.Value()
		chk.NoError(err)
		chk.Equal(i, v)
	}
}

func TestDependenciesComputeFirst(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()

	base := graph.Defer(func(ctx context.Context) (any, error) {
		return 7, nil
	})
	double := graph.Defer(func(ctx context.Context) (any, error) {
		v, err := base.Value()
		if err != nil {
			return nil, err
		}
		return v.(int) * 2, nil
	}, base)
	square := graph.Defer(func(ctx context.Context) (any, error) {
		v, err := base.Value()
		if err != nil {
			return nil, err
		}
		return v.(int) * v.(int), nil
	}, base)

	for _, scheduler := range []graph.Scheduler{graph.Sync, graph.Workers} {
		chk.NoError(graph.Compute(ctx, []*graph.Node{double, square}, graph.ComputeOptions{
			Workers:   2,
			Scheduler: scheduler,
		}))
	}
	v, err := double.Value()
	chk.NoError(err)
	chk.Equal(14, v)
	v, err = square.Value()
	chk.NoError(err)
	chk.Equal(49, v)
}

func TestSharedDependencyComputesOnce(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()

	var calls atomic.Int64
	shared := graph.Defer(func(ctx context.Context) (any, error) {
		calls.Add(1)
		return 3, nil
	})
	users := make([]*graph.Node, 4)
	for i := range users {
		i := i
		users[i] = graph.Defer(func(ctx context.Context) (any, error) {
			v, err := shared.Value()
			if err != nil {
				return nil, err
			}
			return v.(int) + i, nil
		}, shared)
	}
	chk.NoError(graph.Compute(ctx, users, graph.ComputeOptions{Workers: 4}))
	chk.Equal(int64(1), calls.Load())
	for i, node := range users {
		v, err := node.Value()
		chk.NoError(err)
		chk.Equal(3+i, v)
	}
}

func TestComputeErrorAbortsBatch(t *testing.T) {
	errBoom := errors.New("boom")
	for _, scheduler := range []graph.Scheduler{graph.Sync, graph.Workers} {
		t.Run("", func(t *testing.T) {
			chk := require.New(t)
			ctx := context.Background()

			bad := graph.Defer(func(ctx context.Context) (any, error) {
				return nil, errBoom
			})
			dependent := graph.Defer(func(ctx context.Context) (any, error) {
				return "unreachable", nil
			}, bad)
			err := graph.Compute(ctx, []*graph.Node{dependent}, graph.ComputeOptions{
				Workers:   2,
				Scheduler: scheduler,
			})
			chk.ErrorIs(err, errBoom)
			_, err = dependent.Value()
			chk.ErrorIs(err, graph.ErrNotComputed)
		})
	}
}

func TestLookup(t *testing.T) {
	chk := require.New(t)

	s, err := graph.Lookup("sync")
	chk.NoError(err)
	chk.Equal(graph.Sync, s)
	s, err = graph.Lookup("workers")
	chk.NoError(err)
	chk.Equal(graph.Workers, s)

	_, err = graph.Lookup("z")
	chk.ErrorIs(err, graph.ErrUnknownScheduler)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	chk := require.New(t)
	graph.Register("custom-once", graph.Sync)
	s, err := graph.Lookup("custom-once")
	chk.NoError(err)
	chk.Equal(graph.Sync, s)
	chk.Panics(func() {
		graph.Register("custom-once", graph.Sync)
	})
}
