// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package workpool_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adamcallison/xyzpy/internal/workpool"
)

func TestSubmitAndResult(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	pool := workpool.New(ctx, 2, 10)
	defer pool.Close()

	tasks := make([]*workpool.Task, 10)
	for i := range tasks {
		i := i
		task, err := pool.Submit(ctx, func(ctx context.Context) (any, error) {
			return i * i, nil
		})
		chk.NoError(err)
		tasks[i] = task
	}
	for i, task := range tasks {
		v, err := task.Result(ctx)
		chk.NoError(err)
		chk.Equal(i*i, v)
	}
}

func TestResultIsMemoized(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	pool := workpool.New(ctx, 1, 1)
	defer pool.Close()

	var calls atomic.Int64
	task, err := pool.Submit(ctx, func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "done", nil
	})
	chk.NoError(err)
	for k := 0; k < 3; k++ {
		v, err := task.Result(ctx)
		chk.NoError(err)
		chk.Equal("done", v)
	}
	chk.Equal(int64(1), calls.Load())
}

func TestCompletionsDeliverEveryTask(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	const n = 25
	pool := workpool.New(ctx, 4, n)
	defer pool.Close()

	for i := 0; i < n; i++ {
		i := i
		_, err := pool.Submit(ctx, func(ctx context.Context) (any, error) {
			return i, nil
		})
		chk.NoError(err)
	}
	seen := make(map[int]bool, n)
	for j := 0; j < n; j++ {
		task := <-pool.Completions()
		v, err := task.Result(ctx)
		chk.NoError(err)
		seen[v.(int)] = true
	}
	chk.Len(seen, n)
}

func TestConcurrencyIsBounded(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	const workers = 3
	const n = 20
	pool := workpool.New(ctx, workers, n)
	defer pool.Close()

	var active, peak atomic.Int64
	tasks := make([]*workpool.Task, n)
	for i := range tasks {
		task, err := pool.Submit(ctx, func(ctx context.Context) (any, error) {
			a := active.Add(1)
			for {
				p := peak.Load()
				if a <= p || peak.CompareAndSwap(p, a) {
					break
				}
			}
			defer active.Add(-1)
			return nil, nil
		})
		chk.NoError(err)
		tasks[i] = task
	}
	for _, task := range tasks {
		_, err := task.Result(ctx)
		chk.NoError(err)
	}
	chk.LessOrEqual(peak.Load(), int64(workers))
}

func TestTaskErrorSurfacesUnmodified(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	pool := workpool.New(ctx, 1, 1)
	defer pool.Close()

	errBoom := errors.New("boom")
	task, err := pool.Submit(ctx, func(ctx context.Context) (any, error) {
		return nil, errBoom
	})
	chk.NoError(err)
	_, err = task.Result(ctx)
	chk.ErrorIs(err, errBoom)
}

func TestCloseAbandonsPendingTasks(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	pool := workpool.New(ctx, 1, 2)

	release := make(chan struct{})
	blocker, err := pool.Submit(ctx, func(ctx context.Context) (any, error) {
		select {
		case <-release:
			return "released", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	chk.NoError(err)
	pending, err := pool.Submit(ctx, func(ctx context.Context) (any, error) {
		return "never runs", nil
	})
	chk.NoError(err)

	pool.Close()

	_, err = blocker.Result(context.Background())
	chk.ErrorIs(err, context.Canceled)
	_, err = pending.Result(context.Background())
	chk.ErrorIs(err, workpool.ErrClosed)

	_, err = pool.Submit(ctx, func(ctx context.Context) (any, error) { return nil, nil })
	chk.ErrorIs(err, workpool.ErrClosed)
}
