// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package xyzpy

import (
	"context"
	"fmt"
)

// A Task is one fully bound function call, ready for a [Pool] to execute.
// The runner builds a Task per grid point by binding the user [Func] to the
// argument assignment for that point.
type Task func(ctx context.Context) (any, error)

// Handle is a pool's native reference to a submitted [Task]. The runner
// treats handles as opaque: it only ever passes them back to the pool that
// issued them or resolves them through [Future] or [Getter].
type Handle any

// A Pool is a caller-managed execution resource with submit semantics. The
// runner never closes or otherwise manages a caller-supplied Pool; it only
// submits tasks and resolves the returned handles. Ownership stays with the
// caller.
//
// Each returned [Handle] must satisfy [Future] or [Getter] so the result can
// be retrieved.
type Pool interface {
	Submit(ctx context.Context, task Task) (Handle, error)
}

// Future is the preferred result accessor for a pool [Handle]. Result
// blocks until the task has finished and returns its value and error. It
// must be safe to call more than once.
type Future interface {
	Result(ctx context.Context) (any, error)
}

// Getter is the fallback result accessor, for pools whose handles expose a
// get-style method instead of [Future].
type Getter interface {
	Get(ctx context.Context) (any, error)
}

// A Completion pairs a handle with the finished task's result, delivered in
// completion order by [DistributedPool.AsCompleted]. Carrying the value
// alongside the handle lets the runner cache results as they arrive instead
// of blocking a second time on handles whose results the pool may not
// memoize.
type Completion struct {
	Handle Handle
	Value  any
	Err    error
}

// A DistributedPool is a [Pool] that can additionally report task
// completions as they happen. Handles issued by a DistributedPool must be
// comparable, since the runner indexes cached completions by handle.
type DistributedPool interface {
	Pool

	// AsCompleted delivers one Completion per handle, in the order the
	// tasks finish, then closes the channel. The channel is abandoned if
	// ctx is canceled.
	AsCompleted(ctx context.Context, handles []Handle) <-chan Completion
}

// resolveHandle retrieves one task result, trying the [Future] accessor
// first and the [Getter] accessor second. Pools are only required to
// support one of the two families.
func resolveHandle(ctx context.Context, h Handle) (any, error) {
	switch v := h.(type) {
	case Future:
		return v.Result(ctx)
	case Getter:
		return v.Get(ctx)
	}
	return nil, fmt.Errorf("%w: %T implements neither Future nor Getter", ErrNoResultAccessor, h)
}
