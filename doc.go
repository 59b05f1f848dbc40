// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

// Package xyzpy evaluates a function over all combinations of named
// parameter ranges and assembles the results into an N-dimensional tree
// whose axes correspond, in order, to the parameter ranges.
//
// The combination list defines a Cartesian grid: each entry contributes one
// output dimension whose length is the number of values in that entry. A
// call like
//
//	combos := xyzpy.Combos{
//		xyzpy.C("a", 1, 2),
//		xyzpy.C("b", 10, 20, 30),
//	}
//	tree, err := xyzpy.Run(ctx, fn, combos, nil, nil)
//
// evaluates fn six times and returns a 2x3 [Tree] in which the result of
// fn with a=2, b=10 sits at index (1, 0). Result placement is always by
// grid index, never by completion order, so every execution backend yields
// an identically shaped and identically ordered tree.
//
// Five backends are available behind the same interface: synchronous
// sequential execution (the default), an implicit worker pool created for
// the duration of the call, an MPI-rank-style fixed pool with an explicit
// worker count, a caller-supplied [Pool] (generic or distributed), and
// deferred evaluation through the [github.com/adamcallison/xyzpy/graph]
// package. Backend selection is controlled by [Options] and resolved once
// at the start of each call.
//
// Functions that produce several output variables return a [Tuple]; use
// [RunSplit] to unzip such results into one tree per variable.
package xyzpy
