// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package xyzpy_test

import (
	"context"
	"fmt"

	"github.com/adamcallison/xyzpy"
)

// Evaluates a small function over a 2x3 parameter grid and reads results
// back by grid index.
func Example() {
	ctx := context.Background()

	fn := func(ctx context.Context, args xyzpy.Args) (any, error) {
		return args["x"].(int) * args["y"].(int), nil
	}
	combos := xyzpy.Combos{
		xyzpy.C("x", 2, 3),
		xyzpy.C("y", 10, 20, 30),
	}

	tree, err := xyzpy.Run(ctx, fn, combos, nil, nil)
	if err != nil {
		panic(err)
	}
	fmt.Println(tree.Shape())
	fmt.Println(tree.At(0, 0), tree.At(1, 2))
	fmt.Println(tree.Nested())
	// Output:
	// [2 3]
	// 20 90
	// [[20 40 60] [30 60 90]]
}

// Runs a two-output function in parallel and splits the result into one
// tree per output variable.
func Example_split() {
	ctx := context.Background()

	fn := func(ctx context.Context, args xyzpy.Args) (any, error) {
		x := args["x"].(int)
		return xyzpy.Tuple{x + args["c"].(int), x % 2}, nil
	}
	combos := xyzpy.Combos{xyzpy.C("x", 1, 2, 3, 4)}
	constants := xyzpy.Args{"c": 100}

	trees, err := xyzpy.RunSplit(ctx, fn, combos, constants, &xyzpy.Options{
		NumWorkers: 2,
	})
	if err != nil {
		panic(err)
	}
	fmt.Println(trees[0].Nested())
	fmt.Println(trees[1].Nested())
	// Output:
	// [101 102 103 104]
	// [1 0 1 0]
}
