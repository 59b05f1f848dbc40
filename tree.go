// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package xyzpy

import (
	"fmt"
	"slices"
)

// Tuple is a multi-valued leaf: one result per output variable of the
// evaluated function. [Tree.Unzip] splits a tree of Tuple leaves into one
// tree per position.
type Tuple []any

// A Tree is an N-dimensional result grid. It stores leaves in a flat slice
// in row-major order together with the grid shape, which preserves the
// nesting correspondence with the combination list that produced it:
// dimension i of the tree is combination entry i, and the leaf for a given
// assignment sits at the index formed by each value's position in its
// combination entry.
type Tree struct {
	shape  []int
	values []any
}

func newTree(shape []int, values []any) *Tree {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(values) {
		panic(fmt.Sprintf("tree shape %v does not hold %d values", shape, len(values)))
	}
	return &Tree{shape: shape, values: values}
}

// Shape returns the length of each dimension.
func (t *Tree) Shape() []int {
	return slices.Clone(t.shape)
}

// Size returns the total number of leaves.
func (t *Tree) Size() int {
	return len(t.values)
}

// At returns the leaf at the given grid index. It panics if the number of
// indices does not match the tree's rank or an index is out of range, the
// same way slice indexing does.
func (t *Tree) At(index ...int) any {
	if len(index) != len(t.shape) {
		panic(fmt.Sprintf("index rank %d does not match tree rank %d", len(index), len(t.shape)))
	}
	flat := 0
	for i, x := range index {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of range for dimension %d of length %d", x, i, t.shape[i]))
		}
		flat = flat*t.shape[i] + x
	}
	return t.values[flat]
}

// Flatten returns all leaves in row-major order.
func (t *Tree) Flatten() []any {
	return slices.Clone(t.values)
}

// Nested reconstructs the tree as nested []any slices, one nesting level per
// dimension. A rank-1 tree yields a plain []any of leaves.
func (t *Tree) Nested() any {
	return nest(t.shape, t.values)
}

func nest(shape []int, values []any) []any {
	if len(shape) == 1 {
		return slices.Clone(values)
	}
	stride := len(values) / shape[0]
	out := make([]any, shape[0])
	for i := range out {
		out[i] = nest(shape[1:], values[i*stride:(i+1)*stride])
	}
	return out
}

// Unzip splits a tree whose leaves are all [Tuple] values of one common
// arity k into k trees of the same shape, where tree j holds component j of
// every leaf. It is the structural inverse of zipping the returned trees
// leaf by leaf. A non-Tuple leaf or a leaf whose arity differs from the
// first leaf's is reported as an error rather than truncated.
func (t *Tree) Unzip() ([]*Tree, error) {
	first, ok := t.values[0].(Tuple)
	if !ok {
		return nil, fmt.Errorf("%w: leaf 0 is %T", ErrNotTuple, t.values[0])
	}
	arity := len(first)
	split := make([][]any, arity)
	for j := range split {
		split[j] = make([]any, len(t.values))
	}
	for i, v := range t.values {
		tup, ok := v.(Tuple)
		if !ok {
			return nil, fmt.Errorf("%w: leaf %d is %T", ErrNotTuple, i, v)
		}
		if len(tup) != arity {
			return nil, fmt.Errorf("%w: leaf %d has arity %d, want %d", ErrRaggedTuple, i, len(tup), arity)
		}
		for j, x := range tup {
			split[j][i] = x
		}
	}
	trees := make([]*Tree, arity)
	for j := range trees {
		trees[j] = newTree(t.shape, split[j])
	}
	return trees, nil
}
