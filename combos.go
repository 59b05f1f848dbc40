// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package xyzpy

import (
	"context"
	"fmt"
	"slices"
)

// Args is a single full argument assignment passed to a [Func]: every
// combination name bound to one of its values, merged with the constants
// supplied to [Run].
type Args map[string]any

// Func is the user function evaluated once per grid point. It receives the
// argument assignment for that point and returns a single result value. A
// function with several output variables should return a [Tuple] so that
// [RunSplit] can separate them. Func may be called concurrently by parallel
// backends and must be safe for that.
type Func func(ctx context.Context, args Args) (any, error)

// A Combo names one function argument and lists the values it ranges over.
// The order of Values is the order of the corresponding output dimension.
type Combo struct {
	Name   string
	Values []any
}

// Combos is an ordered combination list. Order is significant: entry i
// becomes dimension i of the result tree, and earlier entries vary more
// slowly than later ones (row-major nesting).
type Combos []Combo

// C builds a single [Combo]. It is a convenience for writing literal
// combination lists.
func C(name string, values ...any) Combo {
	return Combo{Name: name, Values: values}
}

// CombosFromMap builds a combination list from a map, ordering entries by
// name. Go maps carry no order, so callers that care about a particular
// dimension order should construct [Combos] directly.
func CombosFromMap(m map[string][]any) Combos {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	combos := make(Combos, 0, len(names))
	for _, name := range names {
		combos = append(combos, Combo{Name: name, Values: m[name]})
	}
	return combos
}

// Validate checks that the combination list is non-empty, that every name is
// unique, and that every value sequence is non-empty.
func (cs Combos) Validate() error {
	if len(cs) == 0 {
		return ErrNoCombos
	}
	seen := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateName, c.Name)
		}
		seen[c.Name] = struct{}{}
		if len(c.Values) == 0 {
			return fmt.Errorf("%w: %q", ErrEmptyValues, c.Name)
		}
	}
	return nil
}

// validateConstants rejects constants that shadow a combination name. The
// alternative, silently letting one of the two win, makes a grid dimension
// meaningless without any indication to the caller.
func (cs Combos) validateConstants(constants Args) error {
	for _, c := range cs {
		if _, ok := constants[c.Name]; ok {
			return fmt.Errorf("%w: %q", ErrConstantCollision, c.Name)
		}
	}
	return nil
}

// shape returns the grid dimensions implied by the combination list.
func (cs Combos) shape() []int {
	shape := make([]int, len(cs))
	for i, c := range cs {
		shape[i] = len(c.Values)
	}
	return shape
}

// Size returns the total number of grid points.
func (cs Combos) Size() int {
	n := 1
	for _, c := range cs {
		n *= len(c.Values)
	}
	return n
}
