// Copyright (c) Adam Callison. All rights reserved.
// Licensed under the MIT License.

package xyzpy

type constError string

func (e constError) Error() string {
	return string(e)
}

const ErrNoCombos = constError("no combinations given")
const ErrDuplicateName = constError("duplicate combination name")
const ErrEmptyValues = constError("combination has no values")
const ErrConstantCollision = constError("constant shadows combination name")
const ErrNoResultAccessor = constError("pool handle has no result accessor")
const ErrNotTuple = constError("leaf is not a tuple")
const ErrRaggedTuple = constError("tuple arity differs between leaves")
