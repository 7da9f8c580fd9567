// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"errors"
	"fmt"
)

// Sentinel errors for document operations.
var (
	// ErrBlockNotFound indicates a block id is not present in the scope.
	ErrBlockNotFound = errors.New("block not found")

	// ErrDuplicateBlock indicates a block id is already used in the scope.
	ErrDuplicateBlock = errors.New("duplicate block id")

	// ErrConnectionNotFound indicates a connection reference is unknown.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrDuplicateConnection indicates a connection reference is already used.
	ErrDuplicateConnection = errors.New("duplicate connection id")

	// ErrSelfConnection indicates an attempt to connect an anchor to itself.
	ErrSelfConnection = errors.New("cannot connect an anchor to itself")

	// ErrScopeNotFound indicates a scope key has no diagram.
	ErrScopeNotFound = errors.New("scope not found")

	// ErrInvalidKind indicates an unknown block kind.
	ErrInvalidKind = errors.New("invalid block kind")

	// ErrInvalidSide indicates an unknown anchor side.
	ErrInvalidSide = errors.New("invalid anchor side")

	// ErrEmptyName indicates a block was created without a canonical name.
	ErrEmptyName = errors.New("block name is empty")
)

// BlockError wraps an error with the block that caused it.
type BlockError struct {
	// BlockID is the offending block.
	BlockID string

	// Scope is the scope the block was looked up in.
	Scope ScopeKey

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *BlockError) Error() string {
	return fmt.Sprintf("block %s in %s: %v", e.BlockID, e.Scope, e.Err)
}

// Unwrap returns the underlying error.
func (e *BlockError) Unwrap() error {
	return e.Err
}

func blockErr(scope ScopeKey, id string, err error) error {
	return &BlockError{BlockID: id, Scope: scope, Err: err}
}
