// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"fmt"
	"strings"
)

// Geometry is a block's position and size in diagram coordinates.
type Geometry struct {
	X, Y          float64
	Width, Height float64
}

// clamp enforces the kind's minimum size.
func (g Geometry) clamp(kind Kind) Geometry {
	minW, minH := kind.MinSize()
	if g.Width < minW {
		g.Width = minW
	}
	if g.Height < minH {
		g.Height = minH
	}
	return g
}

// Block is a value snapshot of one diagram node.
//
// Blocks returned by a Scope are copies. Mutate through Scope methods
// or, for undoable edits, through the command package.
type Block struct {
	// ID is unique within the scope and never reused.
	ID string

	// Kind fixes the block's behaviour.
	Kind Kind

	// Name is the canonical name. Immutable after creation. For symbol
	// kinds it is the display label, e.g. "parse()".
	Name string

	// Geometry is position and size.
	Geometry Geometry

	// Style is the resolved visual style.
	Style Style

	// Metadata carries symbol key, location and free-form keys.
	Metadata Metadata

	// Exists records the result of the last existence check.
	Exists bool
}

// DisplayName returns the alias when one is set, else the canonical name.
func (b Block) DisplayName() string {
	if b.Metadata.Alias != "" {
		return b.Metadata.Alias
	}
	return b.Name
}

// Symbol returns the Python symbol the block refers to. Falls back to
// the canonical name without a trailing "()" when metadata is missing.
func (b Block) Symbol() string {
	if b.Metadata.Symbol != "" {
		return b.Metadata.Symbol
	}
	return strings.TrimSuffix(b.Name, "()")
}

func (b Block) clone() Block {
	b.Metadata = b.Metadata.Clone()
	return b
}

// BlockSpec describes a block to insert.
type BlockSpec struct {
	// ID is optional. An empty ID is generated from the kind prefix.
	ID string

	Kind Kind
	Name string

	// X and Y position the block.
	X, Y float64

	// Width and Height default to the kind's default size when zero and
	// are clamped to the kind's minimum.
	Width, Height float64

	// Style overrides the kind default per field.
	Style StyleSpec

	Metadata Metadata
	Exists   bool
}

func (s BlockSpec) validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidKind, int(s.Kind))
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (s BlockSpec) build(id string) Block {
	w, h := s.Width, s.Height
	if w == 0 && h == 0 {
		w, h = s.Kind.DefaultSize()
	}
	geom := Geometry{X: s.X, Y: s.Y, Width: w, Height: h}.clamp(s.Kind)
	meta := s.Metadata.Clone()
	if s.Kind == KindGroup {
		meta.IsGroup = true
	}
	return Block{
		ID:       id,
		Kind:     s.Kind,
		Name:     s.Name,
		Geometry: geom,
		Style:    s.Style.Resolve(s.Kind),
		Metadata: meta,
		Exists:   s.Exists,
	}
}

// BlockRemoval captures everything needed to put a removed block back
// exactly where it was.
type BlockRemoval struct {
	Block Block

	// Index is the block's position in the scope's insertion order.
	Index int

	// Connections are the cascaded connections with their positions.
	Connections []ConnectionRemoval
}
