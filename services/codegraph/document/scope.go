// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ScopeKey identifies one diagram: "root", "root/pkg", "root/pkg/Parser".
type ScopeKey string

// RootScope is the top-level diagram of a project.
const RootScope ScopeKey = "root"

// Child returns the key of the scope owned by a block named name.
func (k ScopeKey) Child(name string) ScopeKey {
	return ScopeKey(string(k) + "/" + name)
}

// Parent returns the enclosing scope. The root has no parent.
func (k ScopeKey) Parent() (ScopeKey, bool) {
	i := strings.LastIndex(string(k), "/")
	if i < 0 {
		return "", false
	}
	return k[:i], true
}

// IsRoot reports whether k is the root scope.
func (k ScopeKey) IsRoot() bool {
	return k == RootScope
}

// Segments returns the path components below root.
func (k ScopeKey) Segments() []string {
	rest, ok := strings.CutPrefix(string(k), string(RootScope))
	if !ok {
		return nil
	}
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// Dir maps the scope onto a directory under rootPath. "root" is
// rootPath itself; "root/a/b" is rootPath/a/b.
func (k ScopeKey) Dir(rootPath string) string {
	return filepath.Join(append([]string{rootPath}, k.Segments()...)...)
}

// contains reports whether other is k or one of its descendants.
func (k ScopeKey) contains(other ScopeKey) bool {
	return other == k || strings.HasPrefix(string(other), string(k)+"/")
}

// Scope is one diagram: an ordered set of blocks and the connections
// between them.
//
// Thread Safety: not safe for concurrent use. A Document is owned by a
// single editing session.
type Scope struct {
	key        ScopeKey
	doc        *Document
	blocks     map[string]*Block
	blockOrder []string
	conns      map[string]*Connection
	connOrder  []string
}

func newScope(doc *Document, key ScopeKey) *Scope {
	return &Scope{
		key:    key,
		doc:    doc,
		blocks: make(map[string]*Block),
		conns:  make(map[string]*Connection),
	}
}

// Key returns the scope key.
func (s *Scope) Key() ScopeKey { return s.key }

// Len returns the number of blocks.
func (s *Scope) Len() int { return len(s.blockOrder) }

// Blocks returns copies of all blocks in insertion order.
func (s *Scope) Blocks() []Block {
	out := make([]Block, 0, len(s.blockOrder))
	for _, id := range s.blockOrder {
		out = append(out, s.blocks[id].clone())
	}
	return out
}

// Block returns a copy of the block with id.
func (s *Scope) Block(id string) (Block, bool) {
	b, ok := s.blocks[id]
	if !ok {
		return Block{}, false
	}
	return b.clone(), true
}

// BlocksOfKind returns copies of the blocks of kind, in order.
func (s *Scope) BlocksOfKind(kind Kind) []Block {
	var out []Block
	for _, id := range s.blockOrder {
		if b := s.blocks[id]; b.Kind == kind {
			out = append(out, b.clone())
		}
	}
	return out
}

// Connections returns copies of all connections in insertion order.
func (s *Scope) Connections() []Connection {
	out := make([]Connection, 0, len(s.connOrder))
	for _, id := range s.connOrder {
		out = append(out, *s.conns[id])
	}
	return out
}

// Connection returns a copy of the connection with id.
func (s *Scope) Connection(id string) (Connection, bool) {
	c, ok := s.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// ConnectionsOf returns the connections touching blockID.
func (s *Scope) ConnectionsOf(blockID string) []Connection {
	var out []Connection
	for _, id := range s.connOrder {
		if c := s.conns[id]; c.Touches(blockID) {
			out = append(out, *c)
		}
	}
	return out
}

// =============================================================================
// Blocks
// =============================================================================

// InsertBlock adds a block built from spec.
//
// Description:
//
//	Generates an id when spec.ID is empty, resolves the style against
//	the kind default and clamps the size to the kind minimum.
//
// Outputs:
//
//	Block - Copy of the inserted block.
//	error - ErrInvalidKind, ErrEmptyName or ErrDuplicateBlock.
func (s *Scope) InsertBlock(spec BlockSpec) (Block, error) {
	if err := spec.validate(); err != nil {
		return Block{}, err
	}
	id := spec.ID
	if id == "" {
		id = s.doc.newBlockID(spec.Kind)
	}
	if _, exists := s.blocks[id]; exists {
		return Block{}, blockErr(s.key, id, ErrDuplicateBlock)
	}
	b := spec.build(id)
	s.blocks[id] = &b
	s.blockOrder = append(s.blockOrder, id)
	return b.clone(), nil
}

// RemoveBlock deletes a block and every connection touching it.
//
// Outputs:
//
//	BlockRemoval - Snapshot accepted by RestoreBlock.
//	error - ErrBlockNotFound.
func (s *Scope) RemoveBlock(id string) (BlockRemoval, error) {
	b, ok := s.blocks[id]
	if !ok {
		return BlockRemoval{}, blockErr(s.key, id, ErrBlockNotFound)
	}

	var cascaded []ConnectionRemoval
	kept := s.connOrder[:0:0]
	for i, cid := range s.connOrder {
		c := s.conns[cid]
		if c.Touches(id) {
			cascaded = append(cascaded, ConnectionRemoval{Connection: *c, Index: i})
			delete(s.conns, cid)
			continue
		}
		kept = append(kept, cid)
	}
	s.connOrder = kept

	index := slices.Index(s.blockOrder, id)
	s.blockOrder = slices.Delete(s.blockOrder, index, index+1)
	delete(s.blocks, id)

	return BlockRemoval{Block: b.clone(), Index: index, Connections: cascaded}, nil
}

// RestoreBlock reverses RemoveBlock, reinstating the block and its
// connections at their original positions.
func (s *Scope) RestoreBlock(r BlockRemoval) error {
	if _, exists := s.blocks[r.Block.ID]; exists {
		return blockErr(s.key, r.Block.ID, ErrDuplicateBlock)
	}
	b := r.Block.clone()
	s.blocks[b.ID] = &b
	s.blockOrder = slices.Insert(s.blockOrder, min(r.Index, len(s.blockOrder)), b.ID)

	for _, cr := range r.Connections {
		if err := s.RestoreConnection(cr); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scope) mutable(id string) (*Block, error) {
	b, ok := s.blocks[id]
	if !ok {
		return nil, blockErr(s.key, id, ErrBlockNotFound)
	}
	return b, nil
}

// SetGeometry moves or resizes a block, clamping to the kind minimum.
// Returns the previous geometry.
func (s *Scope) SetGeometry(id string, g Geometry) (Geometry, error) {
	b, err := s.mutable(id)
	if err != nil {
		return Geometry{}, err
	}
	old := b.Geometry
	b.Geometry = g.clamp(b.Kind)
	return old, nil
}

// SetAlias sets the display alias. Surrounding whitespace is trimmed
// and an empty alias clears it. Returns the previous alias.
func (s *Scope) SetAlias(id, alias string) (string, error) {
	b, err := s.mutable(id)
	if err != nil {
		return "", err
	}
	old := b.Metadata.Alias
	b.Metadata.Alias = strings.TrimSpace(alias)
	return old, nil
}

// SetStyle replaces the block style. Returns the previous style.
func (s *Scope) SetStyle(id string, style Style) (Style, error) {
	b, err := s.mutable(id)
	if err != nil {
		return Style{}, err
	}
	old := b.Style
	style.Alpha = clampByte(style.Alpha)
	b.Style = style
	return old, nil
}

// SetExistence records an existence check result.
func (s *Scope) SetExistence(id string, exists bool) error {
	b, err := s.mutable(id)
	if err != nil {
		return err
	}
	b.Exists = exists
	return nil
}

// SetLineNumber refreshes the recorded declaration line. A line below 1
// clears it.
func (s *Scope) SetLineNumber(id string, line int) error {
	b, err := s.mutable(id)
	if err != nil {
		return err
	}
	if line < 1 {
		b.Metadata.LineNumber = nil
		return nil
	}
	b.Metadata.LineNumber = &line
	return nil
}

// SetDescription replaces the free-text description.
func (s *Scope) SetDescription(id, text string) error {
	b, err := s.mutable(id)
	if err != nil {
		return err
	}
	b.Metadata.Description = text
	return nil
}

// =============================================================================
// Connections
// =============================================================================

// InsertConnection adds a connection between two blocks of this scope.
//
// Outputs:
//
//	Connection - Copy of the inserted connection, defaults applied.
//	error - ErrSelfConnection, ErrInvalidSide, ErrBlockNotFound or
//	        ErrDuplicateConnection.
func (s *Scope) InsertConnection(spec ConnectionSpec) (Connection, error) {
	spec, err := spec.normalize()
	if err != nil {
		return Connection{}, err
	}
	for _, id := range []string{spec.From, spec.To} {
		if _, ok := s.blocks[id]; !ok {
			return Connection{}, blockErr(s.key, id, ErrBlockNotFound)
		}
	}
	id := spec.ID
	if id == "" {
		id = s.doc.newConnectionID()
	}
	if _, exists := s.conns[id]; exists {
		return Connection{}, fmt.Errorf("%w: %s", ErrDuplicateConnection, id)
	}
	c := Connection{
		ID:         id,
		From:       spec.From,
		To:         spec.To,
		FromSide:   spec.FromSide,
		ToSide:     spec.ToSide,
		Appearance: spec.Appearance,
	}
	s.conns[id] = &c
	s.connOrder = append(s.connOrder, id)
	return c, nil
}

// RemoveConnection deletes one connection.
func (s *Scope) RemoveConnection(id string) (ConnectionRemoval, error) {
	c, ok := s.conns[id]
	if !ok {
		return ConnectionRemoval{}, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	index := slices.Index(s.connOrder, id)
	s.connOrder = slices.Delete(s.connOrder, index, index+1)
	delete(s.conns, id)
	return ConnectionRemoval{Connection: *c, Index: index}, nil
}

// RestoreConnection reinstates a removed connection at its original
// position. Both endpoints must be present.
func (s *Scope) RestoreConnection(r ConnectionRemoval) error {
	c := r.Connection
	if _, exists := s.conns[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateConnection, c.ID)
	}
	for _, id := range []string{c.From, c.To} {
		if _, ok := s.blocks[id]; !ok {
			return blockErr(s.key, id, ErrBlockNotFound)
		}
	}
	s.conns[c.ID] = &c
	s.connOrder = slices.Insert(s.connOrder, min(r.Index, len(s.connOrder)), c.ID)
	return nil
}

// SetAppearance restyles a connection. Returns the previous appearance.
func (s *Scope) SetAppearance(id string, a Appearance) (Appearance, error) {
	c, ok := s.conns[id]
	if !ok {
		return Appearance{}, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	old := c.Appearance
	c.Appearance = a
	return old, nil
}
