// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package command

import (
	"fmt"

	"github.com/AleutianAI/codegraph/services/codegraph/document"
)

// target identifies the scope a command edits. Commands hold keys and
// ids, never pointers into the document, so they stay valid when a
// scope is detached and reattached by other commands.
type target struct {
	doc   *document.Document
	scope document.ScopeKey
}

func (t target) resolve() (*document.Scope, error) {
	return t.doc.MustScope(t.scope)
}

// =============================================================================
// Blocks
// =============================================================================

// AddBlock inserts a block. For kinds that own a child scope, the child
// scope is created if missing and removed again on revert if this
// command created it.
type AddBlock struct {
	target
	spec         document.BlockSpec
	id           string
	createdScope bool
	child        document.Subtree
}

// NewAddBlock returns a command adding spec to scope.
func NewAddBlock(doc *document.Document, scope document.ScopeKey, spec document.BlockSpec) *AddBlock {
	return &AddBlock{target: target{doc: doc, scope: scope}, spec: spec}
}

// Name implements Command.
func (c *AddBlock) Name() string {
	return fmt.Sprintf("Add %s '%s'", c.spec.Kind, c.spec.Name)
}

// BlockID is the id assigned by the first Apply.
func (c *AddBlock) BlockID() string { return c.id }

// Apply implements Command. The id assigned on the first apply is
// reused by every redo.
func (c *AddBlock) Apply() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	spec := c.spec
	if c.id != "" {
		spec.ID = c.id
	}
	b, err := s.InsertBlock(spec)
	if err != nil {
		return err
	}
	c.id = b.ID

	if b.Kind.OpensScope() {
		if c.child != nil {
			c.doc.RestoreSubtree(c.child)
			c.child = nil
		} else {
			_, c.createdScope = c.doc.EnsureScope(c.scope.Child(b.Name))
		}
	}
	return nil
}

// Revert implements Command.
func (c *AddBlock) Revert() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	r, err := s.RemoveBlock(c.id)
	if err != nil {
		return err
	}
	if r.Block.Kind.OpensScope() && c.createdScope {
		c.child = c.doc.DiscardSubtree(c.scope.Child(r.Block.Name))
	}
	return nil
}

// DeleteBlock removes a block, the connections touching it and, for
// scope-owning kinds, its child scope with all descendants. Revert
// restores all of it under the original ids and positions.
type DeleteBlock struct {
	target
	id      string
	removal document.BlockRemoval
	child   document.Subtree
	name    string
}

// NewDeleteBlock returns a command deleting block id from scope.
func NewDeleteBlock(doc *document.Document, scope document.ScopeKey, id string) *DeleteBlock {
	c := &DeleteBlock{target: target{doc: doc, scope: scope}, id: id, name: id}
	if s, ok := doc.Scope(scope); ok {
		if b, ok := s.Block(id); ok {
			c.name = b.DisplayName()
		}
	}
	return c
}

// Name implements Command.
func (c *DeleteBlock) Name() string { return fmt.Sprintf("Delete '%s'", c.name) }

// Apply implements Command.
func (c *DeleteBlock) Apply() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	r, err := s.RemoveBlock(c.id)
	if err != nil {
		return err
	}
	c.removal = r
	if r.Block.Kind.OpensScope() {
		c.child = c.doc.DiscardSubtree(c.scope.Child(r.Block.Name))
	}
	return nil
}

// Revert implements Command.
func (c *DeleteBlock) Revert() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	if err := s.RestoreBlock(c.removal); err != nil {
		return err
	}
	c.doc.RestoreSubtree(c.child)
	c.child = nil
	return nil
}

// MoveBlock changes a block's geometry. Covers both move and resize.
type MoveBlock struct {
	target
	id       string
	to, from document.Geometry
	captured bool
}

// NewMoveBlock returns a command setting block id's geometry to g.
func NewMoveBlock(doc *document.Document, scope document.ScopeKey, id string, g document.Geometry) *MoveBlock {
	return &MoveBlock{target: target{doc: doc, scope: scope}, id: id, to: g}
}

// NewMoveBlockFrom records a move that the caller already performed
// interactively. Apply sets to, Revert restores from.
func NewMoveBlockFrom(doc *document.Document, scope document.ScopeKey, id string, from, to document.Geometry) *MoveBlock {
	return &MoveBlock{target: target{doc: doc, scope: scope}, id: id, from: from, to: to, captured: true}
}

// Name implements Command.
func (c *MoveBlock) Name() string { return "Move Block" }

// Apply implements Command.
func (c *MoveBlock) Apply() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	old, err := s.SetGeometry(c.id, c.to)
	if err != nil {
		return err
	}
	if !c.captured {
		c.from = old
		c.captured = true
	}
	return nil
}

// Revert implements Command.
func (c *MoveBlock) Revert() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	_, err = s.SetGeometry(c.id, c.from)
	return err
}

// RenameBlock sets or clears a block's display alias. The canonical
// name never changes.
type RenameBlock struct {
	target
	id       string
	alias    string
	previous string
}

// NewRenameBlock returns a command setting block id's alias.
func NewRenameBlock(doc *document.Document, scope document.ScopeKey, id, alias string) *RenameBlock {
	return &RenameBlock{target: target{doc: doc, scope: scope}, id: id, alias: alias}
}

// Name implements Command.
func (c *RenameBlock) Name() string { return "Rename Block" }

// Apply implements Command.
func (c *RenameBlock) Apply() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	prev, err := s.SetAlias(c.id, c.alias)
	if err != nil {
		return err
	}
	c.previous = prev
	return nil
}

// Revert implements Command.
func (c *RenameBlock) Revert() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	_, err = s.SetAlias(c.id, c.previous)
	return err
}

// ChangeBlockStyle replaces a block's style. Styles are plain values,
// so the command's copies cannot alias the document's.
type ChangeBlockStyle struct {
	target
	id       string
	style    document.Style
	previous document.Style
}

// NewChangeBlockStyle returns a command restyling block id.
func NewChangeBlockStyle(doc *document.Document, scope document.ScopeKey, id string, style document.Style) *ChangeBlockStyle {
	return &ChangeBlockStyle{target: target{doc: doc, scope: scope}, id: id, style: style}
}

// Name implements Command.
func (c *ChangeBlockStyle) Name() string { return "Change Block Style" }

// Apply implements Command.
func (c *ChangeBlockStyle) Apply() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	prev, err := s.SetStyle(c.id, c.style)
	if err != nil {
		return err
	}
	c.previous = prev
	return nil
}

// Revert implements Command.
func (c *ChangeBlockStyle) Revert() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	_, err = s.SetStyle(c.id, c.previous)
	return err
}

// =============================================================================
// Connections
// =============================================================================

// AddConnection joins two blocks of one scope.
type AddConnection struct {
	target
	spec document.ConnectionSpec
	id   string
}

// NewAddConnection returns a command inserting spec into scope.
func NewAddConnection(doc *document.Document, scope document.ScopeKey, spec document.ConnectionSpec) *AddConnection {
	return &AddConnection{target: target{doc: doc, scope: scope}, spec: spec}
}

// Name implements Command.
func (c *AddConnection) Name() string { return "Add Connection" }

// ConnectionID is the reference assigned by the first Apply.
func (c *AddConnection) ConnectionID() string { return c.id }

// Apply implements Command.
func (c *AddConnection) Apply() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	spec := c.spec
	if c.id != "" {
		spec.ID = c.id
	}
	conn, err := s.InsertConnection(spec)
	if err != nil {
		return err
	}
	c.id = conn.ID
	return nil
}

// Revert implements Command.
func (c *AddConnection) Revert() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	_, err = s.RemoveConnection(c.id)
	return err
}

// DeleteConnection removes one connection, keeping a full snapshot.
type DeleteConnection struct {
	target
	id      string
	removal document.ConnectionRemoval
}

// NewDeleteConnection returns a command removing connection id.
func NewDeleteConnection(doc *document.Document, scope document.ScopeKey, id string) *DeleteConnection {
	return &DeleteConnection{target: target{doc: doc, scope: scope}, id: id}
}

// Name implements Command.
func (c *DeleteConnection) Name() string { return "Delete Connection" }

// Apply implements Command.
func (c *DeleteConnection) Apply() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	r, err := s.RemoveConnection(c.id)
	if err != nil {
		return err
	}
	c.removal = r
	return nil
}

// Revert implements Command.
func (c *DeleteConnection) Revert() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	return s.RestoreConnection(c.removal)
}

// ChangeConnectionStyle sets flow type, line style and color of a
// connection.
type ChangeConnectionStyle struct {
	target
	id         string
	appearance document.Appearance
	previous   document.Appearance
}

// NewChangeConnectionStyle returns a command restyling connection id.
func NewChangeConnectionStyle(doc *document.Document, scope document.ScopeKey, id string, a document.Appearance) *ChangeConnectionStyle {
	return &ChangeConnectionStyle{target: target{doc: doc, scope: scope}, id: id, appearance: a}
}

// Name implements Command.
func (c *ChangeConnectionStyle) Name() string { return "Change Connection Style" }

// Apply implements Command.
func (c *ChangeConnectionStyle) Apply() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	prev, err := s.SetAppearance(c.id, c.appearance)
	if err != nil {
		return err
	}
	c.previous = prev
	return nil
}

// Revert implements Command.
func (c *ChangeConnectionStyle) Revert() error {
	s, err := c.resolve()
	if err != nil {
		return err
	}
	_, err = s.SetAppearance(c.id, c.previous)
	return err
}
