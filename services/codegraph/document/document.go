// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package document holds the in-memory model of a code graph project:
// a tree of scopes, each an ordered diagram of blocks and connections.
//
// Blocks and connections are addressed by id inside their scope. Reads
// return value copies, so the only way to change a document is through
// Scope and Document methods. Those methods enforce the referential
// rules: connections only join blocks of their own scope, removing a
// block removes its connections, and discarding a scope discards its
// descendants.
//
// The document has no undo of its own. Every removal returns a snapshot
// that restores the exact prior state, which is what the command package
// builds its history on.
package document

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Document is the set of all scopes in a project.
type Document struct {
	scopes  map[ScopeKey]*Scope
	connSeq int
	newID   func(Kind) string
}

// Option configures a Document.
type Option func(*Document)

// WithIDGenerator overrides block id generation. Used by tests that
// need stable ids.
func WithIDGenerator(fn func(Kind) string) Option {
	return func(d *Document) {
		d.newID = fn
	}
}

// New creates an empty document holding only the root scope.
func New(opts ...Option) *Document {
	d := &Document{
		scopes: make(map[ScopeKey]*Scope),
		newID:  defaultBlockID,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.scopes[RootScope] = newScope(d, RootScope)
	return d
}

// defaultBlockID builds "<prefix>_<uuid hex>". Images use a shorter
// eight character suffix.
func defaultBlockID(kind Kind) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	if kind == KindImage {
		hex = hex[:8]
	}
	return kind.IDPrefix() + "_" + hex
}

func (d *Document) newBlockID(kind Kind) string {
	return d.newID(kind)
}

func (d *Document) newConnectionID() string {
	d.connSeq++
	return "c" + strconv.Itoa(d.connSeq)
}

// Scope returns the scope for key.
func (d *Document) Scope(key ScopeKey) (*Scope, bool) {
	s, ok := d.scopes[key]
	return s, ok
}

// HasScope reports whether key has a diagram.
func (d *Document) HasScope(key ScopeKey) bool {
	_, ok := d.scopes[key]
	return ok
}

// EnsureScope returns the scope for key, creating an empty one when
// missing. created reports whether a new scope was made.
func (d *Document) EnsureScope(key ScopeKey) (scope *Scope, created bool) {
	if s, ok := d.scopes[key]; ok {
		return s, false
	}
	s := newScope(d, key)
	d.scopes[key] = s
	return s, true
}

// MustScope returns the scope for key or ErrScopeNotFound.
func (d *Document) MustScope(key ScopeKey) (*Scope, error) {
	s, ok := d.scopes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScopeNotFound, key)
	}
	return s, nil
}

// ScopeKeys returns all scope keys in sorted order.
func (d *Document) ScopeKeys() []ScopeKey {
	keys := make([]ScopeKey, 0, len(d.scopes))
	for k := range d.scopes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Subtree is a detached set of scopes removed by DiscardSubtree.
type Subtree map[ScopeKey]*Scope

// DiscardSubtree removes key and every descendant scope, returning them
// for RestoreSubtree. The root scope cannot be discarded.
func (d *Document) DiscardSubtree(key ScopeKey) Subtree {
	if key.IsRoot() {
		return nil
	}
	out := make(Subtree)
	for k, s := range d.scopes {
		if key.contains(k) {
			out[k] = s
			delete(d.scopes, k)
		}
	}
	return out
}

// RestoreSubtree reattaches scopes returned by DiscardSubtree. Scopes
// already present are left untouched.
func (d *Document) RestoreSubtree(tree Subtree) {
	for k, s := range tree {
		if _, exists := d.scopes[k]; exists {
			continue
		}
		s.doc = d
		d.scopes[k] = s
	}
}

// ChildScopes lists the direct child scopes a scope can navigate into:
// SUBDIRECTORY blocks first, then CLASS blocks, each in insertion order.
func (d *Document) ChildScopes(key ScopeKey) []ScopeKey {
	s, ok := d.scopes[key]
	if !ok {
		return nil
	}
	var out []ScopeKey
	for _, kind := range []Kind{KindSubdirectory, KindClass} {
		for _, b := range s.BlocksOfKind(kind) {
			out = append(out, key.Child(b.Name))
		}
	}
	return out
}
