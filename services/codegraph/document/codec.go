// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ScopeData is the persisted form of one scope.
type ScopeData struct {
	Blocks      []BlockData      `json:"blocks"`
	Connections []ConnectionData `json:"connections"`
}

// BlockData is the persisted form of a block.
type BlockData struct {
	ID       string          `json:"id"`
	Type     Kind            `json:"type"`
	Name     string          `json:"name"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	Style    StyleData       `json:"style"`
	Metadata json.RawMessage `json:"metadata"`
	Exists   *bool           `json:"exists,omitempty"`
}

// ConnectionData is the persisted form of a connection. Missing fields
// take the connection defaults on load.
type ConnectionData struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	FromSide  Side           `json:"from_side,omitempty"`
	ToSide    Side           `json:"to_side,omitempty"`
	FlowType  FlowType       `json:"flow_type,omitempty"`
	LineStyle LineStyle      `json:"line_style,omitempty"`
	LineColor *LineColorData `json:"line_color,omitempty"`
}

// Serialize converts every scope into its persisted form.
func (d *Document) Serialize() (map[ScopeKey]ScopeData, error) {
	out := make(map[ScopeKey]ScopeData, len(d.scopes))
	for _, key := range d.ScopeKeys() {
		data, err := d.scopes[key].serialize()
		if err != nil {
			return nil, fmt.Errorf("serialize scope %s: %w", key, err)
		}
		out[key] = data
	}
	return out, nil
}

func (s *Scope) serialize() (ScopeData, error) {
	data := ScopeData{
		Blocks:      make([]BlockData, 0, len(s.blockOrder)),
		Connections: make([]ConnectionData, 0, len(s.connOrder)),
	}
	for _, id := range s.blockOrder {
		b := s.blocks[id]
		meta, err := json.Marshal(b.Metadata.encode(b.Kind))
		if err != nil {
			return ScopeData{}, blockErr(s.key, id, err)
		}
		exists := b.Exists
		data.Blocks = append(data.Blocks, BlockData{
			ID:       b.ID,
			Type:     b.Kind,
			Name:     b.Name,
			X:        b.Geometry.X,
			Y:        b.Geometry.Y,
			Width:    b.Geometry.Width,
			Height:   b.Geometry.Height,
			Style:    b.Style.wire(),
			Metadata: meta,
			Exists:   &exists,
		})
	}
	for _, id := range s.connOrder {
		c := s.conns[id]
		color := c.Color.lineWire()
		data.Connections = append(data.Connections, ConnectionData{
			From:      c.From,
			To:        c.To,
			FromSide:  c.FromSide,
			ToSide:    c.ToSide,
			FlowType:  c.Flow,
			LineStyle: c.Line,
			LineColor: &color,
		})
	}
	return data, nil
}

// Deserialize builds a document from persisted scopes.
//
// Description:
//
//	Blocks keep their persisted ids. Null style entries resolve to the
//	kind default and a missing exists flag means true. Connections whose
//	endpoints are not both present in the scope, or which join an anchor
//	to itself, are dropped.
//
// Outputs:
//
//	*Document - A new document. The root scope always exists.
//	error - Malformed block data.
func Deserialize(scopes map[ScopeKey]ScopeData, opts ...Option) (*Document, error) {
	d := New(opts...)
	keys := make([]ScopeKey, 0, len(scopes))
	for k := range scopes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		s, _ := d.EnsureScope(key)
		if err := s.load(scopes[key]); err != nil {
			return nil, fmt.Errorf("load scope %s: %w", key, err)
		}
	}
	return d, nil
}

func (s *Scope) load(data ScopeData) error {
	for _, bd := range data.Blocks {
		spec, err := bd.spec()
		if err != nil {
			return blockErr(s.key, bd.ID, err)
		}
		if _, err := s.InsertBlock(spec); err != nil {
			return err
		}
	}
	for _, cd := range data.Connections {
		spec := ConnectionSpec{
			From:     cd.From,
			To:       cd.To,
			FromSide: cd.FromSide,
			ToSide:   cd.ToSide,
			Appearance: Appearance{
				Flow: cd.FlowType,
				Line: cd.LineStyle,
			},
		}
		if cd.LineColor != nil {
			spec.Color = cd.LineColor.color()
		}
		if _, err := s.InsertConnection(spec); err != nil {
			if errors.Is(err, ErrBlockNotFound) || errors.Is(err, ErrSelfConnection) || errors.Is(err, ErrInvalidSide) {
				continue
			}
			return err
		}
	}
	return nil
}

func (bd BlockData) spec() (BlockSpec, error) {
	style, err := bd.Style.spec()
	if err != nil {
		return BlockSpec{}, err
	}
	var raw map[string]json.RawMessage
	if len(bd.Metadata) > 0 && string(bd.Metadata) != "null" {
		if err := json.Unmarshal(bd.Metadata, &raw); err != nil {
			return BlockSpec{}, fmt.Errorf("metadata: %w", err)
		}
	}
	meta, err := decodeMetadata(bd.Type, raw)
	if err != nil {
		return BlockSpec{}, err
	}
	exists := true
	if bd.Exists != nil {
		exists = *bd.Exists
	}
	return BlockSpec{
		ID:       bd.ID,
		Kind:     bd.Type,
		Name:     bd.Name,
		X:        bd.X,
		Y:        bd.Y,
		Width:    bd.Width,
		Height:   bd.Height,
		Style:    style,
		Metadata: meta,
		Exists:   exists,
	}, nil
}
