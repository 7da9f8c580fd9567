// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import "fmt"

// Side is the anchor point on a block's edge.
type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideRight  Side = "right"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	switch s {
	case SideTop, SideBottom, SideLeft, SideRight:
		return true
	}
	return false
}

// FlowType is the arrowhead configuration of a connection.
type FlowType string

const (
	FlowOneWay        FlowType = "one_way"
	FlowBidirectional FlowType = "bidirectional"
	FlowNone          FlowType = "none"
)

// FlowTypes lists every flow type.
func FlowTypes() []FlowType {
	return []FlowType{FlowOneWay, FlowBidirectional, FlowNone}
}

// LineStyle is the stroke pattern of a connection.
type LineStyle string

const (
	LineSolid  LineStyle = "solid"
	LineDashed LineStyle = "dashed"
)

// LineStyles lists every line style.
func LineStyles() []LineStyle {
	return []LineStyle{LineSolid, LineDashed}
}

// Appearance is the restylable part of a connection.
type Appearance struct {
	Flow  FlowType
	Line  LineStyle
	Color Color
}

// DefaultAppearance is one-way, solid and grey.
func DefaultAppearance() Appearance {
	return Appearance{Flow: FlowOneWay, Line: LineSolid, Color: DefaultLineColor}
}

// Connection is a value snapshot of a directed edge between two blocks
// of the same scope.
type Connection struct {
	// ID is an in-memory reference. It is not persisted.
	ID string

	From     string
	To       string
	FromSide Side
	ToSide   Side

	Appearance
}

// Touches reports whether the connection has blockID as an endpoint.
func (c Connection) Touches(blockID string) bool {
	return c.From == blockID || c.To == blockID
}

// ConnectionSpec describes a connection to insert.
type ConnectionSpec struct {
	// ID is optional; empty means generate one.
	ID string

	From     string
	To       string
	FromSide Side
	ToSide   Side

	// Appearance fields left zero take their defaults.
	Appearance
}

func (s ConnectionSpec) normalize() (ConnectionSpec, error) {
	def := DefaultAppearance()
	if s.FromSide == "" {
		s.FromSide = SideRight
	}
	if s.ToSide == "" {
		s.ToSide = SideLeft
	}
	if !s.FromSide.Valid() {
		return s, fmt.Errorf("%w: %q", ErrInvalidSide, s.FromSide)
	}
	if !s.ToSide.Valid() {
		return s, fmt.Errorf("%w: %q", ErrInvalidSide, s.ToSide)
	}
	if s.Flow == "" {
		s.Flow = def.Flow
	}
	if s.Line == "" {
		s.Line = def.Line
	}
	if s.Color == (Color{}) {
		s.Color = def.Color
	}
	if s.From == s.To && s.FromSide == s.ToSide {
		return s, ErrSelfConnection
	}
	return s, nil
}

// ConnectionRemoval captures a removed connection and its position.
type ConnectionRemoval struct {
	Connection Connection
	Index      int
}
