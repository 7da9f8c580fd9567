// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"fmt"
)

// Color is an RGBA color. A is ignored where only RGB is meaningful.
type Color struct {
	R, G, B, A uint8
}

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// RGBA returns a color with explicit alpha.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// DefaultLineColor is the connection color used when none is given.
var DefaultLineColor = RGB(100, 100, 100)

// Style is the fully resolved visual style of a block.
type Style struct {
	// Color is the fill color.
	Color Color

	// Border is the outline color including its alpha.
	Border Color

	// Alpha is the fill opacity, 0-255.
	Alpha int

	// Dashed draws the outline dashed.
	Dashed bool
}

// StyleSpec is a partial style. Nil fields fall back to the kind
// default when resolved.
type StyleSpec struct {
	Color  *Color
	Border *Color
	Alpha  *int
	Dashed *bool
}

// Resolve fills unset fields from the kind default.
func (s StyleSpec) Resolve(kind Kind) Style {
	style := kind.DefaultStyle()
	if s.Color != nil {
		style.Color = *s.Color
	}
	if s.Border != nil {
		style.Border = *s.Border
	}
	if s.Alpha != nil {
		style.Alpha = clampByte(*s.Alpha)
	}
	if s.Dashed != nil {
		style.Dashed = *s.Dashed
	}
	return style
}

func clampByte(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}

// =============================================================================
// Wire Form
// =============================================================================

// StyleData is the persisted style. Color tuples may hold nulls,
// meaning "use the kind default".
type StyleData struct {
	Color  []*int `json:"color"`
	Border []*int `json:"border"`
	Alpha  *int   `json:"alpha"`
	Dashed *bool  `json:"dashed"`
}

func (s Style) wire() StyleData {
	return StyleData{
		Color:  []*int{intPtr(int(s.Color.R)), intPtr(int(s.Color.G)), intPtr(int(s.Color.B))},
		Border: []*int{intPtr(int(s.Border.R)), intPtr(int(s.Border.G)), intPtr(int(s.Border.B)), intPtr(int(s.Border.A))},
		Alpha:  intPtr(s.Alpha),
		Dashed: boolPtr(s.Dashed),
	}
}

// spec converts the wire form to a StyleSpec. A tuple with any null
// component, or of the wrong length, is treated as unset.
func (w StyleData) spec() (StyleSpec, error) {
	var spec StyleSpec
	if c, ok, err := tupleColor(w.Color, 3); err != nil {
		return spec, fmt.Errorf("style color: %w", err)
	} else if ok {
		spec.Color = &c
	}
	if c, ok, err := tupleColor(w.Border, 4); err != nil {
		return spec, fmt.Errorf("style border: %w", err)
	} else if ok {
		spec.Border = &c
	}
	spec.Alpha = w.Alpha
	spec.Dashed = w.Dashed
	return spec, nil
}

func tupleColor(values []*int, n int) (Color, bool, error) {
	if len(values) != n {
		return Color{}, false, nil
	}
	var parts [4]uint8
	parts[3] = 255
	for i, v := range values {
		if v == nil {
			return Color{}, false, nil
		}
		if *v < 0 || *v > 255 {
			return Color{}, false, fmt.Errorf("component %d out of range: %d", i, *v)
		}
		parts[i] = uint8(*v)
	}
	return Color{R: parts[0], G: parts[1], B: parts[2], A: parts[3]}, true, nil
}

// LineColorData is the persisted connection color.
type LineColorData struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

func (c Color) lineWire() LineColorData {
	return LineColorData{R: int(c.R), G: int(c.G), B: int(c.B)}
}

func (w LineColorData) color() Color {
	return RGB(uint8(clampByte(w.R)), uint8(clampByte(w.G)), uint8(clampByte(w.B)))
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
