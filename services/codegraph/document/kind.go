// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the closed set of block kinds a diagram can hold.
//
// Every per-kind decision (default style, minimum size, id prefix,
// scope ownership, navigation) is an exhaustive switch on Kind so that
// adding a kind forces each decision point to be revisited.
type Kind int

const (
	// KindFunction is a module-level Python function.
	KindFunction Kind = iota

	// KindMethod is a function defined inside a class.
	KindMethod

	// KindClass is a Python class. Owns a child scope for its methods.
	KindClass

	// KindSubdirectory is a directory under the project root. Owns a
	// child scope for its contents.
	KindSubdirectory

	// KindOther is a free-form annotation block with no code link.
	KindOther

	// KindGroup is a visual grouping rectangle.
	KindGroup

	// KindImage displays an image file.
	KindImage
)

var kindNames = map[Kind]string{
	KindFunction:     "FUNCTION",
	KindMethod:       "METHOD",
	KindClass:        "CLASS",
	KindSubdirectory: "SUBDIRECTORY",
	KindOther:        "OTHER",
	KindGroup:        "GROUP",
	KindImage:        "IMAGE",
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindFunction, KindMethod, KindClass, KindSubdirectory, KindOther, KindGroup, KindImage}
}

// String returns the persisted name of the kind, e.g. "FUNCTION".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind converts a case-insensitive kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for kind, name := range kindNames {
		if name == upper {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// MarshalJSON encodes the kind as its persisted name.
func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(k))
	}
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a persisted kind name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("kind must be a string: %w", err)
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsSymbol reports whether the kind names a Python symbol that the
// resolver can look up.
func (k Kind) IsSymbol() bool {
	switch k {
	case KindFunction, KindMethod, KindClass:
		return true
	case KindSubdirectory, KindOther, KindGroup, KindImage:
		return false
	default:
		return false
	}
}

// OpensScope reports whether blocks of this kind own a child scope.
// Deleting such a block discards the child scope and its descendants.
func (k Kind) OpensScope() bool {
	switch k {
	case KindClass, KindSubdirectory:
		return true
	case KindFunction, KindMethod, KindOther, KindGroup, KindImage:
		return false
	default:
		return false
	}
}

// Navigation is what activating (double-clicking) a block does.
type Navigation int

const (
	// NavNone means activation has no effect.
	NavNone Navigation = iota

	// NavOpenScope means the block's child scope becomes current.
	NavOpenScope

	// NavOpenEditor means the block's source location opens externally.
	NavOpenEditor
)

// Navigation returns the activation behaviour for the kind.
func (k Kind) Navigation() Navigation {
	switch k {
	case KindClass, KindSubdirectory:
		return NavOpenScope
	case KindFunction, KindMethod:
		return NavOpenEditor
	case KindOther, KindGroup, KindImage:
		return NavNone
	default:
		return NavNone
	}
}

// IDPrefix returns the prefix used when generating block ids.
func (k Kind) IDPrefix() string {
	switch k {
	case KindFunction:
		return "func"
	case KindMethod:
		return "mthd"
	case KindClass:
		return "class"
	case KindSubdirectory:
		return "subdir"
	case KindOther:
		return "other"
	case KindGroup:
		return "group"
	case KindImage:
		return "image"
	default:
		return "block"
	}
}

// SymbolKey returns the metadata key holding the symbol name for
// symbol kinds, or "" for kinds without one.
func (k Kind) SymbolKey() string {
	switch k {
	case KindFunction:
		return MetaFunctionName
	case KindMethod:
		return MetaMethodName
	case KindClass:
		return MetaClassName
	case KindSubdirectory, KindOther, KindGroup, KindImage:
		return ""
	default:
		return ""
	}
}

// DisplayLabel returns the canonical block name for a symbol as shown
// on the diagram. Callables carry a trailing "()".
func (k Kind) DisplayLabel(symbol string) string {
	switch k {
	case KindFunction, KindMethod:
		return symbol + "()"
	case KindClass, KindSubdirectory, KindOther, KindGroup, KindImage:
		return symbol
	default:
		return symbol
	}
}

// MinSize returns the smallest width and height a block may be
// resized to.
func (k Kind) MinSize() (width, height float64) {
	switch k {
	case KindFunction, KindMethod, KindClass, KindSubdirectory, KindOther, KindGroup, KindImage:
		return 100, 50
	default:
		return 100, 50
	}
}

// DefaultSize returns the size a new block of this kind starts at.
func (k Kind) DefaultSize() (width, height float64) {
	switch k {
	case KindFunction, KindMethod, KindOther:
		return 200, 80
	case KindClass, KindSubdirectory:
		return 250, 100
	case KindGroup:
		return 400, 300
	case KindImage:
		return 300, 300
	default:
		return 200, 80
	}
}

// DefaultStyle returns the style applied when a block carries no
// explicit override.
func (k Kind) DefaultStyle() Style {
	switch k {
	case KindFunction:
		return Style{Color: RGB(255, 255, 255), Border: RGBA(0, 0, 0, 100), Alpha: 255}
	case KindMethod:
		return Style{Color: RGB(230, 200, 255), Border: RGBA(138, 43, 226, 100), Alpha: 255}
	case KindClass:
		return Style{Color: RGB(255, 250, 205), Border: RGBA(218, 165, 32, 100), Alpha: 200, Dashed: true}
	case KindSubdirectory:
		return Style{Color: RGB(30, 58, 95), Border: RGBA(13, 31, 60, 100), Alpha: 180, Dashed: true}
	case KindOther:
		return Style{Color: RGB(200, 200, 200), Border: RGBA(128, 128, 128, 100), Alpha: 200}
	case KindGroup:
		return Style{Color: RGB(220, 240, 255), Border: RGBA(100, 150, 200, 100), Alpha: 100, Dashed: true}
	case KindImage:
		return Style{Color: RGB(255, 255, 255), Border: RGBA(100, 100, 100, 0), Alpha: 0}
	default:
		return Style{Color: RGB(200, 200, 200), Border: RGBA(128, 128, 128, 100), Alpha: 200}
	}
}
