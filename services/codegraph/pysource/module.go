// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pysource

import (
	"strings"
)

// DefKind distinguishes the definitions a module index records.
type DefKind int

const (
	// DefFunction is a def or async def at any nesting level.
	DefFunction DefKind = iota

	// DefClass is a class statement at any nesting level.
	DefClass
)

// String returns "function" or "class".
func (k DefKind) String() string {
	switch k {
	case DefFunction:
		return "function"
	case DefClass:
		return "class"
	default:
		return "unknown"
	}
}

// Definition is a function or class declaration.
type Definition struct {
	// Name is the declared identifier.
	Name string

	// Kind is function or class.
	Kind DefKind

	// Async marks async def.
	Async bool

	// Line is the 1-based line of the def or class keyword.
	Line int

	// Doc is the cleaned docstring. Empty when HasDoc is false.
	Doc string

	// HasDoc reports whether the body starts with a string literal.
	HasDoc bool
}

// Import is one name bound by an import statement. A statement binding
// several names produces several Imports.
type Import struct {
	// Module is the dotted module path without leading dots. Empty for
	// "from . import x".
	Module string

	// Level is the number of leading dots of a relative import.
	Level int

	// Name is the imported name of a from-import. Empty for plain
	// imports.
	Name string

	// Alias is the "as" name, or empty.
	Alias string

	// From marks "from M import ..." statements.
	From bool

	// Wildcard marks "from M import *".
	Wildcard bool

	// Line is the 1-based line of the statement.
	Line int
}

// BoundName is the identifier the import introduces into the module
// namespace.
func (i Import) BoundName() string {
	if i.Alias != "" {
		return i.Alias
	}
	if i.From {
		return i.Name
	}
	first, _, _ := strings.Cut(i.Module, ".")
	return first
}

// Module is the index of one parsed Python file.
type Module struct {
	// Path is the path the module was parsed from.
	Path string

	// Definitions are in source order.
	Definitions []Definition

	// Imports are in source order, including nested imports.
	Imports []Import

	lines []string
}

// LineCount is the number of source lines.
func (m *Module) LineCount() int { return len(m.lines) }

// Line returns the 1-based source line including its newline, or ""
// when out of range.
func (m *Module) Line(n int) string {
	if n < 1 || n > len(m.lines) {
		return ""
	}
	return m.lines[n-1]
}

// Excerpt returns up to count lines starting at the 1-based line,
// stopping at end of file.
func (m *Module) Excerpt(line, count int) string {
	if line < 1 || line > len(m.lines) || count <= 0 {
		return ""
	}
	end := min(line-1+count, len(m.lines))
	return strings.Join(m.lines[line-1:end], "")
}

// Find returns every definition named name of the given kind, in source
// order.
func (m *Module) Find(name string, kind DefKind) []Definition {
	var out []Definition
	for _, d := range m.Definitions {
		if d.Name == name && d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// FindFirst returns the first definition named name of the given kind.
func (m *Module) FindFirst(name string, kind DefKind) (Definition, bool) {
	for _, d := range m.Definitions {
		if d.Name == name && d.Kind == kind {
			return d, true
		}
	}
	return Definition{}, false
}
