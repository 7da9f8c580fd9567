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
	"maps"
)

// Persisted metadata keys.
const (
	MetaFunctionName = "functionName"
	MetaMethodName   = "methodName"
	MetaClassName    = "className"
	MetaFilePath     = "filePath"
	MetaLineNumber   = "lineNumber"
	MetaDescription  = "description"
	MetaImagePath    = "image_path"
	MetaIsGroup      = "isGroup"
	MetaAlias        = "alias"
)

// Metadata is the typed view of a block's metadata map.
//
// Keys this package does not know about are kept in Extra and written
// back unchanged, so files produced by newer versions survive a load
// and save.
type Metadata struct {
	// Symbol is the Python symbol name, stored under the kind's symbol
	// key (functionName, methodName or className).
	Symbol string

	// FilePath is the file the symbol was located in, relative to the
	// project root. Empty when unlocated.
	FilePath string

	// LineNumber is the 1-based declaration line. Nil when unlocated.
	LineNumber *int

	// Description is free text entered by the user.
	Description string

	// ImagePath is the image file shown by IMAGE blocks.
	ImagePath string

	// IsGroup marks GROUP blocks.
	IsGroup bool

	// Alias overrides the display name. Empty means none.
	Alias string

	// Extra holds unrecognised keys verbatim.
	Extra map[string]json.RawMessage
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	if m.LineNumber != nil {
		line := *m.LineNumber
		out.LineNumber = &line
	}
	if m.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// Located reports whether the metadata points at a source line.
func (m Metadata) Located() bool {
	return m.FilePath != "" && m.LineNumber != nil
}

// encode flattens the metadata into the persisted map for kind.
func (m Metadata) encode(kind Kind) map[string]any {
	out := make(map[string]any, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}
	if key := kind.SymbolKey(); key != "" && m.Symbol != "" {
		out[key] = m.Symbol
	}
	if m.FilePath != "" {
		out[MetaFilePath] = m.FilePath
	}
	if m.LineNumber != nil {
		out[MetaLineNumber] = *m.LineNumber
	}
	if m.Description != "" {
		out[MetaDescription] = m.Description
	}
	if m.ImagePath != "" {
		out[MetaImagePath] = m.ImagePath
	}
	if m.IsGroup {
		out[MetaIsGroup] = true
	}
	if m.Alias != "" {
		out[MetaAlias] = m.Alias
	}
	return out
}

// decodeMetadata reads a persisted metadata map for kind. Symbol keys
// belonging to other kinds are kept in Extra.
func decodeMetadata(kind Kind, raw map[string]json.RawMessage) (Metadata, error) {
	var m Metadata
	rest := maps.Clone(raw)
	if rest == nil {
		rest = map[string]json.RawMessage{}
	}

	str := func(key string, dst *string) error {
		v, ok := rest[key]
		if !ok {
			return nil
		}
		delete(rest, key)
		if string(v) == "null" {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("metadata %s: %w", key, err)
		}
		return nil
	}

	if key := kind.SymbolKey(); key != "" {
		if err := str(key, &m.Symbol); err != nil {
			return m, err
		}
	}
	for key, dst := range map[string]*string{
		MetaFilePath:    &m.FilePath,
		MetaDescription: &m.Description,
		MetaImagePath:   &m.ImagePath,
		MetaAlias:       &m.Alias,
	} {
		if err := str(key, dst); err != nil {
			return m, err
		}
	}

	if v, ok := rest[MetaLineNumber]; ok {
		delete(rest, MetaLineNumber)
		if string(v) != "null" {
			var line int
			if err := json.Unmarshal(v, &line); err != nil {
				return m, fmt.Errorf("metadata %s: %w", MetaLineNumber, err)
			}
			m.LineNumber = &line
		}
	}
	if v, ok := rest[MetaIsGroup]; ok {
		delete(rest, MetaIsGroup)
		if string(v) != "null" {
			if err := json.Unmarshal(v, &m.IsGroup); err != nil {
				return m, fmt.Errorf("metadata %s: %w", MetaIsGroup, err)
			}
		}
	}

	if len(rest) > 0 {
		m.Extra = rest
	}
	return m, nil
}
