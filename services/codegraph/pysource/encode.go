// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pysource

import (
	"encoding/json"
	"errors"
)

// ErrCorruptIndex is returned when an encoded module cannot be decoded.
var ErrCorruptIndex = errors.New("corrupt module index")

type moduleWire struct {
	Path        string       `json:"path"`
	Definitions []Definition `json:"definitions"`
	Imports     []Import     `json:"imports"`
	Lines       []string     `json:"lines"`
}

// Encode serialises the module, source lines included, for caching.
func (m *Module) Encode() ([]byte, error) {
	return json.Marshal(moduleWire{
		Path:        m.Path,
		Definitions: m.Definitions,
		Imports:     m.Imports,
		Lines:       m.lines,
	})
}

// DecodeModule restores a module written by Encode.
func DecodeModule(data []byte) (*Module, error) {
	var w moduleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Join(ErrCorruptIndex, err)
	}
	return &Module{
		Path:        w.Path,
		Definitions: w.Definitions,
		Imports:     w.Imports,
		lines:       w.Lines,
	}, nil
}
