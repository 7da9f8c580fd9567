// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package project reads and writes code graph project files.
//
// A project file is one JSON object. Every key except the reserved
// "_root_path" is a scope key mapping to that scope's blocks and
// connections:
//
//	{
//	  "_root_path": "/home/me/src/app",
//	  "root": {"blocks": [...], "connections": [...]},
//	  "root/pkg": {"blocks": [...], "connections": [...]}
//	}
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/codegraph/services/codegraph/document"
)

// DefaultFileName is the project file looked up in a project root.
const DefaultFileName = "codegraph.cg"

// RootPathKey is the reserved key holding the project root.
const RootPathKey = "_root_path"

var (
	// ErrReadProject wraps failures to read a project file.
	ErrReadProject = errors.New("read project")

	// ErrDecodeProject wraps malformed project files.
	ErrDecodeProject = errors.New("decode project")

	// ErrWriteProject wraps failures to write a project file.
	ErrWriteProject = errors.New("write project")
)

// Project is a document plus the source tree it describes.
type Project struct {
	// RootPath is the absolute project root.
	RootPath string

	Document *document.Document
}

// New creates an empty project rooted at rootPath.
func New(rootPath string, opts ...document.Option) *Project {
	return &Project{RootPath: rootPath, Document: document.New(opts...)}
}

// DefaultPath is the project file inside root.
func DefaultPath(root string) string {
	return filepath.Join(root, DefaultFileName)
}

// Exists reports whether a project file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Encode renders p in the project file format.
func Encode(p *Project) ([]byte, error) {
	scopes, err := p.Document.Serialize()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(scopes)+1)
	for key, data := range scopes {
		out[string(key)] = data
	}
	out[RootPathKey] = p.RootPath
	return json.MarshalIndent(out, "", "  ")
}

// Decode parses the project file format.
func Decode(data []byte, opts ...document.Option) (*Project, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeProject, err)
	}

	p := &Project{}
	scopes := make(map[document.ScopeKey]document.ScopeData, len(raw))
	for key, value := range raw {
		if key == RootPathKey {
			if err := json.Unmarshal(value, &p.RootPath); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrDecodeProject, key, err)
			}
			continue
		}
		if strings.HasPrefix(key, "_") {
			continue
		}
		var sd document.ScopeData
		if err := json.Unmarshal(value, &sd); err != nil {
			return nil, fmt.Errorf("%w: scope %q: %w", ErrDecodeProject, key, err)
		}
		scopes[document.ScopeKey(key)] = sd
	}

	doc, err := document.Deserialize(scopes, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeProject, err)
	}
	p.Document = doc
	return p, nil
}

// Load reads the project file at path.
//
// Description:
//
//	Returns a fresh Project. On any error nothing the caller holds is
//	touched, so a failed load leaves the current session intact.
//
// Outputs:
//
//	*Project - The loaded project.
//	error - Wraps ErrReadProject or ErrDecodeProject with the cause.
func Load(path string, opts ...document.Option) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadProject, err)
	}
	p, err := Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path atomically.
//
// Description:
//
//	The file is written to a temporary file in the target directory,
//	synced, and renamed over path. A failure at any step removes the
//	temporary file and leaves a previously saved file untouched.
func Save(path string, p *Project) error {
	data, err := Encode(p)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWriteProject, err)
	}

	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".codegraph-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrWriteProject, err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("%w: write: %w", ErrWriteProject, err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("%w: sync: %w", ErrWriteProject, err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrWriteProject, err)
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		return fmt.Errorf("%w: chmod: %w", ErrWriteProject, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrWriteProject, err)
	}

	success = true
	return nil
}
