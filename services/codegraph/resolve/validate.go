// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AleutianAI/codegraph/services/codegraph/document"
)

// LineChange says what validation does to a block's recorded line.
type LineChange int

const (
	// LineKept leaves the line as it was.
	LineKept LineChange = iota

	// LineSet records the line of the single match.
	LineSet

	// LineCleared drops the line of a symbol that no longer exists.
	LineCleared
)

// Validation is the existence check of one block.
type Validation struct {
	BlockID string
	Name    string
	Kind    document.Kind
	Exists  bool

	// Outcome and Matches are only meaningful for symbol kinds.
	Outcome Outcome
	Matches []Match

	LineChange LineChange
	Line       int
}

// Report is the result of validating one scope.
type Report struct {
	Scope   document.ScopeKey
	Results []Validation
}

// Validated is the number of blocks checked.
func (r Report) Validated() int { return len(r.Results) }

// Missing lists the blocks that do not exist.
func (r Report) Missing() []Validation {
	var out []Validation
	for _, v := range r.Results {
		if !v.Exists {
			out = append(out, v)
		}
	}
	return out
}

// Summary is a one-line status message.
func (r Report) Summary() string {
	missing := len(r.Missing())
	if missing == 0 {
		return fmt.Sprintf("all %d blocks exist in the source tree", r.Validated())
	}
	return fmt.Sprintf("validated %d blocks, %d missing", r.Validated(), missing)
}

// Apply writes existence flags and line numbers into scope.
//
// Validation results are not undoable edits: they record facts about
// the file system, so they bypass the command history.
func (r Report) Apply(scope *document.Scope) error {
	for _, v := range r.Results {
		if err := scope.SetExistence(v.BlockID, v.Exists); err != nil {
			return err
		}
		switch v.LineChange {
		case LineSet:
			if err := scope.SetLineNumber(v.BlockID, v.Line); err != nil {
				return err
			}
		case LineCleared:
			if err := scope.SetLineNumber(v.BlockID, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateAll checks every block of a scope against the source tree.
//
// Description:
//
//	FUNCTION, METHOD and CLASS blocks are resolved again by symbol name
//	in their kind's search path. The line number is refreshed only when
//	exactly one candidate exists and is cleared when none does.
//	SUBDIRECTORY blocks exist when a directory of that name exists in
//	the scope's directory. OTHER, GROUP and IMAGE blocks always exist.
//
// Outputs:
//
//	Report - One Validation per block, in block order. The document is
//	         not modified; call Report.Apply.
func (r *Resolver) ValidateAll(ctx context.Context, scope document.ScopeKey, blocks []document.Block) Report {
	report := Report{Scope: scope, Results: make([]Validation, 0, len(blocks))}
	for _, b := range blocks {
		v := Validation{BlockID: b.ID, Name: b.DisplayName(), Kind: b.Kind, Exists: true}
		switch b.Kind {
		case document.KindFunction, document.KindMethod, document.KindClass:
			v.Matches = r.Resolve(ctx, b.Symbol(), r.SearchPath(scope, b.Kind), b.Kind)
			v.Outcome = Classify(v.Matches)
			switch v.Outcome {
			case NotFound:
				v.Exists = false
				v.LineChange = LineCleared
			case Resolved:
				v.LineChange = LineSet
				v.Line = v.Matches[0].Line
			}
		case document.KindSubdirectory:
			v.Exists = r.SubdirectoryExists(scope, b.Name)
		case document.KindOther, document.KindGroup, document.KindImage:
			v.Exists = true
		}
		report.Results = append(report.Results, v)
	}
	return report
}

// SubdirectoryExists reports whether name is a directory inside the
// scope's directory.
func (r *Resolver) SubdirectoryExists(scope document.ScopeKey, name string) bool {
	return isDir(filepath.Join(scope.Dir(r.root), name))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
