// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/codegraph/services/codegraph/document"
	"github.com/AleutianAI/codegraph/services/codegraph/pysource"
)

// DocResolver finds the docstring of a located block.
//
// Thread Safety:
//
//	Safe for concurrent use.
type DocResolver struct {
	root string
	opts options
}

// NewDocResolver creates a DocResolver for the project rooted at root.
func NewDocResolver(root string, opts ...Option) *DocResolver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &DocResolver{root: root, opts: o}
}

// ResolveDocumentation returns the docstring of block's symbol.
//
// Description:
//
//	Parses the block's recorded file. A declaration of the symbol in
//	that file answers the question, with or without a docstring.
//	Otherwise the first import binding the symbol is followed one hop:
//	the imported module is mapped to a file under the project root, or
//	relative to the importing file for relative imports, and the
//	declaration is looked up there.
//
// Outputs:
//
//	string - The cleaned docstring.
//	bool - False when the block is unlocated, any file is missing or
//	       unparseable, the import cannot be mapped to a file, or the
//	       declaration has no docstring.
func (d *DocResolver) ResolveDocumentation(ctx context.Context, block document.Block) (string, bool) {
	doc, source, ok := d.resolve(ctx, block)
	if !ok {
		source = "none"
	}
	recordDocLookup(ctx, source)
	return doc, ok
}

func (d *DocResolver) resolve(ctx context.Context, block document.Block) (string, string, bool) {
	if !block.Kind.IsSymbol() || block.Metadata.FilePath == "" {
		return "", "", false
	}
	symbol := block.Symbol()
	kind := defKind(block.Kind)
	path := filepath.Join(d.root, filepath.FromSlash(block.Metadata.FilePath))

	mod, err := d.opts.parser.ParseFile(ctx, path)
	if err != nil {
		d.opts.logger.Debug("documentation source unavailable", slog.String("file", path), slog.String("error", err.Error()))
		return "", "", false
	}

	if def, ok := mod.FindFirst(symbol, kind); ok {
		return def.Doc, "local", def.HasDoc
	}

	imp, ok := findBinding(mod, symbol)
	if !ok {
		return "", "", false
	}
	target := d.modulePath(imp, path)
	if target == "" {
		return "", "", false
	}
	imported, err := d.opts.parser.ParseFile(ctx, target)
	if err != nil {
		d.opts.logger.Debug("imported module unavailable", slog.String("file", target), slog.String("error", err.Error()))
		return "", "", false
	}

	name := imp.Name
	if !imp.From {
		name = symbol
	}
	def, ok := imported.FindFirst(name, kind)
	if !ok {
		return "", "", false
	}
	return def.Doc, "import", def.HasDoc
}

// findBinding returns the first import introducing symbol: a from-import
// whose bound name is symbol, or a plain import aliased to symbol or
// whose dotted path contains it.
func findBinding(mod *pysource.Module, symbol string) (pysource.Import, bool) {
	for _, imp := range mod.Imports {
		if imp.From {
			if !imp.Wildcard && imp.BoundName() == symbol {
				return imp, true
			}
			continue
		}
		if imp.Alias == symbol || strings.Contains(imp.Module, symbol) {
			return imp, true
		}
	}
	return pysource.Import{}, false
}

// modulePath maps an import to a source file, or "" when there is none.
//
// Absolute imports start at the project root. Relative imports start at
// the importing file's directory and go up one directory per leading
// dot, so "from .a import x" in pkg/b.py looks for a.py next to pkg.
// "pkg.mod" becomes pkg/mod.py, then pkg/mod/__init__.py.
func (d *DocResolver) modulePath(imp pysource.Import, importer string) string {
	if imp.Module == "" {
		return ""
	}
	base := d.root
	if imp.Level > 0 {
		base = filepath.Dir(importer)
		for range imp.Level {
			base = filepath.Dir(base)
		}
	}
	modPath := filepath.Join(append([]string{base}, strings.Split(imp.Module, ".")...)...)
	if isFile(modPath + ".py") {
		return modPath + ".py"
	}
	if initFile := filepath.Join(modPath, "__init__.py"); isFile(initFile) {
		return initFile
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
