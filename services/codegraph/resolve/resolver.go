// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package resolve answers whether a diagram block's Python symbol exists
// in the project source tree, where it is, and what its docstring says.
//
// Resolution is deliberately shallow. A scope maps to one directory and
// only the .py files directly inside it are scanned. Imports count as
// evidence that a symbol is reachable from that directory, and at most
// one import hop is followed when looking for documentation.
//
// Nothing in this package returns an error to its caller. Files that
// cannot be read or parsed are logged and skipped, and every lookup
// degrades to "not found".
package resolve

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/codegraph/services/codegraph/document"
	"github.com/AleutianAI/codegraph/services/codegraph/pysource"
)

// DefaultExcerptLines is the number of source lines shown for a
// definition match.
const DefaultExcerptLines = 10

// MatchKind tells a declaration from an import that binds the symbol.
type MatchKind int

const (
	MatchDefinition MatchKind = iota
	MatchImport
)

// String returns "definition" or "import".
func (k MatchKind) String() string {
	if k == MatchImport {
		return "import"
	}
	return "definition"
}

// Match is one candidate location of a symbol.
type Match struct {
	// RelPath is the file path relative to the project root.
	RelPath string

	// AbsPath is the absolute file path.
	AbsPath string

	// Line is the 1-based line of the declaration or import statement.
	Line int

	// Excerpt is the source shown to the user when choosing between
	// candidates. Definitions show several lines, imports one.
	Excerpt string

	Kind MatchKind
}

// Outcome classifies a match list.
type Outcome int

const (
	// NotFound means no candidate. The block is flagged as missing.
	NotFound Outcome = iota

	// Resolved means exactly one candidate.
	Resolved

	// Ambiguous means the caller must pick a candidate.
	Ambiguous
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Classify maps a match count to an Outcome.
func Classify(matches []Match) Outcome {
	switch len(matches) {
	case 0:
		return NotFound
	case 1:
		return Resolved
	default:
		return Ambiguous
	}
}

// SearchPath maps a scope to the directory scanned for a kind.
//
// Description:
//
//	FUNCTION and CLASS symbols are looked up in the scope's own
//	directory. METHOD symbols are looked up one directory higher,
//	because a method block lives in a class scope ("root/pkg/Cls") whose
//	defining module sits in the parent directory ("root/pkg"). The rule
//	holds at the root scope too, where methods are looked up in the
//	directory containing the project root.
func SearchPath(root string, scope document.ScopeKey, kind document.Kind) string {
	dir := scope.Dir(root)
	if kind == document.KindMethod {
		return filepath.Dir(dir)
	}
	return dir
}

// =============================================================================
// Resolver
// =============================================================================

// Option configures a Resolver or DocResolver.
type Option func(*options)

type options struct {
	parser       pysource.Source
	excerptLines int
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		parser:       pysource.NewParser(),
		excerptLines: DefaultExcerptLines,
		logger:       slog.Default(),
	}
}

// WithParser sets the source used to index files, e.g. a caching
// wrapper around a *pysource.Parser.
func WithParser(p pysource.Source) Option {
	return func(o *options) {
		if p != nil {
			o.parser = p
		}
	}
}

// WithExcerptLines sets how many lines a definition excerpt spans.
func WithExcerptLines(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.excerptLines = n
		}
	}
}

// WithLogger sets the logger for skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Resolver scans directories for symbol declarations and imports.
//
// Thread Safety:
//
//	Safe for concurrent use. Resolver holds no mutable state and caches
//	nothing between calls.
type Resolver struct {
	root string
	opts options
}

// NewResolver creates a Resolver for the project rooted at root.
func NewResolver(root string, opts ...Option) *Resolver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Resolver{root: root, opts: o}
}

// Root is the project root directory.
func (r *Resolver) Root() string { return r.root }

// SearchPath is SearchPath for this resolver's root.
func (r *Resolver) SearchPath(scope document.ScopeKey, kind document.Kind) string {
	return SearchPath(r.root, scope, kind)
}

// Resolve lists every candidate location of symbol in searchPath.
//
// Description:
//
//	Scans the .py files directly inside searchPath in name order. For
//	each file, definitions of the right shape come first: functions and
//	async functions for FUNCTION and METHOD, classes for CLASS. Then
//	imports that bind the name: "from M import symbol" directly or
//	through its alias, and plain "import a.b" when symbol occurs in the
//	dotted path. For CLASS a plain import aliased to symbol also counts.
//
// Inputs:
//
//	ctx - Checked between files. On cancellation the matches found so
//	      far are returned.
//	symbol - The bare Python name, without "()".
//	searchPath - Directory to scan. Missing directories yield no matches.
//	kind - Non-symbol kinds yield no matches.
//
// Outputs:
//
//	[]Match - Candidates in file order. Nil when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, symbol, searchPath string, kind document.Kind) []Match {
	if symbol == "" || !kind.IsSymbol() {
		return nil
	}

	ctx, span := startResolveSpan(ctx, symbol, kind, searchPath)
	defer span.End()
	start := time.Now()

	files := pythonFiles(searchPath, r.opts.logger)
	var matches []Match
	for _, path := range files {
		if ctx.Err() != nil {
			r.opts.logger.Debug("resolve canceled", slog.String("symbol", symbol), slog.String("dir", searchPath))
			break
		}
		mod, err := r.opts.parser.ParseFile(ctx, path)
		if err != nil {
			r.opts.logger.Warn("skipping unparseable file",
				slog.String("file", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		matches = append(matches, r.scan(mod, symbol, kind)...)
	}

	outcome := Classify(matches)
	setResolveSpanResult(span, len(files), len(matches), outcome)
	recordResolveMetrics(ctx, time.Since(start), outcome)
	return matches
}

func (r *Resolver) scan(mod *pysource.Module, symbol string, kind document.Kind) []Match {
	var out []Match
	for _, def := range mod.Find(symbol, defKind(kind)) {
		out = append(out, r.match(mod, def.Line, MatchDefinition, r.opts.excerptLines))
	}
	for _, imp := range mod.Imports {
		if importBinds(imp, symbol, kind) {
			out = append(out, r.match(mod, imp.Line, MatchImport, 1))
		}
	}
	return out
}

func importBinds(imp pysource.Import, symbol string, kind document.Kind) bool {
	if imp.From {
		return !imp.Wildcard && (imp.Name == symbol || imp.Alias == symbol)
	}
	if strings.Contains(imp.Module, symbol) {
		return true
	}
	return kind == document.KindClass && imp.Alias == symbol
}

func (r *Resolver) match(mod *pysource.Module, line int, kind MatchKind, lines int) Match {
	rel, err := filepath.Rel(r.root, mod.Path)
	if err != nil {
		rel = mod.Path
	}
	return Match{
		RelPath: filepath.ToSlash(rel),
		AbsPath: mod.Path,
		Line:    line,
		Excerpt: strings.TrimRight(mod.Excerpt(line, lines), "\r\n"),
		Kind:    kind,
	}
}

func defKind(kind document.Kind) pysource.DefKind {
	if kind == document.KindClass {
		return pysource.DefClass
	}
	return pysource.DefFunction
}

// pythonFiles lists regular .py files directly inside dir, sorted by
// name.
func pythonFiles(dir string, logger *slog.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cannot list source directory", slog.String("dir", dir), slog.String("error", err.Error()))
		}
		return nil
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".py") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files
}
