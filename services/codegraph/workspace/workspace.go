// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package workspace is the editing session over one code graph project.
//
// A Workspace owns the project document, the active scope and the undo
// history of that scope. It is the contract any front end follows: every
// edit goes through the command engine, symbols are resolved before a
// block is created, ambiguity is handed to a Chooser, and the active
// scope is validated before every save. Switching scope clears the
// history, because commands are bound to the scope they were issued in.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/codegraph/services/codegraph/command"
	"github.com/AleutianAI/codegraph/services/codegraph/document"
	"github.com/AleutianAI/codegraph/services/codegraph/editor"
	"github.com/AleutianAI/codegraph/services/codegraph/project"
	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
)

var (
	// ErrCanceled is returned when the user cancels disambiguation.
	ErrCanceled = errors.New("canceled")

	// ErrNoProjectPath is returned by Save before a path is known.
	ErrNoProjectPath = errors.New("no project file path")

	// ErrNoRoot is returned by operations that need the source tree
	// when the project has no root path.
	ErrNoRoot = errors.New("no project root path")

	// ErrUnlocated is returned when opening a block with no recorded file.
	ErrUnlocated = errors.New("block location unknown")

	// ErrWrongKind is returned when an operation does not apply to a
	// block's kind.
	ErrWrongKind = errors.New("operation not valid for block kind")

	// ErrInvalidChoice is returned when a Chooser picks an index out of
	// range.
	ErrInvalidChoice = errors.New("invalid choice")
)

// Row spacing and first row of automatically placed blocks.
const (
	defaultTop     = 150
	defaultSpacing = 100
)

// Point is a diagram position.
type Point struct {
	X, Y float64
}

// Rect is a diagram area.
type Rect struct {
	X, Y, Width, Height float64
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithChooser sets the disambiguation prompt. Without one, ambiguous
// symbols are created unlocated.
func WithChooser(c Chooser) Option {
	return func(w *Workspace) {
		w.chooser = c
	}
}

// WithEditor sets the external editor.
func WithEditor(l *editor.Launcher) Option {
	return func(w *Workspace) {
		if l != nil {
			w.editor = l
		}
	}
}

// WithResolverOptions passes options to the resolvers.
func WithResolverOptions(opts ...resolve.Option) Option {
	return func(w *Workspace) {
		w.resolverOpts = append(w.resolverOpts, opts...)
	}
}

// WithProjectPath sets the file Save writes to.
func WithProjectPath(path string) Option {
	return func(w *Workspace) {
		w.path = path
	}
}

// Workspace is one editing session.
//
// Thread Safety:
//
//	Not safe for concurrent use. A session runs on one goroutine.
type Workspace struct {
	project      *project.Project
	path         string
	current      document.ScopeKey
	engine       *command.Engine
	resolver     *resolve.Resolver
	docs         *resolve.DocResolver
	resolverOpts []resolve.Option
	editor       *editor.Launcher
	chooser      Chooser
	logger       *slog.Logger
	dirty        bool
}

// New starts a session on p at the root scope.
func New(p *project.Project, opts ...Option) *Workspace {
	w := &Workspace{
		project: p,
		current: document.RootScope,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.editor == nil {
		w.editor = editor.New(editor.WithLogger(w.logger))
	}
	w.engine = command.NewEngine(
		command.WithLogger(w.logger),
		command.WithChangeHook(func() { w.dirty = true }),
	)
	w.resetResolvers()
	return w
}

// Open starts a session on the project file at path, or on a new empty
// project rooted at root when the file does not exist yet.
func Open(path, root string, opts ...Option) (*Workspace, error) {
	opts = append([]Option{WithProjectPath(path)}, opts...)
	if !project.Exists(path) {
		return New(project.New(root), opts...), nil
	}
	p, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	if p.RootPath == "" {
		p.RootPath = root
	}
	return New(p, opts...), nil
}

func (w *Workspace) resetResolvers() {
	opts := append([]resolve.Option{resolve.WithLogger(w.logger)}, w.resolverOpts...)
	w.resolver = resolve.NewResolver(w.project.RootPath, opts...)
	w.docs = resolve.NewDocResolver(w.project.RootPath, opts...)
}

// Project is the project being edited.
func (w *Workspace) Project() *project.Project { return w.project }

// Document is the project document.
func (w *Workspace) Document() *document.Document { return w.project.Document }

// Root is the project root directory.
func (w *Workspace) Root() string { return w.project.RootPath }

// Path is the project file path, or "".
func (w *Workspace) Path() string { return w.path }

// Resolver is the existence resolver for the project root.
func (w *Workspace) Resolver() *resolve.Resolver { return w.resolver }

// Current is the active scope key.
func (w *Workspace) Current() document.ScopeKey { return w.current }

// Scope is the active scope.
func (w *Workspace) Scope() *document.Scope {
	s, _ := w.project.Document.EnsureScope(w.current)
	return s
}

// Dirty reports unsaved edits.
func (w *Workspace) Dirty() bool { return w.dirty }

// Engine is the undo history of the active scope.
func (w *Workspace) Engine() *command.Engine { return w.engine }

// =============================================================================
// Navigation
// =============================================================================

// Navigate makes key the active scope, creating it if needed. The undo
// history is cleared.
func (w *Workspace) Navigate(key document.ScopeKey) {
	if _, created := w.project.Document.EnsureScope(key); created {
		w.logger.Debug("scope created", slog.String("scope", string(key)))
	}
	w.current = key
	dirty := w.dirty
	w.engine.Clear()
	w.dirty = dirty
	w.logger.Info("scope opened", slog.String("scope", string(key)))
}

// Up navigates to the parent scope. At the root it does nothing.
func (w *Workspace) Up() {
	if parent, ok := w.current.Parent(); ok {
		w.Navigate(parent)
	}
}

// Activate performs a block's navigation action: subdirectories and
// classes open their scope, functions and methods open the editor, and
// other kinds do nothing.
func (w *Workspace) Activate(id string) (document.Navigation, error) {
	b, err := w.block(id)
	if err != nil {
		return document.NavNone, err
	}
	nav := b.Kind.Navigation()
	switch nav {
	case document.NavOpenScope:
		w.Navigate(w.current.Child(b.Name))
	case document.NavOpenEditor:
		if err := w.OpenInEditor(id); err != nil {
			return nav, err
		}
	}
	return nav, nil
}

// Subscopes lists the blocks of the active scope that open a scope,
// subdirectories first, then classes.
func (w *Workspace) Subscopes() []document.Block {
	s := w.Scope()
	return append(s.BlocksOfKind(document.KindSubdirectory), s.BlocksOfKind(document.KindClass)...)
}

// =============================================================================
// Creating blocks
// =============================================================================

// defaultPosition places a new block below the existing ones.
func (w *Workspace) defaultPosition(kind document.Kind, at *Point) Point {
	if at != nil {
		return *at
	}
	x := 150.0
	switch kind {
	case document.KindClass:
		x = 300
	case document.KindSubdirectory:
		x = 400
	}
	return Point{X: x, Y: defaultTop + defaultSpacing*float64(w.Scope().Len())}
}

// Resolve lists the candidates for symbol as a kind in the active scope.
func (w *Workspace) Resolve(ctx context.Context, kind document.Kind, symbol string) []resolve.Match {
	return w.resolver.Resolve(ctx, symbol, w.resolver.SearchPath(w.current, kind), kind)
}

// AddSymbol creates a FUNCTION, METHOD or CLASS block.
//
// Description:
//
//	Resolves symbol in the kind's search path. No match creates a block
//	flagged missing. One match locates the block there. Several matches
//	are handed to the Chooser: the user picks one, creates the block
//	unlocated, or cancels, in which case nothing changes and ErrCanceled
//	is returned.
//
// Inputs:
//
//	kind - FUNCTION, METHOD or CLASS.
//	symbol - Python name without "()".
//	at - Position, or nil for the next free row.
func (w *Workspace) AddSymbol(ctx context.Context, kind document.Kind, symbol string, at *Point) (document.Block, error) {
	symbol = strings.TrimSuffix(strings.TrimSpace(symbol), "()")
	if !kind.IsSymbol() {
		return document.Block{}, fmt.Errorf("%w: %s", ErrWrongKind, kind)
	}
	if symbol == "" {
		return document.Block{}, document.ErrEmptyName
	}
	if w.project.RootPath == "" {
		return document.Block{}, ErrNoRoot
	}

	matches := w.Resolve(ctx, kind, symbol)
	meta := document.Metadata{Symbol: symbol}
	exists := len(matches) > 0

	var chosen *resolve.Match
	switch resolve.Classify(matches) {
	case resolve.Resolved:
		chosen = &matches[0]
	case resolve.Ambiguous:
		choice := Choice{Action: Unlocated}
		if w.chooser != nil {
			var err error
			if choice, err = w.chooser.Choose(ctx, symbol, kind, matches); err != nil {
				return document.Block{}, err
			}
		}
		switch choice.Action {
		case Cancel:
			return document.Block{}, ErrCanceled
		case Pick:
			if choice.Index < 0 || choice.Index >= len(matches) {
				return document.Block{}, fmt.Errorf("%w: %d of %d", ErrInvalidChoice, choice.Index, len(matches))
			}
			chosen = &matches[choice.Index]
		}
	}
	if chosen != nil {
		line := chosen.Line
		meta.FilePath = chosen.RelPath
		meta.LineNumber = &line
	}

	pos := w.defaultPosition(kind, at)
	b, err := w.add(document.BlockSpec{
		Kind:     kind,
		Name:     kind.DisplayLabel(symbol),
		X:        pos.X,
		Y:        pos.Y,
		Metadata: meta,
		Exists:   exists,
	})
	if err != nil {
		return document.Block{}, err
	}
	w.logger.Info("symbol block added",
		slog.String("kind", kind.String()),
		slog.String("symbol", symbol),
		slog.Bool("exists", exists),
		slog.String("file", meta.FilePath),
	)
	return b, nil
}

// AddSubdirectory creates a SUBDIRECTORY block, flagged missing when the
// directory does not exist.
func (w *Workspace) AddSubdirectory(name string, at *Point) (document.Block, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return document.Block{}, document.ErrEmptyName
	}
	exists := false
	if w.project.RootPath != "" {
		exists = w.resolver.SubdirectoryExists(w.current, name)
	}
	pos := w.defaultPosition(document.KindSubdirectory, at)
	return w.add(document.BlockSpec{
		Kind:   document.KindSubdirectory,
		Name:   name,
		X:      pos.X,
		Y:      pos.Y,
		Exists: exists,
	})
}

// AddOther creates an annotation block.
func (w *Workspace) AddOther(name, description string, at *Point) (document.Block, error) {
	pos := w.defaultPosition(document.KindOther, at)
	return w.add(document.BlockSpec{
		Kind:     document.KindOther,
		Name:     strings.TrimSpace(name),
		X:        pos.X,
		Y:        pos.Y,
		Metadata: document.Metadata{Description: description},
		Exists:   true,
	})
}

// AddImage creates an IMAGE block named after the image file.
func (w *Workspace) AddImage(imagePath string, at *Point) (document.Block, error) {
	if strings.TrimSpace(imagePath) == "" {
		return document.Block{}, document.ErrEmptyName
	}
	pos := w.defaultPosition(document.KindImage, at)
	return w.add(document.BlockSpec{
		Kind:     document.KindImage,
		Name:     filepath.Base(imagePath),
		X:        pos.X,
		Y:        pos.Y,
		Metadata: document.Metadata{ImagePath: imagePath},
		Exists:   true,
	})
}

// AddGroup creates a GROUP container covering area.
func (w *Workspace) AddGroup(name string, area Rect) (document.Block, error) {
	return w.add(document.BlockSpec{
		Kind:   document.KindGroup,
		Name:   strings.TrimSpace(name),
		X:      area.X,
		Y:      area.Y,
		Width:  area.Width,
		Height: area.Height,
		Exists: true,
	})
}

func (w *Workspace) add(spec document.BlockSpec) (document.Block, error) {
	cmd := command.NewAddBlock(w.project.Document, w.current, spec)
	if err := w.engine.Push(cmd); err != nil {
		return document.Block{}, err
	}
	b, _ := w.Scope().Block(cmd.BlockID())
	return b, nil
}

// =============================================================================
// Editing
// =============================================================================

func (w *Workspace) block(id string) (document.Block, error) {
	b, ok := w.Scope().Block(id)
	if !ok {
		return document.Block{}, fmt.Errorf("%s: %w", id, document.ErrBlockNotFound)
	}
	return b, nil
}

// Delete removes blocks and connections as one undoable step.
// Connections go first so that a connection also removed by a block's
// cascade is not deleted twice.
func (w *Workspace) Delete(blockIDs, connectionIDs []string) error {
	n := len(blockIDs) + len(connectionIDs)
	if n == 0 {
		return nil
	}
	doc := w.project.Document
	return w.engine.Macro(fmt.Sprintf("Delete %d item(s)", n), func() error {
		for _, id := range connectionIDs {
			if err := w.engine.Push(command.NewDeleteConnection(doc, w.current, id)); err != nil {
				return err
			}
		}
		for _, id := range blockIDs {
			if err := w.engine.Push(command.NewDeleteBlock(doc, w.current, id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Connect joins two blocks of the active scope.
func (w *Workspace) Connect(spec document.ConnectionSpec) (document.Connection, error) {
	cmd := command.NewAddConnection(w.project.Document, w.current, spec)
	if err := w.engine.Push(cmd); err != nil {
		return document.Connection{}, err
	}
	c, _ := w.Scope().Connection(cmd.ConnectionID())
	return c, nil
}

// Move places a block at (x, y), keeping its size.
func (w *Workspace) Move(id string, x, y float64) error {
	b, err := w.block(id)
	if err != nil {
		return err
	}
	g := b.Geometry
	g.X, g.Y = x, y
	return w.engine.Push(command.NewMoveBlock(w.project.Document, w.current, id, g))
}

// Resize sets a block's size. Sizes below the kind minimum are clamped.
func (w *Workspace) Resize(id string, width, height float64) error {
	b, err := w.block(id)
	if err != nil {
		return err
	}
	g := b.Geometry
	g.Width, g.Height = width, height
	return w.engine.Push(command.NewMoveBlock(w.project.Document, w.current, id, g))
}

// Rename sets a block's display alias. An empty alias restores the
// canonical name.
func (w *Workspace) Rename(id, alias string) error {
	if _, err := w.block(id); err != nil {
		return err
	}
	return w.engine.Push(command.NewRenameBlock(w.project.Document, w.current, id, alias))
}

// Restyle replaces a block's style.
func (w *Workspace) Restyle(id string, style document.Style) error {
	if _, err := w.block(id); err != nil {
		return err
	}
	return w.engine.Push(command.NewChangeBlockStyle(w.project.Document, w.current, id, style))
}

// RestyleConnection replaces a connection's appearance.
func (w *Workspace) RestyleConnection(id string, a document.Appearance) error {
	return w.engine.Push(command.NewChangeConnectionStyle(w.project.Document, w.current, id, a))
}

// Describe sets a block's free-text description. Descriptions are notes,
// not diagram edits, and are not recorded in the undo history.
func (w *Workspace) Describe(id, text string) error {
	if err := w.Scope().SetDescription(id, text); err != nil {
		return err
	}
	w.dirty = true
	return nil
}

// Undo reverts the last edit of the active scope.
func (w *Workspace) Undo() error { return w.engine.Undo() }

// Redo reapplies the last undone edit.
func (w *Workspace) Redo() error { return w.engine.Redo() }

// =============================================================================
// Source tree
// =============================================================================

// Validate checks every block of the active scope against the source
// tree and records the results.
func (w *Workspace) Validate(ctx context.Context) (resolve.Report, error) {
	if w.project.RootPath == "" {
		return resolve.Report{}, ErrNoRoot
	}
	s := w.Scope()
	report := w.resolver.ValidateAll(ctx, w.current, s.Blocks())
	if err := report.Apply(s); err != nil {
		return report, err
	}
	w.dirty = true
	w.logger.Info("scope validated",
		slog.String("scope", string(w.current)),
		slog.Int("validated", report.Validated()),
		slog.Int("missing", len(report.Missing())),
	)
	return report, nil
}

// Documentation returns the docstring of a block's symbol.
func (w *Workspace) Documentation(ctx context.Context, id string) (string, bool) {
	b, err := w.block(id)
	if err != nil {
		return "", false
	}
	return w.docs.ResolveDocumentation(ctx, b)
}

// OpenInEditor opens a located block's file at its line.
func (w *Workspace) OpenInEditor(id string) error {
	b, err := w.block(id)
	if err != nil {
		return err
	}
	if !b.Kind.IsSymbol() {
		return fmt.Errorf("%w: %s", ErrWrongKind, b.Kind)
	}
	if b.Metadata.FilePath == "" {
		return fmt.Errorf("%s: %w", b.DisplayName(), ErrUnlocated)
	}
	line := 1
	if b.Metadata.LineNumber != nil {
		line = *b.Metadata.LineNumber
	}
	path := filepath.Join(w.project.RootPath, filepath.FromSlash(b.Metadata.FilePath))
	return w.editor.Open(path, line)
}

// =============================================================================
// Persistence
// =============================================================================

// Save validates the active scope and writes the project file.
func (w *Workspace) Save(ctx context.Context) (resolve.Report, error) {
	if w.path == "" {
		return resolve.Report{}, ErrNoProjectPath
	}
	var report resolve.Report
	if w.project.RootPath != "" {
		var err error
		if report, err = w.Validate(ctx); err != nil {
			return report, err
		}
	}
	if err := project.Save(w.path, w.project); err != nil {
		return report, err
	}
	w.dirty = false
	w.logger.Info("project saved", slog.String("path", w.path))
	return report, nil
}

// SaveAs sets the project file path and saves.
func (w *Workspace) SaveAs(ctx context.Context, path string) (resolve.Report, error) {
	w.path = path
	return w.Save(ctx)
}

// Load replaces the session with the project file at path. On error the
// current session is unchanged.
func (w *Workspace) Load(path string) error {
	p, err := project.Load(path)
	if err != nil {
		return err
	}
	w.project = p
	w.path = path
	w.current = document.RootScope
	w.engine.Clear()
	w.resetResolvers()
	w.dirty = false
	w.logger.Info("project loaded", slog.String("path", path), slog.String("root", p.RootPath))
	return nil
}
