// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package watch reports batched file changes in a set of directories.
//
// # Debouncing
//
// Events are collected until the debounce window passes without a new
// one. The batch is then handed to the handler, once, with duplicate
// paths removed. Editors that save through a temp file and rename
// produce a single batch.
//
// # Thread Safety
//
// Run blocks and calls the handler on its own goroutine, so handlers
// never overlap.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 150 * time.Millisecond

// Handler receives the changed paths of one batch, sorted.
type Handler func(ctx context.Context, paths []string)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter replaces the path filter. Only paths for which keep returns
// true are reported.
func WithFilter(keep func(path string) bool) Option {
	return func(w *Watcher) {
		if keep != nil {
			w.keep = keep
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher watches directories, not recursively.
type Watcher struct {
	fs       *fsnotify.Watcher
	dirs     []string
	debounce time.Duration
	keep     func(string) bool
	logger   *slog.Logger
}

// New watches dirs. Duplicate directories are watched once.
//
// Outputs:
//
//	*Watcher - Call Run to receive batches and Close when done.
//	error - Non-nil if a directory cannot be watched.
func New(dirs []string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		fs:       fsw,
		debounce: DefaultDebounce,
		keep:     SourceFiles,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if slices.Contains(w.dirs, dir) {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs = append(w.dirs, dir)
	}
	return w, nil
}

// Dirs lists the watched directories.
func (w *Watcher) Dirs() []string { return slices.Clone(w.dirs) }

// Close stops watching. Run returns once its channels close.
func (w *Watcher) Close() error { return w.fs.Close() }

// Run delivers batches to handle until ctx is done or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.keep(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			w.logger.Debug("changes detected", slog.Int("paths", len(paths)))
			handle(ctx, paths)
		}
	}
}

// SourceFiles keeps Python sources and extensionless names, which
// covers directories. Hidden, cache and editor temp files are dropped.
func SourceFiles(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."), base == "__pycache__":
		return false
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".tmp"):
		return false
	}
	ext := filepath.Ext(base)
	return ext == ".py" || ext == ""
}

// Named keeps only paths whose base name is name.
func Named(name string) func(string) bool {
	return func(path string) bool { return filepath.Base(path) == name }
}

// WithoutIgnored wraps keep so that paths matched by root/.gitignore are
// dropped as well. Without a readable .gitignore keep is returned as is.
func WithoutIgnored(root string, keep func(string) bool) func(string) bool {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return keep
	}
	return func(path string) bool {
		if !keep(path) {
			return false
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return true
		}
		return !gi.MatchesPath(filepath.ToSlash(rel))
	}
}
