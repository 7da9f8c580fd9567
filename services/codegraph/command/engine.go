// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package command implements undoable edits of a code graph document.
//
// Every mutation is a Command that knows how to apply itself and how
// to revert exactly what it applied. The Engine keeps a linear history
// with a cursor: pushing applies a command and discards anything that
// was undone, undo reverts the command before the cursor, redo reapplies
// the one after it. Macros group several commands into one history
// entry so that, for example, deleting a selection is undone in a
// single step.
//
// # Thread Safety
//
// Engine is not safe for concurrent use. One engine belongs to one
// editing session, and that session owns the document it edits.
package command

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrMacroOpen is returned by Undo and Redo while a macro is being
	// recorded.
	ErrMacroOpen = errors.New("macro in progress")

	// ErrNoMacro is returned by EndMacro without a matching BeginMacro.
	ErrNoMacro = errors.New("no macro in progress")
)

// Command is a reversible edit.
//
// Apply performs the edit. It is called once on push and again on every
// redo, and must reproduce the same state each time. Revert undoes the
// most recent Apply. A failed Apply must leave the document unchanged.
type Command interface {
	Name() string
	Apply() error
	Revert() error
}

// Engine is the undo/redo history.
type Engine struct {
	history []Command
	cursor  int
	open    []*Macro
	logger  *slog.Logger
	changed func()
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for history events.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithChangeHook registers fn to run after every successful push, undo,
// redo or clear.
func WithChangeHook(fn func()) EngineOption {
	return func(e *Engine) {
		e.changed = fn
	}
}

// NewEngine creates an empty history.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) notify() {
	if e.changed != nil {
		e.changed()
	}
}

// Push applies cmd and records it.
//
// Description:
//
//	Outside a macro the redo tail is discarded and cmd becomes the new
//	last entry. Inside a macro cmd is appended to the innermost open
//	macro. If cmd.Apply fails nothing is recorded and the error is
//	returned; the history is left as it was.
func (e *Engine) Push(cmd Command) error {
	if err := cmd.Apply(); err != nil {
		e.logger.Debug("command rejected", slog.String("command", cmd.Name()), slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	if n := len(e.open); n > 0 {
		e.open[n-1].children = append(e.open[n-1].children, cmd)
		return nil
	}
	e.record(cmd)
	e.logger.Debug("command pushed", slog.String("command", cmd.Name()), slog.Int("depth", e.cursor))
	e.notify()
	return nil
}

func (e *Engine) record(cmd Command) {
	e.history = append(e.history[:e.cursor], cmd)
	e.cursor = len(e.history)
}

// Undo reverts the command before the cursor. At the start of history
// it does nothing.
func (e *Engine) Undo() error {
	if len(e.open) > 0 {
		return ErrMacroOpen
	}
	if e.cursor == 0 {
		return nil
	}
	cmd := e.history[e.cursor-1]
	if err := cmd.Revert(); err != nil {
		return fmt.Errorf("undo %s: %w", cmd.Name(), err)
	}
	e.cursor--
	e.logger.Debug("command undone", slog.String("command", cmd.Name()))
	e.notify()
	return nil
}

// Redo reapplies the command at the cursor. At the end of history it
// does nothing.
func (e *Engine) Redo() error {
	if len(e.open) > 0 {
		return ErrMacroOpen
	}
	if e.cursor == len(e.history) {
		return nil
	}
	cmd := e.history[e.cursor]
	if err := cmd.Apply(); err != nil {
		return fmt.Errorf("redo %s: %w", cmd.Name(), err)
	}
	e.cursor++
	e.logger.Debug("command redone", slog.String("command", cmd.Name()))
	e.notify()
	return nil
}

// CanUndo reports whether Undo would revert something.
func (e *Engine) CanUndo() bool { return len(e.open) == 0 && e.cursor > 0 }

// CanRedo reports whether Redo would reapply something.
func (e *Engine) CanRedo() bool { return len(e.open) == 0 && e.cursor < len(e.history) }

// UndoName is the name of the command Undo would revert, or "".
func (e *Engine) UndoName() string {
	if !e.CanUndo() {
		return ""
	}
	return e.history[e.cursor-1].Name()
}

// RedoName is the name of the command Redo would reapply, or "".
func (e *Engine) RedoName() string {
	if !e.CanRedo() {
		return ""
	}
	return e.history[e.cursor].Name()
}

// Len is the number of recorded entries, including undone ones.
func (e *Engine) Len() int { return len(e.history) }

// Cursor is the number of entries currently applied.
func (e *Engine) Cursor() int { return e.cursor }

// History lists entry names, oldest first.
func (e *Engine) History() []string {
	names := make([]string, len(e.history))
	for i, cmd := range e.history {
		names[i] = cmd.Name()
	}
	return names
}

// Clear drops all history and any open macro without touching the
// document.
func (e *Engine) Clear() {
	e.history = nil
	e.cursor = 0
	e.open = nil
	e.notify()
}

// =============================================================================
// Macros
// =============================================================================

// Macro is a composite command: applied in order, reverted in reverse.
type Macro struct {
	name     string
	children []Command
}

// Name implements Command.
func (m *Macro) Name() string { return m.name }

// Len is the number of grouped commands.
func (m *Macro) Len() int { return len(m.children) }

// Apply implements Command.
func (m *Macro) Apply() error {
	for i, cmd := range m.children {
		if err := cmd.Apply(); err != nil {
			return errors.Join(err, m.rollback(i))
		}
	}
	return nil
}

// Revert implements Command.
func (m *Macro) Revert() error {
	for i := len(m.children) - 1; i >= 0; i-- {
		if err := m.children[i].Revert(); err != nil {
			return err
		}
	}
	return nil
}

// rollback reverts the first n children, newest first. Every child is
// attempted; the failures are joined.
func (m *Macro) rollback(n int) error {
	var errs []error
	for i := n - 1; i >= 0; i-- {
		if err := m.children[i].Revert(); err != nil {
			errs = append(errs, fmt.Errorf("revert %s: %w", m.children[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// BeginMacro starts grouping pushes under name. Macros nest; only the
// outermost one becomes a history entry.
func (e *Engine) BeginMacro(name string) {
	e.open = append(e.open, &Macro{name: name})
}

// EndMacro closes the innermost macro. An empty macro is dropped and
// leaves the history as it was. Recording a non-empty outermost macro
// discards the redo tail, like Push.
func (e *Engine) EndMacro() error {
	n := len(e.open)
	if n == 0 {
		return ErrNoMacro
	}
	m := e.open[n-1]
	e.open = e.open[:n-1]
	if len(m.children) == 0 {
		return nil
	}
	if n > 1 {
		parent := e.open[n-2]
		parent.children = append(parent.children, m)
		return nil
	}
	e.record(m)
	e.logger.Debug("macro recorded", slog.String("command", m.name), slog.Int("size", len(m.children)))
	e.notify()
	return nil
}

// Macro runs fn inside a macro named name. If fn fails, everything it
// pushed is reverted and nothing is recorded.
func (e *Engine) Macro(name string, fn func() error) error {
	e.BeginMacro(name)
	depth := len(e.open)
	if err := fn(); err != nil {
		var rollbackErrs []error
		for len(e.open) >= depth {
			m := e.open[len(e.open)-1]
			e.open = e.open[:len(e.open)-1]
			if rerr := m.rollback(len(m.children)); rerr != nil {
				rollbackErrs = append(rollbackErrs, rerr)
			}
		}
		if rerr := errors.Join(rollbackErrs...); rerr != nil {
			e.logger.Warn("macro rollback incomplete",
				slog.String("command", name),
				slog.String("error", rerr.Error()),
			)
			return errors.Join(err, rerr)
		}
		return err
	}
	return e.EndMacro()
}
