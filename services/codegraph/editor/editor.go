// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package editor opens source files at a line in an external editor.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultCommand is the editor executable.
const DefaultCommand = "code"

// DefaultArgs opens a file at a line in Visual Studio Code. {file} and
// {line} are substituted.
var DefaultArgs = []string{"--goto", "{file}:{line}"}

var (
	// ErrFileNotFound is returned when the target file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrLaunch wraps failures to start the editor process.
	ErrLaunch = errors.New("launch editor")
)

// Runner starts a process without waiting for it.
type Runner func(name string, args ...string) error

// Option configures a Launcher.
type Option func(*Launcher)

// WithCommand sets the editor executable and its argument template.
// Empty values keep the defaults.
func WithCommand(command string, args []string) Option {
	return func(l *Launcher) {
		if command != "" {
			l.command = command
		}
		if len(args) > 0 {
			l.args = append([]string(nil), args...)
		}
	}
}

// WithRunner replaces process creation, for tests.
func WithRunner(r Runner) Option {
	return func(l *Launcher) {
		if r != nil {
			l.runner = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Launcher starts the configured editor.
type Launcher struct {
	command string
	args    []string
	runner  Runner
	logger  *slog.Logger
}

// New creates a Launcher.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		command: DefaultCommand,
		args:    DefaultArgs,
		runner:  startDetached,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open starts the editor on path at line.
//
// The process is started directly, never through a shell, and is not
// waited on. Lines below 1 open line 1.
func (l *Launcher) Open(path string, line int) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if line < 1 {
		line = 1
	}
	args := l.Args(path, line)
	if err := l.runner(l.command, args...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLaunch, l.command, err)
	}
	l.logger.Info("opened editor", slog.String("file", path), slog.Int("line", line))
	return nil
}

// Args expands the argument template for path and line.
func (l *Launcher) Args(path string, line int) []string {
	r := strings.NewReplacer("{file}", path, "{line}", strconv.Itoa(line))
	out := make([]string, len(l.args))
	for i, a := range l.args {
		out[i] = r.Replace(a)
	}
	return out
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the child so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}
