// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package editor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name string
	args []string
	err  error
}

func (r *recorder) run(name string, args ...string) error {
	r.name = name
	r.args = args
	return r.err
}

func tempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mod with space.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))
	return path
}

func TestOpen_DefaultCommand(t *testing.T) {
	path := tempFile(t)
	rec := &recorder{}
	l := New(WithRunner(rec.run))

	require.NoError(t, l.Open(path, 42))

	assert.Equal(t, "code", rec.name)
	assert.Equal(t, []string{"--goto", path + ":42"}, rec.args, "path is passed as one argument")
}

func TestOpen_CustomCommand(t *testing.T) {
	path := tempFile(t)
	rec := &recorder{}
	l := New(WithRunner(rec.run), WithCommand("vim", []string{"+{line}", "{file}"}))

	require.NoError(t, l.Open(path, 0))

	assert.Equal(t, "vim", rec.name)
	assert.Equal(t, []string{"+1", path}, rec.args, "lines below 1 open line 1")
}

func TestOpen_Errors(t *testing.T) {
	rec := &recorder{}
	l := New(WithRunner(rec.run))

	err := l.Open(filepath.Join(t.TempDir(), "missing.py"), 3)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Empty(t, rec.name, "editor not started for a missing file")

	rec.err = errors.New("executable file not found")
	err = l.Open(tempFile(t), 3)
	assert.ErrorIs(t, err, ErrLaunch)
	assert.ErrorIs(t, err, rec.err)
}

func TestWithCommand_EmptyKeepsDefaults(t *testing.T) {
	l := New(WithCommand("", nil))
	assert.Equal(t, []string{"--goto", "f.py:7"}, l.Args("f.py", 7))
}
