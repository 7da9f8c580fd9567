// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pysource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `"""Module docstring."""
import os
import os.path as osp, json
from collections import OrderedDict, defaultdict as dd
from . import sibling
from ..pkg.mod import (thing, other as alias)
from .star import *


def top(a, b):
    """Add two numbers.

    Returns the sum.
    """
    return a + b


async def fetch():
    return None


@decorator
class Widget(Base):
    '''Widget docstring.'''

    def render(self):
        # comment before docstring
        """Render it."""
        import inner
        def helper():
            pass
        return helper

    class Meta:
        pass


def no_doc():
    x = "not a docstring"


def bytes_doc():
    b"bytes are not docstrings"
`

func parseSample(t *testing.T) *Module {
	t.Helper()
	mod, err := NewParser().Parse(context.Background(), []byte(sampleSource), "sample.py")
	require.NoError(t, err)
	return mod
}

func TestParse_DefinitionsInSourceOrder(t *testing.T) {
	mod := parseSample(t)

	var names []string
	for _, d := range mod.Definitions {
		names = append(names, d.Kind.String()+":"+d.Name)
	}
	assert.Equal(t, []string{
		"function:top",
		"function:fetch",
		"class:Widget",
		"function:render",
		"function:helper",
		"class:Meta",
		"function:no_doc",
		"function:bytes_doc",
	}, names)
}

func TestParse_DefinitionLines(t *testing.T) {
	mod := parseSample(t)

	top, ok := mod.FindFirst("top", DefFunction)
	require.True(t, ok)
	assert.Equal(t, 10, top.Line)
	assert.Equal(t, "def top(a, b):\n", mod.Line(top.Line))

	widget, ok := mod.FindFirst("Widget", DefClass)
	require.True(t, ok)
	assert.Equal(t, 23, widget.Line, "decorated class reports the class line")

	fetch, ok := mod.FindFirst("fetch", DefFunction)
	require.True(t, ok)
	assert.True(t, fetch.Async)
	assert.False(t, top.Async)

	_, ok = mod.FindFirst("Widget", DefFunction)
	assert.False(t, ok, "kinds are matched exactly")
}

func TestParse_Docstrings(t *testing.T) {
	mod := parseSample(t)

	tests := []struct {
		name   string
		kind   DefKind
		doc    string
		hasDoc bool
	}{
		{"top", DefFunction, "Add two numbers.\n\nReturns the sum.", true},
		{"Widget", DefClass, "Widget docstring.", true},
		{"render", DefFunction, "Render it.", true},
		{"helper", DefFunction, "", false},
		{"no_doc", DefFunction, "", false},
		{"bytes_doc", DefFunction, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, ok := mod.FindFirst(tt.name, tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.hasDoc, def.HasDoc)
			assert.Equal(t, tt.doc, def.Doc)
		})
	}
}

func TestParse_Imports(t *testing.T) {
	mod := parseSample(t)

	want := []Import{
		{Module: "os", Line: 2},
		{Module: "os.path", Alias: "osp", Line: 3},
		{Module: "json", Line: 3},
		{Module: "collections", Name: "OrderedDict", From: true, Line: 4},
		{Module: "collections", Name: "defaultdict", Alias: "dd", From: true, Line: 4},
		{Level: 1, Name: "sibling", From: true, Line: 5},
		{Module: "pkg.mod", Level: 2, Name: "thing", From: true, Line: 6},
		{Module: "pkg.mod", Level: 2, Name: "other", Alias: "alias", From: true, Line: 6},
		{Module: "star", Level: 1, Name: "*", From: true, Wildcard: true, Line: 7},
		{Module: "inner", Line: 29},
	}
	assert.Equal(t, want, mod.Imports)
}

func TestImport_BoundName(t *testing.T) {
	assert.Equal(t, "os", Import{Module: "os.path"}.BoundName())
	assert.Equal(t, "osp", Import{Module: "os.path", Alias: "osp"}.BoundName())
	assert.Equal(t, "thing", Import{Module: "m", Name: "thing", From: true}.BoundName())
	assert.Equal(t, "t", Import{Module: "m", Name: "thing", Alias: "t", From: true}.BoundName())
}

func TestModule_Excerpt(t *testing.T) {
	mod, err := NewParser().Parse(context.Background(), []byte("a = 1\nb = 2\nc = 3"), "x.py")
	require.NoError(t, err)

	assert.Equal(t, 3, mod.LineCount())
	assert.Equal(t, "b = 2\nc = 3", mod.Excerpt(2, 10), "stops at end of file")
	assert.Equal(t, "a = 1\n", mod.Excerpt(1, 1))
	assert.Empty(t, mod.Excerpt(0, 1))
	assert.Empty(t, mod.Excerpt(4, 1))
	assert.Empty(t, mod.Line(9))
}

func TestParse_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("syntax error", func(t *testing.T) {
		_, err := NewParser().Parse(ctx, []byte("def broken(:\n    pass\n"), "bad.py")
		assert.ErrorIs(t, err, ErrSyntax)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		_, err := NewParser().Parse(ctx, []byte{0xff, 0xfe, 'x'}, "bin.py")
		assert.ErrorIs(t, err, ErrInvalidContent)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := NewParser(WithMaxFileSize(4)).Parse(ctx, []byte("x = 12345\n"), "big.py")
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewParser().Parse(canceled, []byte("x = 1\n"), "x.py")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParse_EmptyFile(t *testing.T) {
	mod, err := NewParser().Parse(context.Background(), []byte(""), "empty.py")
	require.NoError(t, err)
	assert.Empty(t, mod.Definitions)
	assert.Empty(t, mod.Imports)
	assert.Zero(t, mod.LineCount())
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.py")
	require.NoError(t, os.WriteFile(path, []byte("class A:\n    pass\n"), 0o644))

	mod, err := NewParser().ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, mod.Path)
	assert.Len(t, mod.Find("A", DefClass), 1)

	_, err = NewParser(WithMaxFileSize(3)).ParseFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = NewParser().ParseFile(context.Background(), filepath.Join(dir, "missing.py"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStringLiteral(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{`"plain"`, "plain", true},
		{`'single'`, "single", true},
		{`"""triple"""`, "triple", true},
		{`r"raw\n"`, `raw\n`, true},
		{`u"unicode"`, "unicode", true},
		{`"esc\tape\\"`, "esc\tape\\", true},
		{`"hex \x41 octal \101\0"`, "hex A octal A\x00", true},
		{`"\u00e9\U0001F600"`, "\u00e9\U0001F600", true},
		{`"bell\a tab\v"`, "bell\a tab\v", true},
		{`"kept \q \N{DASH} \x4"`, `kept \q \N{DASH} \x4`, true},
		{`b"bytes"`, "", false},
		{`f"{x}"`, "", false},
		{`Rb"raw bytes"`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := stringLiteral(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_ConcatenatedDocstring(t *testing.T) {
	src := "def joined():\n    \"First part. \" 'Second\\x21'\n    return 1\n\n" +
		"def mixed():\n    \"text\" f\"{x}\"\n"
	mod, err := NewParser().Parse(context.Background(), []byte(src), "concat.py")
	require.NoError(t, err)

	def, ok := mod.FindFirst("joined", DefFunction)
	require.True(t, ok)
	assert.True(t, def.HasDoc)
	assert.Equal(t, "First part. Second!", def.Doc)

	def, ok = mod.FindFirst("mixed", DefFunction)
	require.True(t, ok)
	assert.False(t, def.HasDoc, "f-string parts disqualify the docstring")
}

func TestCleandoc(t *testing.T) {
	assert.Equal(t, "Summary.\n\nBody line.\n  Indented.",
		cleandoc("Summary.\n\n    Body line.\n      Indented.\n    "))
	assert.Equal(t, "Leading blank removed.", cleandoc("\n    Leading blank removed.\n"))
	assert.Equal(t, "tab\nstop", cleandoc("tab\n\tstop"))
	assert.Equal(t, "", cleandoc("   \n   "))
}
