// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codegraph/services/codegraph/document"
)

func sampleProject(t *testing.T) *Project {
	t.Helper()
	p := New("/src/app")
	root, _ := p.Document.Scope(document.RootScope)
	a, err := root.InsertBlock(document.BlockSpec{Kind: document.KindFunction, Name: "main()", X: 150, Y: 150, Metadata: document.Metadata{Symbol: "main", FilePath: "app.py"}, Exists: true})
	require.NoError(t, err)
	b, err := root.InsertBlock(document.BlockSpec{Kind: document.KindSubdirectory, Name: "pkg", X: 400, Y: 250, Exists: false})
	require.NoError(t, err)
	_, err = root.InsertConnection(document.ConnectionSpec{From: a.ID, To: b.ID, FromSide: document.SideBottom, ToSide: document.SideTop})
	require.NoError(t, err)

	sub, _ := p.Document.EnsureScope(document.RootScope.Child("pkg"))
	_, err = sub.InsertBlock(document.BlockSpec{Kind: document.KindClass, Name: "Widget", Metadata: document.Metadata{Symbol: "Widget"}, Exists: true})
	require.NoError(t, err)
	return p
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	p := sampleProject(t)

	require.NoError(t, Save(path, p))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/src/app", loaded.RootPath)
	want, err := Encode(p)
	require.NoError(t, err)
	got, err := Encode(loaded)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestSave_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.cg")
	require.NoError(t, Save(path, sampleProject(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"_root_path\": \"/src/app\"", "two-space indent")

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "root")
	assert.Contains(t, raw, "root/pkg")
	assert.Len(t, raw, 3)

	var root struct {
		Blocks []map[string]any `json:"blocks"`
		Conns  []map[string]any `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(raw["root"], &root))
	require.Len(t, root.Blocks, 2)
	assert.Equal(t, "FUNCTION", root.Blocks[0]["type"])
	assert.Equal(t, false, root.Blocks[1]["exists"])
	require.Len(t, root.Conns, 1)
	assert.Equal(t, "bottom", root.Conns[0]["from_side"])
	assert.Equal(t, map[string]any{"r": 100.0, "g": 100.0, "b": 100.0}, root.Conns[0]["line_color"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	}
}

func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, Save(path, sampleProject(t)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = Save(filepath.Join(dir, "missing", "dir", DefaultFileName), New("/other"))
	assert.ErrorIs(t, err, ErrWriteProject)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, Save(path, sampleProject(t)))
	require.NoError(t, Save(path, New("/elsewhere")))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere", loaded.RootPath)
	assert.Equal(t, []document.ScopeKey{document.RootScope}, loaded.Document.ScopeKeys())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.cg"))
		assert.ErrorIs(t, err, ErrReadProject)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{"},
		{"scope not an object", `{"root": 5}`},
		{"root path not a string", `{"_root_path": 1}`},
		{"unknown block type", `{"root": {"blocks": [{"id": "x", "type": "WIDGET", "name": "x"}], "connections": []}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.cg")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.ErrorIs(t, err, ErrDecodeProject)
		})
	}
}

func TestDecode_LegacyFile(t *testing.T) {
	legacy := `{
  "_root_path": "/legacy",
  "_panel": true,
  "root": {
    "blocks": [
      {"id": "func_1", "type": "FUNCTION", "name": "run()", "x": 150, "y": 150,
       "width": 200, "height": 80,
       "style": {"color": null, "border": null, "alpha": null, "dashed": null},
       "metadata": {"functionName": "run", "filePath": "run.py", "lineNumber": 3}}
    ],
    "connections": []
  }
}`
	p, err := Decode([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, "/legacy", p.RootPath)

	root, ok := p.Document.Scope(document.RootScope)
	require.True(t, ok)
	b, ok := root.Block("func_1")
	require.True(t, ok)
	assert.True(t, b.Exists, "missing exists defaults to true")
	assert.Equal(t, document.KindFunction.DefaultStyle(), b.Style)
	require.NotNil(t, b.Metadata.LineNumber)
	assert.Equal(t, 3, *b.Metadata.LineNumber)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("proj", "codegraph.cg"), DefaultPath("proj"))
	assert.False(t, Exists(filepath.Join(t.TempDir(), "none.cg")))
}
