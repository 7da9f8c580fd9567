// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parsecache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codegraph/services/codegraph/pysource"
)

func memStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// Store
// =============================================================================

func TestStore_GetPutDelete(t *testing.T) {
	s := memStore(t)

	_, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete([]byte("k")))
	require.NoError(t, s.Delete([]byte("missing")))
	_, ok, err = s.Get([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_Persistent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")

	s, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestOpen_NoPath(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, ErrNoPath)
}

// =============================================================================
// Parser
// =============================================================================

func TestParser_MissThenHit(t *testing.T) {
	store := memStore(t)
	p := NewParser(pysource.NewParser(), store, nil)
	path := writeFile(t, t.TempDir(), "m.py", "def run():\n    pass\n")
	ctx := context.Background()

	first, err := p.ParseFile(ctx, path)
	require.NoError(t, err)
	_, ok := first.FindFirst("run", pysource.DefFunction)
	require.True(t, ok)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	key := cacheKey(path, content)
	_, ok, err = store.Get(key)
	require.NoError(t, err)
	require.True(t, ok, "parsed module should be cached")

	// Replace the entry; a hit must return it instead of reparsing.
	planted := &pysource.Module{Path: path, Definitions: []pysource.Definition{{Name: "planted", Line: 1}}}
	data, err := planted.Encode()
	require.NoError(t, err)
	require.NoError(t, store.Put(key, data))

	second, err := p.ParseFile(ctx, path)
	require.NoError(t, err)
	_, ok = second.FindFirst("planted", pysource.DefFunction)
	assert.True(t, ok)
}

func TestParser_EditedFileMisses(t *testing.T) {
	p := NewParser(pysource.NewParser(), memStore(t), nil)
	dir := t.TempDir()
	ctx := context.Background()

	path := writeFile(t, dir, "m.py", "def old():\n    pass\n")
	_, err := p.ParseFile(ctx, path)
	require.NoError(t, err)

	writeFile(t, dir, "m.py", "def new():\n    pass\n")
	mod, err := p.ParseFile(ctx, path)
	require.NoError(t, err)
	_, ok := mod.FindFirst("new", pysource.DefFunction)
	assert.True(t, ok)
	_, ok = mod.FindFirst("old", pysource.DefFunction)
	assert.False(t, ok)
}

func TestParser_CorruptEntryIsReparsed(t *testing.T) {
	store := memStore(t)
	p := NewParser(pysource.NewParser(), store, nil)
	path := writeFile(t, t.TempDir(), "m.py", "class Widget:\n    pass\n")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	key := cacheKey(path, content)
	require.NoError(t, store.Put(key, []byte("garbage")))

	mod, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	_, ok := mod.FindFirst("Widget", pysource.DefClass)
	assert.True(t, ok)

	data, ok, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = pysource.DecodeModule(data)
	assert.NoError(t, err, "entry should be rewritten")
}

func TestParser_ErrorsAreNotCached(t *testing.T) {
	store := memStore(t)
	p := NewParser(pysource.NewParser(), store, nil)
	path := writeFile(t, t.TempDir(), "bad.py", "def broken(:\n    pass\n")

	_, err := p.ParseFile(context.Background(), path)
	require.Error(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	_, ok, err := store.Get(cacheKey(path, content))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParser_SizeLimitBeforeCache(t *testing.T) {
	p := NewParser(pysource.NewParser(pysource.WithMaxFileSize(4)), memStore(t), nil)
	path := writeFile(t, t.TempDir(), "big.py", "x = 12345\n")

	_, err := p.ParseFile(context.Background(), path)
	assert.ErrorIs(t, err, pysource.ErrFileTooLarge)
}

func TestCacheKey_DependsOnPathAndContent(t *testing.T) {
	a := cacheKey("a.py", []byte("x"))
	assert.Equal(t, a, cacheKey("a.py", []byte("x")))
	assert.NotEqual(t, a, cacheKey("b.py", []byte("x")))
	assert.NotEqual(t, a, cacheKey("a.py", []byte("y")))
	assert.Equal(t, keyPrefix, string(a[:len(keyPrefix)]))
}
