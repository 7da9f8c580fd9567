// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequentialIDs returns a deterministic block id generator.
func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func(k Kind) string {
		n++
		return fmt.Sprintf("%s_%d", k.IDPrefix(), n)
	})
}

func addBlock(t *testing.T, s *Scope, kind Kind, name string) Block {
	t.Helper()
	b, err := s.InsertBlock(BlockSpec{Kind: kind, Name: name, X: 10, Y: 20, Exists: true})
	require.NoError(t, err)
	return b
}

func snapshot(t *testing.T, d *Document) string {
	t.Helper()
	data, err := d.Serialize()
	require.NoError(t, err)
	out, err := json.Marshal(data)
	require.NoError(t, err)
	return string(out)
}

// =============================================================================
// Kind Tests
// =============================================================================

func TestKind_RoundTripNames(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(strings.ToLower(k.String()))
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("MODULE")
	assert.True(t, errors.Is(err, ErrInvalidKind))
}

func TestKind_Decisions(t *testing.T) {
	assert.True(t, KindClass.OpensScope())
	assert.True(t, KindSubdirectory.OpensScope())
	assert.False(t, KindFunction.OpensScope())

	assert.Equal(t, NavOpenEditor, KindMethod.Navigation())
	assert.Equal(t, NavOpenScope, KindClass.Navigation())
	assert.Equal(t, NavNone, KindImage.Navigation())

	assert.Equal(t, "parse()", KindFunction.DisplayLabel("parse"))
	assert.Equal(t, "Parser", KindClass.DisplayLabel("Parser"))

	assert.Equal(t, MetaMethodName, KindMethod.SymbolKey())
	assert.Empty(t, KindOther.SymbolKey())

	w, h := KindImage.DefaultSize()
	assert.Equal(t, 300.0, w)
	assert.Equal(t, 300.0, h)
}

func TestKind_DefaultStyles(t *testing.T) {
	assert.Equal(t, Style{Color: RGB(255, 250, 205), Border: RGBA(218, 165, 32, 100), Alpha: 200, Dashed: true},
		KindClass.DefaultStyle())
	assert.Equal(t, 0, KindImage.DefaultStyle().Alpha)
	assert.Equal(t, uint8(0), KindImage.DefaultStyle().Border.A)
}

// =============================================================================
// ScopeKey Tests
// =============================================================================

func TestScopeKey(t *testing.T) {
	key := RootScope.Child("pkg").Child("Parser")
	assert.Equal(t, ScopeKey("root/pkg/Parser"), key)
	assert.Equal(t, []string{"pkg", "Parser"}, key.Segments())

	parent, ok := key.Parent()
	require.True(t, ok)
	assert.Equal(t, ScopeKey("root/pkg"), parent)

	_, ok = RootScope.Parent()
	assert.False(t, ok)

	assert.Equal(t, "/proj", RootScope.Dir("/proj"))
	assert.Equal(t, "/proj/pkg/Parser", key.Dir("/proj"))
	assert.True(t, ScopeKey("root/pkg").contains(key))
	assert.False(t, ScopeKey("root/pk").contains(key))
}

// =============================================================================
// Block Tests
// =============================================================================

func TestInsertBlock_AppliesDefaults(t *testing.T) {
	d := New(sequentialIDs())
	s, _ := d.Scope(RootScope)

	alpha := 50
	b, err := s.InsertBlock(BlockSpec{
		Kind:  KindMethod,
		Name:  "run()",
		Width: 20, Height: 10,
		Style: StyleSpec{Alpha: &alpha},
	})
	require.NoError(t, err)

	assert.Equal(t, "mthd_1", b.ID)
	assert.Equal(t, 100.0, b.Geometry.Width, "clamped to minimum")
	assert.Equal(t, 50.0, b.Geometry.Height)
	assert.Equal(t, 50, b.Style.Alpha)
	assert.Equal(t, KindMethod.DefaultStyle().Color, b.Style.Color)
}

func TestInsertBlock_DefaultSizeAndID(t *testing.T) {
	d := New()
	s, _ := d.Scope(RootScope)

	b := addBlock(t, s, KindClass, "Parser")
	assert.Equal(t, 250.0, b.Geometry.Width)
	assert.Equal(t, 100.0, b.Geometry.Height)
	assert.True(t, strings.HasPrefix(b.ID, "class_"))
	assert.Len(t, b.ID, len("class_")+32)

	img := addBlock(t, s, KindImage, "logo.png")
	assert.Len(t, img.ID, len("image_")+8)
}

func TestInsertBlock_Errors(t *testing.T) {
	d := New()
	s, _ := d.Scope(RootScope)

	_, err := s.InsertBlock(BlockSpec{Kind: Kind(42), Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = s.InsertBlock(BlockSpec{Kind: KindOther, Name: "  "})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = s.InsertBlock(BlockSpec{ID: "a", Kind: KindOther, Name: "x"})
	require.NoError(t, err)
	_, err = s.InsertBlock(BlockSpec{ID: "a", Kind: KindOther, Name: "y"})
	assert.ErrorIs(t, err, ErrDuplicateBlock)

	var be *BlockError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "a", be.BlockID)
}

// TestBlocks_AreCopies verifies callers cannot mutate the document through reads.
func TestBlocks_AreCopies(t *testing.T) {
	d := New()
	s, _ := d.Scope(RootScope)
	line := 3
	b, err := s.InsertBlock(BlockSpec{Kind: KindFunction, Name: "f()", Metadata: Metadata{LineNumber: &line}})
	require.NoError(t, err)

	got, _ := s.Block(b.ID)
	*got.Metadata.LineNumber = 99
	got.Geometry.X = 500

	again, _ := s.Block(b.ID)
	assert.Equal(t, 3, *again.Metadata.LineNumber)
	assert.Equal(t, 0.0, again.Geometry.X)
}

func TestSetters(t *testing.T) {
	d := New()
	s, _ := d.Scope(RootScope)
	b := addBlock(t, s, KindFunction, "f()")

	old, err := s.SetGeometry(b.ID, Geometry{X: 1, Y: 2, Width: 10, Height: 500})
	require.NoError(t, err)
	assert.Equal(t, b.Geometry, old)
	got, _ := s.Block(b.ID)
	assert.Equal(t, Geometry{X: 1, Y: 2, Width: 100, Height: 500}, got.Geometry)

	prev, err := s.SetAlias(b.ID, "  entry  ")
	require.NoError(t, err)
	assert.Empty(t, prev)
	got, _ = s.Block(b.ID)
	assert.Equal(t, "entry", got.DisplayName())

	_, err = s.SetAlias(b.ID, "   ")
	require.NoError(t, err)
	got, _ = s.Block(b.ID)
	assert.Equal(t, "f()", got.DisplayName())

	require.NoError(t, s.SetExistence(b.ID, false))
	require.NoError(t, s.SetLineNumber(b.ID, 12))
	require.NoError(t, s.SetDescription(b.ID, "entry point"))
	got, _ = s.Block(b.ID)
	assert.False(t, got.Exists)
	assert.Equal(t, 12, *got.Metadata.LineNumber)
	assert.Equal(t, "entry point", got.Metadata.Description)

	_, err = s.SetStyle("missing", Style{})
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestInsertConnection_Defaults(t *testing.T) {
	d := New()
	s, _ := d.Scope(RootScope)
	a := addBlock(t, s, KindFunction, "a()")
	b := addBlock(t, s, KindFunction, "b()")

	c, err := s.InsertConnection(ConnectionSpec{From: a.ID, To: b.ID})
	require.NoError(t, err)
	assert.Equal(t, SideRight, c.FromSide)
	assert.Equal(t, SideLeft, c.ToSide)
	assert.Equal(t, DefaultAppearance(), c.Appearance)
}

func TestInsertConnection_Rejects(t *testing.T) {
	d := New()
	s, _ := d.Scope(RootScope)
	a := addBlock(t, s, KindFunction, "a()")

	_, err := s.InsertConnection(ConnectionSpec{From: a.ID, To: a.ID, FromSide: SideTop, ToSide: SideTop})
	assert.ErrorIs(t, err, ErrSelfConnection)

	_, err = s.InsertConnection(ConnectionSpec{From: a.ID, To: a.ID, FromSide: SideTop, ToSide: SideBottom})
	assert.NoError(t, err, "a loop between different anchors is allowed")

	_, err = s.InsertConnection(ConnectionSpec{From: a.ID, To: "ghost"})
	assert.ErrorIs(t, err, ErrBlockNotFound)

	_, err = s.InsertConnection(ConnectionSpec{From: a.ID, To: a.ID, FromSide: "middle"})
	assert.ErrorIs(t, err, ErrInvalidSide)
}

// TestRemoveBlock_CascadesAndRestores verifies cascade removal and exact restoration.
func TestRemoveBlock_CascadesAndRestores(t *testing.T) {
	d := New(sequentialIDs())
	s, _ := d.Scope(RootScope)
	a := addBlock(t, s, KindFunction, "a()")
	b := addBlock(t, s, KindFunction, "b()")
	c := addBlock(t, s, KindFunction, "c()")

	_, err := s.InsertConnection(ConnectionSpec{From: a.ID, To: b.ID})
	require.NoError(t, err)
	_, err = s.InsertConnection(ConnectionSpec{From: b.ID, To: c.ID})
	require.NoError(t, err)
	_, err = s.InsertConnection(ConnectionSpec{From: a.ID, To: c.ID})
	require.NoError(t, err)
	before := snapshot(t, d)

	removal, err := s.RemoveBlock(b.ID)
	require.NoError(t, err)
	assert.Len(t, removal.Connections, 2)
	assert.Len(t, s.Connections(), 1)
	assert.Empty(t, s.ConnectionsOf(b.ID))
	assert.Equal(t, 1, removal.Index)

	require.NoError(t, s.RestoreBlock(removal))
	assert.Equal(t, before, snapshot(t, d))
}

func TestConnection_RemoveRestoreAndRestyle(t *testing.T) {
	d := New()
	s, _ := d.Scope(RootScope)
	a := addBlock(t, s, KindOther, "a")
	b := addBlock(t, s, KindOther, "b")
	conn, err := s.InsertConnection(ConnectionSpec{From: a.ID, To: b.ID})
	require.NoError(t, err)

	old, err := s.SetAppearance(conn.ID, Appearance{Flow: FlowNone, Line: LineDashed, Color: RGB(1, 2, 3)})
	require.NoError(t, err)
	assert.Equal(t, DefaultAppearance(), old)

	r, err := s.RemoveConnection(conn.ID)
	require.NoError(t, err)
	assert.Empty(t, s.Connections())

	require.NoError(t, s.RestoreConnection(r))
	got, ok := s.Connection(conn.ID)
	require.True(t, ok)
	assert.Equal(t, FlowNone, got.Flow)

	_, err = s.RemoveConnection("nope")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

// =============================================================================
// Document Tests
// =============================================================================

func TestDiscardSubtree(t *testing.T) {
	d := New()
	d.EnsureScope("root/pkg")
	d.EnsureScope("root/pkg/Parser")
	d.EnsureScope("root/pkgextra")

	tree := d.DiscardSubtree("root/pkg")
	assert.Len(t, tree, 2)
	assert.False(t, d.HasScope("root/pkg/Parser"))
	assert.True(t, d.HasScope("root/pkgextra"))

	d.RestoreSubtree(tree)
	assert.Equal(t, []ScopeKey{"root", "root/pkg", "root/pkg/Parser", "root/pkgextra"}, d.ScopeKeys())

	assert.Nil(t, d.DiscardSubtree(RootScope))
	_, err := d.MustScope("root/none")
	assert.ErrorIs(t, err, ErrScopeNotFound)
}

func TestChildScopes_SubdirectoriesFirst(t *testing.T) {
	d := New()
	s, _ := d.Scope(RootScope)
	addBlock(t, s, KindClass, "Zeta")
	addBlock(t, s, KindFunction, "f()")
	addBlock(t, s, KindSubdirectory, "pkg")

	assert.Equal(t, []ScopeKey{"root/pkg", "root/Zeta"}, d.ChildScopes(RootScope))
}

// =============================================================================
// Codec Tests
// =============================================================================

// TestSerialize_RoundTripAllKindsAndAppearances verifies every kind and every
// connection appearance survives a save/load cycle unchanged.
func TestSerialize_RoundTripAllKindsAndAppearances(t *testing.T) {
	d := New(sequentialIDs())
	s, _ := d.Scope(RootScope)

	var ids []string
	for i, k := range Kinds() {
		line := i + 1
		symbol := ""
		if k.IsSymbol() {
			symbol = strings.ToLower(k.String())
		}
		b, err := s.InsertBlock(BlockSpec{
			Kind: k,
			Name: k.DisplayLabel(strings.ToLower(k.String())),
			X:    float64(i * 10), Y: 150,
			Metadata: Metadata{
				Symbol:      symbol,
				FilePath:    "pkg/mod.py",
				LineNumber:  &line,
				Description: "kind " + k.String(),
				Alias:       "alias" + k.String(),
			},
			Exists: i%2 == 0,
		})
		require.NoError(t, err)
		ids = append(ids, b.ID)
		d.EnsureScope(RootScope.Child(b.Name))
	}

	sides := []Side{SideTop, SideBottom, SideLeft, SideRight}
	n := 0
	for _, flow := range FlowTypes() {
		for _, line := range LineStyles() {
			_, err := s.InsertConnection(ConnectionSpec{
				From:       ids[n%len(ids)],
				To:         ids[(n+1)%len(ids)],
				FromSide:   sides[n%4],
				ToSide:     sides[(n+1)%4],
				Appearance: Appearance{Flow: flow, Line: line, Color: RGB(uint8(n), 20, 30)},
			})
			require.NoError(t, err)
			n++
		}
	}

	data, err := d.Serialize()
	require.NoError(t, err)
	raw, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded map[ScopeKey]ScopeData
	require.NoError(t, json.Unmarshal(raw, &decoded))
	loaded, err := Deserialize(decoded)
	require.NoError(t, err)

	assert.Equal(t, d.ScopeKeys(), loaded.ScopeKeys())
	ls, _ := loaded.Scope(RootScope)
	assert.Equal(t, stripConnIDs(s.Connections()), stripConnIDs(ls.Connections()))
	assert.Equal(t, s.Blocks(), ls.Blocks())
	assert.Equal(t, snapshot(t, d), snapshot(t, loaded))
}

func stripConnIDs(conns []Connection) []Connection {
	out := make([]Connection, len(conns))
	for i, c := range conns {
		c.ID = ""
		out[i] = c
	}
	return out
}

// TestDeserialize_LegacyFile verifies null styles, missing fields and dangling
// connections are handled the way older files need.
func TestDeserialize_LegacyFile(t *testing.T) {
	raw := `{
	  "root": {
	    "blocks": [
	      {"id": "func_1", "type": "FUNCTION", "name": "main()", "x": 1, "y": 2, "width": 200, "height": 80,
	       "style": {"color": [null, null, null], "border": [null, null, null, null], "alpha": null, "dashed": null},
	       "metadata": {"functionName": "main", "lineNumber": null, "custom": {"k": [1, 2]}}},
	      {"id": "other_1", "type": "OTHER", "name": "note", "x": 0, "y": 0, "width": 200, "height": 80,
	       "style": {"color": [1, 2, 3], "border": [4, 5, 6, 7], "alpha": 9, "dashed": true},
	       "metadata": {}, "exists": false}
	    ],
	    "connections": [
	      {"from": "func_1", "to": "other_1"},
	      {"from": "func_1", "to": "missing"}
	    ]
	  },
	  "root/pkg": {"blocks": [], "connections": []}
	}`

	var scopes map[ScopeKey]ScopeData
	require.NoError(t, json.Unmarshal([]byte(raw), &scopes))
	d, err := Deserialize(scopes)
	require.NoError(t, err)

	s, _ := d.Scope(RootScope)
	fn, ok := s.Block("func_1")
	require.True(t, ok)
	assert.True(t, fn.Exists, "missing exists defaults to true")
	assert.Equal(t, KindFunction.DefaultStyle(), fn.Style)
	assert.Equal(t, "main", fn.Symbol())
	assert.Nil(t, fn.Metadata.LineNumber)
	assert.JSONEq(t, `{"k":[1,2]}`, string(fn.Metadata.Extra["custom"]))

	other, _ := s.Block("other_1")
	assert.False(t, other.Exists)
	assert.Equal(t, Style{Color: RGB(1, 2, 3), Border: RGBA(4, 5, 6, 7), Alpha: 9, Dashed: true}, other.Style)

	conns := s.Connections()
	require.Len(t, conns, 1, "dangling connection dropped")
	assert.Equal(t, SideRight, conns[0].FromSide)
	assert.Equal(t, DefaultLineColor, conns[0].Color)
	assert.True(t, d.HasScope("root/pkg"))

	out, err := d.Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `{"functionName":"main","custom":{"k":[1,2]}}`, string(out[RootScope].Blocks[0].Metadata))
}

func TestDeserialize_RejectsBadKind(t *testing.T) {
	var scopes map[ScopeKey]ScopeData
	err := json.Unmarshal([]byte(`{"root":{"blocks":[{"id":"x","type":"WIDGET","name":"x"}]}}`), &scopes)
	assert.ErrorIs(t, err, ErrInvalidKind)
}
