// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"github.com/AleutianAI/codegraph/services/codegraph/document"
	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
)

// BlockView is the JSON shape of a block.
type BlockView struct {
	ID          string        `json:"id"`
	Kind        document.Kind `json:"kind"`
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	Symbol      string        `json:"symbol,omitempty"`
	FilePath    string        `json:"file_path,omitempty"`
	Line        *int          `json:"line,omitempty"`
	Exists      bool          `json:"exists"`
	X           float64       `json:"x"`
	Y           float64       `json:"y"`
	Width       float64       `json:"width"`
	Height      float64       `json:"height"`
}

// ConnectionView is the JSON shape of a connection.
type ConnectionView struct {
	From     string             `json:"from"`
	To       string             `json:"to"`
	FromSide document.Side      `json:"from_side"`
	ToSide   document.Side      `json:"to_side"`
	Flow     document.FlowType  `json:"flow"`
	Line     document.LineStyle `json:"line"`
}

// ScopeView is one scope with its blocks and connections.
type ScopeView struct {
	Key         string           `json:"key"`
	Blocks      []BlockView      `json:"blocks"`
	Connections []ConnectionView `json:"connections"`
}

// MatchView is one resolver candidate.
type MatchView struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Excerpt string `json:"excerpt"`
}

// ResolveView is the answer to a symbol lookup.
type ResolveView struct {
	Symbol  string        `json:"symbol"`
	Kind    document.Kind `json:"kind"`
	Outcome string        `json:"outcome"`
	Matches []MatchView   `json:"matches"`
}

// ValidationView is the check result of one block.
type ValidationView struct {
	BlockID string        `json:"block_id"`
	Name    string        `json:"name"`
	Kind    document.Kind `json:"kind"`
	Exists  bool          `json:"exists"`
	Outcome string        `json:"outcome,omitempty"`
	Line    int           `json:"line,omitempty"`
}

// ReportView is a validated scope.
type ReportView struct {
	Scope     string           `json:"scope"`
	Validated int              `json:"validated"`
	Missing   int              `json:"missing"`
	Summary   string           `json:"summary"`
	Results   []ValidationView `json:"results"`
}

func newBlockView(b document.Block) BlockView {
	return BlockView{
		ID:          b.ID,
		Kind:        b.Kind,
		Name:        b.Name,
		DisplayName: b.DisplayName(),
		Symbol:      b.Metadata.Symbol,
		FilePath:    b.Metadata.FilePath,
		Line:        b.Metadata.LineNumber,
		Exists:      b.Exists,
		X:           b.Geometry.X,
		Y:           b.Geometry.Y,
		Width:       b.Geometry.Width,
		Height:      b.Geometry.Height,
	}
}

func newScopeView(s *document.Scope) ScopeView {
	blocks := s.Blocks()
	conns := s.Connections()
	v := ScopeView{
		Key:         string(s.Key()),
		Blocks:      make([]BlockView, len(blocks)),
		Connections: make([]ConnectionView, len(conns)),
	}
	for i, b := range blocks {
		v.Blocks[i] = newBlockView(b)
	}
	for i, c := range conns {
		v.Connections[i] = ConnectionView{
			From: c.From, To: c.To,
			FromSide: c.FromSide, ToSide: c.ToSide,
			Flow: c.Flow, Line: c.Line,
		}
	}
	return v
}

func newMatchViews(matches []resolve.Match) []MatchView {
	out := make([]MatchView, len(matches))
	for i, m := range matches {
		out[i] = MatchView{File: m.RelPath, Line: m.Line, Kind: m.Kind.String(), Excerpt: m.Excerpt}
	}
	return out
}

func newResolveView(symbol string, kind document.Kind, matches []resolve.Match) ResolveView {
	return ResolveView{
		Symbol:  symbol,
		Kind:    kind,
		Outcome: resolve.Classify(matches).String(),
		Matches: newMatchViews(matches),
	}
}

func newReportView(r resolve.Report) ReportView {
	v := ReportView{
		Scope:     string(r.Scope),
		Validated: r.Validated(),
		Missing:   len(r.Missing()),
		Summary:   r.Summary(),
		Results:   make([]ValidationView, len(r.Results)),
	}
	for i, res := range r.Results {
		vv := ValidationView{
			BlockID: res.BlockID,
			Name:    res.Name,
			Kind:    res.Kind,
			Exists:  res.Exists,
			Line:    res.Line,
		}
		if res.Kind.IsSymbol() {
			vv.Outcome = res.Outcome.String()
		}
		v.Results[i] = vv
	}
	return v
}
