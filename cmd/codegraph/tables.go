// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/AleutianAI/codegraph/pkg/ux"
	"github.com/AleutianAI/codegraph/services/codegraph/document"
	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(true)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	if env.printer != nil && env.printer.Mode() == ux.ModeMachine {
		t.SetBorder(false)
		t.SetColumnSeparator("")
		t.SetCenterSeparator("")
		t.SetHeaderLine(false)
	}
	return t
}

func existsIcon(exists bool) string {
	if exists {
		return string(ux.IconSuccess)
	}
	return string(ux.IconError)
}

func renderBlocks(w io.Writer, blocks []document.Block) {
	t := newTable(w, "id", "kind", "name", "location", "exists")
	for _, b := range blocks {
		t.Append([]string{b.ID, b.Kind.String(), b.DisplayName(), location(b), existsIcon(b.Exists)})
	}
	t.Render()
}

func renderConnections(w io.Writer, scope *document.Scope, conns []document.Connection) {
	name := func(id string) string {
		if b, ok := scope.Block(id); ok {
			return b.DisplayName()
		}
		return id
	}
	t := newTable(w, "from", "to", "flow", "line")
	for _, c := range conns {
		t.Append([]string{
			fmt.Sprintf("%s (%s)", name(c.From), c.FromSide),
			fmt.Sprintf("%s (%s)", name(c.To), c.ToSide),
			string(c.Flow),
			string(c.Line),
		})
	}
	t.Render()
}

func renderMatches(w io.Writer, matches []resolve.Match) {
	t := newTable(w, "#", "file", "line", "via", "source")
	for i, m := range matches {
		first, _, _ := strings.Cut(m.Excerpt, "\n")
		t.Append([]string{strconv.Itoa(i + 1), m.RelPath, strconv.Itoa(m.Line), m.Kind.String(), strings.TrimSpace(first)})
	}
	t.Render()
}

func renderReport(p *ux.Printer, r resolve.Report) {
	for _, v := range r.Results {
		icon, reason := ux.IconSuccess, ""
		switch {
		case !v.Exists:
			icon = ux.IconError
			if v.Kind == document.KindSubdirectory {
				reason = "directory not found"
			} else {
				reason = "not found"
			}
		case v.Kind.IsSymbol() && v.Outcome == resolve.Ambiguous:
			icon, reason = ux.IconWarning, fmt.Sprintf("%d candidates, line kept", len(v.Matches))
		case v.LineChange == resolve.LineSet:
			reason = fmt.Sprintf("line %d", v.Line)
		}
		p.BlockStatus(v.Name, v.Kind.String(), icon, reason)
	}
	p.Summary(r.Validated(), len(r.Missing()))
}
