// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codegraph/pkg/ux"
	"github.com/AleutianAI/codegraph/services/codegraph/document"
	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
	"github.com/AleutianAI/codegraph/services/codegraph/workspace"
)

// =============================================================================
// Disambiguation
// =============================================================================

// promptChooser asks the user which candidate an ambiguous symbol means.
// The last two options create the block unlocated or cancel.
type promptChooser struct {
	prompter ux.Prompter
}

func (c promptChooser) Choose(ctx context.Context, symbol string, kind document.Kind, matches []resolve.Match) (workspace.Choice, error) {
	options := make([]ux.PromptOption, 0, len(matches)+2)
	for _, m := range matches {
		first, _, _ := strings.Cut(m.Excerpt, "\n")
		options = append(options, ux.PromptOption{
			Label:       fmt.Sprintf("%s:%d", m.RelPath, m.Line),
			Description: fmt.Sprintf("[%s] %s", m.Kind, strings.TrimSpace(first)),
		})
	}
	options = append(options,
		ux.PromptOption{Label: "Create without a location", Description: "the block is kept but not linked to a file"},
		ux.PromptOption{Label: "Cancel"},
	)

	title := fmt.Sprintf("%s %s is defined or imported in %d places", strings.ToLower(kind.String()), symbol, len(matches))
	i, err := c.prompter.Select(ctx, title, options)
	switch {
	case errors.Is(err, ux.ErrAborted):
		return workspace.Choice{Action: workspace.Cancel}, nil
	case err != nil:
		return workspace.Choice{}, err
	case i < len(matches):
		return workspace.PickMatch(i), nil
	case i == len(matches):
		return workspace.Choice{Action: workspace.Unlocated}, nil
	default:
		return workspace.Choice{Action: workspace.Cancel}, nil
	}
}

// parseChoice turns an --choose answer into a fixed Choice.
func parseChoice(raw string) (workspace.Choice, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "unlocated", "u":
		return workspace.Choice{Action: workspace.Unlocated}, nil
	case "cancel", "c":
		return workspace.Choice{Action: workspace.Cancel}, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return workspace.Choice{}, fmt.Errorf("--choose must be a 1-based index, unlocated or cancel, not %q", raw)
	}
	return workspace.PickMatch(n - 1), nil
}

// =============================================================================
// Commands
// =============================================================================

func runAdd(cmd *cobra.Command, args []string) error {
	kind, err := document.ParseKind(args[0])
	if err != nil {
		return err
	}
	name := args[1]

	var chooser workspace.Chooser = promptChooser{prompter: ux.NewPrompter(os.Stdin, cmd.OutOrStdout())}
	if raw, _ := cmd.Flags().GetString("choose"); raw != "" {
		c, err := parseChoice(raw)
		if err != nil {
			return err
		}
		chooser = workspace.Fixed(c)
	}

	ws, err := openWorkspace(workspace.WithChooser(chooser))
	if err != nil {
		return err
	}

	var at *workspace.Point
	if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
		x, _ := cmd.Flags().GetFloat64("x")
		y, _ := cmd.Flags().GetFloat64("y")
		at = &workspace.Point{X: x, Y: y}
	}

	var b document.Block
	switch kind {
	case document.KindFunction, document.KindMethod, document.KindClass:
		b, err = ws.AddSymbol(cmd.Context(), kind, name, at)
	case document.KindSubdirectory:
		b, err = ws.AddSubdirectory(name, at)
	case document.KindOther:
		desc, _ := cmd.Flags().GetString("description")
		b, err = ws.AddOther(name, desc, at)
	case document.KindImage:
		b, err = ws.AddImage(name, at)
	case document.KindGroup:
		x, _ := cmd.Flags().GetFloat64("x")
		y, _ := cmd.Flags().GetFloat64("y")
		w, _ := cmd.Flags().GetFloat64("width")
		h, _ := cmd.Flags().GetFloat64("height")
		b, err = ws.AddGroup(name, workspace.Rect{X: x, Y: y, Width: w, Height: h})
	}
	if errors.Is(err, workspace.ErrCanceled) {
		env.printer.Warning("nothing added")
		return nil
	}
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("added %s %s (%s)", strings.ToLower(b.Kind.String()), b.DisplayName(), b.ID)
	switch {
	case !b.Exists:
		env.printer.Warning(msg + ", not found in the source tree")
	case location(b) != "":
		env.printer.Success(fmt.Sprintf("%s at %s", msg, location(b)))
	default:
		env.printer.Success(msg)
	}
	return save(cmd.Context(), ws)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(args))
	for _, ref := range args {
		b, err := findBlock(ws.Scope(), ref)
		if err != nil {
			return err
		}
		if !slices.Contains(ids, b.ID) {
			ids = append(ids, b.ID)
		}
	}
	if err := ws.Delete(ids, nil); err != nil {
		return err
	}
	env.printer.Success(fmt.Sprintf("deleted %d block(s)", len(ids)))
	return save(cmd.Context(), ws)
}

func runConnect(cmd *cobra.Command, args []string) error {
	fromSide, _ := cmd.Flags().GetString("from-side")
	toSide, _ := cmd.Flags().GetString("to-side")
	flow, _ := cmd.Flags().GetString("flow")
	line, _ := cmd.Flags().GetString("line")
	if !slices.Contains(document.FlowTypes(), document.FlowType(flow)) {
		return fmt.Errorf("unknown flow %q", flow)
	}
	if !slices.Contains(document.LineStyles(), document.LineStyle(line)) {
		return fmt.Errorf("unknown line style %q", line)
	}

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	from, err := findBlock(ws.Scope(), args[0])
	if err != nil {
		return err
	}
	to, err := findBlock(ws.Scope(), args[1])
	if err != nil {
		return err
	}

	c, err := ws.Connect(document.ConnectionSpec{
		From:     from.ID,
		To:       to.ID,
		FromSide: document.Side(fromSide),
		ToSide:   document.Side(toSide),
		Appearance: document.Appearance{
			Flow: document.FlowType(flow),
			Line: document.LineStyle(line),
		},
	})
	if err != nil {
		return err
	}
	env.printer.Success(fmt.Sprintf("connected %s %s %s", from.DisplayName(), ux.IconArrow, to.DisplayName()))
	env.logger.Debug("connection added", "id", c.ID)
	return save(cmd.Context(), ws)
}

func runRename(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	b, err := findBlock(ws.Scope(), args[0])
	if err != nil {
		return err
	}
	alias := ""
	if len(args) == 2 {
		alias = args[1]
	}
	if err := ws.Rename(b.ID, alias); err != nil {
		return err
	}
	if alias == "" {
		env.printer.Success(fmt.Sprintf("%s uses its own name again", b.Name))
	} else {
		env.printer.Success(fmt.Sprintf("%s is shown as %s", b.Name, alias))
	}
	return save(cmd.Context(), ws)
}

func runMove(cmd *cobra.Command, args []string) error {
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	b, err := findBlock(ws.Scope(), args[0])
	if err != nil {
		return err
	}
	if err := ws.Move(b.ID, x, y); err != nil {
		return err
	}
	env.printer.Success(fmt.Sprintf("moved %s to (%g, %g)", b.DisplayName(), x, y))
	return save(cmd.Context(), ws)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	b, err := findBlock(ws.Scope(), args[0])
	if err != nil {
		return err
	}
	if err := ws.Describe(b.ID, args[1]); err != nil {
		return err
	}
	env.printer.Success(fmt.Sprintf("described %s", b.DisplayName()))
	return save(cmd.Context(), ws)
}
