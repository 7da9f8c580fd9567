// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codegraph/pkg/ux"
	"github.com/AleutianAI/codegraph/services/codegraph/document"
	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
)

func runShow(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	scope := ws.Scope()

	env.printer.Title(fmt.Sprintf("%s  (%s)", ws.Current(), ws.Scope().Key().Dir(ws.Root())))
	if scope.Len() == 0 {
		env.printer.Info("no blocks")
		return nil
	}
	renderBlocks(env.printer.Out(), scope.Blocks())

	if conns := scope.Connections(); len(conns) > 0 {
		env.printer.Info("")
		renderConnections(env.printer.Out(), scope, conns)
	}

	if subs := ws.Subscopes(); len(subs) > 0 {
		env.printer.Info("")
		for _, b := range subs {
			icon := ux.IconFolder
			if b.Kind == document.KindClass {
				icon = ux.IconClass
			}
			env.printer.Info(fmt.Sprintf("%s %s", icon, ws.Current().Child(b.Name)))
		}
	}
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	kind, err := document.ParseKind(args[0])
	if err != nil {
		return err
	}
	if !kind.IsSymbol() {
		return fmt.Errorf("%s cannot be resolved; use FUNCTION, METHOD or CLASS", kind)
	}
	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	symbol := strings.TrimSuffix(strings.TrimSpace(args[1]), "()")
	matches := ws.Resolve(cmd.Context(), kind, symbol)
	searched := ws.Resolver().SearchPath(ws.Current(), kind)

	switch resolve.Classify(matches) {
	case resolve.NotFound:
		env.printer.Warning(fmt.Sprintf("%s %s not found in %s", strings.ToLower(kind.String()), symbol, searched))
		return nil
	case resolve.Resolved:
		env.printer.Success(fmt.Sprintf("%s %s found", strings.ToLower(kind.String()), symbol))
	case resolve.Ambiguous:
		env.printer.Warning(fmt.Sprintf("%s %s has %d candidates", strings.ToLower(kind.String()), symbol, len(matches)))
	}
	renderMatches(env.printer.Out(), matches)
	return nil
}

func runDoc(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	b, err := findBlock(ws.Scope(), args[0])
	if err != nil {
		return err
	}
	doc, ok := ws.Documentation(cmd.Context(), b.ID)
	if !ok || doc == "" {
		env.printer.Warning(fmt.Sprintf("no documentation for %s", b.DisplayName()))
		return nil
	}
	env.printer.Box(b.DisplayName(), doc)
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	b, err := findBlock(ws.Scope(), args[0])
	if err != nil {
		return err
	}
	if err := ws.OpenInEditor(b.ID); err != nil {
		return err
	}
	env.printer.Success(fmt.Sprintf("opened %s", location(b)))
	return nil
}

// location renders "file:line" for a located block.
func location(b document.Block) string {
	if b.Metadata.FilePath == "" {
		return ""
	}
	if b.Metadata.LineNumber == nil {
		return b.Metadata.FilePath
	}
	return fmt.Sprintf("%s:%d", b.Metadata.FilePath, *b.Metadata.LineNumber)
}
