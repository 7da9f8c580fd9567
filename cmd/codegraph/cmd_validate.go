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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
	"github.com/AleutianAI/codegraph/services/codegraph/watch"
	"github.com/AleutianAI/codegraph/services/codegraph/workspace"
)

// errMissingBlocks makes validate --fail-on-missing exit with status 2.
var errMissingBlocks = errors.New("some blocks are missing from the source tree")

func runValidate(cmd *cobra.Command, _ []string) error {
	write, _ := cmd.Flags().GetBool("write")
	watching, _ := cmd.Flags().GetBool("watch")
	failOnMissing, _ := cmd.Flags().GetBool("fail-on-missing")

	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	report, err := validateOnce(cmd.Context(), ws, write)
	if err != nil {
		return err
	}
	if !watching {
		if failOnMissing && len(report.Missing()) > 0 {
			return errMissingBlocks
		}
		return nil
	}

	w, err := watch.New(watchDirs(ws),
		watch.WithFilter(watch.WithoutIgnored(ws.Root(), watch.SourceFiles)),
		watch.WithLogger(env.logger.Slog()),
	)
	if err != nil {
		return err
	}
	defer w.Close()
	env.printer.Info(fmt.Sprintf("watching %d director(ies), Ctrl-C to stop", len(w.Dirs())))

	err = w.Run(cmd.Context(), func(ctx context.Context, paths []string) {
		env.logger.Debug("revalidating", slog.Int("changed", len(paths)))
		env.printer.Info("")
		if _, err := validateOnce(ctx, ws, write); err != nil {
			env.printer.Error(err.Error())
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func validateOnce(ctx context.Context, ws *workspace.Workspace, write bool) (resolve.Report, error) {
	var report resolve.Report
	var err error
	if write {
		report, err = ws.Save(ctx)
	} else {
		report, err = ws.Validate(ctx)
	}
	if err != nil {
		return report, err
	}

	env.printer.Title(fmt.Sprintf("Validation of %s", ws.Current()))
	renderReport(env.printer, report)
	if write {
		env.printer.Success(fmt.Sprintf("saved %s", ws.Path()))
	}
	return report, nil
}

// watchDirs lists every directory whose contents can change a result in
// the active scope: the scope directory itself and the search paths of
// its symbol kinds.
func watchDirs(ws *workspace.Workspace) []string {
	dirs := []string{ws.Current().Dir(ws.Root())}
	for _, b := range ws.Scope().Blocks() {
		if b.Kind.IsSymbol() {
			dirs = append(dirs, ws.Resolver().SearchPath(ws.Current(), b.Kind))
		}
	}
	existing := dirs[:0]
	for _, d := range dirs {
		if isDir(d) {
			existing = append(existing, d)
		}
	}
	if len(existing) == 0 {
		existing = append(existing, ws.Root())
	}
	return existing
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
