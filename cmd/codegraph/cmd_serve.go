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
	"log/slog"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/codegraph/services/codegraph/api"
	"github.com/AleutianAI/codegraph/services/codegraph/project"
	"github.com/AleutianAI/codegraph/services/codegraph/telemetry"
	"github.com/AleutianAI/codegraph/services/codegraph/watch"
)

// runServe serves the project and reloads it whenever the project file
// is rewritten by another codegraph command.
func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = env.cfg.Server.Addr
	}

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	if env.logger.Slog().Enabled(cmd.Context(), slog.LevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := api.NewServer(ws.Project(),
		api.WithLogger(env.logger.Slog()),
		api.WithMetricsHandler(telemetry.MetricsHandler()),
		api.WithResolverOptions(resolverOptions()...),
	)

	w, err := watch.New([]string{filepath.Dir(env.project)},
		watch.WithFilter(watch.Named(filepath.Base(env.project))),
		watch.WithLogger(env.logger.Slog()),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return srv.Run(ctx, addr) })
	g.Go(func() error {
		err := w.Run(ctx, func(ctx context.Context, _ []string) {
			p, err := project.Load(env.project)
			if err != nil {
				env.logger.Warn("reload failed", slog.String("path", env.project), slog.String("error", err.Error()))
				return
			}
			if p.RootPath == "" {
				p.RootPath = env.root
			}
			srv.Reload(p)
			env.logger.Info("project reloaded", slog.String("path", env.project))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	env.printer.Success("serving " + addr)
	return g.Wait()
}
