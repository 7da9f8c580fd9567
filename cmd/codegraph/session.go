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
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codegraph/pkg/logging"
	"github.com/AleutianAI/codegraph/pkg/ux"
	"github.com/AleutianAI/codegraph/services/codegraph/config"
	"github.com/AleutianAI/codegraph/services/codegraph/document"
	"github.com/AleutianAI/codegraph/services/codegraph/editor"
	"github.com/AleutianAI/codegraph/services/codegraph/parsecache"
	"github.com/AleutianAI/codegraph/services/codegraph/pysource"
	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
	"github.com/AleutianAI/codegraph/services/codegraph/telemetry"
	"github.com/AleutianAI/codegraph/services/codegraph/workspace"
)

// cliEnv is what every command shares, built once in setup.
type cliEnv struct {
	cfg      config.Config
	logger   *logging.Logger
	printer  *ux.Printer
	root     string
	project  string
	shutdown func(context.Context) error
	cache    *parsecache.Store
}

var env cliEnv

func setup(cmd *cobra.Command, _ []string) error {
	mode := ux.DetectMode(os.Stdout)
	if outputMode != "" {
		mode = ux.ParseMode(outputMode)
	}
	env.printer = ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	cfg, err := config.LoadOrCreate(path, slog.Default())
	if err != nil {
		return err
	}
	env.cfg = cfg
	configFile := path

	levelName := cfg.Logging.Level
	if logLevel != "" {
		levelName = logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	env.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "codegraph",
		JSON:    jsonLogs || cfg.Logging.JSON,
	})
	slog.SetDefault(env.logger.Slog())

	tcfg := telemetry.DefaultConfig()
	if os.Getenv("OTEL_TRACES_EXPORTER") == "" {
		tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	}
	if os.Getenv("OTEL_METRICS_EXPORTER") == "" {
		tcfg.MetricExporter = cfg.Telemetry.MetricExporter
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	if traceExporter != "" {
		tcfg.TraceExporter = traceExporter
	}
	if env.shutdown, err = telemetry.Init(cmd.Context(), tcfg); err != nil {
		return err
	}

	if cfg.Cache.Enabled {
		store, err := parsecache.Open(parsecache.Config{
			Path:   cfg.CacheDir(configFile),
			TTL:    cfg.Cache.TTL,
			Logger: env.logger.Slog(),
		})
		if err != nil {
			// Usually another codegraph process holds the directory lock.
			env.logger.Warn("parse cache disabled", slog.String("error", err.Error()))
		} else {
			env.cache = store
		}
	}

	if env.root, err = filepath.Abs(rootDir); err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	env.project = projectPath
	if env.project == "" {
		env.project = filepath.Join(env.root, cfg.Project.FileName)
	}
	return nil
}

// teardown releases what setup acquired. It is safe to call twice; main
// calls it again because cobra skips post-run hooks when a command fails.
func teardown(_ *cobra.Command, _ []string) error {
	var errs []error
	if env.cache != nil {
		errs = append(errs, env.cache.Close())
		env.cache = nil
	}
	if env.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, env.shutdown(ctx))
		env.shutdown = nil
	}
	if env.logger != nil {
		errs = append(errs, env.logger.Close())
	}
	return errors.Join(errs...)
}

// resolverOptions builds the parser and resolver settings from config.
func resolverOptions() []resolve.Option {
	parser := pysource.NewParser(
		pysource.WithMaxFileSize(env.cfg.Resolver.MaxFileSize),
		pysource.WithLogger(env.logger.Slog()),
	)
	var source pysource.Source = parser
	if env.cache != nil {
		source = parsecache.NewParser(parser, env.cache, env.logger.Slog())
	}
	return []resolve.Option{
		resolve.WithParser(source),
		resolve.WithExcerptLines(env.cfg.Resolver.ExcerptLines),
	}
}

// openWorkspace opens the project and navigates to --scope.
func openWorkspace(extra ...workspace.Option) (*workspace.Workspace, error) {
	launcher := editor.New(
		editor.WithCommand(env.cfg.Editor.Command, env.cfg.Editor.Args),
		editor.WithLogger(env.logger.Slog()),
	)
	opts := append([]workspace.Option{
		workspace.WithLogger(env.logger.Slog()),
		workspace.WithEditor(launcher),
		workspace.WithResolverOptions(resolverOptions()...),
	}, extra...)

	ws, err := workspace.Open(env.project, env.root, opts...)
	if err != nil {
		return nil, err
	}

	key := parseScope(scopeFlag)
	if !key.IsRoot() {
		if !ws.Document().HasScope(key) {
			return nil, fmt.Errorf("scope %q: %w", key, document.ErrScopeNotFound)
		}
		ws.Navigate(key)
	}
	return ws, nil
}

func parseScope(raw string) document.ScopeKey {
	raw = strings.Trim(strings.TrimSpace(raw), "/")
	if raw == "" {
		return document.RootScope
	}
	if raw != string(document.RootScope) && !strings.HasPrefix(raw, string(document.RootScope)+"/") {
		raw = string(document.RootScope) + "/" + raw
	}
	return document.ScopeKey(raw)
}

// findBlock looks a block up by id, then display name, then symbol.
func findBlock(scope *document.Scope, ref string) (document.Block, error) {
	if b, ok := scope.Block(ref); ok {
		return b, nil
	}
	bare := strings.TrimSuffix(ref, "()")
	var found []document.Block
	for _, b := range scope.Blocks() {
		if b.DisplayName() == ref || b.Name == ref || (b.Metadata.Symbol != "" && b.Metadata.Symbol == bare) {
			found = append(found, b)
		}
	}
	switch len(found) {
	case 0:
		return document.Block{}, fmt.Errorf("%s: %w", ref, document.ErrBlockNotFound)
	case 1:
		return found[0], nil
	default:
		return document.Block{}, fmt.Errorf("%s matches %d blocks; use the block id", ref, len(found))
	}
}

// save writes the project and prints the validation summary.
func save(ctx context.Context, ws *workspace.Workspace) error {
	report, err := ws.Save(ctx)
	if err != nil {
		return err
	}
	env.printer.Success(fmt.Sprintf("saved %s", ws.Path()))
	if report.Validated() > 0 && len(report.Missing()) > 0 {
		env.printer.Warning(report.Summary())
	}
	return nil
}
