// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath    string
	projectPath   string
	rootDir       string
	scopeFlag     string
	logLevel      string
	jsonLogs      bool
	outputMode    string
	traceExporter string

	rootCmd = &cobra.Command{
		Use:   "codegraph",
		Short: "Diagram a Python code base and keep it in step with the source",
		Long: `codegraph keeps a hierarchical diagram of a Python project: functions,
classes, methods and subdirectories, each checked against the source tree.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	// --- Inspection ---
	showCmd = &cobra.Command{
		Use:   "show",
		Short: "List the blocks, connections and subscopes of a scope",
		Args:  cobra.NoArgs,
		RunE:  runShow, // Defined in cmd_inspect.go
	}
	resolveCmd = &cobra.Command{
		Use:   "resolve <kind> <symbol>",
		Short: "List where a FUNCTION, METHOD or CLASS is defined or imported",
		Args:  cobra.ExactArgs(2),
		RunE:  runResolve, // Defined in cmd_inspect.go
	}
	docCmd = &cobra.Command{
		Use:   "doc <block>",
		Short: "Print the docstring of a block's symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  runDoc, // Defined in cmd_inspect.go
	}
	openCmd = &cobra.Command{
		Use:   "open <block>",
		Short: "Open a block's source location in the configured editor",
		Args:  cobra.ExactArgs(1),
		RunE:  runOpen, // Defined in cmd_inspect.go
	}

	// --- Validation ---
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check every block of a scope against the source tree",
		Args:  cobra.NoArgs,
		RunE:  runValidate, // Defined in cmd_validate.go
	}

	// --- Editing ---
	addCmd = &cobra.Command{
		Use:   "add <kind> <name>",
		Short: "Add a block; symbols are located in the source tree",
		Args:  cobra.ExactArgs(2),
		RunE:  runAdd, // Defined in cmd_edit.go
	}
	deleteCmd = &cobra.Command{
		Use:     "delete <block>...",
		Short:   "Delete blocks and their connections",
		Aliases: []string{"rm"},
		Args:    cobra.MinimumNArgs(1),
		RunE:    runDelete, // Defined in cmd_edit.go
	}
	connectCmd = &cobra.Command{
		Use:   "connect <from> <to>",
		Short: "Connect two blocks",
		Args:  cobra.ExactArgs(2),
		RunE:  runConnect, // Defined in cmd_edit.go
	}
	renameCmd = &cobra.Command{
		Use:   "rename <block> [alias]",
		Short: "Set a block's display alias; omit the alias to clear it",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runRename, // Defined in cmd_edit.go
	}
	moveCmd = &cobra.Command{
		Use:   "move <block> <x> <y>",
		Short: "Move a block",
		Args:  cobra.ExactArgs(3),
		RunE:  runMove, // Defined in cmd_edit.go
	}
	describeCmd = &cobra.Command{
		Use:   "describe <block> <text>",
		Short: "Attach a free-text description to a block",
		Args:  cobra.ExactArgs(2),
		RunE:  runDescribe, // Defined in cmd_edit.go
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP view of the project",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.codegraph/codegraph.yaml)")
	pf.StringVar(&rootDir, "root", ".", "root directory of the Python source tree")
	pf.StringVar(&projectPath, "project", "", "project file (default <root>/<project.file_name>)")
	pf.StringVar(&scopeFlag, "scope", "root", "scope to operate on, e.g. root/pkg/Widget")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&jsonLogs, "json-logs", false, "log as JSON")
	pf.StringVar(&outputMode, "output", "", "output mode: rich, plain, machine")
	pf.StringVar(&traceExporter, "trace", "", "trace exporter: none, stdout, otlp")

	validateCmd.Flags().Bool("write", false, "save the results into the project file")
	validateCmd.Flags().Bool("watch", false, "re-validate whenever the scope's sources change")
	validateCmd.Flags().Bool("fail-on-missing", false, "exit with status 2 when a block is missing")

	addCmd.Flags().Float64("x", 0, "x position (default: next free row)")
	addCmd.Flags().Float64("y", 0, "y position (default: next free row)")
	addCmd.Flags().Float64("width", 300, "GROUP width")
	addCmd.Flags().Float64("height", 200, "GROUP height")
	addCmd.Flags().String("description", "", "OTHER block description")
	addCmd.Flags().String("choose", "", "non-interactive answer for ambiguous symbols: a 1-based index, unlocated, or cancel")

	connectCmd.Flags().String("from-side", "right", "side of the source block")
	connectCmd.Flags().String("to-side", "left", "side of the target block")
	connectCmd.Flags().String("flow", "one_way", "flow: one_way, bidirectional, none")
	connectCmd.Flags().String("line", "solid", "line: solid, dashed")

	serveCmd.Flags().String("addr", "", "listen address (default from config)")

	rootCmd.AddCommand(showCmd, resolveCmd, docCmd, openCmd, validateCmd,
		addCmd, deleteCmd, connectCmd, renameCmd, moveCmd, describeCmd, serveCmd)
}
