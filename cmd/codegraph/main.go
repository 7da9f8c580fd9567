// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command codegraph maintains a diagram of a Python code base and keeps
// it in step with the source tree.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/codegraph/pkg/ux"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = teardown(nil, nil)
	if err != nil {
		printer := env.printer
		if printer == nil {
			printer = ux.NewPrinter(os.Stdout, os.Stderr, ux.DetectMode(os.Stdout))
		}
		printer.Error(err.Error())
		if errors.Is(err, errMissingBlocks) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
