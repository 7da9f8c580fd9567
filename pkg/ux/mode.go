// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Mode defines the richness of CLI output.
type Mode string

const (
	// ModeRich enables colours, icons and boxes.
	ModeRich Mode = "rich"

	// ModePlain uses icons without colour.
	ModePlain Mode = "plain"

	// ModeMachine outputs tab-separated plain text for scripts.
	ModeMachine Mode = "machine"
)

// ParseMode converts a string to a Mode. Unknown values are rich.
func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "plain", "p", "minimal":
		return ModePlain
	case "machine", "quiet", "q":
		return ModeMachine
	default:
		return ModeRich
	}
}

// DetectMode picks the mode for f: CODEGRAPH_OUTPUT wins, then machine
// output when f is not a terminal, else rich.
func DetectMode(f *os.File) Mode {
	if env := os.Getenv("CODEGRAPH_OUTPUT"); env != "" {
		return ParseMode(env)
	}
	if !IsTerminal(f) {
		return ModeMachine
	}
	return ModeRich
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
