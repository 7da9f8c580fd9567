// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling and prompts for the
// codegraph CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette: deep ocean teals with standard semantic colours.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconFolder  Icon = "▸"
	IconClass   Icon = "◆"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes status output in the configured Mode.
type Printer struct {
	out  io.Writer
	err  io.Writer
	mode Mode
}

// NewPrinter creates a Printer. Nil writers default to stdout and
// stderr.
func NewPrinter(out, errOut io.Writer, mode Mode) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut, mode: mode}
}

// Mode is the printer's output mode.
func (p *Printer) Mode() Mode { return p.mode }

// Out is the standard output writer.
func (p *Printer) Out() io.Writer { return p.out }

// Title prints a styled title. Machine mode prints nothing.
func (p *Printer) Title(text string) {
	if p.mode == ModeMachine {
		return
	}
	fmt.Fprintln(p.out, Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.out, "OK: %s\n", text)
	case ModePlain:
		fmt.Fprintf(p.out, "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(p.out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.err, "WARN: %s\n", text)
	case ModePlain:
		fmt.Fprintf(p.out, "%s %s\n", IconWarning, text)
	default:
		fmt.Fprintf(p.out, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func (p *Printer) Error(text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.err, "ERROR: %s\n", text)
	case ModePlain:
		fmt.Fprintf(p.err, "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(p.err, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func (p *Printer) Info(text string) {
	if p.mode == ModeRich {
		fmt.Fprintf(p.out, "%s %s\n", Styles.Muted.Render("│"), text)
		return
	}
	fmt.Fprintln(p.out, text)
}

// Box prints text in a rounded box.
func (p *Printer) Box(title, content string) {
	if p.mode != ModeRich {
		fmt.Fprintf(p.out, "%s:\n%s\n", title, content)
		return
	}
	fmt.Fprintln(p.out, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// BlockStatus prints one validated block.
func (p *Printer) BlockStatus(name, kind string, status Icon, reason string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.out, "%s\t%s\t%s\t%s\n", status, kind, name, reason)
	case ModePlain:
		fmt.Fprintf(p.out, "%s %s %s\n", status, kind, name)
	default:
		line := fmt.Sprintf("%s %s %s", status.Render(), Styles.Muted.Render(strings.ToLower(kind)), name)
		if reason != "" {
			line += " " + Styles.Muted.Render("("+reason+")")
		}
		fmt.Fprintln(p.out, line)
	}
}

// Summary prints validation counts.
func (p *Printer) Summary(validated, missing int) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.out, "SUMMARY: validated=%d missing=%d\n", validated, missing)
		return
	}
	fmt.Fprintf(p.out, "\n%s %s  %s %s\n",
		Styles.Bold.Render(fmt.Sprintf("%d", validated)), Styles.Muted.Render("validated"),
		Styles.Warning.Render(fmt.Sprintf("%d", missing)), Styles.Muted.Render("missing"),
	)
}
