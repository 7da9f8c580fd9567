// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the user dismisses a prompt.
var ErrAborted = errors.New("prompt aborted")

// maxPromptAttempts bounds how often the line prompter re-asks after
// invalid input.
const maxPromptAttempts = 3

// PromptOption is one selectable entry.
type PromptOption struct {
	Label       string
	Description string
	Value       string
	Recommended bool
}

// Prompter asks the user to pick one of several options.
//
// # Description
//
// Select shows the options under title and blocks until the user picks
// one. It returns the index into options, or ErrAborted.
//
// # Thread Safety
//
// Implementations are not safe for concurrent use; prompts own the
// terminal while they run.
type Prompter interface {
	Select(ctx context.Context, title string, options []PromptOption) (int, error)
}

// NewPrompter returns an interactive huh prompter when in is a terminal
// and a numbered line prompter otherwise.
func NewPrompter(in *os.File, out io.Writer) Prompter {
	if IsTerminal(in) {
		return &FormPrompter{theme: codegraphTheme()}
	}
	return NewLinePrompter(in, out)
}

// =============================================================================
// Interactive prompter
// =============================================================================

// FormPrompter renders a huh select list.
type FormPrompter struct {
	theme *huh.Theme
}

// Select implements Prompter.
func (p *FormPrompter) Select(ctx context.Context, title string, options []PromptOption) (int, error) {
	if len(options) == 0 {
		return -1, ErrAborted
	}
	choice := 0
	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		label := o.Label
		if o.Recommended {
			label += " (recommended)"
			choice = i
		}
		if o.Description != "" {
			label += "  " + Styles.Muted.Render(truncate(o.Description, 60))
		}
		opts[i] = huh.NewOption(label, i)
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().
			Title(title).
			Options(opts...).
			Value(&choice),
	)).WithTheme(p.theme)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return -1, ErrAborted
		}
		return -1, fmt.Errorf("select prompt: %w", err)
	}
	return choice, nil
}

// codegraphTheme creates a huh theme matching the palette.
func codegraphTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = t.Focused.Title.Foreground(ColorTealBright).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorSlate)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorTealPrimary)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorTealBright)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)

	t.Blurred.Title = t.Blurred.Title.Foreground(ColorTealDeep)
	return t
}

// =============================================================================
// Line prompter
// =============================================================================

// LinePrompter prints a numbered list and reads the answer from a line of
// input. It is used when stdin is not a terminal.
//
// Answers are 1-based indexes. An empty answer picks the recommended
// option if there is one; "q" aborts.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a LinePrompter.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// Select implements Prompter.
func (p *LinePrompter) Select(ctx context.Context, title string, options []PromptOption) (int, error) {
	if len(options) == 0 {
		return -1, ErrAborted
	}
	recommended := -1
	fmt.Fprintln(p.out, title)
	for i, o := range options {
		mark := " "
		if o.Recommended {
			mark = "*"
			recommended = i
		}
		line := fmt.Sprintf("%s %d) %s", mark, i+1, o.Label)
		if o.Description != "" {
			line += "  " + truncate(o.Description, 60)
		}
		fmt.Fprintln(p.out, line)
	}

	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		fmt.Fprint(p.out, "> ")
		raw, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(raw)
		if err != nil && answer == "" {
			if errors.Is(err, io.EOF) {
				return -1, ErrAborted
			}
			return -1, fmt.Errorf("read answer: %w", err)
		}

		switch {
		case answer == "" && recommended >= 0:
			return recommended, nil
		case strings.EqualFold(answer, "q"):
			return -1, ErrAborted
		}
		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "enter a number between 1 and %d, or q to cancel\n", len(options))
		if err != nil {
			return -1, ErrAborted
		}
	}
	return -1, ErrAborted
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
