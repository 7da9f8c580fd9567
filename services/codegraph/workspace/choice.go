// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workspace

import (
	"context"

	"github.com/AleutianAI/codegraph/services/codegraph/document"
	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
)

// Action is what the user decided when a symbol had several candidates.
type Action int

const (
	// Pick locates the block at Choice.Index.
	Pick Action = iota

	// Unlocated creates the block as existing but without a file or line.
	Unlocated

	// Cancel aborts the operation. Nothing is created.
	Cancel
)

// Choice is the answer to a disambiguation request.
type Choice struct {
	Action Action
	Index  int
}

// PickMatch selects matches[i].
func PickMatch(i int) Choice { return Choice{Action: Pick, Index: i} }

// Chooser asks the user to pick among candidate matches. It blocks until
// the user answers.
type Chooser interface {
	Choose(ctx context.Context, symbol string, kind document.Kind, matches []resolve.Match) (Choice, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, symbol string, kind document.Kind, matches []resolve.Match) (Choice, error)

// Choose implements Chooser.
func (f ChooserFunc) Choose(ctx context.Context, symbol string, kind document.Kind, matches []resolve.Match) (Choice, error) {
	return f(ctx, symbol, kind, matches)
}

// Fixed always returns c. Useful for non-interactive callers.
func Fixed(c Choice) Chooser {
	return ChooserFunc(func(context.Context, string, document.Kind, []resolve.Match) (Choice, error) {
		return c, nil
	})
}
