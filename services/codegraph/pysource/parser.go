// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pysource indexes Python source files with tree-sitter.
//
// A Module lists every function and class definition in a file, at any
// nesting depth, with its line and cleaned docstring, plus every name
// bound by an import statement. That is all the symbol resolver needs:
// it never evaluates code and never follows more than one import hop.
package pysource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxFileSize bounds the files the parser accepts.
const DefaultMaxFileSize = 10 * 1024 * 1024

var (
	// ErrFileTooLarge indicates content above the configured limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")

	// ErrInvalidContent indicates content that is not UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrSyntax indicates source that does not parse as Python.
	ErrSyntax = errors.New("python syntax error")
)

// Option configures a Parser.
type Option func(*Parser)

// WithMaxFileSize sets the largest accepted file in bytes. Non-positive
// values are ignored.
func WithMaxFileSize(bytes int64) Option {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Parser builds Module indexes.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Parse call creates its own tree-sitter
//	parser instance.
type Parser struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxFileSize: DefaultMaxFileSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Source produces module indexes from files. *Parser is the plain
// implementation; caching layers wrap it.
type Source interface {
	ParseFile(ctx context.Context, path string) (*Module, error)
}

// ReadFile reads path, refusing files over the size limit before
// reading them.
func (p *Parser) ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > p.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), p.maxFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return content, nil
}

// ParseFile reads and indexes the file at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Module, error) {
	content, err := p.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, content, path)
}

// Parse indexes Python source.
//
// Description:
//
//	Parses content with tree-sitter and walks the whole tree in source
//	order, recording definitions and imports. Unlike an error-tolerant
//	symbol extractor, any syntax error rejects the file: a file the
//	interpreter could not import is not evidence that a symbol exists.
//
// Inputs:
//
//	ctx - Checked before and after parsing.
//	content - Raw source. Must be valid UTF-8.
//	path - Used for reporting only.
//
// Outputs:
//
//	*Module - The index. Never nil on success.
//	error - ErrFileTooLarge, ErrInvalidContent, ErrSyntax or a context error.
func (p *Parser) Parse(ctx context.Context, content []byte, path string) (mod *Module, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	ctx, span := startParseSpan(ctx, path, len(content))
	defer span.End()
	start := time.Now()
	defer func() {
		defs := 0
		if mod != nil {
			defs = len(mod.Definitions)
			setParseSpanResult(span, defs, len(mod.Imports))
		}
		recordParseMetrics(ctx, time.Since(start), defs, err == nil)
	}()

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidContent, path)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: %s: empty tree", ErrSyntax, path)
	}
	if root.HasError() {
		return nil, fmt.Errorf("%w: %s", ErrSyntax, path)
	}

	mod = &Module{
		Path:  path,
		lines: strings.SplitAfter(string(content), "\n"),
	}
	if n := len(mod.lines); n > 0 && mod.lines[n-1] == "" {
		mod.lines = mod.lines[:n-1]
	}
	walk(root, content, mod)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}
	return mod, nil
}

// walk visits nodes in source order.
func walk(root *sitter.Node, content []byte, mod *Module) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Type() {
		case "function_definition":
			addDefinition(node, content, DefFunction, mod)
		case "class_definition":
			addDefinition(node, content, DefClass, mod)
		case "import_statement":
			addPlainImports(node, content, mod)
			continue
		case "import_from_statement":
			addFromImports(node, content, mod)
			continue
		}

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

func line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

func addDefinition(node *sitter.Node, content []byte, kind DefKind, mod *Module) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	def := Definition{
		Name: nameNode.Content(content),
		Kind: kind,
		Line: line(node),
	}
	if kind == DefFunction {
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.Child(i).Type() == "async" {
				def.Async = true
				break
			}
		}
	}
	if body := node.ChildByFieldName("body"); body != nil {
		def.Doc, def.HasDoc = docstring(body, content)
	}
	mod.Definitions = append(mod.Definitions, def)
}

// addPlainImports handles "import a.b" and "import a.b as c".
func addPlainImports(node *sitter.Node, content []byte, mod *Module) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			mod.Imports = append(mod.Imports, Import{
				Module: child.Content(content),
				Line:   line(node),
			})
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil {
				continue
			}
			imp := Import{Module: name.Content(content), Line: line(node)}
			if alias != nil {
				imp.Alias = alias.Content(content)
			}
			mod.Imports = append(mod.Imports, imp)
		}
	}
}

// addFromImports handles "from M import a, b as c", relative modules
// and wildcards.
func addFromImports(node *sitter.Node, content []byte, mod *Module) {
	base := Import{From: true, Line: line(node)}
	var sawImport bool
	var names []Import

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			for j := 0; j < int(child.ChildCount()); j++ {
				part := child.Child(j)
				switch part.Type() {
				case "import_prefix":
					base.Level = strings.Count(part.Content(content), ".")
				case "dotted_name":
					base.Module = part.Content(content)
				}
			}
		case "dotted_name":
			if !sawImport {
				base.Module = child.Content(content)
				continue
			}
			imp := base
			imp.Name = child.Content(content)
			names = append(names, imp)
		case "aliased_import":
			name := child.ChildByFieldName("name")
			if name == nil {
				continue
			}
			imp := base
			imp.Name = name.Content(content)
			if alias := child.ChildByFieldName("alias"); alias != nil {
				imp.Alias = alias.Content(content)
			}
			names = append(names, imp)
		case "wildcard_import":
			imp := base
			imp.Name = "*"
			imp.Wildcard = true
			names = append(names, imp)
		}
	}
	mod.Imports = append(mod.Imports, names...)
}

// =============================================================================
// Docstrings
// =============================================================================

// docstring returns the cleaned docstring of a body block: the first
// statement, when it is a string literal or an implicit concatenation
// of string literals.
func docstring(body *sitter.Node, content []byte) (string, bool) {
	for i := 0; i < int(body.ChildCount()); i++ {
		stmt := body.Child(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
			return "", false
		}
		text, ok := literalText(stmt.NamedChild(0), content)
		if !ok {
			return "", false
		}
		return cleandoc(text), true
	}
	return "", false
}

// literalText decodes a string node, joining the parts of "a" "b".
func literalText(node *sitter.Node, content []byte) (string, bool) {
	switch node.Type() {
	case "string":
		return stringLiteral(node.Content(content))
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(node.NamedChildCount()); i++ {
			part := node.NamedChild(i)
			if part.Type() != "string" {
				return "", false
			}
			text, ok := stringLiteral(part.Content(content))
			if !ok {
				return "", false
			}
			b.WriteString(text)
		}
		return b.String(), true
	}
	return "", false
}

// stringLiteral decodes a Python string literal. Bytes and f-strings are
// not docstrings and report false.
func stringLiteral(raw string) (string, bool) {
	i := 0
	for i < len(raw) && strings.IndexByte("rRuUbBfF", raw[i]) >= 0 {
		i++
	}
	prefix := strings.ToLower(raw[:i])
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}
	body := raw[i:]

	quote := ""
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case strings.HasPrefix(body, `"`), strings.HasPrefix(body, `'`):
		quote = body[:1]
	default:
		return "", false
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false
	}
	text := body[len(quote) : len(body)-len(quote)]
	if !strings.Contains(prefix, "r") {
		text = unescape(text)
	}
	return text, true
}

var simpleEscapes = map[byte]string{
	'\n': "",
	'\\': `\`,
	'\'': "'",
	'"':  `"`,
	'a':  "\a",
	'b':  "\b",
	'f':  "\f",
	'n':  "\n",
	'r':  "\r",
	't':  "\t",
	'v':  "\v",
}

// unescape decodes the backslash escapes of a non-raw str literal:
// single-character escapes, up to three octal digits, \xhh, \uXXXX and
// \UXXXXXXXX. Unknown or malformed escapes, including \N{...}, are kept
// as written.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		if rep, ok := simpleEscapes[next]; ok {
			b.WriteString(rep)
			i++
			continue
		}
		if isOctal(next) {
			n, j := 0, i+1
			for j < len(s) && j < i+4 && isOctal(s[j]) {
				n = n*8 + int(s[j]-'0')
				j++
			}
			b.WriteRune(rune(n))
			i = j - 1
			continue
		}
		width := 0
		switch next {
		case 'x':
			width = 2
		case 'u':
			width = 4
		case 'U':
			width = 8
		}
		if width > 0 && i+2+width <= len(s) {
			if v, err := strconv.ParseUint(s[i+2:i+2+width], 16, 32); err == nil && v <= utf8.MaxRune {
				b.WriteRune(rune(v))
				i += 1 + width
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

// cleandoc removes the uniform indentation of docstring continuation
// lines and trims leading and trailing blank lines.
func cleandoc(doc string) string {
	lines := strings.Split(expandTabs(doc), "\n")

	margin := -1
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " ")
		if trimmed == "" {
			continue
		}
		if indent := len(l) - len(trimmed); margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = ""
			}
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// expandTabs replaces tabs with spaces using eight column tab stops.
func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := 8 - col%8
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}
