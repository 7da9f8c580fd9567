// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parsecache

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/codegraph/services/codegraph/pysource"
)

// keyPrefix versions the cache layout. Bump it when the encoded module
// format changes.
const keyPrefix = "pymod/v1/"

var (
	lookups     metric.Int64Counter
	metricsOnce sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		lookups, _ = otel.Meter("codegraph.parsecache").Int64Counter(
			"parse_cache_lookups_total",
			metric.WithDescription("Parse cache lookups by result"),
		)
	})
}

func recordLookup(ctx context.Context, result string) {
	initMetrics()
	if lookups != nil {
		lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

// Parser serves module indexes from a Store, parsing with the wrapped
// parser on a miss. It implements pysource.Source.
//
// Failed parses are not cached: the error is recomputed each time.
type Parser struct {
	inner  *pysource.Parser
	store  *Store
	logger *slog.Logger
}

// NewParser wraps inner with store.
func NewParser(inner *pysource.Parser, store *Store, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{inner: inner, store: store, logger: logger}
}

// ParseFile implements pysource.Source.
func (p *Parser) ParseFile(ctx context.Context, path string) (*pysource.Module, error) {
	content, err := p.inner.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key := cacheKey(path, content)

	if data, ok, err := p.store.Get(key); err != nil {
		p.logger.Warn("parse cache read failed", slog.String("path", path), slog.String("error", err.Error()))
	} else if ok {
		if mod, err := pysource.DecodeModule(data); err == nil {
			recordLookup(ctx, "hit")
			return mod, nil
		}
		p.logger.Debug("dropping corrupt cache entry", slog.String("path", path))
		_ = p.store.Delete(key)
	}
	recordLookup(ctx, "miss")

	mod, err := p.inner.Parse(ctx, content, path)
	if err != nil {
		return nil, err
	}
	data, err := mod.Encode()
	if err == nil {
		err = p.store.Put(key, data)
	}
	if err != nil {
		p.logger.Warn("parse cache write failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	return mod, nil
}

func cacheKey(path string, content []byte) []byte {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(content)
	return h.Sum([]byte(keyPrefix))
}
