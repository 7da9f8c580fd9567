// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/codegraph/services/codegraph/document"
)

var (
	tracer = otel.Tracer("codegraph.resolve")
	meter  = otel.Meter("codegraph.resolve")
)

var (
	resolveLatency metric.Float64Histogram
	resolveTotal   metric.Int64Counter
	docLookups     metric.Int64Counter
	metricsOnce    sync.Once
	metricsInitErr error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		if resolveLatency, err = meter.Float64Histogram(
			"resolve_duration_seconds",
			metric.WithDescription("Duration of one symbol resolution scan"),
			metric.WithUnit("s"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if resolveTotal, err = meter.Int64Counter(
			"resolve_total",
			metric.WithDescription("Symbol resolutions by outcome"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if docLookups, err = meter.Int64Counter(
			"resolve_doc_lookups_total",
			metric.WithDescription("Docstring lookups by source"),
		); err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}

func recordResolveMetrics(ctx context.Context, duration time.Duration, outcome Outcome) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome.String()))
	resolveLatency.Record(ctx, duration.Seconds(), attrs)
	resolveTotal.Add(ctx, 1, attrs)
}

// recordDocLookup counts a docstring lookup. source is "local",
// "import" or "none".
func recordDocLookup(ctx context.Context, source string) {
	if initMetrics() != nil {
		return
	}
	docLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func startResolveSpan(ctx context.Context, symbol string, kind document.Kind, dir string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "resolve.Resolve",
		trace.WithAttributes(
			attribute.String("resolve.symbol", symbol),
			attribute.String("resolve.kind", kind.String()),
			attribute.String("resolve.dir", dir),
		),
	)
}

func setResolveSpanResult(span trace.Span, files, matches int, outcome Outcome) {
	span.SetAttributes(
		attribute.Int("resolve.files_scanned", files),
		attribute.Int("resolve.matches", matches),
		attribute.String("resolve.outcome", outcome.String()),
	)
}
