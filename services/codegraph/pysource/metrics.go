// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pysource

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("codegraph.pysource")
	meter  = otel.Meter("codegraph.pysource")
)

var (
	parseLatency   metric.Float64Histogram
	parseTotal     metric.Int64Counter
	defsExtracted  metric.Int64Histogram
	parseFailures  metric.Int64Counter
	metricsOnce    sync.Once
	metricsInitErr error
)

// initMetrics creates the instruments once. Safe to call repeatedly.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		if parseLatency, err = meter.Float64Histogram(
			"pysource_parse_duration_seconds",
			metric.WithDescription("Duration of Python source parsing"),
			metric.WithUnit("s"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if parseTotal, err = meter.Int64Counter(
			"pysource_parse_total",
			metric.WithDescription("Python files parsed"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if defsExtracted, err = meter.Int64Histogram(
			"pysource_definitions_extracted",
			metric.WithDescription("Function and class definitions found per file"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if parseFailures, err = meter.Int64Counter(
			"pysource_parse_failures_total",
			metric.WithDescription("Python files that could not be parsed"),
		); err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}

// recordParseMetrics records one parse. Metrics are skipped when the
// instruments could not be created.
func recordParseMetrics(ctx context.Context, duration time.Duration, defCount int, success bool) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)
	if success {
		defsExtracted.Record(ctx, int64(defCount))
	} else {
		parseFailures.Add(ctx, 1)
	}
}

// startParseSpan opens a span for one file. The caller ends it.
func startParseSpan(ctx context.Context, filePath string, size int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pysource.Parse",
		trace.WithAttributes(
			attribute.String("pysource.file", filePath),
			attribute.Int("pysource.content_size", size),
		),
	)
}

func setParseSpanResult(span trace.Span, defs, imports int) {
	span.SetAttributes(
		attribute.Int("pysource.definitions", defs),
		attribute.Int("pysource.imports", imports),
	)
}
