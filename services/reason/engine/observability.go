// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "ponder.reason.engine"

// Tracer provides OpenTelemetry tracing for search runs.
//
// A nil *Tracer is valid and disables all tracing, so the engine never has
// to branch on configuration.
//
// Thread Safety: Safe for concurrent use.
type Tracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewTracer creates a tracer.
//
// Inputs:
//   - logger: Logger for structured logging (nil uses slog.Default()).
//   - enabled: When false, all spans are no-ops.
//
// Outputs:
//   - *Tracer: Tracer instance.
func NewTracer(logger *slog.Logger, enabled bool) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// StartRun starts the span covering an entire search run.
func (t *Tracer) StartRun(ctx context.Context, req Request) (context.Context, trace.Span) {
	if t == nil || !t.enabled {
		return ctx, noop.Span{}
	}

	ctx, span := t.tracer.Start(ctx, "reason.run",
		trace.WithAttributes(
			attribute.String("reason.session_id", req.SessionID),
			attribute.String("reason.task", truncate(req.Task, 100)),
			attribute.Int("reason.max_depth", req.Config.MaxDepth),
			attribute.Int("reason.branching_factor", req.Config.BranchingFactor),
			attribute.Bool("reason.use_oracle", req.Config.UseOracle),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	t.logger.InfoContext(ctx, "search run started",
		slog.String("session_id", req.SessionID),
		slog.String("task", truncate(req.Task, 100)),
		slog.Int("max_depth", req.Config.MaxDepth),
		slog.Int("branching_factor", req.Config.BranchingFactor))

	return ctx, span
}

// TraceDepth records one completed expansion level as a span event.
func (t *Tracer) TraceDepth(ctx context.Context, depth int, domain Domain, children int) {
	if t == nil || !t.enabled {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.AddEvent("reason.expand",
		trace.WithAttributes(
			attribute.Int("reason.depth", depth),
			attribute.String("reason.domain", domain.String()),
			attribute.Int("reason.children", children),
		))
}

// EndRun completes the run span with result attributes.
func (t *Tracer) EndRun(span trace.Span, result *Result) {
	if t == nil || span == nil {
		return
	}
	if result != nil {
		span.SetAttributes(
			attribute.Int("reason.result.nodes", len(result.Nodes)),
			attribute.Int("reason.result.path_len", len(result.BestPath)),
			attribute.Float64("reason.result.confidence", result.Confidence),
		)
	}
	span.SetStatus(codes.Ok, "")
	span.End()
}
