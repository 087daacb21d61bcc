// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reason provides the reasoning-admission and tree-search HTTP
// service.
//
// The service exposes endpoints for:
//   - Running an admission-gated reasoning search
//   - Retrieving and listing persisted search traces
//   - Health and readiness checks
package reason

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ponderlabs/ponder/services/reason/admission"
	"github.com/ponderlabs/ponder/services/reason/engine"
	"github.com/ponderlabs/ponder/services/reason/store"
	"github.com/ponderlabs/ponder/services/reason/telemetry"
)

// Service orchestrates one run: admission decision, search, trace
// persistence, and the threshold feedback step.
//
// Thread Safety: Safe for concurrent use. Per-run state is owned by the run;
// the adaptive thresholds inside the policy are the only shared state and
// carry documented last-writer-wins semantics.
type Service struct {
	engine      *engine.Engine
	policy      *admission.Policy
	store       *store.Store
	metrics     *telemetry.Metrics
	logger      *slog.Logger
	runDefaults engine.RunConfig
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the structured logger. Defaults to slog.Default().
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the telemetry metrics instance. Nil disables recording.
func WithMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRunDefaults sets the base run configuration that per-request
// config_overrides are applied on top of. Defaults to
// engine.DefaultRunConfig().
func WithRunDefaults(cfg engine.RunConfig) ServiceOption {
	return func(s *Service) {
		s.runDefaults = cfg
	}
}

// NewService creates the service.
//
// Inputs:
//   - eng: The search engine. Required.
//   - policy: The admission policy. Required.
//   - st: The trace store. May be nil; traces are then never persisted and
//     trace lookups fail with ErrStoreDisabled.
//   - opts: Optional configuration functions.
func NewService(eng *engine.Engine, policy *admission.Policy, st *store.Store, opts ...ServiceOption) *Service {
	s := &Service{
		engine:      eng,
		policy:      policy,
		store:       st,
		logger:      slog.Default(),
		runDefaults: engine.DefaultRunConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one admission-gated reasoning run.
//
// Description:
//
//	Decides admission from the task and context signals. When rejected, the
//	response carries the decision alone. When admitted, runs the bounded
//	tree search, persists the trace (when enabled, degrading to a response
//	without a trace id on write failure), and feeds the realized utility
//	back into the adaptive thresholds.
//
// Outputs:
//   - *RunResponse: Always carries the decision; Result only when admitted.
//   - error: engine.ErrEmptyTask or engine.ErrInvalidConfig on bad input;
//     search failures otherwise.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	if strings.TrimSpace(req.Task) == "" {
		return nil, engine.ErrEmptyTask
	}

	cfg, err := parseRunConfig(s.runDefaults, req.ConfigOverrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	taskCtx := parseTaskContext(req.Context)
	decision := s.policy.Decide(ctx, req.Task, taskCtx)
	s.recordDecision(ctx, taskCtx, decision)

	resp := &RunResponse{
		SessionID: sessionID,
		Decision:  decision,
	}
	if !decision.UseSearch {
		s.logger.Info("task rejected by admission gate",
			"session_id", sessionID,
			"rationale", decision.Rationale)
		return resp, nil
	}

	result, err := s.engine.Run(ctx, engine.Request{
		Task:        req.Task,
		SessionID:   sessionID,
		Constraints: taskCtx.Constraints,
		ContextSize: len(req.Context),
		Config:      cfg,
	})
	if err != nil {
		s.recordRun(ctx, "error", 0)
		return nil, fmt.Errorf("search run: %w", err)
	}
	s.recordRun(ctx, "ok", result.Elapsed.Seconds())
	s.recordSearch(ctx, result)

	resp.Result = &RunResult{
		BestPath:       result.BestPath,
		SelectedAction: result.SelectedAction,
		Confidence:     result.Confidence,
		NodeCount:      len(result.Nodes),
		Metrics:        result.Metrics,
	}

	if cfg.PersistTrace && s.store != nil {
		resp.TraceID = s.persistTrace(ctx, sessionID, req.Task, &decision, result)
	}

	// Feedback must not fail the delivered result; the policy swallows and
	// logs its own persistence errors.
	s.policy.UpdateFromResult(ctx, &decision, admission.RunOutcome{
		Confidence: result.Confidence,
		Elapsed:    result.Elapsed,
		TimeBudget: time.Duration(cfg.TimeBudgetSeconds * float64(time.Second)),
	})

	return resp, nil
}

// GetTrace fetches a persisted trace by exact id.
func (s *Service) GetTrace(ctx context.Context, traceID string) (*store.TracePayload, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	return s.store.GetTrace(ctx, traceID)
}

// ListTraces returns up to limit stored trace ids.
func (s *Service) ListTraces(ctx context.Context, limit int) ([]string, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	return s.store.ListTraceIDs(ctx, limit)
}

// Thresholds exposes the current adaptive thresholds, for gauges and for
// the readiness surface.
func (s *Service) Thresholds() admission.ThresholdState {
	return s.policy.Thresholds()
}

// StoreOK reports whether the trace store is configured and reachable.
func (s *Service) StoreOK(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	return s.store.Ping(ctx) == nil
}

// persistTrace writes the trace record and returns its id, or "" when the
// write fails. A failed write degrades the response, never the result.
func (s *Service) persistTrace(ctx context.Context, sessionID, task string, decision *admission.Decision, result *engine.Result) string {
	traceID := uuid.NewString()
	payload := &store.TracePayload{
		TraceID:        traceID,
		SessionID:      sessionID,
		Task:           task,
		Decision:       decision,
		BestPath:       result.BestPath,
		SelectedAction: result.SelectedAction,
		Confidence:     result.Confidence,
		Metrics:        result.Metrics,
		Nodes:          result.Nodes,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.PutTrace(ctx, payload); err != nil {
		s.logger.Error("trace persistence failed, returning result without trace id",
			"session_id", sessionID,
			"error", err)
		s.recordPersist(ctx, "error")
		return ""
	}
	s.recordPersist(ctx, "ok")
	return traceID
}

func (s *Service) recordDecision(ctx context.Context, taskCtx admission.TaskContext, decision admission.Decision) {
	if s.metrics == nil {
		return
	}
	outcome := "rejected"
	switch {
	case taskCtx.DisableSearch:
		outcome = "disabled"
	case taskCtx.ForceSearch:
		outcome = "forced"
	case decision.UseSearch:
		outcome = "admitted"
	}
	s.metrics.AdmissionDecisionsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (s *Service) recordRun(ctx context.Context, status string, seconds float64) {
	if s.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	s.metrics.SearchRunsTotal.Add(ctx, 1, attrs)
	if status == "ok" {
		s.metrics.SearchRunDuration.Record(ctx, seconds, attrs)
	}
}

func (s *Service) recordSearch(ctx context.Context, result *engine.Result) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchNodesExplored.Add(ctx, int64(len(result.Nodes)))
	if calls, ok := result.Metrics[engine.MetricOracleCalls]; ok {
		s.metrics.OracleCallsTotal.Add(ctx, int64(calls))
	}
	if fallbacks, ok := result.Metrics[engine.MetricOracleFallbacks]; ok {
		s.metrics.OracleFallbacksTotal.Add(ctx, int64(fallbacks))
	}
}

func (s *Service) recordPersist(ctx context.Context, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.TracesPersistedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}
