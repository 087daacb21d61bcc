// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reason

import (
	"fmt"

	"github.com/ponderlabs/ponder/services/reason/admission"
	"github.com/ponderlabs/ponder/services/reason/engine"
)

// RunRequest is the body of POST /v1/reason/run.
//
// Context recognized keys: disable_search (bool), force_search (bool),
// complexity_score (float hint), uncertainty_level (float hint),
// goal_alignment (float hint), unknowns (string list), constraints
// (string list). Unknown keys are ignored.
//
// ConfigOverrides recognized keys: max_depth (int), branching_factor (int),
// time_budget_seconds (float), use_oracle (bool), persist_trace (bool),
// random_seed (int).
type RunRequest struct {
	// Task is the problem statement.
	Task string `json:"task" binding:"required"`

	// SessionID correlates runs; generated when absent.
	SessionID string `json:"session_id"`

	// Context carries free-form admission signals.
	Context map[string]any `json:"context"`

	// ConfigOverrides adjusts the run bounds.
	ConfigOverrides map[string]any `json:"config_overrides"`
}

// RunResult is the search outcome included in a RunResponse when the task
// was admitted.
type RunResult struct {
	BestPath       []string           `json:"best_path"`
	SelectedAction string             `json:"selected_action"`
	Confidence     float64            `json:"confidence"`
	NodeCount      int                `json:"node_count"`
	Metrics        map[string]float64 `json:"metrics"`
}

// RunResponse is the body of a successful POST /v1/reason/run.
//
// Decision is always present. Result is present only when the decision was
// to search. TraceID is present only when persistence was enabled and the
// write succeeded.
type RunResponse struct {
	TraceID   string             `json:"trace_id,omitempty"`
	SessionID string             `json:"session_id"`
	Decision  admission.Decision `json:"decision"`
	Result    *RunResult         `json:"result,omitempty"`
}

// ListTracesResponse is the body of GET /v1/reason/traces.
type ListTracesResponse struct {
	TraceIDs []string `json:"trace_ids"`
	Count    int      `json:"count"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}

// HealthResponse is the body of GET /v1/reason/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the body of GET /v1/reason/ready.
type ReadyResponse struct {
	Ready   bool `json:"ready"`
	StoreOK bool `json:"store_ok"`
}

// parseTaskContext extracts the recognized admission signals from the
// free-form context map. Values of the wrong type are ignored.
func parseTaskContext(ctx map[string]any) admission.TaskContext {
	var tc admission.TaskContext
	if ctx == nil {
		return tc
	}

	if v, ok := ctx["disable_search"].(bool); ok {
		tc.DisableSearch = v
	}
	if v, ok := ctx["force_search"].(bool); ok {
		tc.ForceSearch = v
	}
	if v, ok := toFloat(ctx["complexity_score"]); ok {
		tc.ComplexityHint = &v
	}
	if v, ok := toFloat(ctx["uncertainty_level"]); ok {
		tc.UncertaintyHint = &v
	}
	if v, ok := toFloat(ctx["goal_alignment"]); ok {
		tc.GoalAlignment = &v
	}
	tc.Unknowns = toStrings(ctx["unknowns"])
	tc.Constraints = toStrings(ctx["constraints"])
	return tc
}

// parseRunConfig folds the recognized override keys into the base run
// configuration. Unknown keys are ignored; values of the wrong type are an
// error so a mistyped override fails loudly instead of silently running
// with the base values.
func parseRunConfig(base engine.RunConfig, overrides map[string]any) (engine.RunConfig, error) {
	cfg := base
	for key, raw := range overrides {
		switch key {
		case "max_depth":
			v, ok := toInt(raw)
			if !ok {
				return cfg, fmt.Errorf("%w: max_depth must be an integer", engine.ErrInvalidConfig)
			}
			cfg.MaxDepth = v
		case "branching_factor":
			v, ok := toInt(raw)
			if !ok {
				return cfg, fmt.Errorf("%w: branching_factor must be an integer", engine.ErrInvalidConfig)
			}
			cfg.BranchingFactor = v
		case "time_budget_seconds":
			v, ok := toFloat(raw)
			if !ok {
				return cfg, fmt.Errorf("%w: time_budget_seconds must be a number", engine.ErrInvalidConfig)
			}
			cfg.TimeBudgetSeconds = v
		case "use_oracle":
			v, ok := raw.(bool)
			if !ok {
				return cfg, fmt.Errorf("%w: use_oracle must be a boolean", engine.ErrInvalidConfig)
			}
			cfg.UseOracle = v
		case "persist_trace":
			v, ok := raw.(bool)
			if !ok {
				return cfg, fmt.Errorf("%w: persist_trace must be a boolean", engine.ErrInvalidConfig)
			}
			cfg.PersistTrace = v
		case "random_seed":
			v, ok := toInt(raw)
			if !ok {
				return cfg, fmt.Errorf("%w: random_seed must be an integer", engine.ErrInvalidConfig)
			}
			seed := int64(v)
			cfg.RandomSeed = &seed
		}
	}
	return cfg, nil
}

// toFloat accepts the numeric types JSON decoding and Go callers produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// toInt accepts integers and whole-valued floats (JSON numbers decode as
// float64).
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// toStrings converts a []string or JSON []any of strings; anything else
// yields nil.
func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}
