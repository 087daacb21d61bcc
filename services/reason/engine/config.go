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

import "fmt"

// RunConfig bounds one search run.
type RunConfig struct {
	// MaxDepth is the deepest level the tree may reach. Default: 4.
	MaxDepth int `json:"max_depth"`

	// BranchingFactor is the maximum children per node. Default: 3.
	BranchingFactor int `json:"branching_factor"`

	// TimeBudgetSeconds is the advisory wall-clock budget. It is reported in
	// run metrics and consumed by the feedback utility calculation; it does
	// not pre-empt in-flight expansion. Default: 5.0.
	TimeBudgetSeconds float64 `json:"time_budget_seconds"`

	// UseOracle controls whether the text-generation oracle is consulted.
	// When false every expansion uses the deterministic fallback templates.
	// Default: true.
	UseOracle bool `json:"use_oracle"`

	// PersistTrace controls whether the trace payload is written to storage.
	// The payload is always constructed and returned either way. Default: true.
	PersistTrace bool `json:"persist_trace"`

	// RandomSeed, when non-nil, makes fallback phrasing reproducible.
	RandomSeed *int64 `json:"random_seed,omitempty"`

	// LearningRate is the belief revision step size. Default: 0.1.
	LearningRate float64 `json:"learning_rate"`

	// Precision is the root belief precision weight. Default: 1.0.
	Precision float64 `json:"precision"`
}

// DefaultRunConfig returns sensible defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxDepth:          4,
		BranchingFactor:   3,
		TimeBudgetSeconds: 5.0,
		UseOracle:         true,
		PersistTrace:      true,
		LearningRate:      0.1,
		Precision:         1.0,
	}
}

// Validate rejects configurations that must fail eagerly, before any
// expansion starts.
func (c RunConfig) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("%w: max_depth %d, must be >= 1", ErrInvalidConfig, c.MaxDepth)
	}
	if c.BranchingFactor < 1 {
		return fmt.Errorf("%w: branching_factor %d, must be >= 1", ErrInvalidConfig, c.BranchingFactor)
	}
	if c.TimeBudgetSeconds <= 0 {
		return fmt.Errorf("%w: time_budget_seconds %v, must be > 0", ErrInvalidConfig, c.TimeBudgetSeconds)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning_rate %v, must be > 0", ErrInvalidConfig, c.LearningRate)
	}
	return nil
}
