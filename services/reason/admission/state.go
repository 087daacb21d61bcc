// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package admission

import (
	"context"
	"time"
)

// StateID is the fixed key of the single adaptive-threshold record per
// deployment.
const StateID = "admission-thresholds"

// Threshold bounds and tuning constants. The bands and step sizes are
// deliberately small: thresholds are advisory tuning parameters, and the
// feedback loop should drift them, not slam them.
const (
	thresholdFloor   = 0.3
	thresholdCeiling = 0.9
	emaSmoothing     = 0.1
	utilityUpperBand = 0.6
	utilityLowerBand = 0.4
	thresholdStep    = 0.02
)

// ThresholdState is the persisted adaptive state of the admission gate.
//
// There is one logical instance per deployment, stored under StateID.
// Concurrent runs racing on the feedback update may overwrite each other
// (last-writer-wins); that weak consistency is accepted because thresholds
// tune cost, not correctness.
type ThresholdState struct {
	// ComplexityThreshold gates the complexity score. Clamped to [0.3, 0.9].
	ComplexityThreshold float64 `json:"complexity_threshold"`

	// UncertaintyThreshold gates the uncertainty score. Clamped to [0.3, 0.9].
	UncertaintyThreshold float64 `json:"uncertainty_threshold"`

	// MinTokenThreshold normalizes task-length scoring.
	MinTokenThreshold int `json:"min_token_threshold"`

	// EMAUtility is the exponential moving average of realized run utility.
	EMAUtility float64 `json:"ema_utility"`

	// SampleCount counts feedback updates applied.
	SampleCount int64 `json:"sample_count"`

	// UpdatedAt is the time of the last persisted mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultThresholds returns the compiled-in state used before any feedback
// has been observed, and whenever the persisted record cannot be loaded in
// time.
func DefaultThresholds() ThresholdState {
	return ThresholdState{
		ComplexityThreshold:  0.6,
		UncertaintyThreshold: 0.5,
		MinTokenThreshold:    50,
		EMAUtility:           0.5,
	}
}

// clamp re-applies the hard threshold bounds after a nudge.
func (s *ThresholdState) clamp() {
	s.ComplexityThreshold = clampRange(s.ComplexityThreshold, thresholdFloor, thresholdCeiling)
	s.UncertaintyThreshold = clampRange(s.UncertaintyThreshold, thresholdFloor, thresholdCeiling)
}

// StateStore persists the adaptive-threshold record.
//
// Reads and writes are idempotent upserts keyed by StateID. Implementations
// live in services/reason/store.
//
// Thread Safety: Implementations must be safe for concurrent use.
type StateStore interface {
	// LoadThresholds fetches the record. A (zero, false, nil) return means
	// no record has been persisted yet.
	LoadThresholds(ctx context.Context) (ThresholdState, bool, error)

	// SaveThresholds upserts the record.
	SaveThresholds(ctx context.Context, state ThresholdState) error
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clampRange(v, 0, 1)
}
