// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package belief implements the active-inference scoring primitive used by
// the reasoning tree search.
//
// Each search node owns one BeliefState. The state tracks per-dimension
// beliefs in [0,1], a precision weight, and three derived scalars: prediction
// error, free energy, and surprise. Free energy combines an exploitation term
// (prediction accuracy) with an exploration term (belief entropy): uncertain
// beliefs lower free energy, rewarding exploration, while confident prediction
// errors raise it.
//
// Everything in this package is pure math over small in-memory maps. There are
// no external failure modes; defensive clamps prevent log-of-zero and keep
// beliefs inside [0,1].
package belief

import (
	"maps"
	"math"
)

const (
	// explorationWeight scales the epistemic (entropy) term of free energy.
	explorationWeight = 0.3

	// complexityPenalty is the per-belief regularization added to free energy.
	complexityPenalty = 0.01

	// entropyEpsilon keeps beliefs away from 0/1 inside the entropy term.
	entropyEpsilon = 1e-6
)

// State holds the epistemic state of one search node.
//
// A State is owned exclusively by its node and is never shared. Children
// clone their parent's State via Clone, which copies the maps and bumps
// ReasoningLevel by one.
//
// Thread Safety: NOT safe for concurrent use. Ownership is single-node.
type State struct {
	// Beliefs maps a named dimension to a confidence in [0,1].
	Beliefs map[string]float64 `json:"beliefs"`

	// PredictionUpdates maps a dimension to a gradient magnitude. Only
	// dimensions present here move during ReviseBeliefs.
	PredictionUpdates map[string]float64 `json:"prediction_updates"`

	// Precision is a positive reliability weight inherited by children.
	Precision float64 `json:"precision"`

	// PredictionError is the last accumulated observation error.
	// Set by ApplyObservation; never set directly by callers.
	PredictionError float64 `json:"prediction_error"`

	// FreeEnergy is the combined objective the search minimizes.
	// Set by ReviseBeliefs; never set directly by callers.
	FreeEnergy float64 `json:"free_energy"`

	// Surprise is the negative log-probability of the observation.
	// Set by ReviseBeliefs; never set directly by callers.
	Surprise float64 `json:"surprise"`

	// ReasoningLevel counts generations from the root (root = 0).
	ReasoningLevel int `json:"reasoning_level"`
}

// NewState creates a fresh belief state with the given precision.
//
// Inputs:
//   - precision: Positive reliability weight. Values <= 0 default to 1.0.
//
// Outputs:
//   - *State: Empty state at reasoning level 0, never nil.
func NewState(precision float64) *State {
	if precision <= 0 {
		precision = 1.0
	}
	return &State{
		Beliefs:           make(map[string]float64),
		PredictionUpdates: make(map[string]float64),
		Precision:         precision,
	}
}

// Clone produces a child state: same beliefs, gradients, and precision,
// with ReasoningLevel incremented by exactly one. Derived scalars are
// carried over but are expected to be recomputed from the child's own
// observation.
func (s *State) Clone() *State {
	child := &State{
		Beliefs:           make(map[string]float64, len(s.Beliefs)),
		PredictionUpdates: make(map[string]float64, len(s.PredictionUpdates)),
		Precision:         s.Precision,
		PredictionError:   s.PredictionError,
		FreeEnergy:        s.FreeEnergy,
		Surprise:          s.Surprise,
		ReasoningLevel:    s.ReasoningLevel + 1,
	}
	maps.Copy(child.Beliefs, s.Beliefs)
	maps.Copy(child.PredictionUpdates, s.PredictionUpdates)
	return child
}

// ApplyObservation compares an observation against current beliefs and
// accumulates the precision-weighted absolute error.
//
// Description:
//
//	For every dimension present in the observation, the believed value
//	defaults to the observed value when absent (a first observation on a
//	dimension contributes zero error). The accumulated sum is stored as
//	PredictionError and returned. No other field is touched.
//
// Inputs:
//   - observation: Dimension -> observed value. May be empty.
//
// Outputs:
//   - float64: The accumulated prediction error (>= 0).
func (s *State) ApplyObservation(observation map[string]float64) float64 {
	total := 0.0
	for dim, observed := range observation {
		believed, ok := s.Beliefs[dim]
		if !ok {
			believed = observed
		}
		total += math.Abs(observed-believed) * s.Precision
	}
	s.PredictionError = total
	return total
}

// ReviseBeliefs moves beliefs along their gradients and recomputes the
// derived free energy and surprise.
//
// Description:
//
//	Every belief dimension with a known gradient in PredictionUpdates moves
//	by -learningRate * gradient * predictionError, clamped to [0,1]. Then:
//
//	  epistemic  = avg binary entropy of beliefs (normalized by ln 2) * 0.3
//	  freeEnergy = predictionError - epistemic + 0.01 * len(beliefs)
//	  surprise   = -ln(max(0.001, 1 - min(predictionError, 0.99)))
//
//	Higher belief uncertainty lowers free energy; confident errors raise it.
//	The clamps are load-bearing for deterministic scoring and must not change.
//
// Inputs:
//   - predictionError: Error from the most recent ApplyObservation.
//   - learningRate: Step size for belief movement.
func (s *State) ReviseBeliefs(predictionError, learningRate float64) {
	for dim, b := range s.Beliefs {
		gradient, ok := s.PredictionUpdates[dim]
		if !ok {
			continue
		}
		s.Beliefs[dim] = clamp01(b - learningRate*gradient*predictionError)
	}

	s.FreeEnergy = predictionError - s.epistemicValue() + complexityPenalty*float64(len(s.Beliefs))
	s.Surprise = -math.Log(math.Max(0.001, 1.0-math.Min(predictionError, 0.99)))
}

// epistemicValue is the exploration term: average binary entropy of current
// beliefs, normalized to [0,1] and scaled by the exploration weight.
func (s *State) epistemicValue() float64 {
	if len(s.Beliefs) == 0 {
		return 0
	}
	total := 0.0
	for _, b := range s.Beliefs {
		p := math.Min(1.0-entropyEpsilon, math.Max(entropyEpsilon, b))
		total += -(p*math.Log(p) + (1.0-p)*math.Log(1.0-p))
	}
	avg := total / float64(len(s.Beliefs))
	return avg / math.Ln2 * explorationWeight
}

// Score maps a free-energy value to (0,1]; strictly decreasing in f.
func Score(f float64) float64 {
	return 1.0 / (1.0 + f)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
