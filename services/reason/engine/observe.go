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

// Observation dimension names. These are the only dimensions the engine
// writes into belief states; the belief primitive itself is dimension-agnostic.
const (
	dimProblemLength   = "problem_length"
	dimContextSize     = "context_size"
	dimConstraintCount = "constraint_count"
)

// Normalization denominators for the observation ratios.
const (
	problemLengthNorm   = 500.0
	contextSizeNorm     = 10.0
	constraintCountNorm = 5.0
)

// buildObservation maps a node's textual content plus run context onto the
// numeric observation vector, each ratio clamped to [0,1].
func buildObservation(content string, contextSize, constraintCount int) map[string]float64 {
	return map[string]float64{
		dimProblemLength:   clampRatio(float64(len(content)), problemLengthNorm),
		dimContextSize:     clampRatio(float64(contextSize), contextSizeNorm),
		dimConstraintCount: clampRatio(float64(constraintCount), constraintCountNorm),
	}
}

func clampRatio(v, norm float64) float64 {
	r := v / norm
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}
