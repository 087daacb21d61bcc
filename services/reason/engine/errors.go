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

import "errors"

// Sentinel errors for the search engine.
var (
	// ErrUnknownNode indicates a node id that is not in the arena.
	// This is a caller bug, never a degraded-path condition.
	ErrUnknownNode = errors.New("unknown node id")

	// ErrInvalidConfig indicates run configuration rejected before expansion.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrEmptyTask indicates a run was requested with no task text.
	ErrEmptyTask = errors.New("task must not be empty")
)
