// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for caller-provided identifiers that are
// used in key-value store keys and structured log fields. Using these
// validators prevents key collisions, prefix-scan pollution, and log
// injection from attacker-controlled ids.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// traceIDPattern matches the canonical lowercase UUID form that trace ids
// are minted in. Trace ids become store keys verbatim, so anything outside
// this shape is rejected before it reaches the store.
var traceIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// sessionIDPattern matches caller-supplied session ids.
// Allows: letters, digits, dots, hyphens, underscores
// Max length: 64 characters
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// ValidateTraceID validates a trace id before it is used as a store key.
//
// Valid trace ids are canonical lowercase UUIDs, e.g.
// "3b241101-e2bb-4255-8caf-4136c566a962".
//
// Returns an error if the id is invalid.
//
// Example:
//
//	if err := validation.ValidateTraceID(id); err != nil {
//	    return nil, fmt.Errorf("invalid trace id: %w", err)
//	}
//	// Safe to use in a store key
func ValidateTraceID(id string) error {
	if id == "" {
		return fmt.Errorf("trace id cannot be empty")
	}

	if !traceIDPattern.MatchString(id) {
		return fmt.Errorf("invalid trace id format: %q (must be a lowercase UUID)", id)
	}

	return nil
}

// ValidateSessionID validates a caller-supplied session id.
//
// Valid session ids:
//   - 1-64 characters
//   - Letters A-Z a-z, digits 0-9
//   - Dots, hyphens, and underscores after the first character
//
// Returns an error if the id is invalid.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id format: %q (must be 1-64 alphanumeric chars, dots, hyphens, or underscores)", id)
	}

	return nil
}

// SanitizeSessionID normalizes and validates a session id.
// Returns the trimmed id if valid, or an error if invalid.
//
// Use this when accepting session ids from request bodies:
//
//	safeID, err := validation.SanitizeSessionID(req.SessionID)
//	if err != nil {
//	    return err
//	}
//	// safeID is trimmed and validated
func SanitizeSessionID(id string) (string, error) {
	normalized := strings.TrimSpace(id)
	if err := ValidateSessionID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
