// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oracle adapts a chat LLM backend into the candidate generator the
// search engine expands with.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ponderlabs/ponder/services/llm"
)

// Default generation parameters. Candidate lists are short; a low token cap
// keeps latency inside the search time budget.
var (
	defaultTemperature float32 = 0.7
	defaultMaxTokens           = 256
)

// Oracle turns llm.LLMClient completions into candidate lists.
//
// Thread Safety: Safe for concurrent use so long as the wrapped client is;
// the engine issues sibling requests concurrently.
type Oracle struct {
	client llm.LLMClient
	params llm.GenerationParams
	logger *slog.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Oracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithParams overrides the default generation parameters.
func WithParams(params llm.GenerationParams) Option {
	return func(o *Oracle) {
		o.params = params
	}
}

// New creates an Oracle over the given backend client.
func New(client llm.LLMClient, opts ...Option) *Oracle {
	o := &Oracle{
		client: client,
		params: llm.GenerationParams{
			Temperature: &defaultTemperature,
			MaxTokens:   &defaultMaxTokens,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Candidates implements engine.CandidateGenerator.
//
// Description:
//
//	Sends the expansion prompt to the backend and parses the reply into at
//	most max candidate strings. Malformed replies that still contain usable
//	lines degrade to line parsing rather than failing the expansion.
//
// Outputs:
//
//	[]string - Parsed candidates, at most max. Never empty on nil error.
//	error - Non-nil if the backend call fails or nothing parseable returned.
func (o *Oracle) Candidates(ctx context.Context, prompt string, max int) ([]string, error) {
	if max <= 0 {
		return nil, fmt.Errorf("candidate count must be positive, got %d", max)
	}

	text, err := o.client.Generate(ctx, prompt, o.params)
	if err != nil {
		return nil, fmt.Errorf("oracle generate: %w", err)
	}

	candidates := ParseCandidates(text, max)
	if len(candidates) == 0 {
		o.logger.Warn("oracle reply contained no parseable candidates",
			"reply_length", len(text))
		return nil, fmt.Errorf("oracle reply contained no parseable candidates")
	}
	return candidates, nil
}

// Candidate list regexes with flexible matching.
var (
	// fencePattern strips a markdown code fence, with or without a language
	// tag, keeping the fenced body.
	fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

	// bulletPattern strips leading list markers: "-", "*", "1.", "2)".
	bulletPattern = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s*`)
)

// ParseCandidates extracts up to max candidate strings from LLM reply text.
//
// Description:
//
//	Tries a JSON string array first (the format the prompt asks for),
//	unwrapping a markdown fence if present. When no valid array is found it
//	falls back to treating each non-empty line as one candidate, stripping
//	bullet and numbering markers. Blank and whitespace-only entries are
//	dropped either way.
//
// Thread Safety: This function is safe for concurrent use.
func ParseCandidates(text string, max int) []string {
	body := text
	if matches := fencePattern.FindStringSubmatch(text); len(matches) > 1 {
		body = matches[1]
	}

	if parsed := parseJSONArray(body); len(parsed) > 0 {
		return capCandidates(parsed, max)
	}

	// Line fallback for replies that ignored the JSON instruction.
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(bulletPattern.ReplaceAllString(line, ""))
		line = strings.Trim(line, `"`)
		if line == "" || line == "[" || line == "]" {
			continue
		}
		out = append(out, line)
	}
	return capCandidates(out, max)
}

// parseJSONArray extracts the first JSON string array in body, if any.
func parseJSONArray(body string) []string {
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return nil
	}

	var arr []string
	if err := json.Unmarshal([]byte(body[start:end+1]), &arr); err != nil {
		return nil
	}

	var out []string
	for _, s := range arr {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func capCandidates(in []string, max int) []string {
	if max > 0 && len(in) > max {
		return in[:max]
	}
	return in
}
