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
	"fmt"
	"math/rand"
	"strings"
)

// CandidateGenerator produces candidate reasoning branches for a parent node.
//
// The production implementation wraps an LLM; any failure or malformed output
// is recovered by the engine via deterministic fallback candidates and never
// surfaces to the caller.
//
/// Thread Safety: Implementations must be safe for concurrent use. The engine
// issues sibling requests within one depth level concurrently.
type CandidateGenerator interface {
	// Candidates returns up to max short candidate texts for the prompt.
	Candidates(ctx context.Context, prompt string, max int) ([]string, error)
}

// domainInstructions phrase the expansion lens for oracle prompts.
var domainInstructions = map[Domain]string{
	DomainExplore:   "Explore distinct directions or framings for the idea.",
	DomainChallenge: "Challenge the idea: find weaknesses, risks, and counterarguments.",
	DomainEvolve:    "Evolve the idea: refine and strengthen it into better variants.",
	DomainIntegrate: "Integrate the idea with the constraints into a coherent whole.",
}

// buildPrompt renders the oracle prompt for expanding one parent node.
func buildPrompt(task string, parent *SearchNode, domain Domain, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task)
	fmt.Fprintf(&b, "Current thought: %s\n", parent.Content)
	fmt.Fprintf(&b, "Lens: %s %s\n", domain, domainInstructions[domain])
	fmt.Fprintf(&b, "Return a JSON array of at most %d short strings, one per candidate thought. No prose.", max)
	return b.String()
}

// fallbackPhrasings holds, per domain, alternative three-template banks for
// deterministic candidate generation. A seeded run picks a bank once per
// expansion through its own rand.Rand; unseeded runs always use bank zero,
// so results stay reproducible whenever the oracle is disabled.
var fallbackPhrasings = map[Domain][][]string{
	DomainExplore: {
		{
			"Consider an alternative framing of: %s",
			"Identify the unstated assumptions behind: %s",
			"Map adjacent solution space around: %s",
		},
		{
			"Reframe the problem underlying: %s",
			"List what must be true for: %s",
			"Survey neighboring approaches to: %s",
		},
	},
	DomainChallenge: {
		{
			"Find the weakest link in: %s",
			"Argue against the viability of: %s",
			"Stress-test the edge cases of: %s",
		},
		{
			"Name the failure modes of: %s",
			"Construct a counterexample to: %s",
			"Probe the hidden costs of: %s",
		},
	},
	DomainEvolve: {
		{
			"Refine and sharpen: %s",
			"Combine the strongest parts of: %s",
			"Simplify without losing the core of: %s",
		},
		{
			"Iterate one step further on: %s",
			"Generalize the mechanism behind: %s",
			"Strip the accidental complexity from: %s",
		},
	},
	DomainIntegrate: {
		{
			"Reconcile the constraints with: %s",
			"Synthesize a complete plan from: %s",
			"Balance the competing goals within: %s",
		},
		{
			"Fold the trade-offs back into: %s",
			"Assemble an end-to-end answer from: %s",
			"Align every requirement with: %s",
		},
	},
}

// fallbackCandidates derives three deterministic templated candidates from
// the parent's content and the current domain. Guarantees the tree is never
// empty when the oracle fails or is disabled.
//
// The rng may be nil; it is consumed at most once per call, in parent order,
// so a fixed seed reproduces identical candidates.
func fallbackCandidates(parent *SearchNode, domain Domain, rng *rand.Rand) []string {
	banks := fallbackPhrasings[domain]
	bank := banks[0]
	if rng != nil && len(banks) > 1 {
		bank = banks[rng.Intn(len(banks))]
	}

	subject := truncate(parent.Content, 80)
	out := make([]string, 0, len(bank))
	for _, tmpl := range bank {
		out = append(out, fmt.Sprintf(tmpl, subject))
	}
	return out
}

// truncate shortens s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
