// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the bounded reasoning tree search.
//
// One run walks a fixed state machine: root initialization, depth-by-depth
// expansion under the round-robin domain cycle, then best-path selection by
// maximal frozen score. Every node is scored once with the belief primitive
// (score = 1 / (1 + free energy)) and never rescored.
//
// Oracle calls for the parents of one depth level run concurrently; depth
// transitions are strictly sequential, since a depth's frontier must be fully
// scored before the next level expands. Oracle failures degrade per-parent to
// deterministic templated candidates and are never surfaced.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ponderlabs/ponder/services/reason/belief"
)

// Metric keys reported in Result.Metrics.
const (
	MetricTotalPredictionError = "total_prediction_error"
	MetricTotalFreeEnergy      = "total_free_energy"
	MetricNodeCount            = "node_count"
	MetricElapsedSeconds       = "elapsed_seconds"
	MetricTimeBudgetSeconds    = "time_budget_seconds"
	MetricOracleCalls          = "oracle_calls"
	MetricOracleFallbacks      = "oracle_fallbacks"
)

// Request describes one search run.
type Request struct {
	// Task is the problem statement. Must not be empty.
	Task string

	// SessionID correlates the run with a caller session. Assigned by the
	// service layer; the engine treats it as opaque.
	SessionID string

	// Constraints are caller-declared constraints; their count feeds the
	// observation vector.
	Constraints []string

	// ContextSize is the number of entries in the caller's free-form context.
	ContextSize int

	// Config bounds the run. Validated eagerly before any expansion.
	Config RunConfig
}

// Result is the outcome of one completed run.
type Result struct {
	SessionID      string               `json:"session_id"`
	BestPath       []string             `json:"best_path"`
	SelectedAction string               `json:"selected_action"`
	Confidence     float64              `json:"confidence"`
	Metrics        map[string]float64   `json:"metrics"`
	Nodes          []*SearchNode        `json:"nodes"`
	Elapsed        time.Duration        `json:"-"`
	Tree           *Tree                `json:"-"`
}

// Engine runs bounded reasoning tree searches.
//
// Thread Safety: Safe for concurrent use. Each run builds its own arena;
// the engine itself holds only immutable collaborators.
type Engine struct {
	generator CandidateGenerator
	tracer    *Tracer
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer sets the tracer for observability.
func WithTracer(tracer *Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// New creates a search engine.
//
// Inputs:
//   - generator: Candidate oracle. May be nil; runs then always use the
//     deterministic fallback templates.
//   - opts: Optional configuration functions.
//
// Outputs:
//   - *Engine: Ready to use, never nil.
func New(generator CandidateGenerator, opts ...Option) *Engine {
	e := &Engine{
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one search.
//
// Description:
//
//	Builds the root from the task, expands depth levels 1..MaxDepth under
//	the round-robin domain cycle, then selects the best path by maximal
//	frozen score with stable first-max tie-breaking.
//
//	The time budget is advisory: elapsed time is reported in metrics but
//	in-flight expansion is never pre-empted. Callers wanting a hard cutoff
//	wrap ctx with a deadline.
//
// Outputs:
//   - *Result: The completed run. Nil only when err is non-nil.
//   - error: ErrEmptyTask or ErrInvalidConfig on caller errors; oracle
//     failures never produce an error.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Task == "" {
		return nil, ErrEmptyTask
	}
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.StartRun(ctx, req)
	start := time.Now()

	var rng *rand.Rand
	if req.Config.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*req.Config.RandomSeed))
	}

	tree := NewTree()
	root := e.initRoot(tree, req)

	oracleCalls, fallbacks := 0, 0
	frontier := []*SearchNode{root}

	for depth := 1; depth <= req.Config.MaxDepth; depth++ {
		domain := DomainForDepth(depth)
		candidates := e.collectCandidates(ctx, req, frontier, domain)

		var next []*SearchNode
		for i, parent := range frontier {
			cands := candidates[i]
			if len(cands) == 0 {
				cands = fallbackCandidates(parent, domain, rng)
				fallbacks++
			} else {
				oracleCalls++
			}
			if len(cands) > req.Config.BranchingFactor {
				cands = cands[:req.Config.BranchingFactor]
			}

			for j, content := range cands {
				child := e.makeChild(req, parent, domain, depth, j, content)
				if err := tree.Add(child); err != nil {
					// Impossible by construction; a failure here is a bug.
					e.logger.Error("dropping malformed child node",
						slog.String("node", child.ID),
						slog.String("error", err.Error()))
					continue
				}
				next = append(next, child)
			}
		}

		e.tracer.TraceDepth(ctx, depth, domain, len(next))

		if len(next) == 0 {
			// Degenerate level: freeze the frontier and keep iterating so the
			// run still terminates within MaxDepth depth visits.
			e.logger.Warn("expansion produced no children, frontier frozen",
				slog.Int("depth", depth),
				slog.String("domain", domain.String()))
			continue
		}
		frontier = next
	}

	result := e.finish(tree, req, start, oracleCalls, fallbacks)
	e.tracer.EndRun(span, result)

	e.logger.Info("search complete",
		slog.String("session_id", req.SessionID),
		slog.Int("nodes", tree.Len()),
		slog.Int("path_len", len(result.BestPath)),
		slog.Float64("confidence", result.Confidence),
		slog.Duration("elapsed", result.Elapsed))

	return result, nil
}

// initRoot builds the depth-0 node, seeds its gradients from the initial
// observation, and scores it.
func (e *Engine) initRoot(tree *Tree, req Request) *SearchNode {
	root := &SearchNode{
		ID:      "root",
		Depth:   0,
		Domain:  DomainExplore,
		Type:    NodeTypeRoot,
		Content: req.Task,
		Beliefs: belief.NewState(req.Config.Precision),
	}

	obs := buildObservation(req.Task, req.ContextSize, len(req.Constraints))
	for dim, v := range obs {
		root.Beliefs.Beliefs[dim] = v
		root.Beliefs.PredictionUpdates[dim] = v
	}
	perr := root.Beliefs.ApplyObservation(obs)
	root.Beliefs.ReviseBeliefs(perr, req.Config.LearningRate)
	root.Score = belief.Score(root.Beliefs.FreeEnergy)

	// Adding the first node cannot fail.
	_ = tree.Add(root)
	return root
}

// makeChild clones the parent's belief state, applies the candidate's own
// observation, and freezes the score.
func (e *Engine) makeChild(req Request, parent *SearchNode, domain Domain, depth, idx int, content string) *SearchNode {
	child := &SearchNode{
		ID:       fmt.Sprintf("%s.%d", parent.ID, idx+1),
		ParentID: parent.ID,
		Depth:    depth,
		Domain:   domain,
		Type:     NodeTypeForDomain(domain),
		Content:  content,
		Beliefs:  parent.Beliefs.Clone(),
	}

	obs := buildObservation(content, req.ContextSize, len(req.Constraints))
	perr := child.Beliefs.ApplyObservation(obs)
	child.Beliefs.ReviseBeliefs(perr, req.Config.LearningRate)
	child.Score = belief.Score(child.Beliefs.FreeEnergy)
	return child
}

// collectCandidates queries the oracle for every parent of one depth level
// concurrently. A nil or empty slot means fallback; oracle errors are logged
// and recovered, never returned.
func (e *Engine) collectCandidates(ctx context.Context, req Request, frontier []*SearchNode, domain Domain) [][]string {
	out := make([][]string, len(frontier))
	if !req.Config.UseOracle || e.generator == nil {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, parent := range frontier {
		g.Go(func() error {
			prompt := buildPrompt(req.Task, parent, domain, req.Config.BranchingFactor)
			cands, err := e.generator.Candidates(gctx, prompt, req.Config.BranchingFactor)
			if err != nil {
				e.logger.Debug("oracle expansion failed, will fall back",
					slog.String("node", parent.ID),
					slog.String("domain", domain.String()),
					slog.String("error", err.Error()))
				return nil
			}
			out[i] = cands
			return nil
		})
	}
	// Goroutines always return nil; Wait only synchronizes.
	_ = g.Wait()
	return out
}

// finish selects the best path and assembles the result with run metrics.
func (e *Engine) finish(tree *Tree, req Request, start time.Time, oracleCalls, fallbacks int) *Result {
	path := tree.BestPath()
	elapsed := time.Since(start)

	var selected string
	var confidence float64
	if len(path) > 0 {
		leaf, _ := tree.Node(path[len(path)-1])
		selected = leaf.Content
		confidence = leaf.Score
		if confidence > 1 {
			confidence = 1
		}
	}

	totalErr, totalFE := 0.0, 0.0
	for _, n := range tree.All() {
		totalErr += n.Beliefs.PredictionError
		totalFE += n.Beliefs.FreeEnergy
	}

	return &Result{
		SessionID:      req.SessionID,
		BestPath:       path,
		SelectedAction: selected,
		Confidence:     confidence,
		Nodes:          tree.All(),
		Elapsed:        elapsed,
		Tree:           tree,
		Metrics: map[string]float64{
			MetricTotalPredictionError: totalErr,
			MetricTotalFreeEnergy:      totalFE,
			MetricNodeCount:            float64(tree.Len()),
			MetricElapsedSeconds:       elapsed.Seconds(),
			MetricTimeBudgetSeconds:    req.Config.TimeBudgetSeconds,
			MetricOracleCalls:          float64(oracleCalls),
			MetricOracleFallbacks:      float64(fallbacks),
		},
	}
}
