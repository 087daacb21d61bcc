// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package admission implements the closed-loop gate in front of the
// reasoning tree search.
//
// Decide scores a task for complexity and uncertainty against adaptively
// tuned thresholds; UpdateFromResult folds realized run utility back into
// those thresholds so the gate calibrates itself to observed value. The
// adaptive state is persisted after every update and lazily loaded with a
// bounded warm-up, degrading to compiled-in defaults when storage is slow
// or unavailable. Admission never blocks on a persistence outage.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
)

// TaskContext carries the recognized free-form context keys for one
// admission check.
type TaskContext struct {
	// DisableSearch short-circuits the decision to a rejection.
	DisableSearch bool

	// ForceSearch admits the task regardless of scores.
	ForceSearch bool

	// ComplexityHint is an optional caller-supplied complexity signal.
	ComplexityHint *float64

	// UncertaintyHint, when present, is used directly as the uncertainty
	// score (clamped to [0,1]).
	UncertaintyHint *float64

	// GoalAlignment is an optional hint in [0,1]; low alignment raises
	// uncertainty.
	GoalAlignment *float64

	// Unknowns are caller-declared open questions; only the count is used.
	Unknowns []string

	// Constraints are caller-declared constraints; only the count is used.
	Constraints []string
}

// Decision is the immutable result of one admission check.
type Decision struct {
	UseSearch        bool           `json:"use_search"`
	ComplexityScore  float64        `json:"complexity_score"`
	UncertaintyScore float64        `json:"uncertainty_score"`
	Thresholds       ThresholdState `json:"thresholds"`
	Rationale        string         `json:"rationale"`
}

// RunOutcome is the realized quality of an admitted run, reported back by
// the caller for threshold calibration.
type RunOutcome struct {
	// Confidence is the confidence of the selected action, in [0,1].
	Confidence float64

	// Elapsed is the wall time the run took.
	Elapsed time.Duration

	// TimeBudget is the advisory budget the run was configured with.
	TimeBudget time.Duration
}

// Score weights (complexity) and blend weights (uncertainty).
const (
	weightTaskLength      = 0.5
	weightConstraintVocab = 0.25
	weightPlanningVocab   = 0.15
	weightComplexityHint  = 0.10

	weightGoalMisalign = 0.5
	weightUnknowns     = 0.25
	weightQuestions    = 0.25

	unknownsNorm  = 5.0
	questionsNorm = 3.0
)

// constraintVocab and planningVocab are the fixed signal vocabularies.
// Matching is case-insensitive substring presence.
var (
	constraintVocab = []string{
		"constraint", "trade-off", "tradeoff", "balance", "optimize",
		"maximize", "minimize", "limit", "budget", "versus",
	}
	planningVocab = []string{
		"plan", "strategy", "design", "architect", "roadmap",
		"approach", "steps", "phases",
	}
)

// Policy is the admission decision policy.
//
// Thread Safety: Safe for concurrent use. The cached adaptive state is
// guarded by a mutex; persisted reads/writes are idempotent upserts, and
// concurrent feedback updates are last-writer-wins by design.
type Policy struct {
	store         StateStore
	logger        *slog.Logger
	warmupTimeout time.Duration
	alwaysOn      bool

	mu     sync.Mutex
	state  ThresholdState
	loaded bool
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithPolicyLogger sets the logger.
func WithPolicyLogger(logger *slog.Logger) PolicyOption {
	return func(p *Policy) {
		p.logger = logger
	}
}

// WithWarmupTimeout bounds the wait for the persisted state on first use.
func WithWarmupTimeout(d time.Duration) PolicyOption {
	return func(p *Policy) {
		p.warmupTimeout = d
	}
}

// WithAlwaysOn admits every task regardless of scores. Intended for
// evaluation environments.
func WithAlwaysOn(alwaysOn bool) PolicyOption {
	return func(p *Policy) {
		p.alwaysOn = alwaysOn
	}
}

// NewPolicy creates an admission policy.
//
// Inputs:
//   - store: Persistence for the adaptive state. May be nil; the policy then
//     runs on in-memory defaults only.
//   - opts: Optional configuration functions.
//
// Outputs:
//   - *Policy: Ready to use, never nil.
func NewPolicy(store StateStore, opts ...PolicyOption) *Policy {
	p := &Policy{
		store:         store,
		logger:        slog.Default(),
		warmupTimeout: 500 * time.Millisecond,
		state:         DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decide runs one admission check.
//
// Description:
//
//	An explicit disable flag short-circuits to a rejection with zero scores,
//	before any state load. Otherwise the adaptive state is ensured loaded
//	(bounded by the warm-up timeout, falling back to defaults), both scores
//	are computed, and the task is admitted when forced, when always-on is
//	configured, or when either score meets its current threshold.
//
//	The returned Decision snapshots the thresholds actually used, so callers
//	can audit exactly what gated the decision.
//
// Outputs:
//   - Decision: Immutable, safe to serialize. Never an error: persistence
//     trouble degrades to defaults and is logged, not surfaced.
func (p *Policy) Decide(ctx context.Context, task string, taskCtx TaskContext) Decision {
	if taskCtx.DisableSearch {
		return Decision{
			UseSearch: false,
			Rationale: "search disabled by caller",
		}
	}

	state := p.ensureLoaded(ctx)

	complexity := p.complexityScore(task, taskCtx, state)
	uncertainty := p.uncertaintyScore(task, taskCtx)

	use := taskCtx.ForceSearch || p.alwaysOn ||
		complexity >= state.ComplexityThreshold ||
		uncertainty >= state.UncertaintyThreshold

	return Decision{
		UseSearch:        use,
		ComplexityScore:  complexity,
		UncertaintyScore: uncertainty,
		Thresholds:       state,
		Rationale: fmt.Sprintf(
			"complexity %.3f (threshold %.2f), uncertainty %.3f (threshold %.2f), forced=%v, always_on=%v",
			complexity, state.ComplexityThreshold,
			uncertainty, state.UncertaintyThreshold,
			taskCtx.ForceSearch, p.alwaysOn),
	}
}

// UpdateFromResult folds a completed run's realized utility back into the
// adaptive thresholds and persists the new state.
//
// Description:
//
//	No-op when decision is nil or the search was not admitted. Utility is
//	confidence minus the fraction of time budget consumed, clamped to [0,1],
//	smoothed into the EMA with factor 0.1. An EMA above 0.6 nudges both
//	thresholds down by 0.02 (search is paying off, run it more often); below
//	0.4 nudges them up. Thresholds are re-clamped to [0.3, 0.9].
//
//	Persistence failures are logged and swallowed: the search result has
//	already been delivered, so nothing here may propagate to the caller.
func (p *Policy) UpdateFromResult(ctx context.Context, decision *Decision, outcome RunOutcome) {
	if decision == nil || !decision.UseSearch {
		return
	}

	timeRatio := 1.0
	if outcome.TimeBudget > 0 {
		timeRatio = math.Min(outcome.Elapsed.Seconds()/outcome.TimeBudget.Seconds(), 1.0)
	}
	utility := clamp01(outcome.Confidence - timeRatio)

	p.mu.Lock()
	p.state.EMAUtility = (1-emaSmoothing)*p.state.EMAUtility + emaSmoothing*utility
	switch {
	case p.state.EMAUtility > utilityUpperBand:
		p.state.ComplexityThreshold -= thresholdStep
		p.state.UncertaintyThreshold -= thresholdStep
	case p.state.EMAUtility < utilityLowerBand:
		p.state.ComplexityThreshold += thresholdStep
		p.state.UncertaintyThreshold += thresholdStep
	}
	p.state.clamp()
	p.state.SampleCount++
	p.state.UpdatedAt = time.Now().UTC()
	snapshot := p.state
	p.mu.Unlock()

	if p.store == nil {
		return
	}
	if err := p.store.SaveThresholds(ctx, snapshot); err != nil {
		p.logger.Warn("failed to persist admission thresholds",
			slog.Int64("sample_count", snapshot.SampleCount),
			slog.String("error", err.Error()))
	}
}

// Thresholds returns a snapshot of the current adaptive state.
func (p *Policy) Thresholds() ThresholdState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ensureLoaded lazily loads the persisted state, waiting at most the warm-up
// timeout. Timeout or error degrades to whatever state is already cached
// (defaults before the first successful load).
func (p *Policy) ensureLoaded(ctx context.Context) ThresholdState {
	p.mu.Lock()
	if p.loaded || p.store == nil {
		defer p.mu.Unlock()
		return p.state
	}
	p.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(ctx, p.warmupTimeout)
	defer cancel()

	state, found, err := p.store.LoadThresholds(loadCtx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.logger.Warn("threshold warm-up failed, using defaults",
			slog.String("error", err.Error()))
		return p.state
	}
	if found {
		p.state = state
	}
	p.loaded = true
	return p.state
}

// complexityScore is the weighted blend of task-length ratio, signal
// vocabulary presence, and the caller hint, clamped to [0,1].
func (p *Policy) complexityScore(task string, taskCtx TaskContext, state ThresholdState) float64 {
	words := len(strings.Fields(task))
	lengthRatio := math.Min(float64(words)/float64(state.MinTokenThreshold), 1.0)

	lower := strings.ToLower(task)
	score := weightTaskLength * lengthRatio
	if containsAny(lower, constraintVocab) {
		score += weightConstraintVocab
	}
	if containsAny(lower, planningVocab) {
		score += weightPlanningVocab
	}
	if taskCtx.ComplexityHint != nil {
		score += weightComplexityHint * clamp01(*taskCtx.ComplexityHint)
	}
	return clamp01(score)
}

// uncertaintyScore uses the explicit hint when present; otherwise blends
// goal misalignment with normalized unknown and question-mark counts.
func (p *Policy) uncertaintyScore(task string, taskCtx TaskContext) float64 {
	if taskCtx.UncertaintyHint != nil {
		return clamp01(*taskCtx.UncertaintyHint)
	}

	goalAlignment := 0.5
	if taskCtx.GoalAlignment != nil {
		goalAlignment = clamp01(*taskCtx.GoalAlignment)
	}

	unknowns := math.Min(float64(len(taskCtx.Unknowns))/unknownsNorm, 1.0)
	questions := math.Min(float64(strings.Count(task, "?"))/questionsNorm, 1.0)

	return clamp01(weightGoalMisalign*(1.0-goalAlignment) +
		weightUnknowns*unknowns +
		weightQuestions*questions)
}

func containsAny(s string, vocab []string) bool {
	for _, w := range vocab {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
