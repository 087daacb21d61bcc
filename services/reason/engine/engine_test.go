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
	"errors"
	"fmt"
	"math"
	"testing"
)

// mockGenerator is a scriptable CandidateGenerator.
type mockGenerator struct {
	candidates []string
	err        error
	calls      int
}

func (m *mockGenerator) Candidates(ctx context.Context, prompt string, max int) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

func offlineRequest(task string, maxDepth, branching int, seed int64) Request {
	cfg := DefaultRunConfig()
	cfg.MaxDepth = maxDepth
	cfg.BranchingFactor = branching
	cfg.UseOracle = false
	cfg.RandomSeed = &seed
	return Request{
		Task:      task,
		SessionID: "test-session",
		Config:    cfg,
	}
}

func TestRun_EmptyTask(t *testing.T) {
	e := New(nil)
	_, err := e.Run(context.Background(), Request{Config: DefaultRunConfig()})
	if !errors.Is(err, ErrEmptyTask) {
		t.Errorf("err = %v, want ErrEmptyTask", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	e := New(nil)

	bad := []RunConfig{
		{MaxDepth: -1, BranchingFactor: 3, TimeBudgetSeconds: 5, LearningRate: 0.1},
		{MaxDepth: 4, BranchingFactor: 0, TimeBudgetSeconds: 5, LearningRate: 0.1},
		{MaxDepth: 4, BranchingFactor: 3, TimeBudgetSeconds: -1, LearningRate: 0.1},
	}
	for i, cfg := range bad {
		_, err := e.Run(context.Background(), Request{Task: "t", Config: cfg})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: err = %v, want ErrInvalidConfig", i, err)
		}
	}
}

func TestRun_TreeBounds(t *testing.T) {
	e := New(nil)

	for _, tc := range []struct{ depth, branching int }{
		{1, 1}, {2, 2}, {3, 3}, {4, 2},
	} {
		req := offlineRequest("bound the tree", tc.depth, tc.branching, 1)
		result, err := e.Run(context.Background(), req)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		// 1 + b + b^2 + ... + b^d
		maxNodes := 1
		pow := 1
		for i := 0; i < tc.depth; i++ {
			pow *= tc.branching
			maxNodes += pow
		}
		if len(result.Nodes) > maxNodes {
			t.Errorf("d=%d b=%d: %d nodes, want <= %d",
				tc.depth, tc.branching, len(result.Nodes), maxNodes)
		}
		for _, n := range result.Nodes {
			if n.Depth > tc.depth {
				t.Errorf("node %s at depth %d exceeds max %d", n.ID, n.Depth, tc.depth)
			}
		}
	}
}

func TestRun_PathValidity(t *testing.T) {
	e := New(nil)
	result, err := e.Run(context.Background(), offlineRequest("check the path", 3, 2, 7))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	path := result.BestPath
	if len(path) == 0 {
		t.Fatal("best path is empty")
	}
	if path[0] != "root" {
		t.Errorf("path[0] = %s, want root", path[0])
	}

	for i := 1; i < len(path); i++ {
		parent, err := result.Tree.Node(path[i-1])
		if err != nil {
			t.Fatalf("lookup %s: %v", path[i-1], err)
		}
		child, err := result.Tree.Node(path[i])
		if err != nil {
			t.Fatalf("lookup %s: %v", path[i], err)
		}

		found := false
		for _, id := range parent.ChildrenIDs {
			if id == path[i] {
				found = true
			}
		}
		if !found {
			t.Errorf("%s is not a child of %s", path[i], path[i-1])
		}
		if child.Depth != parent.Depth+1 {
			t.Errorf("depth %d -> %d along path, want +1", parent.Depth, child.Depth)
		}
	}
}

func TestRun_Determinism(t *testing.T) {
	e := New(nil)
	req := offlineRequest("deterministic replay of a planning question?", 3, 2, 42)

	var paths [][]string
	var leafScores []float64
	var leafContents []string
	for i := 0; i < 3; i++ {
		result, err := e.Run(context.Background(), req)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		paths = append(paths, result.BestPath)
		leaf, _ := result.Tree.Node(result.BestPath[len(result.BestPath)-1])
		leafScores = append(leafScores, leaf.Score)
		leafContents = append(leafContents, leaf.Content)
	}

	for i := 1; i < 3; i++ {
		if fmt.Sprint(paths[i]) != fmt.Sprint(paths[0]) {
			t.Errorf("run %d path %v differs from %v", i, paths[i], paths[0])
		}
		if leafScores[i] != leafScores[0] {
			t.Errorf("run %d leaf score %v differs from %v (exact equality required)",
				i, leafScores[i], leafScores[0])
		}
		if leafContents[i] != leafContents[0] {
			t.Errorf("run %d leaf content differs", i)
		}
	}
}

func TestRun_ConcreteScenario(t *testing.T) {
	e := New(nil)
	cfg := DefaultRunConfig()
	cfg.MaxDepth = 2
	cfg.BranchingFactor = 2
	cfg.UseOracle = false
	seed := int64(42)
	cfg.RandomSeed = &seed

	result, err := e.Run(context.Background(), Request{
		Task:        "How to maximize system stability?",
		SessionID:   "scenario",
		Constraints: []string{"low latency", "high throughput"},
		Config:      cfg,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 1 root + 2 at depth 1 + 4 at depth 2.
	if len(result.Nodes) != 7 {
		t.Errorf("node count = %d, want 7", len(result.Nodes))
	}
	if len(result.BestPath) != 3 {
		t.Errorf("best path length = %d, want 3", len(result.BestPath))
	}

	leaf, err := result.Tree.Node(result.BestPath[len(result.BestPath)-1])
	if err != nil {
		t.Fatalf("leaf lookup: %v", err)
	}
	wantScore := 1.0 / (1.0 + leaf.Beliefs.FreeEnergy)
	if math.Abs(leaf.Score-wantScore) > 1e-12 {
		t.Errorf("leaf score = %v, want 1/(1+FE) = %v", leaf.Score, wantScore)
	}
}

func TestRun_DomainRoundRobin(t *testing.T) {
	e := New(nil)
	result, err := e.Run(context.Background(), offlineRequest("cycle the domains", 4, 1, 3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := map[int]Domain{
		0: DomainExplore,
		1: DomainExplore,
		2: DomainChallenge,
		3: DomainEvolve,
		4: DomainIntegrate,
	}
	for _, n := range result.Nodes {
		if n.Domain != want[n.Depth] {
			t.Errorf("depth %d domain = %s, want %s", n.Depth, n.Domain, want[n.Depth])
		}
	}
}

func TestRun_OracleFailureFallsBack(t *testing.T) {
	gen := &mockGenerator{err: errors.New("oracle down")}
	e := New(gen)

	cfg := DefaultRunConfig()
	cfg.MaxDepth = 2
	cfg.BranchingFactor = 2
	result, err := e.Run(context.Background(), Request{Task: "survive the outage", Config: cfg})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if gen.calls == 0 {
		t.Error("oracle was never consulted")
	}
	if len(result.Nodes) != 7 {
		t.Errorf("node count = %d, want full fallback tree of 7", len(result.Nodes))
	}
	if result.Metrics[MetricOracleFallbacks] == 0 {
		t.Error("metrics should record oracle fallbacks")
	}
}

func TestRun_OracleCandidatesUsed(t *testing.T) {
	gen := &mockGenerator{candidates: []string{"alpha", "beta", "gamma", "delta"}}
	e := New(gen)

	cfg := DefaultRunConfig()
	cfg.MaxDepth = 1
	cfg.BranchingFactor = 2
	result, err := e.Run(context.Background(), Request{Task: "use the oracle", Config: cfg})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	depth1 := result.Tree.AtDepth(1)
	if len(depth1) != 2 {
		t.Fatalf("depth-1 nodes = %d, want branching factor 2", len(depth1))
	}
	if depth1[0].Content != "alpha" || depth1[1].Content != "beta" {
		t.Errorf("children = %q/%q, want oracle candidates truncated in order",
			depth1[0].Content, depth1[1].Content)
	}
	if result.Metrics[MetricOracleCalls] != 1 {
		t.Errorf("oracle calls metric = %v, want 1", result.Metrics[MetricOracleCalls])
	}
}

func TestRun_UseOracleFalseSkipsGenerator(t *testing.T) {
	gen := &mockGenerator{candidates: []string{"x"}}
	e := New(gen)

	req := offlineRequest("offline only", 2, 2, 1)
	if _, err := e.Run(context.Background(), req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("generator calls = %d, want 0 when oracle disabled", gen.calls)
	}
}

func TestRun_MetricsTotals(t *testing.T) {
	e := New(nil)
	result, err := e.Run(context.Background(), offlineRequest("sum the metrics", 2, 2, 5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var wantErr, wantFE float64
	for _, n := range result.Nodes {
		wantErr += n.Beliefs.PredictionError
		wantFE += n.Beliefs.FreeEnergy
	}
	if math.Abs(result.Metrics[MetricTotalPredictionError]-wantErr) > 1e-12 {
		t.Errorf("total prediction error = %v, want %v",
			result.Metrics[MetricTotalPredictionError], wantErr)
	}
	if math.Abs(result.Metrics[MetricTotalFreeEnergy]-wantFE) > 1e-12 {
		t.Errorf("total free energy = %v, want %v",
			result.Metrics[MetricTotalFreeEnergy], wantFE)
	}
	if result.Metrics[MetricNodeCount] != float64(len(result.Nodes)) {
		t.Errorf("node count metric = %v, want %v",
			result.Metrics[MetricNodeCount], len(result.Nodes))
	}
	if result.Metrics[MetricTimeBudgetSeconds] != 5.0 {
		t.Errorf("time budget metric = %v, want 5.0",
			result.Metrics[MetricTimeBudgetSeconds])
	}
}

func TestRun_ReasoningLevelIncrements(t *testing.T) {
	e := New(nil)
	result, err := e.Run(context.Background(), offlineRequest("level by generation", 3, 1, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, n := range result.Nodes {
		if n.Beliefs.ReasoningLevel != n.Depth {
			t.Errorf("node %s reasoning level = %d, want depth %d",
				n.ID, n.Beliefs.ReasoningLevel, n.Depth)
		}
	}
}

func TestRun_ConfidenceMatchesLeafScore(t *testing.T) {
	e := New(nil)
	result, err := e.Run(context.Background(), offlineRequest("confidence from the leaf", 2, 2, 9))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	leaf, _ := result.Tree.Node(result.BestPath[len(result.BestPath)-1])
	want := math.Min(leaf.Score, 1.0)
	if result.Confidence != want {
		t.Errorf("Confidence = %v, want %v", result.Confidence, want)
	}
	if result.SelectedAction != leaf.Content {
		t.Errorf("SelectedAction = %q, want leaf content %q", result.SelectedAction, leaf.Content)
	}
}
