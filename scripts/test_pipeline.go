//go:build ignore

// Test script to exercise the full admission and search pipeline.
// Run with: go run scripts/test_pipeline.go
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ponderlabs/ponder/services/reason"
	"github.com/ponderlabs/ponder/services/reason/admission"
	"github.com/ponderlabs/ponder/services/reason/engine"
	"github.com/ponderlabs/ponder/services/reason/storage/badger"
	"github.com/ponderlabs/ponder/services/reason/store"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("=== admission + search pipeline check ===")

	// 1. In-memory store
	db, err := badger.Open(badger.InMemoryConfig())
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()
	st := store.New(db)
	fmt.Println("  store: in-memory badger")

	// 2. Admission policy with persisted thresholds
	policy := admission.NewPolicy(st)
	fmt.Println("  policy: adaptive thresholds")

	// 3. Engine with deterministic fallback expansion
	eng := engine.New(nil)
	fmt.Println("  engine: fallback generator")

	svc := reason.NewService(eng, policy, st)

	// 4. Run the reference task twice; the second run reuses learned state
	seed := int64(42)
	for i := 1; i <= 2; i++ {
		resp, err := svc.Run(ctx, reason.RunRequest{
			Task:    "How to maximize system stability?",
			Context: map[string]any{"force_search": true},
			ConfigOverrides: map[string]any{
				"max_depth":        2,
				"branching_factor": 2,
				"random_seed":      seed,
			},
		})
		if err != nil {
			log.Fatalf("run %d: %v", i, err)
		}

		fmt.Printf("\n--- run %d ---\n", i)
		fmt.Printf("  admitted:   %v\n", resp.Decision.UseSearch)
		fmt.Printf("  complexity: %.3f\n", resp.Decision.ComplexityScore)
		if resp.Result != nil {
			fmt.Printf("  action:     %s\n", resp.Result.SelectedAction)
			fmt.Printf("  nodes:      %d\n", len(resp.Result.Nodes))
			fmt.Printf("  trace:      %s\n", resp.TraceID)
		}
	}

	// 5. Read learned thresholds back
	th, found, err := st.LoadThresholds(ctx)
	if err != nil {
		log.Fatalf("thresholds: %v", err)
	}
	if !found {
		log.Fatal("thresholds were never persisted")
	}
	fmt.Printf("\n  learned complexity threshold:  %.3f\n", th.ComplexityThreshold)
	fmt.Printf("  learned uncertainty threshold: %.3f\n", th.UncertaintyThreshold)

	fmt.Println("\nOK")
}
