// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponderlabs/ponder/pkg/ux"
	"github.com/ponderlabs/ponder/services/reason"
	"github.com/ponderlabs/ponder/services/reason/config"
	"github.com/ponderlabs/ponder/services/reason/store"
)

var (
	runForce     bool
	runEphemeral bool
	runDepth     int
	runBranching int
	runSeed      int64
	runNoPersist bool
	runTimeout   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run one task through admission and search without the server",
	Long: `Runs a single task against the local trace store. The admission
decision, search result, and trace id (when persisted) are printed as
JSON. Learned thresholds update exactly as they would on the server.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOneShot,
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "Bypass the admission gate and always search")
	runCmd.Flags().BoolVar(&runEphemeral, "ephemeral", false, "Use an in-memory store, discarding trace and feedback")
	runCmd.Flags().IntVar(&runDepth, "depth", 0, "Override max search depth")
	runCmd.Flags().IntVar(&runBranching, "branching", 0, "Override branching factor")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Seed for reproducible fallback expansion (0 = random)")
	runCmd.Flags().BoolVar(&runNoPersist, "no-persist", false, "Skip writing the trace")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Minute, "Overall run timeout")
}

func runOneShot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if runEphemeral {
		cfg.Store.InMemory = true
	}

	logger := newLogger(cfg, "ponder")
	defer logger.Close()
	slogger := logger.Slog()

	db, err := openStore(cfg, slogger)
	if err != nil {
		return err
	}
	defer db.Close()
	st := store.New(db)

	svc := buildService(cfg, st, nil, slogger)

	taskCtx := map[string]any{}
	if runForce {
		taskCtx["force_search"] = true
	}

	overrides := map[string]any{}
	if runDepth > 0 {
		overrides["max_depth"] = runDepth
	}
	if runBranching > 0 {
		overrides["branching_factor"] = runBranching
	}
	if runSeed != 0 {
		overrides["random_seed"] = runSeed
	}
	if runNoPersist {
		overrides["persist_trace"] = false
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	var resp *reason.RunResponse
	err = ux.WithSpinner("reasoning", func() error {
		var runErr error
		resp, runErr = svc.Run(ctx, reason.RunRequest{
			Task:            strings.Join(args, " "),
			Context:         taskCtx,
			ConfigOverrides: overrides,
		})
		return runErr
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}
