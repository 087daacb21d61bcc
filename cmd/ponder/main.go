// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command ponder runs the adaptive reasoning service.
//
// Ponder decides per task whether deliberate tree search is worth the
// cost, runs a bounded belief-guided search when it is, and persists
// every search as a replayable trace.
//
// Usage:
//
//	# Start the HTTP server
//	ponder serve
//
//	# One-shot run against the local store, no server
//	ponder run "How do we reduce p99 latency without more replicas?"
//
//	# Print a stored trace
//	ponder trace 550e8400-e29b-41d4-a716-446655440000
//
// Example requests once the server is up:
//
//	# Health check
//	curl http://localhost:8080/v1/reason/health
//
//	# Run a task
//	curl -X POST http://localhost:8080/v1/reason/run \
//	  -H "Content-Type: application/json" \
//	  -d '{"task": "How do we reduce p99 latency?", "context": {"force_search": true}}'
//
//	# List stored traces
//	curl http://localhost:8080/v1/reason/traces?limit=10
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ponder",
	Short: "Adaptive reasoning-admission and tree-search engine",
	Long: `Ponder scores each incoming task against learned admission
thresholds, runs a bounded belief-guided tree search for the tasks
that warrant it, and stores every search as a replayable trace.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the config file (default ~/.ponder/ponder.yaml, created on first run)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(traceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
