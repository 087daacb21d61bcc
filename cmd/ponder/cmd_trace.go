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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponderlabs/ponder/pkg/validation"
	"github.com/ponderlabs/ponder/services/reason/config"
	"github.com/ponderlabs/ponder/services/reason/store"
)

var traceList bool

var traceCmd = &cobra.Command{
	Use:   "trace [trace-id]",
	Short: "Print a stored search trace",
	Long: `Reads a trace from the local store and prints it as JSON.
With --list, prints stored trace ids instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().BoolVar(&traceList, "list", false, "List stored trace ids instead of printing one trace")
}

func runTrace(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, "ponder")
	defer logger.Close()

	db, err := openStore(cfg, logger.Slog())
	if err != nil {
		return err
	}
	defer db.Close()
	st := store.New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if traceList {
		ids, err := st.ListTraceIDs(ctx, 0)
		if err != nil {
			return fmt.Errorf("list traces: %w", err)
		}
		return printJSON(ids)
	}

	if len(args) != 1 {
		return errors.New("a trace id is required (or use --list)")
	}
	if err := validation.ValidateTraceID(args[0]); err != nil {
		return err
	}

	payload, err := st.GetTrace(ctx, args[0])
	if err != nil {
		if errors.Is(err, store.ErrTraceNotFound) {
			return fmt.Errorf("trace %s not found", args[0])
		}
		return fmt.Errorf("read trace: %w", err)
	}
	return printJSON(payload)
}
