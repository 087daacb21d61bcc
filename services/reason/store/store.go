// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists search traces and the admission gate's adaptive
// state in BadgerDB.
//
// Two record families exist: trace records keyed by generated trace id, and
// one adaptive-threshold record under a fixed key. Both are JSON payloads
// behind idempotent upserts; there is no locking across processes, and the
// documented last-writer-wins behavior of the threshold record is accepted.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/ponderlabs/ponder/services/reason/admission"
	"github.com/ponderlabs/ponder/services/reason/engine"
	"github.com/ponderlabs/ponder/services/reason/storage/badger"
)

// Key prefixes. Traces and state live in the same keyspace, separated by
// prefix so trace listing can iterate cheaply.
const (
	tracePrefix = "trace:"
	statePrefix = "state:"
)

// ErrTraceNotFound indicates a trace id with no stored record.
var ErrTraceNotFound = errors.New("trace not found")

// TracePayload is the immutable persisted record of one completed search
// session: the admission decision that triggered it, the full flattened node
// table, the winning path, and run metrics. Created once at the end of a run
// and retrieved only by exact trace id.
type TracePayload struct {
	TraceID        string                `json:"trace_id"`
	SessionID      string                `json:"session_id"`
	Task           string                `json:"task"`
	Decision       *admission.Decision   `json:"decision,omitempty"`
	BestPath       []string              `json:"best_path"`
	SelectedAction string                `json:"selected_action"`
	Confidence     float64               `json:"confidence"`
	Metrics        map[string]float64    `json:"metrics"`
	Nodes          []*engine.SearchNode  `json:"nodes"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Store is the BadgerDB-backed trace and threshold store.
//
// Thread Safety: Safe for concurrent use; BadgerDB transactions provide the
// isolation, and all writes are idempotent upserts.
type Store struct {
	db *badger.DB
}

// New creates a store on an opened database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// PutTrace upserts a trace record under its trace id.
//
// Outputs:
//   - error: Non-nil if serialization or the write fails. Callers on the
//     search path treat this as degraded (result kept, trace id dropped).
func (s *Store) PutTrace(ctx context.Context, payload *TracePayload) error {
	if payload == nil || payload.TraceID == "" {
		return errors.New("trace payload must have a trace id")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal trace %s: %w", payload.TraceID, err)
	}

	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(tracePrefix+payload.TraceID), raw)
	})
}

// GetTrace fetches a trace record by exact id.
//
// Outputs:
//   - *TracePayload: The stored record, nil on error.
//   - error: ErrTraceNotFound when no record exists under the id.
func (s *Store) GetTrace(ctx context.Context, traceID string) (*TracePayload, error) {
	var payload TracePayload
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(tracePrefix + traceID))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrTraceNotFound, traceID)
		}
		if err != nil {
			return fmt.Errorf("get trace %s: %w", traceID, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &payload)
		})
	})
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

// ListTraceIDs returns up to limit stored trace ids, in key order.
// A limit <= 0 returns every id.
func (s *Store) ListTraceIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false // key-only scan
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(tracePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(ids) >= limit {
				break
			}
			key := it.Item().Key()
			ids = append(ids, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	return ids, nil
}

// LoadThresholds implements admission.StateStore.
func (s *Store) LoadThresholds(ctx context.Context) (admission.ThresholdState, bool, error) {
	var state admission.ThresholdState
	found := false
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(statePrefix + admission.StateID))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get threshold state: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil {
		return admission.ThresholdState{}, false, err
	}
	return state, found, nil
}

// SaveThresholds implements admission.StateStore.
func (s *Store) SaveThresholds(ctx context.Context, state admission.ThresholdState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal threshold state: %w", err)
	}
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(statePrefix+admission.StateID), raw)
	})
}

// Ping verifies the database is usable. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		return nil
	})
}
