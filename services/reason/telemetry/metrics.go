// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the reasoning service.
//
// Description:
//
//	Provides standard counters, histograms, and gauges for HTTP requests,
//	admission decisions, search runs, oracle calls, and trace storage.
//	All metrics use the "reason_" prefix for consistent naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks currently active HTTP requests.
	HTTPActiveRequests metric.Int64UpDownCounter

	// --- Admission Metrics ---

	// AdmissionDecisionsTotal counts admission decisions by outcome
	// (admitted, rejected, forced, disabled).
	AdmissionDecisionsTotal metric.Int64Counter

	// AdmissionComplexityThreshold reports the current adaptive complexity
	// threshold.
	AdmissionComplexityThreshold metric.Float64ObservableGauge

	// AdmissionUncertaintyThreshold reports the current adaptive uncertainty
	// threshold.
	AdmissionUncertaintyThreshold metric.Float64ObservableGauge

	// --- Search Metrics ---

	// SearchRunsTotal counts completed search runs by status.
	SearchRunsTotal metric.Int64Counter

	// SearchRunDuration records search run duration in seconds.
	SearchRunDuration metric.Float64Histogram

	// SearchNodesExplored counts total search nodes created.
	SearchNodesExplored metric.Int64Counter

	// --- Oracle Metrics ---

	// OracleCallsTotal counts oracle expansion calls.
	OracleCallsTotal metric.Int64Counter

	// OracleFallbacksTotal counts expansions that degraded to deterministic
	// fallback candidates.
	OracleFallbacksTotal metric.Int64Counter

	// OracleCallDuration records oracle call duration in seconds.
	OracleCallDuration metric.Float64Histogram

	// --- Storage Metrics ---

	// TracesPersistedTotal counts trace records written by status.
	TracesPersistedTotal metric.Int64Counter

	// --- Error Metrics ---

	// ErrorsTotal counts total errors by type and component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
//
// Description:
//
//	Registers all pre-defined metrics with the provided meter.
//	Returns an error if any metric registration fails.
//
// Inputs:
//
//	meter - The OTel meter to use for metric registration.
//
// Outputs:
//
//	*Metrics - The metrics instance with all counters and histograms initialized.
//	error - Non-nil if metric registration fails.
//
// Example:
//
//	meter := otel.Meter("reason")
//	metrics, err := telemetry.NewMetrics(meter)
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
//	metrics.SearchRunsTotal.Add(ctx, 1, ...)
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- HTTP Metrics ---
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"reason_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"reason_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"reason_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	// --- Admission Metrics ---
	m.AdmissionDecisionsTotal, err = meter.Int64Counter(
		"reason_admission_decisions_total",
		metric.WithDescription("Total admission decisions by outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create admission_decisions_total: %w", err)
	}

	// Note: threshold gauges require a callback registration, handled by
	// RegisterThresholdGauges.

	// --- Search Metrics ---
	m.SearchRunsTotal, err = meter.Int64Counter(
		"reason_search_runs_total",
		metric.WithDescription("Total completed search runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create search_runs_total: %w", err)
	}

	m.SearchRunDuration, err = meter.Float64Histogram(
		"reason_search_run_duration_seconds",
		metric.WithDescription("Search run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create search_run_duration: %w", err)
	}

	m.SearchNodesExplored, err = meter.Int64Counter(
		"reason_search_nodes_explored_total",
		metric.WithDescription("Total search nodes created"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create search_nodes_explored: %w", err)
	}

	// --- Oracle Metrics ---
	m.OracleCallsTotal, err = meter.Int64Counter(
		"reason_oracle_calls_total",
		metric.WithDescription("Total oracle expansion calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create oracle_calls_total: %w", err)
	}

	m.OracleFallbacksTotal, err = meter.Int64Counter(
		"reason_oracle_fallbacks_total",
		metric.WithDescription("Total expansions degraded to fallback candidates"),
		metric.WithUnit("{expansion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create oracle_fallbacks_total: %w", err)
	}

	m.OracleCallDuration, err = meter.Float64Histogram(
		"reason_oracle_call_duration_seconds",
		metric.WithDescription("Oracle call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create oracle_call_duration: %w", err)
	}

	// --- Storage Metrics ---
	m.TracesPersistedTotal, err = meter.Int64Counter(
		"reason_traces_persisted_total",
		metric.WithDescription("Total trace records written"),
		metric.WithUnit("{trace}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create traces_persisted_total: %w", err)
	}

	// --- Error Metrics ---
	m.ErrorsTotal, err = meter.Int64Counter(
		"reason_errors_total",
		metric.WithDescription("Total errors by type and component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}

// RegisterThresholdGauges registers callbacks for the adaptive threshold gauges.
//
// Description:
//
//	Sets up observable gauges that report the admission gate's current
//	complexity and uncertainty thresholds. The callback is invoked each
//	time metrics are scraped.
//
// Inputs:
//
//	meter - The OTel meter to use for registration.
//	thresholdsFunc - A function returning (complexity, uncertainty) thresholds.
//
// Outputs:
//
//	metric.Registration - Registration handle for cleanup.
//	error - Non-nil if registration fails.
func (m *Metrics) RegisterThresholdGauges(meter metric.Meter, thresholdsFunc func() (float64, float64)) (metric.Registration, error) {
	var err error
	m.AdmissionComplexityThreshold, err = meter.Float64ObservableGauge(
		"reason_admission_complexity_threshold",
		metric.WithDescription("Current adaptive complexity threshold"),
	)
	if err != nil {
		return nil, fmt.Errorf("create admission_complexity_threshold: %w", err)
	}

	m.AdmissionUncertaintyThreshold, err = meter.Float64ObservableGauge(
		"reason_admission_uncertainty_threshold",
		metric.WithDescription("Current adaptive uncertainty threshold"),
	)
	if err != nil {
		return nil, fmt.Errorf("create admission_uncertainty_threshold: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		complexity, uncertainty := thresholdsFunc()
		o.ObserveFloat64(m.AdmissionComplexityThreshold, complexity)
		o.ObserveFloat64(m.AdmissionUncertaintyThreshold, uncertainty)
		return nil
	}, m.AdmissionComplexityThreshold, m.AdmissionUncertaintyThreshold)
}
