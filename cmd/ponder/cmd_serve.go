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
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/ponderlabs/ponder/services/llm"
	"github.com/ponderlabs/ponder/services/reason"
	"github.com/ponderlabs/ponder/services/reason/admission"
	"github.com/ponderlabs/ponder/services/reason/config"
	"github.com/ponderlabs/ponder/services/reason/engine"
	"github.com/ponderlabs/ponder/services/reason/oracle"
	"github.com/ponderlabs/ponder/services/reason/storage/badger"
	"github.com/ponderlabs/ponder/services/reason/store"
	"github.com/ponderlabs/ponder/services/reason/telemetry"
)

var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reasoning HTTP server",
	Long: `Starts the HTTP server exposing run, trace lookup, trace listing,
health, and readiness endpoints under /v1/reason, plus Prometheus
metrics under /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable gin debug mode and request logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, "reason")
	defer logger.Close()
	slogger := logger.Slog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so every later component picks up the global providers.
	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceVersion = reason.ServiceVersion
	telCfg.TraceExporter = cfg.Telemetry.TraceExporter
	telCfg.MetricExporter = cfg.Telemetry.MetricExporter
	if cfg.Telemetry.OTLPEndpoint != "" {
		telCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	shutdownTelemetry, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slogger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	meter := otel.Meter("reason")
	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	db, err := openStore(cfg, slogger)
	if err != nil {
		return err
	}
	defer db.Close()
	st := store.New(db)

	svc := buildService(cfg, st, metrics, slogger)

	registration, err := metrics.RegisterThresholdGauges(meter, func() (float64, float64) {
		ts := svc.Thresholds()
		return ts.ComplexityThreshold, ts.UncertaintyThreshold
	})
	if err != nil {
		return fmt.Errorf("register threshold gauges: %w", err)
	}
	defer registration.Unregister()

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if serveDebug {
		router.Use(gin.Logger())
	}
	router.Use(otelgin.Middleware(telCfg.ServiceName))

	v1 := router.Group("/v1")
	reason.RegisterRoutes(v1, reason.NewHandlers(svc))

	if cfg.Telemetry.MetricExporter == "prometheus" {
		router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slogger.Info("Starting ponder server", "address", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slogger.Info("Shutting down ponder server")
	grace := time.Duration(cfg.Server.ShutdownGraceSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// buildService wires the engine, admission policy, and trace store into the
// reason service. A missing oracle backend degrades to deterministic
// expansion instead of failing startup.
func buildService(cfg config.Config, st *store.Store, metrics *telemetry.Metrics, slogger *slog.Logger) *reason.Service {
	var gen engine.CandidateGenerator
	if cfg.Oracle.Enabled {
		client, err := newOracleBackend(cfg.Oracle)
		if err != nil {
			slogger.Warn("Oracle backend unavailable, using deterministic expansion",
				"backend", cfg.Oracle.Backend, "error", err.Error())
		} else {
			limited := llm.NewRateLimitedClient(client, cfg.Oracle.RequestsPerSecond, cfg.Oracle.Burst)
			temp := cfg.Oracle.Temperature
			maxTokens := cfg.Oracle.MaxTokens
			gen = oracle.New(limited, oracle.WithParams(llm.GenerationParams{
				Temperature: &temp,
				MaxTokens:   &maxTokens,
			}))
			slogger.Info("Oracle backend connected", "backend", cfg.Oracle.Backend)
		}
	}

	eng := engine.New(gen, engine.WithLogger(slogger))
	policy := admission.NewPolicy(st, admission.WithPolicyLogger(slogger))
	opts := []reason.ServiceOption{
		reason.WithServiceLogger(slogger),
		reason.WithRunDefaults(cfg.Search.RunConfig()),
	}
	if metrics != nil {
		opts = append(opts, reason.WithMetrics(metrics))
	}
	return reason.NewService(eng, policy, st, opts...)
}

// newOracleBackend constructs the configured text-generation client.
func newOracleBackend(cfg config.OracleConfig) (llm.LLMClient, error) {
	switch cfg.Backend {
	case "openai":
		return llm.NewOpenAIClient()
	case "anthropic":
		return llm.NewAnthropicClient()
	case "ollama":
		return llm.NewOllamaClient()
	case "local":
		return llm.NewLocalLlamaCppClient()
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Backend)
	}
}

// openStore opens badger at the configured path, expanding ~.
func openStore(cfg config.Config, slogger *slog.Logger) (*badger.DB, error) {
	var dbCfg badger.Config
	if cfg.Store.InMemory {
		dbCfg = badger.InMemoryConfig()
		slogger.Info("Using in-memory trace store (no persistence across restarts)")
	} else {
		dbCfg = badger.DefaultConfig()
		dbCfg.Path = config.ExpandPath(cfg.Store.Path)
		slogger.Info("Opening trace store", "path", dbCfg.Path)
	}
	db, err := badger.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open trace store: %w", err)
	}
	return db, nil
}
