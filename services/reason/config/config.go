// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the server configuration.
//
// Configuration comes from three layers, later layers overriding earlier:
//
//  1. Built-in defaults (Default)
//  2. A YAML file (~/.ponder/ponder.yaml by default, created on first run)
//  3. Environment variables (PONDER_ADDR, PONDER_STORE_PATH, PONDER_LOG_LEVEL)
//
// The merged result is validated with go-playground/validator before use.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ponderlabs/ponder/pkg/logging"
	"github.com/ponderlabs/ponder/services/reason/engine"
)

// cfgValidate is the validator instance for config structs.
var cfgValidate *validator.Validate

func init() {
	cfgValidate = validator.New()
}

// Config is the top-level server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Search    SearchConfig    `yaml:"search"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080" or "127.0.0.1:8080".
	Addr string `yaml:"addr" validate:"required"`

	// ReadTimeoutSeconds bounds request header+body reads.
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds" validate:"gte=1,lte=300"`

	// WriteTimeoutSeconds bounds response writes.
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds" validate:"gte=1,lte=600"`

	// ShutdownGraceSeconds is how long in-flight requests get on SIGTERM.
	ShutdownGraceSeconds int `yaml:"shutdown_grace_seconds" validate:"gte=1,lte=120"`
}

// StoreConfig controls the badger trace store.
type StoreConfig struct {
	// Path is the badger data directory. Supports ~ expansion.
	// Ignored when InMemory is true.
	Path string `yaml:"path"`

	// InMemory runs badger without disk persistence. Traces and learned
	// thresholds are lost on restart. Intended for tests and one-shot runs.
	InMemory bool `yaml:"in_memory"`
}

// OracleConfig controls the text-generation backend.
type OracleConfig struct {
	// Enabled gates oracle construction entirely. When false, every run
	// uses deterministic fallback expansion regardless of per-run flags.
	Enabled bool `yaml:"enabled"`

	// Backend selects the text-generation backend.
	Backend string `yaml:"backend" validate:"oneof=openai anthropic ollama local"`

	// RequestsPerSecond rate-limits oracle calls. 0 disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`

	// Burst is the rate limiter burst size.
	Burst int `yaml:"burst" validate:"gte=0"`

	// Temperature for candidate generation.
	Temperature float32 `yaml:"temperature" validate:"gte=0,lte=2"`

	// MaxTokens per oracle reply.
	MaxTokens int `yaml:"max_tokens" validate:"gte=1,lte=8192"`
}

// SearchConfig sets server-side defaults for run configuration.
// Per-request config_overrides still take precedence.
type SearchConfig struct {
	MaxDepth          int     `yaml:"max_depth" validate:"gte=1,lte=16"`
	BranchingFactor   int     `yaml:"branching_factor" validate:"gte=1,lte=10"`
	TimeBudgetSeconds float64 `yaml:"time_budget_seconds" validate:"gt=0"`
	UseOracle         bool    `yaml:"use_oracle"`
	PersistTrace      bool    `yaml:"persist_trace"`
}

// TelemetryConfig selects trace and metric exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir enables file logging when set. Supports ~ expansion.
	Dir string `yaml:"dir"`

	// JSON forces stderr format. Nil means auto-detect (text on a
	// terminal, JSON otherwise).
	JSON *bool `yaml:"json,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:                 ":8080",
			ReadTimeoutSeconds:   15,
			WriteTimeoutSeconds:  60,
			ShutdownGraceSeconds: 10,
		},
		Store: StoreConfig{
			Path: "~/.ponder/data",
		},
		Oracle: OracleConfig{
			Enabled:           false,
			Backend:           "openai",
			RequestsPerSecond: 2,
			Burst:             4,
			Temperature:       0.7,
			MaxTokens:         256,
		},
		Search: SearchConfig{
			MaxDepth:          4,
			BranchingFactor:   3,
			TimeBudgetSeconds: 5.0,
			UseOracle:         true,
			PersistTrace:      true,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.ponder/logs",
		},
	}
}

// Validate checks the merged configuration.
//
// Tag validation covers ranges and enums; the cross-field rules that
// tags cannot express are checked explicitly.
func (c Config) Validate() error {
	if err := cfgValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("invalid configuration: store.path is required unless store.in_memory is set")
	}
	if c.Telemetry.TraceExporter == "otlp" && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("invalid configuration: telemetry.otlp_endpoint is required for the otlp exporter")
	}
	return nil
}

// RunConfig converts the search defaults to an engine run configuration.
func (c SearchConfig) RunConfig() engine.RunConfig {
	cfg := engine.DefaultRunConfig()
	cfg.MaxDepth = c.MaxDepth
	cfg.BranchingFactor = c.BranchingFactor
	cfg.TimeBudgetSeconds = c.TimeBudgetSeconds
	cfg.UseOracle = c.UseOracle
	cfg.PersistTrace = c.PersistTrace
	return cfg
}

// LoggerConfig converts the logging section to a logger configuration.
func (c LoggingConfig) LoggerConfig(service string) logging.Config {
	jsonOut := logging.AutoJSON()
	if c.JSON != nil {
		jsonOut = *c.JSON
	}
	return logging.Config{
		Level:   parseLevel(c.Level),
		LogDir:  c.Dir,
		Service: service,
		JSON:    jsonOut,
	}
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// applyEnv overlays environment variables onto the configuration.
func applyEnv(c *Config) {
	if v := os.Getenv("PONDER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PONDER_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("PONDER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PONDER_ORACLE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Oracle.Enabled = b
		}
	}
	if v := os.Getenv("LLM_BACKEND_TYPE"); v != "" {
		c.Oracle.Backend = v
	}
}
