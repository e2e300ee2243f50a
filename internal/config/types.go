// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and watches the collisionguard YAML configuration.
//
// The file lives at ~/.collisionguard/config.yaml unless a path is given.
// A default file is written on first use. Keys missing from the file keep
// their default values, so a file containing only
//
//	thresholds:
//	  critical_distance: 12
//
// is a complete configuration.
//
// Watcher reloads the file when it changes on disk and hands the validated
// result to a callback. Invalid edits are logged and ignored.
package config

import (
	"time"

	"github.com/AleutianAI/collisionguard/internal/risk"
	"github.com/AleutianAI/collisionguard/pkg/logging"
)

// CurrentConfigVersion is written into new config files.
const CurrentConfigVersion = "1"

// Config is the root configuration document.
type Config struct {
	Version    string          `yaml:"version"`
	Thresholds risk.Thresholds `yaml:"thresholds"`
	Logging    LoggingConfig   `yaml:"logging"`
	Advisor    AdvisorConfig   `yaml:"advisor"`
	Server     ServerConfig    `yaml:"server"`
	Journal    JournalConfig   `yaml:"journal"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  logging.Level `yaml:"level"`
	JSON   bool          `yaml:"json"`
	LogDir string        `yaml:"log_dir"`
	Quiet  bool          `yaml:"quiet"`
}

// AdvisorConfig controls batch evaluation.
type AdvisorConfig struct {
	// Parallelism bounds concurrent evaluations in a batch.
	Parallelism int `yaml:"parallelism" validate:"gte=1,lte=256"`
}

// ServerConfig controls the HTTP advisory endpoint.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`

	// MaxBodyBytes caps the size of a request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gt=0"`

	// RateLimit is the sustained request rate per second. 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`

	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`

	// AdminToken, when set, is required as a bearer token on
	// PUT /v1/thresholds. EnvAdminToken overrides it.
	AdminToken string `yaml:"admin_token,omitempty"`
}

// JournalConfig controls the recommendation journal.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path     string `yaml:"path" validate:"required_if=Enabled true InMemory false"`
	InMemory bool   `yaml:"in_memory"`

	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

// TelemetryConfig controls tracing and metrics export.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	Environment    string `yaml:"environment"`
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
}

// EnvAdminToken overrides ServerConfig.AdminToken.
const EnvAdminToken = "COLLISIONGUARD_ADMIN_TOKEN"

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		Version:    CurrentConfigVersion,
		Thresholds: risk.DefaultThresholds(),
		Logging: LoggingConfig{
			Level: logging.LevelInfo,
		},
		Advisor: AdvisorConfig{
			Parallelism: 8,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8087",
			MaxBodyBytes:    1 << 20,
			RateLimit:       50,
			Burst:           100,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Journal: JournalConfig{
			Enabled:    false,
			Path:       "~/.collisionguard/journal",
			GCInterval: 5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "collisionguard",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
	}
}

// LoggerConfig converts the logging section to a logging.Config.
func (c Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:   c.Logging.Level,
		JSON:    c.Logging.JSON,
		LogDir:  c.Logging.LogDir,
		Quiet:   c.Logging.Quiet,
		Service: c.Telemetry.ServiceName,
	}
}
