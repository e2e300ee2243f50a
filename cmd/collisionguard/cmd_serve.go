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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/collisionguard/internal/config"
	"github.com/AleutianAI/collisionguard/internal/risk"
	"github.com/AleutianAI/collisionguard/internal/server"
	"github.com/AleutianAI/collisionguard/internal/telemetry"
)

var (
	serveAddr     string
	serveNoReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP advisory endpoint",
	Long: `Serve recommendations over HTTP.

Endpoints:
  POST /v1/decide           Recommendation for one frame
  POST /v1/risk             Risk breakdown for one frame
  GET  /v1/decisions        Recent journal entries
  GET  /v1/decisions/:id    One journal entry
  GET  /v1/thresholds       Thresholds in effect
  PUT  /v1/thresholds       Replace thresholds until the next reload
  GET  /healthz             Liveness
  GET  /metrics             Prometheus metrics

Threshold changes in the config file are applied without a restart
unless --no-reload is given.`,
	Args: cobra.NoArgs,
	RunE: runServeCommand,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoReload, "no-reload", false,
		"Do not watch the config file for threshold changes")

	rootCmd.AddCommand(serveCmd)
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Telemetry.Environment,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	j, err := openJournal(cfg, logger)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	adv := newAdvisor(cfg, j, logger, 0)

	if !serveNoReload {
		w, err := config.NewWatcher(resolvedConfigPath(), func(c *config.Config) {
			th := c.Thresholds.OrDefault()
			if err := adv.SetThresholds(th); err != nil {
				logger.Warn("ignoring thresholds from config reload", "error", err)
			}
		}, logger, config.DefaultDebounce)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	var auth server.AuthProvider
	if token := adminToken(cfg); token != "" {
		auth = server.NewTokenAuthProvider(token)
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := server.New(server.Config{
		Addr:            addr,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		RateLimit:       cfg.Server.RateLimit,
		Burst:           cfg.Server.Burst,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		ServiceName:     cfg.Telemetry.ServiceName,
		Version:         Version,
		Auth:            auth,
	}, adv, j, logger)

	logger.Info("collisionguard serving",
		"addr", addr,
		"journal", j != nil,
		"auth", auth != nil,
		"algorithm_version", risk.AlgorithmVersion,
	)
	return srv.Run(ctx)
}

// adminToken prefers the environment over the config file.
func adminToken(c *config.Config) string {
	if v := os.Getenv(config.EnvAdminToken); v != "" {
		return v
	}
	return c.Server.AdminToken
}
