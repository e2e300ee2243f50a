// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the advisor over HTTP.
//
// # Endpoints
//
//	POST /v1/decide          snapshot (JSON or YAML) → decision
//	POST /v1/risk            snapshot → risk assessment only
//	GET  /v1/decisions       journal listing (?limit, ?action, ?order=oldest)
//	GET  /v1/decisions/:id   one journal entry
//	GET  /v1/thresholds      thresholds in effect
//	PUT  /v1/thresholds      replace thresholds (bearer token when configured)
//	GET  /healthz            liveness
//	GET  /metrics            Prometheus exposition
//
// # Errors
//
// Every error body is an ErrorResponse. Snapshot contract violations map
// to 422, unparseable bodies to 400, oversized bodies to 413 and rate
// limiting to 429 and a rejected token to 401.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/collisionguard/internal/advisor"
	"github.com/AleutianAI/collisionguard/internal/journal"
	"github.com/AleutianAI/collisionguard/pkg/logging"
)

// Config configures the HTTP server.
type Config struct {
	Addr            string
	MaxBodyBytes    int64
	RateLimit       float64
	Burst           int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// ServiceName names the otelgin server spans.
	ServiceName string

	// Version is reported by /healthz.
	Version string

	// Auth guards PUT /v1/thresholds. Nil accepts every caller.
	Auth AuthProvider
}

// Server is the collisionguard HTTP surface.
type Server struct {
	cfg     Config
	advisor *advisor.Advisor
	journal *journal.Journal
	logger  *logging.Logger
	router  *gin.Engine
}

// New builds a Server and its routes.
//
// # Inputs
//
//   - cfg: Server configuration.
//   - adv: The advisor. Must not be nil.
//   - j: The journal. May be nil, in which case the decision endpoints
//     return 503.
//   - logger: Request and error logging. Nil discards.
func New(cfg Config, adv *advisor.Advisor, j *journal.Journal, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "collisionguard"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.Auth == nil {
		cfg.Auth = NopAuthProvider{}
	}

	s := &Server{
		cfg:     cfg,
		advisor: adv,
		journal: j,
		logger:  logger.With("component", "server"),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(requestID())
	router.Use(accessLog(s.logger))

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(rateLimit(cfg.RateLimit, cfg.Burst))
	v1.Use(bodyLimit(cfg.MaxBodyBytes))
	{
		v1.POST("/decide", s.handleDecide)
		v1.POST("/risk", s.handleRisk)
		v1.GET("/decisions", s.handleListDecisions)
		v1.GET("/decisions/:id", s.handleGetDecision)
		v1.GET("/thresholds", s.handleGetThresholds)
		v1.PUT("/thresholds", requireAuth(cfg.Auth), s.handlePutThresholds)
	}

	s.router = router
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
