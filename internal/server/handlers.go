// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/collisionguard/internal/advisor"
	"github.com/AleutianAI/collisionguard/internal/journal"
	"github.com/AleutianAI/collisionguard/internal/policy"
	"github.com/AleutianAI/collisionguard/internal/risk"
	"github.com/AleutianAI/collisionguard/pkg/sensors"
)

// maxListLimit caps ?limit on GET /v1/decisions.
const maxListLimit = 1000

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version,omitempty"`
	AlgorithmVersion string `json:"algorithm_version"`
	Journal          bool   `json:"journal"`
}

// DecisionsResponse is the body of GET /v1/decisions.
type DecisionsResponse struct {
	Entries []journal.Entry `json:"entries"`
	Count   int             `json:"count"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:           "ok",
		Version:          s.cfg.Version,
		AlgorithmVersion: risk.AlgorithmVersion,
		Journal:          s.journal != nil,
	})
}

// handleDecide handles POST /v1/decide.
//
// The body is a snapshot in JSON, or YAML when Content-Type names yaml.
//
//	200 OK: advisor.Result
//	400 Bad Request: unparseable body
//	413 Request Entity Too Large
//	422 Unprocessable Entity: missing section or malformed value
func (s *Server) handleDecide(c *gin.Context) {
	snap, ok := s.readSnapshot(c)
	if !ok {
		return
	}

	res, err := s.advisor.Advise(c.Request.Context(), snap, "http")
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleRisk handles POST /v1/risk. Nothing is journaled.
func (s *Server) handleRisk(c *gin.Context) {
	snap, ok := s.readSnapshot(c)
	if !ok {
		return
	}

	assessment, err := risk.Assess(snap, s.advisor.Thresholds())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleListDecisions(c *gin.Context) {
	if s.journal == nil {
		s.journalDisabled(c)
		return
	}

	opts := journal.ListOptions{
		Oldest: c.Query("order") == "oldest",
		Action: policy.Action(c.Query("action")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:     "limit must be a non-negative integer",
				Code:      "INVALID_LIMIT",
				RequestID: c.GetString("request_id"),
			})
			return
		}
		opts.Limit = min(limit, maxListLimit)
	}

	entries, err := s.journal.List(c.Request.Context(), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, DecisionsResponse{Entries: entries, Count: len(entries)})
}

func (s *Server) handleGetDecision(c *gin.Context) {
	if s.journal == nil {
		s.journalDisabled(c)
		return
	}

	entry, err := s.journal.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleGetThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, s.advisor.Thresholds())
}

// handlePutThresholds merges the body over the current thresholds, so a
// partial document changes only the fields it names.
func (s *Server) handlePutThresholds(c *gin.Context) {
	th := s.advisor.Thresholds()
	if err := c.ShouldBindJSON(&th); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     err.Error(),
			Code:      "INVALID_REQUEST",
			RequestID: c.GetString("request_id"),
		})
		return
	}
	if err := s.advisor.SetThresholds(th); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:     err.Error(),
			Code:      "INVALID_THRESHOLDS",
			RequestID: c.GetString("request_id"),
		})
		return
	}
	s.logger.Info("thresholds replaced over http",
		"caller", callerOf(c),
		"request_id", c.GetString("request_id"),
	)
	c.JSON(http.StatusOK, th)
}

func (s *Server) readSnapshot(c *gin.Context) (*sensors.Snapshot, bool) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}

	format := sensors.FormatJSON
	if strings.Contains(c.ContentType(), "yaml") {
		format = sensors.FormatYAML
	}

	snap, err := sensors.DecodeBytes(data, format)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return snap, true
}

func (s *Server) journalDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:     "journal is disabled",
		Code:      "JOURNAL_DISABLED",
		RequestID: c.GetString("request_id"),
	})
}

// fail writes the ErrorResponse for err.
func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: c.GetString("request_id"),
	}

	var missing *sensors.MissingSectionError
	var malformed *sensors.MalformedValueError
	switch {
	case errors.As(err, &missing):
		resp.Details = missing.Path
	case errors.As(err, &malformed):
		resp.Details = malformed.Path
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", resp.RequestID, "error", err)
	}
	c.JSON(status, resp)
}

func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE"
	case errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED"
	}

	switch advisor.ErrorKind(err) {
	case "missing_section":
		return http.StatusUnprocessableEntity, "MISSING_SECTION"
	case "malformed_value":
		return http.StatusUnprocessableEntity, "MALFORMED_VALUE"
	case "invalid_document":
		return http.StatusBadRequest, "INVALID_DOCUMENT"
	}

	return http.StatusInternalServerError, "INTERNAL"
}
