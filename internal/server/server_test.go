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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/collisionguard/internal/advisor"
	"github.com/AleutianAI/collisionguard/internal/journal"
	"github.com/AleutianAI/collisionguard/internal/risk"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const missingIMU = `{"sensors": {"vehicle": {"speed_kmh": 40}, "lane_invasion": {}, "collision": {}}}`

func newTestServer(t *testing.T, cfg Config, withJournal bool) (*Server, *journal.Journal) {
	t.Helper()
	var j *journal.Journal
	opts := advisor.Options{}
	if withJournal {
		var err error
		j, err = journal.Open(journal.InMemoryOptions())
		require.NoError(t, err)
		t.Cleanup(func() { _ = j.Close() })
		opts.Recorder = j
	}
	return New(cfg, advisor.New(opts), j, nil), j
}

func do(t *testing.T, s *Server, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// TestDecide_JournalRoundTrip tests decide, then lookup through the journal.
func TestDecide_JournalRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, Config{}, true)

	w := do(t, s, http.MethodPost, "/v1/decide", "application/json", readTestdata(t, "frame_1205.json"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Brake", res["action"])
	assert.InDelta(t, 0.2, res["brake"], 1e-9)
	assert.Equal(t, "external_brake", res["rule"])
	assert.Equal(t, float64(1205), res["frame"])
	id, _ := res["id"].(string)
	require.NotEmpty(t, id)

	w = do(t, s, http.MethodGet, "/v1/decisions/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entry journal.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, "http", entry.Source)

	w = do(t, s, http.MethodGet, "/v1/decisions?limit=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list DecisionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	w = do(t, s, http.MethodGet, "/v1/decisions?action=Steer", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Count)
}

// TestDecide_YAML tests YAML request bodies.
func TestDecide_YAML(t *testing.T) {
	s, _ := newTestServer(t, Config{}, false)

	w := do(t, s, http.MethodPost, "/v1/decide", "application/yaml", readTestdata(t, "frame_cruise.yaml"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"action":"Maintain"`)
}

// TestDecide_Errors tests error mapping.
func TestDecide_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing section", missingIMU, http.StatusUnprocessableEntity, "MISSING_SECTION"},
		{"malformed value", `{"sensors": {"vehicle": {"speed_kmh": "fast"}, "imu": {}, "lane_invasion": {}, "collision": {}}}`, http.StatusUnprocessableEntity, "MALFORMED_VALUE"},
		{"negative speed", `{"sensors": {"vehicle": {"speed_kmh": -3}, "imu": {}, "lane_invasion": {}, "collision": {}}}`, http.StatusUnprocessableEntity, "MALFORMED_VALUE"},
		{"not json", `{"sensors": `, http.StatusBadRequest, "INVALID_DOCUMENT"},
		{"empty", ``, http.StatusBadRequest, "INVALID_DOCUMENT"},
	}
	s, _ := newTestServer(t, Config{}, false)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/decide", "application/json", []byte(tt.body))
			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}

	w := do(t, s, http.MethodPost, "/v1/decide", "application/json", []byte(missingIMU))
	assert.Contains(t, decodeError(t, w).Details, "imu")
}

// TestDecide_BodyTooLarge tests the size limit.
func TestDecide_BodyTooLarge(t *testing.T) {
	s, _ := newTestServer(t, Config{MaxBodyBytes: 64}, false)

	w := do(t, s, http.MethodPost, "/v1/decide", "application/json", readTestdata(t, "frame_1205.json"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "BODY_TOO_LARGE", decodeError(t, w).Code)
}

// TestRateLimit tests 429 once the bucket is empty.
func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Config{RateLimit: 0.001, Burst: 1}, false)
	body := readTestdata(t, "frame_cruise.yaml")

	first := do(t, s, http.MethodPost, "/v1/decide", "application/yaml", body)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(t, s, http.MethodPost, "/v1/decide", "application/yaml", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, second).Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	health := do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, health.Code)
}

// TestRisk tests the assessment endpoint does not journal.
func TestRisk(t *testing.T) {
	s, j := newTestServer(t, Config{}, true)

	w := do(t, s, http.MethodPost, "/v1/risk", "application/json", readTestdata(t, "frame_1205.json"))
	require.Equal(t, http.StatusOK, w.Code)

	var a map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, "MEDIUM", a["level"])
	assert.InDelta(t, 0.34, a["score"], 1e-9)

	count, err := j.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	w = do(t, s, http.MethodPost, "/v1/risk", "application/json", []byte(missingIMU))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// TestThresholds tests reading, partial update and rejection.
func TestThresholds(t *testing.T) {
	s, _ := newTestServer(t, Config{}, false)

	w := do(t, s, http.MethodGet, "/v1/thresholds", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var th risk.Thresholds
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &th))
	assert.Equal(t, risk.DefaultThresholds(), th)

	w = do(t, s, http.MethodPut, "/v1/thresholds", "application/json", []byte(`{"critical_distance": 20}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &th))
	assert.Equal(t, 20.0, th.CriticalDistance)
	assert.Equal(t, 30.0, th.AngleThreshold)

	w = do(t, s, http.MethodPut, "/v1/thresholds", "application/json", []byte(`{"angle_threshold": 400}`))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_THRESHOLDS", decodeError(t, w).Code)

	w = do(t, s, http.MethodPut, "/v1/thresholds", "application/json", []byte(`nope`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/v1/thresholds", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &th))
	assert.Equal(t, 20.0, th.CriticalDistance)
}

// TestDecisions_Errors tests journal endpoint failures.
func TestDecisions_Errors(t *testing.T) {
	disabled, _ := newTestServer(t, Config{}, false)
	w := do(t, disabled, http.MethodGet, "/v1/decisions", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = do(t, disabled, http.MethodGet, "/v1/decisions/abc", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s, _ := newTestServer(t, Config{}, true)
	w = do(t, s, http.MethodGet, "/v1/decisions/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)

	w = do(t, s, http.MethodGet, "/v1/decisions?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, s, http.MethodGet, "/v1/decisions?limit=ten", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHealthAndMetrics tests the operational endpoints.
func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, Config{Version: "1.2.3"}, true)

	w := do(t, s, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, risk.AlgorithmVersion, health.AlgorithmVersion)
	assert.True(t, health.Journal)

	do(t, s, http.MethodPost, "/v1/decide", "application/json", readTestdata(t, "frame_1205.json"))

	w = do(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "collisionguard_decisions_total"))
}

// TestRequestID tests propagation of X-Request-ID.
func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t, Config{}, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))

	w = do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

// TestThresholds_TokenAuth tests the bearer token guard on PUT.
func TestThresholds_TokenAuth(t *testing.T) {
	s, _ := newTestServer(t, Config{Auth: NewTokenAuthProvider("s3cret")}, false)

	put := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/v1/thresholds", bytes.NewReader([]byte(`{"critical_distance": 12}`)))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w
	}

	tests := []struct {
		name string
		auth string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := put(tt.auth)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Code)
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}

	w := do(t, s, http.MethodGet, "/v1/thresholds", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "reads stay open")
}

// TestTokenAuthProvider_EmptyToken tests that an empty configured token
// rejects everything.
func TestTokenAuthProvider_EmptyToken(t *testing.T) {
	_, err := NewTokenAuthProvider("").Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	info, err := NopAuthProvider{}.Validate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "local", info.Subject)
}
