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
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrUnauthorized is returned when a request carries no valid credential.
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo identifies the caller of a guarded endpoint.
type AuthInfo struct {
	// Subject names the caller in logs. Never empty.
	Subject string
}

// AuthProvider validates bearer tokens for endpoints that change
// advisor state.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type AuthProvider interface {
	// Validate returns the caller for token or an error wrapping
	// ErrUnauthorized.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts every request. It is the default when no admin
// token is configured, which suits a listener bound to localhost.
type NopAuthProvider struct{}

// Validate always succeeds.
func (NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{Subject: "local"}, nil
}

// TokenAuthProvider accepts exactly one static token.
type TokenAuthProvider struct {
	token []byte
}

// NewTokenAuthProvider creates a provider for token. An empty token
// rejects everything.
func NewTokenAuthProvider(token string) *TokenAuthProvider {
	return &TokenAuthProvider{token: []byte(token)}
}

// Validate compares token in constant time.
func (p *TokenAuthProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if len(p.token) == 0 || subtle.ConstantTimeCompare([]byte(token), p.token) != 1 {
		return nil, ErrUnauthorized
	}
	return &AuthInfo{Subject: "admin-token"}, nil
}

var (
	_ AuthProvider = NopAuthProvider{}
	_ AuthProvider = (*TokenAuthProvider)(nil)
)

const authInfoKey = "auth_info"

// requireAuth rejects requests that the provider does not accept with
// 401 UNAUTHORIZED.
func requireAuth(provider AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		info, err := provider.Validate(c.Request.Context(), token)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="collisionguard"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:     ErrUnauthorized.Error(),
				Code:      "UNAUTHORIZED",
				RequestID: c.GetString("request_id"),
			})
			return
		}
		c.Set(authInfoKey, info)
		c.Next()
	}
}

// callerOf returns the subject stored by requireAuth.
func callerOf(c *gin.Context) string {
	if v, ok := c.Get(authInfoKey); ok {
		if info, ok := v.(*AuthInfo); ok {
			return info.Subject
		}
	}
	return ""
}
