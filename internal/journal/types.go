// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package journal records every recommendation the advisor produces in an
// embedded BadgerDB store.
//
// Entries are keyed by a monotonically increasing sequence number, so a
// prefix scan returns them in the order they were recorded. A secondary
// key maps each decision ID to its sequence key for point lookups:
//
//	e/<seq:8 bytes big-endian>  → Entry (JSON)
//	i/<decision id>             → e/<seq>
//
// The journal is an audit trail only. Nothing reads it back into a
// decision.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package journal

import (
	"errors"
	"time"

	"github.com/AleutianAI/collisionguard/internal/policy"
	"github.com/AleutianAI/collisionguard/internal/risk"
)

// ErrNotFound is returned by Get for an unknown decision ID.
var ErrNotFound = errors.New("journal entry not found")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("journal is closed")

// Entry is one recorded decision.
type Entry struct {
	// ID is the decision ID assigned by the advisor.
	ID string `json:"id"`

	// Frame and Timestamp are copied from the snapshot.
	Frame     int64  `json:"frame"`
	Timestamp string `json:"timestamp,omitempty"`

	// RecordedAt is when the entry was appended.
	RecordedAt time.Time `json:"recorded_at"`

	Recommendation policy.Recommendation `json:"recommendation"`
	Rule           policy.Rule           `json:"rule"`
	Level          risk.Level            `json:"level"`

	// Source names where the snapshot came from, e.g. a file path or "http".
	Source string `json:"source,omitempty"`
}

// ListOptions filters List.
type ListOptions struct {
	// Limit caps the number of entries. Zero selects DefaultListLimit.
	Limit int

	// Oldest returns entries oldest first. Default is newest first.
	Oldest bool

	// Action keeps only entries with this action when set.
	Action policy.Action
}

// DefaultListLimit is used when ListOptions.Limit is zero.
const DefaultListLimit = 50
