// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics defines the Prometheus collectors for collisionguard.
//
// All collectors are registered on the default registry at init and are
// served by the HTTP server's /metrics route.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "collisionguard"

var (
	// decisionsTotal counts recommendations.
	// Labels: action, rule
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Recommendations produced, by action and matched rule",
	}, []string{"action", "rule"})

	// riskScore tracks the aggregate risk distribution.
	riskScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "risk_score",
		Help:      "Distribution of aggregate risk scores",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	// decisionDuration measures time spent evaluating one snapshot.
	decisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "decision_duration_seconds",
		Help:      "Time to evaluate one snapshot",
		Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	// snapshotErrors counts rejected snapshots.
	// Labels: kind (missing_section, malformed_value, invalid_document)
	snapshotErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_errors_total",
		Help:      "Snapshots rejected before a decision, by error kind",
	}, []string{"kind"})

	// journalAppends counts journal writes.
	// Labels: status (ok, error)
	journalAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "journal",
		Name:      "appends_total",
		Help:      "Journal appends by status",
	}, []string{"status"})

	// thresholdReloads counts threshold swaps.
	// Labels: status (applied, rejected)
	thresholdReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "threshold_reloads_total",
		Help:      "Threshold updates applied or rejected",
	}, []string{"status"})
)

// RecordDecision records one successful evaluation.
func RecordDecision(action, rule string, score float64, elapsed time.Duration) {
	decisionsTotal.WithLabelValues(action, rule).Inc()
	riskScore.Observe(score)
	decisionDuration.Observe(elapsed.Seconds())
}

// RecordSnapshotError records a rejected snapshot.
func RecordSnapshotError(kind string) {
	snapshotErrors.WithLabelValues(kind).Inc()
}

// RecordJournalAppend records a journal write outcome.
func RecordJournalAppend(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	journalAppends.WithLabelValues(status).Inc()
}

// RecordThresholdReload records a threshold update outcome.
func RecordThresholdReload(applied bool) {
	status := "applied"
	if !applied {
		status = "rejected"
	}
	thresholdReloads.WithLabelValues(status).Inc()
}
