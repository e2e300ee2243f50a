// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/collisionguard/internal/journal"
	"github.com/AleutianAI/collisionguard/internal/metrics"
	"github.com/AleutianAI/collisionguard/internal/policy"
	"github.com/AleutianAI/collisionguard/internal/risk"
	"github.com/AleutianAI/collisionguard/internal/telemetry"
	"github.com/AleutianAI/collisionguard/pkg/logging"
	"github.com/AleutianAI/collisionguard/pkg/sensors"
)

// Recorder persists decisions. *journal.Journal implements it.
type Recorder interface {
	Append(ctx context.Context, e journal.Entry) error
}

// Options configures an Advisor.
type Options struct {
	// Thresholds is the initial threshold set. Zero selects the defaults.
	Thresholds risk.Thresholds

	// Recorder receives every decision when set.
	Recorder Recorder

	// Logger defaults to a discarding logger.
	Logger *logging.Logger

	// Parallelism bounds AdviseBatch. Default: 8.
	Parallelism int
}

// Result is one evaluated snapshot.
type Result struct {
	// ID identifies the decision in logs and the journal.
	ID string `json:"id"`

	Frame     int64  `json:"frame"`
	Timestamp string `json:"timestamp,omitempty"`
	Source    string `json:"source,omitempty"`

	policy.Decision

	// Err is set by AdviseBatch for inputs that could not be evaluated.
	Err error `json:"-"`
}

// Input is one AdviseBatch item.
type Input struct {
	Snapshot *sensors.Snapshot

	// Source labels the snapshot, e.g. a file path.
	Source string

	// Err is a decode failure. When set, Snapshot is ignored and the
	// error is carried into the Result.
	Err error
}

// Advisor evaluates snapshots against hot-swappable thresholds.
type Advisor struct {
	thresholds  atomic.Pointer[risk.Thresholds]
	recorder    Recorder
	logger      *logging.Logger
	parallelism int
}

// New creates an Advisor.
func New(opts Options) *Advisor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 8
	}

	a := &Advisor{
		recorder:    opts.Recorder,
		logger:      logger.With("component", "advisor"),
		parallelism: parallelism,
	}
	th := opts.Thresholds.OrDefault()
	a.thresholds.Store(&th)
	return a
}

// Thresholds returns the thresholds currently in effect.
func (a *Advisor) Thresholds() risk.Thresholds {
	return *a.thresholds.Load()
}

// SetThresholds validates th and makes it current. Evaluations already in
// flight finish with the previous set.
func (a *Advisor) SetThresholds(th risk.Thresholds) error {
	if err := th.Validate(); err != nil {
		metrics.RecordThresholdReload(false)
		a.logger.Warn("thresholds rejected", "error", err)
		return err
	}
	a.thresholds.Store(&th)
	metrics.RecordThresholdReload(true)
	a.logger.Info("thresholds updated",
		"critical_distance", th.CriticalDistance,
		"angle_threshold", th.AngleThreshold,
		"speed_limit_high", th.SpeedLimitHigh,
	)
	return nil
}

// Advise evaluates one snapshot.
//
// # Inputs
//
//   - ctx: Carries the parent span. Cancellation is checked before work starts.
//   - snap: The snapshot.
//   - source: Free-form origin label stored with the decision.
//
// # Outputs
//
//   - Result: The decision with its ID.
//   - error: A sensors contract error or ctx.Err(). A journal failure is
//     logged and counted but does not fail the decision.
func (a *Advisor) Advise(ctx context.Context, snap *sensors.Snapshot, source string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ctx, span := telemetry.StartSpan(ctx, "advisor.Advise", trace.WithAttributes(
		attribute.String("source", source),
	))
	defer span.End()

	start := time.Now()
	th := a.Thresholds()

	d, err := policy.Evaluate(snap, th)
	if err != nil {
		kind := ErrorKind(err)
		metrics.RecordSnapshotError(kind)
		telemetry.RecordError(span, err, attribute.String("kind", kind))
		a.logger.Warn("snapshot rejected", "source", source, "kind", kind, "error", err)
		return Result{}, err
	}
	elapsed := time.Since(start)

	res := Result{
		ID:        uuid.NewString(),
		Frame:     snap.Frame,
		Timestamp: snap.Timestamp,
		Source:    source,
		Decision:  d,
	}

	metrics.RecordDecision(string(d.Action), string(d.Rule), d.RiskScore, elapsed)
	span.SetAttributes(
		attribute.String("decision.id", res.ID),
		attribute.Int64("frame", res.Frame),
		attribute.String("action", string(d.Action)),
		attribute.String("rule", string(d.Rule)),
		attribute.Float64("risk_score", d.RiskScore),
	)
	telemetry.SetSpanOK(span)

	a.logger.Debug("decision",
		"id", res.ID,
		"frame", res.Frame,
		"action", d.Action,
		"rule", d.Rule,
		"risk_score", d.RiskScore,
		"trace_id", telemetry.TraceID(ctx),
	)

	if a.recorder != nil {
		err := a.recorder.Append(ctx, journal.Entry{
			ID:             res.ID,
			Frame:          res.Frame,
			Timestamp:      res.Timestamp,
			Recommendation: d.Recommendation,
			Rule:           d.Rule,
			Level:          d.Assessment.Level,
			Source:         source,
		})
		metrics.RecordJournalAppend(err)
		if err != nil {
			a.logger.Warn("journal append failed", "id", res.ID, "error", err)
		}
	}

	return res, nil
}

// AdviseBatch evaluates inputs concurrently, bounded by Parallelism.
//
// Results are returned in input order. A failing item sets Result.Err and
// does not stop the others. The returned error is non-nil only when ctx
// is cancelled.
func (a *Advisor) AdviseBatch(ctx context.Context, inputs []Input) ([]Result, error) {
	results := make([]Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)

	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if in.Err != nil {
				metrics.RecordSnapshotError(ErrorKind(in.Err))
				results[i] = Result{Source: in.Source, Err: in.Err}
				return nil
			}
			res, err := a.Advise(gctx, in.Snapshot, in.Source)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				res = Result{Source: in.Source, Err: err}
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("advise batch: %w", err)
	}
	return results, nil
}

// ErrorKind classifies an evaluation error for metrics and HTTP mapping.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, sensors.ErrMissingSection):
		return "missing_section"
	case errors.Is(err, sensors.ErrMalformedValue):
		return "malformed_value"
	case errors.Is(err, sensors.ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
