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
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/collisionguard/internal/journal"
	"github.com/AleutianAI/collisionguard/internal/policy"
	"github.com/AleutianAI/collisionguard/internal/risk"
	"github.com/AleutianAI/collisionguard/pkg/logging"
	"github.com/AleutianAI/collisionguard/pkg/sensors"
)

type failingRecorder struct{}

func (failingRecorder) Append(context.Context, journal.Entry) error {
	return errors.New("disk full")
}

func sampleFrame(t *testing.T) *sensors.Snapshot {
	t.Helper()
	snap, err := sensors.DecodeFile("testdata/frame_1205.json")
	require.NoError(t, err)
	return snap
}

func speeding(speed float64) *sensors.Snapshot {
	snap := sensors.NewSnapshot()
	snap.Sensors.Vehicle.SpeedKmh = speed
	return snap
}

// TestAdvise_SampleFrame tests a full evaluation with journal recording.
func TestAdvise_SampleFrame(t *testing.T) {
	j, err := journal.Open(journal.InMemoryOptions())
	require.NoError(t, err)
	defer j.Close()

	a := New(Options{Recorder: j})
	res, err := a.Advise(context.Background(), sampleFrame(t), "frame_1205.json")
	require.NoError(t, err)

	_, err = uuid.Parse(res.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1205), res.Frame)
	assert.Equal(t, policy.ActionBrake, res.Action)
	assert.Equal(t, policy.RuleExternalBrake, res.Rule)
	assert.InDelta(t, 0.2, res.Brake, 1e-12)
	assert.Equal(t, risk.LevelMedium, res.Assessment.Level)

	entry, err := j.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Recommendation, entry.Recommendation)
	assert.Equal(t, "frame_1205.json", entry.Source)
	assert.Equal(t, risk.LevelMedium, entry.Level)
}

// TestAdvise_ContractError tests rejected snapshots are logged and not recorded.
func TestAdvise_ContractError(t *testing.T) {
	exporter := logging.NewBufferedExporter()
	logger := logging.New(logging.Config{Quiet: true, Exporter: exporter})
	j, err := journal.Open(journal.InMemoryOptions())
	require.NoError(t, err)
	defer j.Close()

	snap := sensors.NewSnapshot()
	snap.Sensors.IMU = nil

	a := New(Options{Recorder: j, Logger: logger})
	_, err = a.Advise(context.Background(), snap, "bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sensors.ErrMissingSection))

	count, err := j.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Contains(t, exporter.Messages(), "snapshot rejected")
}

// TestAdvise_RecorderFailure verifies a journal failure does not fail the decision.
func TestAdvise_RecorderFailure(t *testing.T) {
	exporter := logging.NewBufferedExporter()
	a := New(Options{
		Recorder: failingRecorder{},
		Logger:   logging.New(logging.Config{Quiet: true, Exporter: exporter}),
	})

	res, err := a.Advise(context.Background(), speeding(50), "")
	require.NoError(t, err)
	assert.Equal(t, policy.ActionMaintain, res.Action)
	assert.Contains(t, exporter.Messages(), "journal append failed")
}

// TestAdvise_Cancelled tests the context check.
func TestAdvise_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Advise(ctx, speeding(50), "")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestAdvise_Span verifies the span carries the decision.
func TestAdvise_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	res, err := New(Options{}).Advise(context.Background(), sampleFrame(t), "span")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "advisor.Advise", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, res.ID, attrs["decision.id"])
	assert.Equal(t, "Brake", attrs["action"])
}

// TestSetThresholds tests swapping and rejection.
func TestSetThresholds(t *testing.T) {
	a := New(Options{})
	assert.Equal(t, risk.DefaultThresholds(), a.Thresholds())

	th := risk.DefaultThresholds()
	th.SpeedLimitHigh = 40
	require.NoError(t, a.SetThresholds(th))
	assert.Equal(t, 40.0, a.Thresholds().SpeedLimitHigh)

	res, err := a.Advise(context.Background(), speeding(50), "")
	require.NoError(t, err)
	assert.True(t, res.Activated)

	bad := th
	bad.CriticalDistance = -1
	assert.Error(t, a.SetThresholds(bad))
	assert.Equal(t, 40.0, a.Thresholds().SpeedLimitHigh)
}

// TestSetThresholds_Concurrent exercises swaps during evaluation.
func TestSetThresholds_Concurrent(t *testing.T) {
	a := New(Options{})
	snap := sampleFrame(t)
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			th := risk.DefaultThresholds()
			th.CriticalDistance = float64(5 + n)
			for k := 0; k < 50; k++ {
				_ = a.SetThresholds(th)
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				_, err := a.Advise(context.Background(), snap, "")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

// TestAdviseBatch tests ordering and per-item errors.
func TestAdviseBatch(t *testing.T) {
	missing := sensors.NewSnapshot()
	missing.Sensors.Collision = nil

	inputs := []Input{
		{Snapshot: sampleFrame(t), Source: "a"},
		{Err: fmt.Errorf("decode b: %w", sensors.ErrInvalidDocument), Source: "b"},
		{Snapshot: missing, Source: "c"},
		{Snapshot: speeding(20), Source: "d"},
	}
	for i := 0; i < 20; i++ {
		inputs = append(inputs, Input{Snapshot: speeding(float64(i * 5)), Source: fmt.Sprintf("s%d", i)})
	}

	a := New(Options{Parallelism: 3})
	results, err := a.AdviseBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, len(inputs))

	for i, res := range results {
		assert.Equal(t, inputs[i].Source, res.Source)
	}
	assert.Equal(t, policy.ActionBrake, results[0].Action)
	assert.ErrorIs(t, results[1].Err, sensors.ErrInvalidDocument)
	assert.ErrorIs(t, results[2].Err, sensors.ErrMissingSection)
	assert.NoError(t, results[3].Err)
	assert.Equal(t, policy.ActionMaintain, results[3].Action)
}

// TestAdviseBatch_Cancelled verifies cancellation is returned.
func TestAdviseBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).AdviseBatch(ctx, []Input{{Snapshot: speeding(10)}})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestErrorKind tests classification.
func TestErrorKind(t *testing.T) {
	assert.Equal(t, "missing_section", ErrorKind(&sensors.MissingSectionError{Path: "sensors.imu"}))
	assert.Equal(t, "malformed_value", ErrorKind(fmt.Errorf("x: %w", sensors.ErrMalformedValue)))
	assert.Equal(t, "invalid_document", ErrorKind(sensors.ErrInvalidDocument))
	assert.Equal(t, "cancelled", ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, "internal", ErrorKind(errors.New("other")))
}
