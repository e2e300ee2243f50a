// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/collisionguard/internal/policy"
	"github.com/AleutianAI/collisionguard/internal/risk"
)

func openInMemory(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(InMemoryOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func entry(id string, frame int64, action policy.Action) Entry {
	return Entry{
		ID:    id,
		Frame: frame,
		Recommendation: policy.Recommendation{
			Action:    action,
			Throttle:  0.5,
			Notes:     "test",
			RiskScore: 0.34,
		},
		Rule:  policy.RuleExternalBrake,
		Level: risk.LevelMedium,
	}
}

// TestOpen_RequiresPath verifies persistent mode needs a directory.
func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

// TestAppendGet tests a round trip through the ID index.
func TestAppendGet(t *testing.T) {
	j := openInMemory(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, entry("d-1", 1205, policy.ActionBrake)))

	got, err := j.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, "d-1", got.ID)
	assert.Equal(t, int64(1205), got.Frame)
	assert.Equal(t, policy.ActionBrake, got.Recommendation.Action)
	assert.Equal(t, risk.LevelMedium, got.Level)
	assert.False(t, got.RecordedAt.IsZero())

	_, err = j.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// TestAppend_Validation tests rejected appends.
func TestAppend_Validation(t *testing.T) {
	j := openInMemory(t)

	assert.Error(t, j.Append(context.Background(), Entry{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, j.Append(ctx, entry("x", 1, policy.ActionSteer)), context.Canceled)
}

// TestList_Order tests newest-first default and oldest-first option.
func TestList_Order(t *testing.T) {
	j := openInMemory(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, j.Append(ctx, entry(fmt.Sprintf("d-%d", i), int64(i), policy.ActionMaintain)))
	}

	newest, err := j.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, newest, 5)
	assert.Equal(t, "d-5", newest[0].ID)
	assert.Equal(t, "d-1", newest[4].ID)

	oldest, err := j.List(ctx, ListOptions{Oldest: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, oldest, 2)
	assert.Equal(t, "d-1", oldest[0].ID)
	assert.Equal(t, "d-2", oldest[1].ID)

	count, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

// TestList_ActionFilter tests filtering by action.
func TestList_ActionFilter(t *testing.T) {
	j := openInMemory(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, entry("a", 1, policy.ActionBrake)))
	require.NoError(t, j.Append(ctx, entry("b", 2, policy.ActionSteer)))
	require.NoError(t, j.Append(ctx, entry("c", 3, policy.ActionBrake)))

	brakes, err := j.List(ctx, ListOptions{Action: policy.ActionBrake})
	require.NoError(t, err)
	require.Len(t, brakes, 2)
	assert.Equal(t, "c", brakes[0].ID)
	assert.Equal(t, "a", brakes[1].ID)
}

// TestList_Empty tests an empty journal.
func TestList_Empty(t *testing.T) {
	j := openInMemory(t)
	entries, err := j.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestConcurrentAppend verifies appends from many goroutines are all kept.
func TestConcurrentAppend(t *testing.T) {
	j := openInMemory(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, j.Append(ctx, entry(fmt.Sprintf("c-%d", n), int64(n), policy.ActionMaintain)))
		}(i)
	}
	wg.Wait()

	count, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

// TestPersistentReopen verifies entries and ordering survive a reopen.
func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	j, err := Open(Options{Path: dir, SyncWrites: true, GCInterval: time.Hour})
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, entry("first", 1, policy.ActionBrake)))
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	j, err = Open(Options{Path: dir})
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.Append(ctx, entry("second", 2, policy.ActionSteer)))

	entries, err := j.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].ID)
	assert.Equal(t, "first", entries[1].ID)
}

// TestClosed verifies operations fail after Close.
func TestClosed(t *testing.T) {
	j, err := Open(InMemoryOptions())
	require.NoError(t, err)
	require.NoError(t, j.Close())

	ctx := context.Background()
	assert.ErrorIs(t, j.Append(ctx, entry("x", 1, policy.ActionBrake)), ErrClosed)
	_, err = j.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = j.List(ctx, ListOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}
