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
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/collisionguard/pkg/logging"
)

var (
	entryPrefix = []byte("e/")
	indexPrefix = []byte("i/")
	sequenceKey = []byte("meta/seq")
)

// Options configures a Journal.
type Options struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every append.
	SyncWrites bool

	// GCInterval is how often value log GC runs. Zero disables it.
	// Ignored in memory.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage ratio that triggers a rewrite.
	// Default: 0.5.
	GCDiscardRatio float64

	// Logger receives Badger's own log output and GC events. Nil discards.
	Logger *logging.Logger
}

// InMemoryOptions returns options for an ephemeral journal.
func InMemoryOptions() Options {
	return Options{InMemory: true}
}

// Journal is an append-only decision log.
//
// # Thread Safety
//
// Safe for concurrent use.
type Journal struct {
	db     *badger.DB
	seq    *badger.Sequence
	gc     *gcRunner
	logger *logging.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Open opens or creates a journal.
//
// # Inputs
//
//   - opts: Journal options. Path is created with 0750 if missing.
//
// # Outputs
//
//   - *Journal: The journal. Call Close when done.
//   - error: Non-nil if the path is missing or Badger cannot open it.
func Open(opts Options) (*Journal, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("path is required for a persistent journal")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("component", "journal")

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0750); err != nil {
			return nil, fmt.Errorf("create journal directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	seq, err := db.GetSequence(sequenceKey, 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("acquire journal sequence: %w", err)
	}

	j := &Journal{db: db, seq: seq, logger: logger}

	if opts.GCInterval > 0 && !opts.InMemory {
		ratio := opts.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		j.gc = newGCRunner(db, opts.GCInterval, ratio, logger)
		j.gc.start()
	}

	return j, nil
}

// Append records an entry. RecordedAt is set to now when zero.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ID == "" {
		return errors.New("entry id must not be empty")
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}

	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}

	n, err := j.seq.Next()
	if err != nil {
		return fmt.Errorf("next journal sequence: %w", err)
	}
	key := entryKey(n)

	err = j.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(indexKey(e.ID), key)
	})
	if err != nil {
		return fmt.Errorf("append journal entry %s: %w", e.ID, err)
	}
	return nil
}

// Get returns the entry recorded for a decision ID.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return Entry{}, ErrClosed
	}

	var entry Entry
	err := j.db.View(func(txn *badger.Txn) error {
		idx, err := txn.Get(indexKey(id))
		if err != nil {
			return err
		}
		key, err := idx.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get journal entry %s: %w", id, err)
	}
	return entry, nil
}

// List returns recorded entries, newest first unless opts.Oldest is set.
func (j *Journal) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	entries := make([]Entry, 0, min(limit, DefaultListLimit))
	err := j.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = entryPrefix
		iopts.Reverse = !opts.Oldest
		it := txn.NewIterator(iopts)
		defer it.Close()

		seek := entryPrefix
		if iopts.Reverse {
			seek = append(append([]byte{}, entryPrefix...), 0xFF)
		}
		for it.Seek(seek); it.ValidForPrefix(entryPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			if opts.Action != "" && e.Recommendation.Action != opts.Action {
				continue
			}
			entries = append(entries, e)
			if len(entries) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return entries, nil
}

// Count returns the number of recorded entries.
func (j *Journal) Count(ctx context.Context) (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrClosed
	}

	count := 0
	err := j.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = entryPrefix
		iopts.PrefetchValues = false
		it := txn.NewIterator(iopts)
		defer it.Close()
		for it.Seek(entryPrefix); it.ValidForPrefix(entryPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// Close stops GC, releases the sequence and closes the database.
// Safe to call more than once.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		j.mu.Lock()
		j.closed = true
		j.mu.Unlock()

		if j.gc != nil {
			j.gc.stop()
		}
		if releaseErr := j.seq.Release(); releaseErr != nil {
			err = fmt.Errorf("release journal sequence: %w", releaseErr)
		}
		if closeErr := j.db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close journal database: %w", closeErr)
		}
	})
	return err
}

func entryKey(n uint64) []byte {
	key := make([]byte, len(entryPrefix)+8)
	copy(key, entryPrefix)
	binary.BigEndian.PutUint64(key[len(entryPrefix):], n)
	return key
}

func indexKey(id string) []byte {
	return append(append([]byte{}, indexPrefix...), id...)
}
