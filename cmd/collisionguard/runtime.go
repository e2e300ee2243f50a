// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/AleutianAI/collisionguard/internal/advisor"
	"github.com/AleutianAI/collisionguard/internal/config"
	"github.com/AleutianAI/collisionguard/internal/journal"
	"github.com/AleutianAI/collisionguard/pkg/logging"
)

// openJournal opens the configured journal. It returns nil when the
// journal is disabled.
func openJournal(c *config.Config, l *logging.Logger) (*journal.Journal, error) {
	if !c.Journal.Enabled {
		return nil, nil
	}
	return journal.Open(journal.Options{
		Path:       config.ExpandHome(c.Journal.Path),
		InMemory:   c.Journal.InMemory,
		SyncWrites: c.Journal.SyncWrites,
		GCInterval: c.Journal.GCInterval,
		Logger:     l,
	})
}

// newAdvisor builds an Advisor from c. j may be nil.
func newAdvisor(c *config.Config, j *journal.Journal, l *logging.Logger, parallel int) *advisor.Advisor {
	if parallel <= 0 {
		parallel = c.Advisor.Parallelism
	}
	opts := advisor.Options{
		Thresholds:  c.Thresholds,
		Logger:      l,
		Parallelism: parallel,
	}
	if j != nil {
		opts.Recorder = j
	}
	return advisor.New(opts)
}
