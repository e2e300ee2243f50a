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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/collisionguard/internal/journal"
	"github.com/AleutianAI/collisionguard/internal/policy"
	"github.com/AleutianAI/collisionguard/pkg/ux"
)

var (
	journalLimit  int
	journalOldest bool
	journalAction string
	journalJSON   bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect recorded decisions",
	Long: `Read the decision journal.

The journal must be enabled in the config file (journal.enabled: true).
It is an audit trail only; recorded decisions never feed back into new
ones.`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded decisions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournalForRead()
		if err != nil {
			return err
		}
		defer j.Close()
		return runJournalList(cmd.Context(), j, cmd.OutOrStdout(), journal.ListOptions{
			Limit:  journalLimit,
			Oldest: journalOldest,
			Action: policy.Action(journalAction),
		}, journalJSON, ux.DetectMode(os.Stdout))
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one recorded decision as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournalForRead()
		if err != nil {
			return err
		}
		defer j.Close()
		return runJournalShow(cmd.Context(), j, cmd.OutOrStdout(), args[0])
	},
}

func init() {
	journalListCmd.Flags().IntVar(&journalLimit, "limit", journal.DefaultListLimit,
		"Maximum number of entries")
	journalListCmd.Flags().BoolVar(&journalOldest, "oldest", false,
		"Oldest first")
	journalListCmd.Flags().StringVar(&journalAction, "action", "",
		`Only entries with this action, e.g. "Brake"`)
	journalListCmd.Flags().BoolVar(&journalJSON, "json", false,
		"Output as JSON")

	journalCmd.AddCommand(journalListCmd, journalShowCmd)
	rootCmd.AddCommand(journalCmd)
}

var errJournalDisabled = errors.New("journal is disabled; set journal.enabled in the config file")

func openJournalForRead() (*journal.Journal, error) {
	j, err := openJournal(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if j == nil {
		return nil, errJournalDisabled
	}
	return j, nil
}

func runJournalList(ctx context.Context, j *journal.Journal, w io.Writer, opts journal.ListOptions, asJSON bool, mode ux.Mode) error {
	entries, err := j.List(ctx, opts)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	p := ux.NewPrinter(w, mode)
	if len(entries) == 0 {
		p.Muted("No recorded decisions.")
		return nil
	}
	for _, e := range entries {
		label := fmt.Sprintf("%s %s frame=%d", e.RecordedAt.Local().Format(time.DateTime), e.ID, e.Frame)
		p.Recommendation(label, e.Recommendation, e.Level)
	}
	return nil
}

func runJournalShow(ctx context.Context, j *journal.Journal, w io.Writer, id string) error {
	e, err := j.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
