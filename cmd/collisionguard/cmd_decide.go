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
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/collisionguard/internal/advisor"
	"github.com/AleutianAI/collisionguard/internal/config"
	"github.com/AleutianAI/collisionguard/internal/journal"
	"github.com/AleutianAI/collisionguard/internal/policy"
	"github.com/AleutianAI/collisionguard/internal/risk"
	"github.com/AleutianAI/collisionguard/pkg/logging"
	"github.com/AleutianAI/collisionguard/pkg/ux"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	decideJSON      bool
	decideExplain   bool
	decideThreshold string
	decideParallel  int
	decideFormat    string
	decideNoJournal bool
	decideQuiet     bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var decideCmd = &cobra.Command{
	Use:   "decide [files...]",
	Short: "Recommend a control action for each sensor frame",
	Long: `Evaluate sensor frames and print one recommendation per frame.

Frames are JSON or YAML documents with vehicle, imu, lane_invasion and
collision sections. With no arguments a single frame is read from stdin.
A directory argument expands to the frame files inside it.

Examples:
  collisionguard decide frame_1205.json        # One frame
  collisionguard decide frames/                # Every frame in a directory
  cat frame.yaml | collisionguard decide --format yaml
  collisionguard decide --explain frame.json   # Show the risk breakdown
  collisionguard decide --threshold medium f/  # Fail if any frame is above medium
  collisionguard decide --json frames/         # JSON output for automation

Exit Codes:
  0 = Every frame at or below threshold
  1 = At least one frame above threshold
  2 = Error (unreadable or invalid frame)`,
	Run: runDecideCommand,
}

func init() {
	decideCmd.Flags().BoolVar(&decideJSON, "json", false,
		"Output as JSON")
	decideCmd.Flags().BoolVar(&decideExplain, "explain", false,
		"Show the risk breakdown and matched rule")
	decideCmd.Flags().StringVar(&decideThreshold, "threshold", "high",
		"Exit 0 if every frame is at/below: low, medium, high, critical")
	decideCmd.Flags().IntVar(&decideParallel, "parallel", 0,
		"Frames evaluated concurrently (default from config)")
	decideCmd.Flags().StringVar(&decideFormat, "format", "",
		"Force the frame format: json or yaml")
	decideCmd.Flags().BoolVar(&decideNoJournal, "no-journal", false,
		"Do not record decisions even if the journal is enabled")
	decideCmd.Flags().BoolVar(&decideQuiet, "quiet", false,
		"Only exit code, no output")

	rootCmd.AddCommand(decideCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// decideOptions carries the flags of one decide run.
type decideOptions struct {
	JSON      bool
	Explain   bool
	Threshold risk.Level
	Parallel  int
	Format    string
	NoJournal bool
	Quiet     bool
	Mode      ux.Mode
}

func runDecideCommand(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := decideOptions{
		JSON:      decideJSON,
		Explain:   decideExplain,
		Threshold: risk.ParseLevel(decideThreshold),
		Parallel:  decideParallel,
		Format:    decideFormat,
		NoJournal: decideNoJournal,
		Quiet:     decideQuiet,
		Mode:      ux.DetectMode(os.Stdout),
	}
	code := runDecide(ctx, cfg, logger, opts, args, os.Stdin, os.Stdout)
	stop()
	exit(code)
}

// runDecide evaluates the frames named by args and writes the result.
//
// # Outputs
//
//   - int: risk.ExitSuccess, risk.ExitRiskFound or risk.ExitError.
func runDecide(ctx context.Context, c *config.Config, l *logging.Logger, opts decideOptions, args []string, stdin io.Reader, stdout io.Writer) int {
	printer := ux.NewPrinter(stdout, opts.Mode)

	inputs, err := collectInputs(args, stdin, opts.Format)
	if err != nil {
		printer.Failure("input", err)
		return risk.ExitError
	}
	if len(inputs) == 0 {
		printer.Failure("input", fmt.Errorf("no frame files found"))
		return risk.ExitError
	}

	var jr *journal.Journal
	if !opts.NoJournal {
		jr, err = openJournal(c, l)
		if err != nil {
			printer.Failure("journal", err)
			return risk.ExitError
		}
		if jr != nil {
			defer jr.Close()
		}
	}
	adv := newAdvisor(c, jr, l, opts.Parallel)

	results, err := adv.AdviseBatch(ctx, inputs)
	if err != nil {
		printer.Failure("decide", err)
		return risk.ExitError
	}

	if !opts.Quiet {
		if opts.JSON {
			if err := writeDecisionsJSON(stdout, results, opts.Explain); err != nil {
				l.Error("write output", "error", err)
				return risk.ExitError
			}
		} else {
			writeDecisionsText(printer, results, opts.Explain, len(inputs) > 1)
		}
	}

	return decideExitCode(results, opts.Threshold)
}

// decideExitCode folds per-frame outcomes into one exit code. Any failed
// frame wins over a frame above threshold.
func decideExitCode(results []advisor.Result, threshold risk.Level) int {
	code := risk.ExitSuccess
	for _, r := range results {
		if r.Err != nil {
			return risk.ExitError
		}
		if r.Assessment.Level.Exceeds(threshold) {
			code = risk.ExitRiskFound
		}
	}
	return code
}

// decisionOutput is the JSON shape of one decide result.
type decisionOutput struct {
	Source string `json:"source,omitempty"`
	ID     string `json:"id,omitempty"`
	Frame  int64  `json:"frame,omitempty"`

	*policy.Recommendation

	Rule       policy.Rule      `json:"rule,omitempty"`
	Level      risk.Level       `json:"level,omitempty"`
	Assessment *risk.Assessment `json:"assessment,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func toOutput(r advisor.Result, explain bool) decisionOutput {
	out := decisionOutput{Source: r.Source}
	if r.Err != nil {
		out.Error = r.Err.Error()
		return out
	}
	rec := r.Recommendation
	out.ID = r.ID
	out.Frame = r.Frame
	out.Recommendation = &rec
	out.Rule = r.Rule
	out.Level = r.Assessment.Level
	if explain {
		a := r.Assessment
		out.Assessment = &a
	}
	return out
}

// writeDecisionsJSON writes one object for a single frame and an array
// otherwise.
func writeDecisionsJSON(w io.Writer, results []advisor.Result, explain bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(toOutput(results[0], explain))
	}
	out := make([]decisionOutput, 0, len(results))
	for _, r := range results {
		out = append(out, toOutput(r, explain))
	}
	return enc.Encode(out)
}

func writeDecisionsText(p *ux.Printer, results []advisor.Result, explain, labelled bool) {
	for _, r := range results {
		label := ""
		if labelled {
			label = r.Source
		}
		if r.Err != nil {
			p.Failure(r.Source, r.Err)
			continue
		}
		p.Recommendation(label, r.Recommendation, r.Assessment.Level)
		if explain {
			p.Muted(fmt.Sprintf("  rule=%s activated=%t frame=%d id=%s", r.Rule, r.Activated, r.Frame, r.ID))
			p.Assessment(r.Assessment)
		}
	}
}
