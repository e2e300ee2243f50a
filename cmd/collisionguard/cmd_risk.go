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
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/collisionguard/internal/advisor"
	"github.com/AleutianAI/collisionguard/internal/config"
	"github.com/AleutianAI/collisionguard/internal/metrics"
	"github.com/AleutianAI/collisionguard/internal/risk"
	"github.com/AleutianAI/collisionguard/pkg/ux"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	riskJSON      bool
	riskThreshold string
	riskFormat    string
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var riskCmd = &cobra.Command{
	Use:   "risk [file]",
	Short: "Show the risk breakdown of one sensor frame",
	Long: `Score one frame without producing a recommendation.

The aggregate score is the mean of five sub-risks, each in [0,1]:
  - External proximity: nearest reported vehicle against the critical distance
  - Collision intensity: mean of the collision sensor readings
  - Speed excess: speed above the high limit
  - Lane invasion: lane marking crossed
  - Yaw rate: angular velocity around the vertical axis

Examples:
  collisionguard risk frame_1205.json
  collisionguard risk --json frame.yaml
  cat frame.json | collisionguard risk --threshold low

Exit Codes:
  0 = Level at or below threshold
  1 = Level above threshold
  2 = Error (unreadable or invalid frame)`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRiskCommand,
}

func init() {
	riskCmd.Flags().BoolVar(&riskJSON, "json", false,
		"Output as JSON")
	riskCmd.Flags().StringVar(&riskThreshold, "threshold", "high",
		"Exit 0 if at/below: low, medium, high, critical")
	riskCmd.Flags().StringVar(&riskFormat, "format", "",
		"Force the frame format: json or yaml")

	rootCmd.AddCommand(riskCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runRiskCommand(cmd *cobra.Command, args []string) {
	code := runRisk(cfg, args, os.Stdin, os.Stdout, riskFormat, riskJSON, risk.ParseLevel(riskThreshold), ux.DetectMode(os.Stdout))
	exit(code)
}

func runRisk(c *config.Config, args []string, stdin io.Reader, stdout io.Writer, format string, asJSON bool, threshold risk.Level, mode ux.Mode) int {
	printer := ux.NewPrinter(stdout, mode)

	inputs, err := collectInputs(args, stdin, format)
	if err != nil {
		printer.Failure("input", err)
		return risk.ExitError
	}
	in := inputs[0]
	if in.Err != nil {
		metrics.RecordSnapshotError(advisor.ErrorKind(in.Err))
		printer.Failure(in.Source, in.Err)
		return risk.ExitError
	}

	a, err := risk.Assess(in.Snapshot, c.Thresholds)
	if err != nil {
		printer.Failure(in.Source, err)
		return risk.ExitError
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a); err != nil {
			return risk.ExitError
		}
	} else {
		printer.Assessment(a)
	}

	if a.Level.Exceeds(threshold) {
		return risk.ExitRiskFound
	}
	return risk.ExitSuccess
}
