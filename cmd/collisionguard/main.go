// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command collisionguard recommends control actions from sensor frames.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/collisionguard/internal/config"
	"github.com/AleutianAI/collisionguard/internal/risk"
	"github.com/AleutianAI/collisionguard/pkg/logging"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

var (
	configPath string
	logLevel   string
	logJSON    bool
)

// Loaded by PersistentPreRunE.
var (
	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "collisionguard",
	Short: "Collision-avoidance advisor for single sensor frames",
	Long: `collisionguard turns one frame of vehicle sensor data into a control
recommendation (throttle, steer, brake) and a risk score.

Each frame is evaluated on its own. Nothing is remembered between frames.

Configuration is read from ~/.collisionguard/config.yaml unless --config
is given. The file is created with defaults on first use.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadRuntime,
	Version:           Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default ~/.collisionguard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override the log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"Emit logs as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(risk.ExitError)
	}
	exit(risk.ExitSuccess)
}

// loadRuntime reads the config file and builds the process logger.
func loadRuntime(cmd *cobra.Command, _ []string) error {
	c, created, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyLogFlags(c, logLevel, logJSON); err != nil {
		return err
	}

	cfg = c
	logger = logging.New(c.LoggerConfig())
	if created {
		logger.Info("wrote default configuration", "path", resolvedConfigPath())
	}
	logger.Debug("configuration loaded", "command", cmd.CommandPath())
	return nil
}

// applyLogFlags lets command-line flags override the logging section.
func applyLogFlags(c *config.Config, level string, asJSON bool) error {
	if level != "" {
		l, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}
		c.Logging.Level = l
	}
	if asJSON {
		c.Logging.JSON = true
	}
	return nil
}

func resolvedConfigPath() string {
	if configPath != "" {
		return config.ExpandHome(configPath)
	}
	p, err := config.DefaultPath()
	if err != nil {
		return ""
	}
	return p
}

// exit closes the logger and terminates with code.
func exit(code int) {
	if logger != nil {
		logger.Close()
	}
	os.Exit(code)
}
