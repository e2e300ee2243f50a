// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Mode selects between styled and plain output.
type Mode string

const (
	// ModeStyled enables colors, icons and boxes.
	ModeStyled Mode = "styled"

	// ModePlain outputs text suitable for scripting and diffing.
	ModePlain Mode = "plain"
)

// EnvOutput overrides mode detection when set to "styled" or "plain".
const EnvOutput = "COLLISIONGUARD_OUTPUT"

// ParseMode converts a string to Mode. Unknown input maps to ModePlain.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "styled", "full", "color":
		return ModeStyled
	default:
		return ModePlain
	}
}

// DetectMode picks the output mode for f.
//
// EnvOutput wins when set. Otherwise output is styled only when f is a
// terminal and NO_COLOR is unset.
func DetectMode(f *os.File) Mode {
	if env := os.Getenv(EnvOutput); env != "" {
		return ParseMode(env)
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModePlain
	}
	if f == nil {
		return ModePlain
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return ModeStyled
	}
	return ModePlain
}
