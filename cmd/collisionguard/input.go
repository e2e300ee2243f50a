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
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/AleutianAI/collisionguard/internal/advisor"
	"github.com/AleutianAI/collisionguard/pkg/sensors"
)

// stdinSource labels a frame read from standard input.
const stdinSource = "stdin"

// collectInputs decodes the frames named by args.
//
// # Description
//
// No args, or a single "-", reads one frame from stdin. A directory is
// expanded to the .json, .yaml and .yml files directly inside it, sorted
// by name. Decode failures are carried in Input.Err so one bad frame does
// not hide the others.
//
// # Inputs
//
//   - args: File or directory paths.
//   - stdin: Read when no paths are given.
//   - format: Forces a format. Empty picks it from each file's extension
//     and JSON for stdin.
//
// # Outputs
//
//   - []advisor.Input: One entry per frame, in argument order.
//   - error: Only for unreadable directories.
func collectInputs(args []string, stdin io.Reader, format string) ([]advisor.Input, error) {
	var forced sensors.Format
	if format != "" {
		f, err := sensors.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		forced = f
	}

	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		f := forced
		if f == "" {
			f = sensors.FormatJSON
		}
		snap, err := sensors.Decode(stdin, f)
		return []advisor.Input{{Snapshot: snap, Source: stdinSource, Err: err}}, nil
	}

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := frameFiles(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}

	inputs := make([]advisor.Input, 0, len(paths))
	for _, p := range paths {
		snap, err := decodePath(p, forced)
		inputs = append(inputs, advisor.Input{Snapshot: snap, Source: p, Err: err})
	}
	return inputs, nil
}

func decodePath(path string, forced sensors.Format) (*sensors.Snapshot, error) {
	if forced == "" {
		return sensors.DecodeFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	snap, err := sensors.Decode(f, forced)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

func frameFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isFrameFile(e) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func isFrameFile(e fs.DirEntry) bool {
	switch filepath.Ext(e.Name()) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
