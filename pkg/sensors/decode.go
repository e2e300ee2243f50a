// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sensors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxFrameBytes bounds the size of a single encoded frame.
const MaxFrameBytes = 8 << 20

// Format is the encoding of a serialized frame.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Anything that is
// not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat parses a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown snapshot format %q", s)
	}
}

// DecodeFile reads and decodes a frame from disk.
func DecodeFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	snap, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

// Decode reads one frame from r and validates it.
//
// # Outputs
//
//   - *Snapshot: The decoded frame.
//   - error: ErrInvalidDocument for unparseable input, *MalformedValueError
//     for type mismatches, *MissingSectionError for absent containers.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFrameBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) > MaxFrameBytes {
		return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrInvalidDocument, MaxFrameBytes)
	}
	return DecodeBytes(data, format)
}

// DecodeBytes decodes one frame held in memory and validates it.
func DecodeBytes(data []byte, format Format) (*Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	var snap Snapshot
	var err error
	switch format {
	case FormatYAML:
		err = decodeYAML(data, &snap)
	case FormatJSON, "":
		err = decodeJSON(data, &snap)
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
	if err != nil {
		return nil, err
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func decodeJSON(data []byte, snap *Snapshot) error {
	err := json.Unmarshal(data, snap)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &MalformedValueError{
			Path:    typeErr.Field,
			Reason:  fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			Wrapped: err,
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
}

func decodeYAML(data []byte, snap *Snapshot) error {
	err := yaml.Unmarshal(data, snap)
	if err == nil {
		return nil
	}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return &MalformedValueError{
			Reason:  strings.Join(typeErr.Errors, "; "),
			Wrapped: err,
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
}
