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
	"errors"
	"fmt"
)

// Sentinel errors. Match with errors.Is.
var (
	// ErrMissingSection is returned when a required sensor container is absent.
	ErrMissingSection = errors.New("missing required section")

	// ErrMalformedValue is returned when a present field has the wrong shape.
	ErrMalformedValue = errors.New("malformed value")

	// ErrInvalidDocument is returned when a frame cannot be parsed at all.
	ErrInvalidDocument = errors.New("invalid snapshot document")
)

// MissingSectionError identifies the required container that was absent.
//
// # Example
//
//	var missing *sensors.MissingSectionError
//	if errors.As(err, &missing) {
//	    fmt.Println(missing.Path) // "sensors.imu"
//	}
type MissingSectionError struct {
	// Path is the dotted path of the absent container.
	Path string
}

// Error returns a formatted error message.
func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("missing required section %q", e.Path)
}

// Is matches ErrMissingSection.
func (e *MissingSectionError) Is(target error) bool {
	return target == ErrMissingSection
}

// MalformedValueError identifies a present field whose value has the wrong
// shape. Values are never coerced.
type MalformedValueError struct {
	// Path is the dotted path of the offending field. Empty when the
	// decoder could not attribute the error to a field.
	Path string

	// Reason describes what was wrong.
	Reason string

	// Wrapped is the underlying decoder or validator error, if any.
	Wrapped error
}

// Error returns a formatted error message.
func (e *MalformedValueError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed value: %s", e.Reason)
	}
	return fmt.Sprintf("malformed value at %q: %s", e.Path, e.Reason)
}

// Is matches ErrMalformedValue.
func (e *MalformedValueError) Is(target error) bool {
	return target == ErrMalformedValue
}

// Unwrap returns the wrapped error.
func (e *MalformedValueError) Unwrap() error {
	return e.Wrapped
}
