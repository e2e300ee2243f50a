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
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// snapshotValidate checks required containers and value ranges.
// Field names are reported by their json tag so paths match the wire layout.
var snapshotValidate *validator.Validate

func init() {
	snapshotValidate = validator.New(validator.WithRequiredStructEnabled())
	snapshotValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks that the snapshot honors the input contract.
//
// # Outputs
//
//   - error: *MissingSectionError for the first absent required container,
//     *MalformedValueError for the first out-of-range value, nil otherwise.
func (s *Snapshot) Validate() error {
	if s == nil {
		return &MissingSectionError{Path: "sensors"}
	}

	err := snapshotValidate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &MalformedValueError{Reason: err.Error(), Wrapped: err}
	}

	// Missing containers take precedence over range errors.
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return &MissingSectionError{Path: fieldPath(fe)}
		}
	}
	fe := fieldErrs[0]
	return &MalformedValueError{
		Path:    fieldPath(fe),
		Reason:  fmt.Sprintf("failed %q constraint (value %v)", constraint(fe), fe.Value()),
		Wrapped: err,
	}
}

// fieldPath strips the root type name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
