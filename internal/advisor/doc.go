// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package advisor runs the decision policy as a service.
//
// # Description
//
// The pure policy in package policy knows nothing about identity, time,
// telemetry or persistence. Advisor adds them around each evaluation:
//
//	snapshot ─▶ span ─▶ policy.Evaluate(thresholds) ─▶ metrics ─▶ journal
//	                                                         │
//	                                                         ▼
//	                                            Result{ID, Decision}
//
// Thresholds live behind an atomic pointer and can be swapped while
// evaluations are running, e.g. from a config file watcher. Each
// evaluation reads the thresholds once, so a single Result is always
// computed against one consistent set.
//
// # Thread Safety
//
// Advisor is safe for concurrent use.
package advisor
