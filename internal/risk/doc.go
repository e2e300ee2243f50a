// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package risk scores a single sensor snapshot for collision risk.
//
// The risk model combines five independent signals, each normalized to
// [0,1] and weighted equally:
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                      Risk Scoring Pipeline                       │
//	├──────────────────────────────────────────────────────────────────┤
//	│                                                                  │
//	│  sensors.Snapshot                                                │
//	│         │                                                        │
//	│         ▼                                                        │
//	│  ┌──────────┬───────────┬─────────┬──────────┬──────────┐        │
//	│  │ External │ Collision │  Speed  │   Lane   │   Yaw    │        │
//	│  │ proximity│ intensity │ excess  │ invasion │   rate   │        │
//	│  │  (1/5)   │   (1/5)   │  (1/5)  │  (1/5)   │  (1/5)   │        │
//	│  └──────────┴───────────┴─────────┴──────────┴──────────┘        │
//	│         │                                                        │
//	│         ▼                                                        │
//	│   Score in [0,1]  ──►  Level (LOW/MEDIUM/HIGH/CRITICAL)          │
//	│                                                                  │
//	└──────────────────────────────────────────────────────────────────┘
//
// External proximity uses NearestExternalThreat, which is shared with the
// decision policy. Proximity trusts the sensor-reported distance while the
// bearing is recomputed from positions; the two are not cross-checked.
//
// # Thresholds
//
// Every tuning constant lives in Thresholds and is passed in explicitly.
// There is no package-level mutable state.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
//
// # Algorithm Versioning
//
// Increment AlgorithmVersion when changing anything that affects scores.
package risk
