// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy turns a sensor snapshot into a single driving recommendation.
//
// # Description
//
// Decide applies an ordered cascade of rules. The first rule that matches
// produces the recommendation:
//
//	activation gate ──no──▶ Maintain ("No significant risk detected.")
//	      │yes
//	external threat ──▶ speed > min accel ? Brake : Steer (±15°)
//	internal risk   ──▶ Steer (±10°), plus brake 0.3 above the speed limit
//	low speed       ──▶ Accelerate (+0.1 throttle)
//	otherwise       ──▶ Maintain (borderline)
//
// Every recommendation carries the aggregate risk score of the same
// snapshot, computed by package risk with the same thresholds.
//
// # Thread Safety
//
// Decide is a pure function and is safe for concurrent use.
package policy
