// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package risk

import (
	"math"

	"github.com/AleutianAI/collisionguard/pkg/sensors"
)

// NearestExternalThreat scans nearby vehicles relative to the host.
//
// # Description
//
// Tracks the smallest sensor-reported distance (ties: first seen wins) and,
// independently, flags a threat for any vehicle with distance below
// criticalDistance and |bearing| below angleThreshold. When several vehicles
// qualify, the bearing of the last one in scan order is kept, not the
// closest one.
//
// # Inputs
//
//   - host: Host vehicle position.
//   - vehicles: Nearby vehicles in scan order. May be empty.
//   - criticalDistance: Range (m) for a threat.
//   - angleThreshold: Half-width (deg) of the forward cone.
//
// # Outputs
//
//   - Threat: MinDistance is +Inf and ExternalRisk false for an empty scan.
func NearestExternalThreat(host sensors.Vec3, vehicles []sensors.ExternalVehicle, criticalDistance, angleThreshold float64) Threat {
	threat := Threat{
		MinDistance:     math.Inf(1),
		NearestIndex:    -1,
		QualifyingIndex: -1,
	}

	for i, ext := range vehicles {
		distance := ext.ReportedDistance()
		angle := BearingDegrees(host, ext.Position())

		if distance < threat.MinDistance {
			threat.MinDistance = distance
			threat.NearestIndex = i
		}

		if distance < criticalDistance && math.Abs(angle) < angleThreshold {
			threat.ExternalRisk = true
			threat.QualifyingIndex = i
			threat.Bearing = angle
			threat.SteerCorrection = -angle
		}
	}

	return threat
}

// BearingDegrees returns the planar bearing from one point to another in
// degrees, normalized to (-180, 180]. The z axis is ignored.
func BearingDegrees(from, to sensors.Vec3) float64 {
	angle := math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi
	return normalizeDegrees(angle)
}

func normalizeDegrees(angle float64) float64 {
	for angle > 180 {
		angle -= 360
	}
	for angle <= -180 {
		angle += 360
	}
	return angle
}
