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

// Score returns the aggregate risk score in [0,1] for a snapshot.
//
// # Outputs
//
//   - float64: Mean of the five clamped sub-risks.
//   - error: Non-nil when the snapshot violates the input contract.
func Score(snap *sensors.Snapshot, th Thresholds) (float64, error) {
	a, err := Assess(snap, th)
	if err != nil {
		return 0, err
	}
	return a.Score, nil
}

// Assess scores a snapshot and returns the per-signal breakdown.
//
// # Inputs
//
//   - snap: The frame to score. Required containers must be present.
//   - th: Tuning parameters. The zero value means DefaultThresholds.
//
// # Outputs
//
//   - Assessment: Score, level, sub-scores and the threat scan.
//   - error: *sensors.MissingSectionError or *sensors.MalformedValueError.
func Assess(snap *sensors.Snapshot, th Thresholds) (Assessment, error) {
	if err := snap.Validate(); err != nil {
		return Assessment{}, err
	}
	th = th.OrDefault()

	host := snap.Host()
	threat := NearestExternalThreat(host.Position(), snap.Nearby(), th.CriticalDistance, th.AngleThreshold)

	subs := SubScores{
		ExternalProximity:  proximityRisk(threat.MinDistance, th),
		CollisionIntensity: collisionRisk(snap.Collisions().AverageIntensity(), th),
		SpeedExcess:        speedRisk(host.Speed(), th),
		LaneInvasion:       laneRisk(snap.Lanes().Detected(), th),
		YawRate:            yawRisk(snap.Inertial().YawRate(), th),
	}

	score := clamp01(subs.Mean())
	return Assessment{
		AlgorithmVersion: AlgorithmVersion,
		Score:            score,
		Level:            LevelFor(score),
		SubScores:        subs,
		Threat:           threat,
	}, nil
}

// proximityRisk grows linearly as the nearest object closes inside the
// critical distance. Bearing is not considered.
func proximityRisk(minDistance float64, th Thresholds) float64 {
	if !(minDistance < th.CriticalDistance) {
		return 0
	}
	return clamp01((th.CriticalDistance - minDistance) / th.CriticalDistance)
}

func collisionRisk(avgIntensity float64, th Thresholds) float64 {
	return clamp01(avgIntensity / th.CollisionSaturation)
}

// speedRisk is zero up to the high limit and saturates SpeedExcessSpan above it.
func speedRisk(speed float64, th Thresholds) float64 {
	if speed <= th.SpeedLimitHigh {
		return 0
	}
	return clamp01((speed - th.SpeedLimitHigh) / th.SpeedExcessSpan)
}

// laneRisk is binary and capped below 1 so lane drift alone cannot
// saturate the aggregate.
func laneRisk(detected bool, th Thresholds) float64 {
	if !detected {
		return 0
	}
	return clamp01(th.LaneInvasionRisk)
}

func yawRisk(yawRate float64, th Thresholds) float64 {
	return clamp01(math.Abs(yawRate) / th.YawRateSaturation)
}

// clamp01 bounds v to [0,1]. NaN maps to 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
