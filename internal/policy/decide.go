// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"fmt"
	"math"

	"github.com/AleutianAI/collisionguard/internal/risk"
	"github.com/AleutianAI/collisionguard/pkg/sensors"
)

// Decide returns the recommendation for a snapshot.
//
// # Inputs
//
//   - snap: The sensor snapshot. Required containers must be present.
//   - th: Thresholds. The zero value selects DefaultThresholds.
//
// # Outputs
//
//   - Recommendation: The advisory output.
//   - error: A MissingSectionError or MalformedValueError when the snapshot
//     violates the input contract. No recommendation is produced then.
func Decide(snap *sensors.Snapshot, th risk.Thresholds) (Recommendation, error) {
	d, err := Evaluate(snap, th)
	if err != nil {
		return Recommendation{}, err
	}
	return d.Recommendation, nil
}

// Evaluate is Decide plus the matched rule and the risk breakdown.
func Evaluate(snap *sensors.Snapshot, th risk.Thresholds) (Decision, error) {
	th = th.OrDefault()

	assessment, err := risk.Assess(snap, th)
	if err != nil {
		return Decision{}, err
	}

	host := snap.Host()
	control := host.CurrentControl()
	speed := host.Speed()
	avgCollision := snap.Collisions().AverageIntensity()
	laneInvaded := snap.Lanes().Detected()
	yawRate := math.Abs(snap.Inertial().YawRate())
	threat := assessment.Threat

	internalRisk := laneInvaded || yawRate > th.YawRateThreshold

	d := Decision{
		Recommendation: Recommendation{
			Throttle:  control.Throttle,
			Steer:     control.Steer,
			RiskScore: assessment.Score,
		},
		Assessment: assessment,
	}

	d.Activated = avgCollision > th.CollisionIntensityThreshold ||
		internalRisk ||
		threat.ExternalRisk ||
		speed > th.SpeedLimitHigh

	rec := &d.Recommendation
	switch {
	case !d.Activated:
		d.Rule = RuleNoRisk
		rec.Action = ActionMaintain
		rec.Notes = "No significant risk detected."

	case threat.ExternalRisk && speed > th.SpeedMinForAcceleration:
		d.Rule = RuleExternalBrake
		rec.Action = ActionBrake
		rec.Brake = math.Min(1, (th.CriticalDistance-threat.MinDistance)/th.CriticalDistance)
		rec.Notes = fmt.Sprintf("External object detected at %.1fm. Braking with intensity %.2f.",
			threat.MinDistance, rec.Brake)

	case threat.ExternalRisk:
		d.Rule = RuleExternalSteer
		adjust := clamp(threat.SteerCorrection, th.ExternalSteerLimit)
		rec.Action = ActionSteer
		rec.Steer += adjust / 100
		rec.Notes = fmt.Sprintf("Low speed but external risk detected. Changing steering by %.1f°.", adjust)

	case internalRisk:
		d.Rule = RuleInternalSteer
		adjust := threat.SteerCorrection
		if adjust == 0 {
			adjust = th.FallbackSteer
		}
		adjust = clamp(adjust, th.InternalSteerLimit)
		rec.Action = ActionSteer
		rec.Steer += adjust / 100
		rec.Notes = fmt.Sprintf("Internal risk (lane invasion/yaw) detected. Adjust steering by %.1f°.", adjust)
		if speed > th.SpeedLimitHigh {
			d.Rule = RuleInternalBrake
			rec.Action = ActionBrakeAndSteer
			rec.Brake = th.EscalationBrake
			rec.Notes += fmt.Sprintf(" Also braking with intensity %.2f.", rec.Brake)
		}

	case speed < th.SpeedMinForAcceleration:
		d.Rule = RuleLowSpeed
		rec.Action = ActionAccelerate
		rec.Throttle = math.Min(1, control.Throttle+th.ThrottleStep)
		rec.Notes = "Speed below minimum threshold, accelerating."

	default:
		d.Rule = RuleBorderline
		rec.Action = ActionMaintain
		rec.Notes = "Maintaining current state as conditions are borderline."
	}

	return d, nil
}

// clamp limits v to [-limit, limit].
func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
