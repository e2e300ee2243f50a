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
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AlgorithmVersion is the version of the risk scoring algorithm.
// Increment when making changes that affect risk calculations.
const AlgorithmVersion = "1.0"

// Exit codes for threshold gating in the CLI.
const (
	ExitSuccess   = 0 // Risk at or below threshold
	ExitRiskFound = 1 // Risk above threshold
	ExitError     = 2 // Error (unreadable frame, contract violation)
)

// Risk level thresholds on the aggregate score.
const (
	ThresholdCritical = 0.8
	ThresholdHigh     = 0.6
	ThresholdMedium   = 0.3
)

// signalCount is the number of equally weighted sub-risks.
const signalCount = 5

// Thresholds holds the domain-tuned policy parameters.
//
// The first six fields gate the decision policy; the rest shape the
// normalization curves and the control deltas. All of them are expected to
// be recalibrated per deployment, so none are literals in the code.
type Thresholds struct {
	// CriticalDistance is the range (m) under which an object is a threat.
	CriticalDistance float64 `json:"critical_distance" yaml:"critical_distance" validate:"gt=0"`

	// AngleThreshold is the half-width (deg) of the forward threat cone.
	AngleThreshold float64 `json:"angle_threshold" yaml:"angle_threshold" validate:"gt=0,lte=180"`

	// SpeedLimitHigh (km/h) activates the policy and starts speed risk.
	SpeedLimitHigh float64 `json:"speed_limit_high" yaml:"speed_limit_high" validate:"gt=0"`

	// SpeedMinForAcceleration (km/h) separates braking from steering on
	// external threats and triggers acceleration below it.
	SpeedMinForAcceleration float64 `json:"speed_min_for_acceleration" yaml:"speed_min_for_acceleration" validate:"gte=0"`

	// YawRateThreshold (rad/s) activates the policy.
	YawRateThreshold float64 `json:"yaw_rate_threshold" yaml:"yaw_rate_threshold" validate:"gte=0"`

	// CollisionIntensityThreshold activates the policy on mean intensity.
	CollisionIntensityThreshold float64 `json:"collision_intensity_threshold" yaml:"collision_intensity_threshold" validate:"gte=0"`

	// CollisionSaturation is the mean intensity at which collision risk is 1.
	CollisionSaturation float64 `json:"collision_saturation" yaml:"collision_saturation" validate:"gt=0"`

	// SpeedExcessSpan (km/h) above SpeedLimitHigh at which speed risk is 1.
	SpeedExcessSpan float64 `json:"speed_excess_span" yaml:"speed_excess_span" validate:"gt=0"`

	// YawRateSaturation (rad/s) at which yaw risk is 1.
	YawRateSaturation float64 `json:"yaw_rate_saturation" yaml:"yaw_rate_saturation" validate:"gt=0"`

	// LaneInvasionRisk is the fixed sub-risk for any crossed marking.
	LaneInvasionRisk float64 `json:"lane_invasion_risk" yaml:"lane_invasion_risk" validate:"gte=0,lte=1"`

	// ExternalSteerLimit (deg) clamps low-speed evasive steering.
	ExternalSteerLimit float64 `json:"external_steer_limit" yaml:"external_steer_limit" validate:"gt=0"`

	// InternalSteerLimit (deg) clamps lane/yaw corrections.
	InternalSteerLimit float64 `json:"internal_steer_limit" yaml:"internal_steer_limit" validate:"gt=0"`

	// FallbackSteer (deg) is used when no bearing correction is available.
	FallbackSteer float64 `json:"fallback_steer" yaml:"fallback_steer"`

	// EscalationBrake is the brake applied when steering at high speed.
	EscalationBrake float64 `json:"escalation_brake" yaml:"escalation_brake" validate:"gte=0,lte=1"`

	// ThrottleStep is added to throttle when accelerating.
	ThrottleStep float64 `json:"throttle_step" yaml:"throttle_step" validate:"gte=0,lte=1"`
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalDistance:            10.0,
		AngleThreshold:              30.0,
		SpeedLimitHigh:              80.0,
		SpeedMinForAcceleration:     30.0,
		YawRateThreshold:            0.01,
		CollisionIntensityThreshold: 0.15,
		CollisionSaturation:         0.15,
		SpeedExcessSpan:             20.0,
		YawRateSaturation:           0.05,
		LaneInvasionRisk:            0.5,
		ExternalSteerLimit:          15.0,
		InternalSteerLimit:          10.0,
		FallbackSteer:               5.0,
		EscalationBrake:             0.3,
		ThrottleStep:                0.1,
	}
}

// OrDefault returns t, or DefaultThresholds when t is the zero value.
func (t Thresholds) OrDefault() Thresholds {
	if t == (Thresholds{}) {
		return DefaultThresholds()
	}
	return t
}

var thresholdsValidate = validator.New()

// Validate checks every threshold against its declared bounds.
func (t Thresholds) Validate() error {
	if err := thresholdsValidate.Struct(t); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	return nil
}

// Level represents the severity band of an aggregate score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

var levelOrder = map[Level]int{
	LevelLow:      0,
	LevelMedium:   1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// ParseLevel parses a string to Level. Unknown input maps to HIGH.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return LevelLow
	case "medium":
		return LevelMedium
	case "high":
		return LevelHigh
	case "critical":
		return LevelCritical
	default:
		return LevelHigh
	}
}

// LevelFor classifies an aggregate score.
func LevelFor(score float64) Level {
	switch {
	case score >= ThresholdCritical:
		return LevelCritical
	case score >= ThresholdHigh:
		return LevelHigh
	case score >= ThresholdMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Exceeds returns true if this level is strictly above the threshold.
func (l Level) Exceeds(threshold Level) bool {
	return levelOrder[l] > levelOrder[threshold]
}

// Order returns the numeric order of this level.
func (l Level) Order() int {
	return levelOrder[l]
}

// SubScores holds the five normalized contributors, each in [0,1].
type SubScores struct {
	ExternalProximity  float64 `json:"external_proximity"`
	CollisionIntensity float64 `json:"collision_intensity"`
	SpeedExcess        float64 `json:"speed_excess"`
	LaneInvasion       float64 `json:"lane_invasion"`
	YawRate            float64 `json:"yaw_rate"`
}

// Mean returns the equally weighted average of the sub-scores.
func (s SubScores) Mean() float64 {
	return (s.ExternalProximity + s.CollisionIntensity + s.SpeedExcess + s.LaneInvasion + s.YawRate) / signalCount
}

// Assessment is the full result of scoring one snapshot.
type Assessment struct {
	AlgorithmVersion string    `json:"algorithm_version"`
	Score            float64   `json:"score"`
	Level            Level     `json:"level"`
	SubScores        SubScores `json:"sub_scores"`
	Threat           Threat    `json:"threat"`
}

// Threat is the result of scanning nearby vehicles.
type Threat struct {
	// MinDistance is the smallest reported distance, +Inf when none.
	MinDistance float64

	// NearestIndex is the scan index holding MinDistance, -1 when none.
	NearestIndex int

	// ExternalRisk is set when any vehicle is inside both the critical
	// distance and the forward cone.
	ExternalRisk bool

	// QualifyingIndex is the scan index of the last vehicle that set
	// ExternalRisk, -1 when none.
	QualifyingIndex int

	// Bearing is that vehicle's bearing in degrees, (-180, 180].
	Bearing float64

	// SteerCorrection is -Bearing: the steering change away from it.
	SteerCorrection float64
}

type threatJSON struct {
	MinDistance     *float64 `json:"min_distance"`
	NearestIndex    int      `json:"nearest_index"`
	ExternalRisk    bool     `json:"external_risk"`
	QualifyingIndex int      `json:"qualifying_index"`
	Bearing         float64  `json:"bearing"`
	SteerCorrection float64  `json:"steer_correction"`
}

// MarshalJSON encodes an infinite MinDistance as null.
func (t Threat) MarshalJSON() ([]byte, error) {
	out := threatJSON{
		NearestIndex:    t.NearestIndex,
		ExternalRisk:    t.ExternalRisk,
		QualifyingIndex: t.QualifyingIndex,
		Bearing:         t.Bearing,
		SteerCorrection: t.SteerCorrection,
	}
	if !math.IsInf(t.MinDistance, 0) && !math.IsNaN(t.MinDistance) {
		d := t.MinDistance
		out.MinDistance = &d
	}
	return json.Marshal(out)
}
