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
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/collisionguard/pkg/sensors"
)

func vehicleAt(distance, x, y float64) sensors.ExternalVehicle {
	return sensors.ExternalVehicle{
		Distance: sensors.Float(distance),
		Location: &sensors.Vec3{X: x, Y: y},
	}
}

// TestNearestExternalThreat_Empty verifies an empty scan yields no threat.
func TestNearestExternalThreat_Empty(t *testing.T) {
	threat := NearestExternalThreat(sensors.Vec3{}, nil, 10, 30)

	assert.True(t, math.IsInf(threat.MinDistance, 1))
	assert.False(t, threat.ExternalRisk)
	assert.Equal(t, -1, threat.NearestIndex)
	assert.Equal(t, -1, threat.QualifyingIndex)
	assert.Equal(t, 0.0, threat.SteerCorrection)
}

// TestNearestExternalThreat_ForwardCone tests the joint distance/bearing condition.
func TestNearestExternalThreat_ForwardCone(t *testing.T) {
	tests := []struct {
		name     string
		vehicle  sensors.ExternalVehicle
		wantRisk bool
	}{
		{"close and ahead", vehicleAt(8, 5, 0), true},
		{"close but beside", vehicleAt(8, 0, 5), false},
		{"close but behind", vehicleAt(8, -5, 0), false},
		{"ahead but far", vehicleAt(10, 5, 0), false},
		{"edge of cone", vehicleAt(5, 5, 5*math.Tan(30*math.Pi/180)+1e-9), false},
		{"inside cone", vehicleAt(5, 5, 2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threat := NearestExternalThreat(sensors.Vec3{}, []sensors.ExternalVehicle{tt.vehicle}, 10, 30)
			assert.Equal(t, tt.wantRisk, threat.ExternalRisk)
		})
	}
}

// TestNearestExternalThreat_LastQualifyingWins verifies the bearing comes
// from the last qualifying vehicle in scan order, not the closest.
func TestNearestExternalThreat_LastQualifyingWins(t *testing.T) {
	vehicles := []sensors.ExternalVehicle{
		vehicleAt(3, 5, 1),  // closest, qualifies
		vehicleAt(25, 1, 1), // far
		vehicleAt(9, 5, -2), // qualifies, scanned last
	}

	threat := NearestExternalThreat(sensors.Vec3{}, vehicles, 10, 30)

	require.True(t, threat.ExternalRisk)
	assert.Equal(t, 3.0, threat.MinDistance)
	assert.Equal(t, 0, threat.NearestIndex)
	assert.Equal(t, 2, threat.QualifyingIndex)

	wantBearing := math.Atan2(-2, 5) * 180 / math.Pi
	assert.InDelta(t, wantBearing, threat.Bearing, 1e-9)
	assert.InDelta(t, -wantBearing, threat.SteerCorrection, 1e-9)
}

// TestNearestExternalThreat_TieFirstSeen verifies equal distances keep the first.
func TestNearestExternalThreat_TieFirstSeen(t *testing.T) {
	vehicles := []sensors.ExternalVehicle{
		vehicleAt(12, 0, 20),
		vehicleAt(12, 0, -20),
	}
	threat := NearestExternalThreat(sensors.Vec3{}, vehicles, 10, 30)
	assert.Equal(t, 0, threat.NearestIndex)
	assert.Equal(t, 12.0, threat.MinDistance)
}

// TestNearestExternalThreat_ReportedDistanceTrusted verifies the reported
// distance is used even when positions disagree with it.
func TestNearestExternalThreat_ReportedDistanceTrusted(t *testing.T) {
	vehicles := []sensors.ExternalVehicle{vehicleAt(2, 500, 0)}
	threat := NearestExternalThreat(sensors.Vec3{}, vehicles, 10, 30)

	assert.Equal(t, 2.0, threat.MinDistance)
	assert.True(t, threat.ExternalRisk)
}

// TestNearestExternalThreat_MissingDistance verifies absent distances never win.
func TestNearestExternalThreat_MissingDistance(t *testing.T) {
	vehicles := []sensors.ExternalVehicle{
		{Location: &sensors.Vec3{X: 1}},
		vehicleAt(40, 1, 0),
	}
	threat := NearestExternalThreat(sensors.Vec3{}, vehicles, 10, 30)
	assert.Equal(t, 40.0, threat.MinDistance)
	assert.Equal(t, 1, threat.NearestIndex)
	assert.False(t, threat.ExternalRisk)

	only := NearestExternalThreat(sensors.Vec3{}, vehicles[:1], 10, 30)
	assert.True(t, math.IsInf(only.MinDistance, 1))
	assert.Equal(t, -1, only.NearestIndex)
}

// TestBearingDegrees tests bearing normalization.
func TestBearingDegrees(t *testing.T) {
	origin := sensors.Vec3{}
	tests := []struct {
		to   sensors.Vec3
		want float64
	}{
		{sensors.Vec3{X: 1}, 0},
		{sensors.Vec3{Y: 1}, 90},
		{sensors.Vec3{Y: -1}, -90},
		{sensors.Vec3{X: -1}, 180},
		{sensors.Vec3{X: -1, Y: -0.0}, 180},
		{sensors.Vec3{X: 1, Y: 1, Z: 50}, 45},
	}
	for _, tt := range tests {
		got := BearingDegrees(origin, tt.to)
		assert.InDelta(t, tt.want, got, 1e-9, "to %+v", tt.to)
		assert.True(t, got > -180 && got <= 180)
	}
}

// TestNormalizeDegrees tests wrap-around into (-180, 180].
func TestNormalizeDegrees(t *testing.T) {
	assert.Equal(t, 180.0, normalizeDegrees(-180))
	assert.Equal(t, -170.0, normalizeDegrees(190))
	assert.Equal(t, 10.0, normalizeDegrees(-350))
	assert.Equal(t, 0.0, normalizeDegrees(0))
}

// TestSubRisks_Isolated tests each sub-risk with every other input at its
// zero-risk default.
func TestSubRisks_Isolated(t *testing.T) {
	th := DefaultThresholds()

	t.Run("proximity", func(t *testing.T) {
		assert.Equal(t, 0.0, proximityRisk(math.Inf(1), th))
		assert.Equal(t, 0.0, proximityRisk(10, th))
		assert.InDelta(t, 0.5, proximityRisk(5, th), 1e-12)
		assert.Equal(t, 1.0, proximityRisk(0, th))
		assert.Equal(t, 1.0, proximityRisk(-3, th))
	})

	t.Run("collision", func(t *testing.T) {
		assert.Equal(t, 0.0, collisionRisk(0, th))
		assert.InDelta(t, 0.5, collisionRisk(0.075, th), 1e-12)
		assert.Equal(t, 1.0, collisionRisk(0.15, th))
		assert.Equal(t, 1.0, collisionRisk(4, th))
		assert.Equal(t, 0.0, collisionRisk(-1, th))
	})

	t.Run("speed", func(t *testing.T) {
		assert.Equal(t, 0.0, speedRisk(0, th))
		assert.Equal(t, 0.0, speedRisk(80, th))
		assert.InDelta(t, 0.5, speedRisk(90, th), 1e-12)
		assert.Equal(t, 1.0, speedRisk(100, th))
		assert.Equal(t, 1.0, speedRisk(240, th))
	})

	t.Run("lane", func(t *testing.T) {
		assert.Equal(t, 0.0, laneRisk(false, th))
		assert.Equal(t, 0.5, laneRisk(true, th))
	})

	t.Run("yaw", func(t *testing.T) {
		assert.Equal(t, 0.0, yawRisk(0, th))
		assert.InDelta(t, 0.4, yawRisk(0.02, th), 1e-12)
		assert.InDelta(t, 0.4, yawRisk(-0.02, th), 1e-12)
		assert.Equal(t, 1.0, yawRisk(0.05, th))
		assert.Equal(t, 1.0, yawRisk(3, th))
	})
}

// TestAssess_SpeedBoundaries tests the speed sub-risk through the full model.
func TestAssess_SpeedBoundaries(t *testing.T) {
	tests := []struct {
		speed float64
		want  float64
	}{
		{80, 0},
		{90, 0.5},
		{100, 1},
	}
	for _, tt := range tests {
		snap := sensors.NewSnapshot()
		snap.Sensors.Vehicle.SpeedKmh = tt.speed

		a, err := Assess(snap, DefaultThresholds())
		require.NoError(t, err)
		assert.InDelta(t, tt.want, a.SubScores.SpeedExcess, 1e-12, "speed %v", tt.speed)
		assert.InDelta(t, tt.want/5, a.Score, 1e-12, "speed %v", tt.speed)
	}
}

// TestAssess_Empty verifies a quiet frame scores zero.
func TestAssess_Empty(t *testing.T) {
	snap := sensors.NewSnapshot()
	snap.Sensors.Vehicle.SpeedKmh = 50

	a, err := Assess(snap, DefaultThresholds())
	require.NoError(t, err)

	assert.Equal(t, 0.0, a.Score)
	assert.Equal(t, LevelLow, a.Level)
	assert.Equal(t, SubScores{}, a.SubScores)
	assert.False(t, a.Threat.ExternalRisk)
	assert.Equal(t, AlgorithmVersion, a.AlgorithmVersion)
}

// TestAssess_SampleFrame checks the demonstration frame end to end.
func TestAssess_SampleFrame(t *testing.T) {
	snap, err := sensors.DecodeFile("testdata/frame_1205.json")
	require.NoError(t, err)

	a, err := Assess(snap, DefaultThresholds())
	require.NoError(t, err)

	assert.InDelta(t, 0.2, a.SubScores.ExternalProximity, 1e-9)
	assert.InDelta(t, 0.6, a.SubScores.CollisionIntensity, 1e-9)
	assert.Equal(t, 0.0, a.SubScores.SpeedExcess)
	assert.Equal(t, 0.5, a.SubScores.LaneInvasion)
	assert.InDelta(t, 0.4, a.SubScores.YawRate, 1e-9)
	assert.InDelta(t, 0.34, a.Score, 1e-9)
	assert.Equal(t, LevelMedium, a.Level)

	assert.True(t, a.Threat.ExternalRisk)
	assert.Equal(t, 0, a.Threat.QualifyingIndex)
	assert.InDelta(t, -math.Atan2(0.6, 4.3)*180/math.Pi, a.Threat.SteerCorrection, 1e-6)
}

// TestAssess_Bounds verifies the aggregate stays in [0,1] at the extremes.
func TestAssess_Bounds(t *testing.T) {
	snap := sensors.NewSnapshot()
	snap.Sensors.Vehicle.SpeedKmh = 400
	snap.Sensors.IMU.Gyroscope = &sensors.Vec3{Z: -9}
	snap.Sensors.Collision.History = []float64{50, 80}
	snap.Sensors.LaneInvasion.CrossedLaneMarkings = []string{"Solid White"}
	snap.Environment = &sensors.Environment{NearbyVehicles: []sensors.ExternalVehicle{vehicleAt(-20, 1, 0)}}

	a, err := Assess(snap, DefaultThresholds())
	require.NoError(t, err)
	assert.InDelta(t, 0.9, a.Score, 1e-12)
	assert.Equal(t, LevelCritical, a.Level)

	for _, sub := range []float64{a.SubScores.ExternalProximity, a.SubScores.CollisionIntensity,
		a.SubScores.SpeedExcess, a.SubScores.LaneInvasion, a.SubScores.YawRate} {
		assert.GreaterOrEqual(t, sub, 0.0)
		assert.LessOrEqual(t, sub, 1.0)
	}
}

// TestAssess_ZeroThresholdsUseDefaults verifies the zero value is not used raw.
func TestAssess_ZeroThresholdsUseDefaults(t *testing.T) {
	snap := sensors.NewSnapshot()
	snap.Sensors.Vehicle.SpeedKmh = 90

	got, err := Score(snap, Thresholds{})
	require.NoError(t, err)
	want, err := Score(snap, DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestAssess_CustomThresholds verifies thresholds are honored.
func TestAssess_CustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.SpeedLimitHigh = 50
	th.SpeedExcessSpan = 10

	snap := sensors.NewSnapshot()
	snap.Sensors.Vehicle.SpeedKmh = 55

	a, err := Assess(snap, th)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, a.SubScores.SpeedExcess, 1e-12)
}

// TestAssess_MissingSection verifies contract violations produce no score.
func TestAssess_MissingSection(t *testing.T) {
	snap := sensors.NewSnapshot()
	snap.Sensors.IMU = nil

	_, err := Score(snap, DefaultThresholds())
	assert.True(t, errors.Is(err, sensors.ErrMissingSection))
}

// TestLevel tests level parsing, ordering and classification.
func TestLevel(t *testing.T) {
	assert.Equal(t, LevelLow, ParseLevel("low"))
	assert.Equal(t, LevelCritical, ParseLevel(" CRITICAL "))
	assert.Equal(t, LevelHigh, ParseLevel("bogus"))

	assert.True(t, LevelMedium.Exceeds(LevelLow))
	assert.False(t, LevelHigh.Exceeds(LevelHigh))
	assert.False(t, LevelLow.Exceeds(LevelCritical))
	assert.Equal(t, 3, LevelCritical.Order())

	assert.Equal(t, LevelLow, LevelFor(0.29))
	assert.Equal(t, LevelMedium, LevelFor(0.3))
	assert.Equal(t, LevelHigh, LevelFor(0.6))
	assert.Equal(t, LevelCritical, LevelFor(0.8))
}

// TestThreat_MarshalJSON verifies an infinite distance encodes as null.
func TestThreat_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(NearestExternalThreat(sensors.Vec3{}, nil, 10, 30))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"min_distance":null`)

	data, err = json.Marshal(NearestExternalThreat(sensors.Vec3{}, []sensors.ExternalVehicle{vehicleAt(4, 1, 0)}, 10, 30))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"min_distance":4`)
}

// TestThresholds_Validate tests declared bounds.
func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	th := DefaultThresholds()
	th.AngleThreshold = 270
	assert.Error(t, th.Validate())

	th = DefaultThresholds()
	th.CriticalDistance = 0
	assert.Error(t, th.Validate())

	assert.Error(t, Thresholds{}.Validate())
}
