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

import "math"

// Vec3 is a position or angular-rate triple.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Control is the host vehicle's current actuator state.
type Control struct {
	Throttle float64 `json:"throttle" yaml:"throttle"`
	Steer    float64 `json:"steer" yaml:"steer"`
	Brake    float64 `json:"brake" yaml:"brake"`
}

// Vehicle is the host vehicle state.
type Vehicle struct {
	SpeedKmh float64  `json:"speed_kmh" yaml:"speed_kmh" validate:"gte=0"`
	Location *Vec3    `json:"location,omitempty" yaml:"location,omitempty"`
	Control  *Control `json:"control,omitempty" yaml:"control,omitempty"`
}

// IMU holds inertial readings. Only the gyroscope yaw axis is consumed.
type IMU struct {
	Gyroscope *Vec3 `json:"gyroscope,omitempty" yaml:"gyroscope,omitempty"`
}

// Collision holds chronological collision intensity samples.
type Collision struct {
	History []float64 `json:"history" yaml:"history"`
}

// LaneInvasion lists lane markings crossed during the frame.
type LaneInvasion struct {
	CrossedLaneMarkings []string `json:"crossed_lane_markings" yaml:"crossed_lane_markings"`
}

// Sensors groups the required sensor containers.
type Sensors struct {
	Vehicle      *Vehicle      `json:"vehicle" yaml:"vehicle" validate:"required"`
	IMU          *IMU          `json:"imu" yaml:"imu" validate:"required"`
	LaneInvasion *LaneInvasion `json:"lane_invasion" yaml:"lane_invasion" validate:"required"`
	Collision    *Collision    `json:"collision" yaml:"collision" validate:"required"`
}

// ExternalVehicle is another road user reported by the environment.
//
// Distance is the sensor-reported range. It is nil when the sensor did not
// report one; ReportedDistance then yields +Inf.
type ExternalVehicle struct {
	Distance *float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
	Location *Vec3    `json:"location,omitempty" yaml:"location,omitempty"`
}

// Environment describes objects around the host vehicle.
type Environment struct {
	NearbyVehicles []ExternalVehicle `json:"nearby_vehicles" yaml:"nearby_vehicles"`
}

// Snapshot is one immutable frame of combined sensor and environment
// readings.
type Snapshot struct {
	Frame       int64        `json:"frame,omitempty" yaml:"frame,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Sensors     *Sensors     `json:"sensors" yaml:"sensors" validate:"required"`
	Environment *Environment `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// =============================================================================
// Accessors
// =============================================================================

// Speed returns the host speed in km/h.
func (v *Vehicle) Speed() float64 {
	if v == nil {
		return 0
	}
	return v.SpeedKmh
}

// Position returns the host location, or the origin when absent.
func (v *Vehicle) Position() Vec3 {
	if v == nil || v.Location == nil {
		return Vec3{}
	}
	return *v.Location
}

// CurrentControl returns the actuator state, zeroed when absent.
func (v *Vehicle) CurrentControl() Control {
	if v == nil || v.Control == nil {
		return Control{}
	}
	return *v.Control
}

// YawRate returns |gyroscope.z| in rad/s.
func (i *IMU) YawRate() float64 {
	if i == nil || i.Gyroscope == nil {
		return 0
	}
	return math.Abs(i.Gyroscope.Z)
}

// AverageIntensity returns the mean collision intensity, 0 for an empty history.
func (c *Collision) AverageIntensity() float64 {
	if c == nil || len(c.History) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range c.History {
		sum += v
	}
	return sum / float64(len(c.History))
}

// Detected reports whether any lane marking was crossed.
func (l *LaneInvasion) Detected() bool {
	return l != nil && len(l.CrossedLaneMarkings) > 0
}

// Vehicles returns the nearby vehicles, nil when the environment is absent.
func (e *Environment) Vehicles() []ExternalVehicle {
	if e == nil {
		return nil
	}
	return e.NearbyVehicles
}

// ReportedDistance returns the sensor-reported distance or +Inf.
func (x ExternalVehicle) ReportedDistance() float64 {
	if x.Distance == nil {
		return math.Inf(1)
	}
	return *x.Distance
}

// Position returns the external vehicle location, or the origin when absent.
func (x ExternalVehicle) Position() Vec3 {
	if x.Location == nil {
		return Vec3{}
	}
	return *x.Location
}

// Host returns the host vehicle container. Nil when sensors are absent.
func (s *Snapshot) Host() *Vehicle {
	if s == nil || s.Sensors == nil {
		return nil
	}
	return s.Sensors.Vehicle
}

// Inertial returns the IMU container. Nil when sensors are absent.
func (s *Snapshot) Inertial() *IMU {
	if s == nil || s.Sensors == nil {
		return nil
	}
	return s.Sensors.IMU
}

// Collisions returns the collision container. Nil when sensors are absent.
func (s *Snapshot) Collisions() *Collision {
	if s == nil || s.Sensors == nil {
		return nil
	}
	return s.Sensors.Collision
}

// Lanes returns the lane invasion container. Nil when sensors are absent.
func (s *Snapshot) Lanes() *LaneInvasion {
	if s == nil || s.Sensors == nil {
		return nil
	}
	return s.Sensors.LaneInvasion
}

// Nearby returns the nearby vehicles in scan order.
func (s *Snapshot) Nearby() []ExternalVehicle {
	if s == nil {
		return nil
	}
	return s.Environment.Vehicles()
}

// Float returns a pointer to v. Handy for building ExternalVehicle literals.
func Float(v float64) *float64 {
	return &v
}

// NewSnapshot returns a snapshot with all required containers present and
// every value at its default.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Sensors: &Sensors{
			Vehicle:      &Vehicle{},
			IMU:          &IMU{},
			LaneInvasion: &LaneInvasion{},
			Collision:    &Collision{},
		},
	}
}
