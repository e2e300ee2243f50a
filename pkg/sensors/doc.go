// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sensors defines the single-frame sensor snapshot consumed by the
// collision risk model and decision policy.
//
// A Snapshot mirrors the nested layout of a simulator sensor frame:
//
//	{
//	  "frame": 1205,
//	  "timestamp": "2025-03-23T14:25:36",
//	  "sensors": {
//	    "vehicle":       {"speed_kmh": 75, "location": {...}, "control": {...}},
//	    "imu":           {"gyroscope": {"x": 0, "y": 0, "z": 0.02}},
//	    "collision":     {"history": [0.0, 0.1, 0.3]},
//	    "lane_invasion": {"crossed_lane_markings": ["Solid Yellow"]}
//	  },
//	  "environment": {"nearby_vehicles": [{"distance": 8.0, "location": {...}}]}
//	}
//
// # Defaults
//
// Every leaf value is optional. Absent values are resolved through small
// accessor methods (Speed, Position, CurrentControl, YawRate, ...) so the
// defaulting table lives in one place:
//
//	sensors.vehicle.speed_kmh                     0
//	sensors.vehicle.location.{x,y,z}              0
//	sensors.vehicle.control.{throttle,steer}      0
//	sensors.imu.gyroscope.z                       0
//	sensors.collision.history                     empty
//	sensors.lane_invasion.crossed_lane_markings   empty
//	environment.nearby_vehicles[].distance        +Inf
//	environment.nearby_vehicles[].location        origin
//	environment                                   no nearby vehicles
//
// The four sensor containers (vehicle, imu, lane_invasion, collision) are
// required. Validate reports a missing container as a *MissingSectionError
// and a present value of the wrong shape as a *MalformedValueError.
//
// Fields that the decision logic does not consume (gnss, camera, lidar,
// radar, accelerometer, vehicle ids) are accepted by the decoders and
// dropped.
//
// # Thread Safety
//
// A Snapshot is a plain value. Accessors never mutate it, so a snapshot may
// be read from many goroutines as long as nobody writes to it concurrently.
package sensors
