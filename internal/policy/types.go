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
	"github.com/AleutianAI/collisionguard/internal/risk"
)

// Action is the recommended manoeuvre.
type Action string

const (
	ActionMaintain      Action = "Maintain"
	ActionBrake         Action = "Brake"
	ActionSteer         Action = "Steer"
	ActionBrakeAndSteer Action = "Brake & Steer"
	ActionAccelerate    Action = "Accelerate"
)

// Rule names the cascade branch that produced a recommendation.
type Rule string

const (
	RuleNoRisk        Rule = "no_risk"
	RuleExternalBrake Rule = "external_brake"
	RuleExternalSteer Rule = "external_steer"
	RuleInternalSteer Rule = "internal_steer"
	RuleInternalBrake Rule = "internal_brake"
	RuleLowSpeed      Rule = "low_speed"
	RuleBorderline    Rule = "borderline"
)

// Recommendation is the advisory output for one snapshot.
//
// Throttle and Steer start from the vehicle's current control values and
// are adjusted by the matching rule. Brake is 0 unless a braking rule fired.
type Recommendation struct {
	Action    Action  `json:"action" yaml:"action"`
	Throttle  float64 `json:"throttle" yaml:"throttle"`
	Steer     float64 `json:"steer" yaml:"steer"`
	Brake     float64 `json:"brake" yaml:"brake"`
	Notes     string  `json:"notes" yaml:"notes"`
	RiskScore float64 `json:"risk_score" yaml:"risk_score"`
}

// Decision is a Recommendation together with the evidence behind it.
type Decision struct {
	Recommendation

	// Rule is the cascade branch that matched.
	Rule Rule `json:"rule"`

	// Activated reports whether the activation gate opened.
	Activated bool `json:"activated"`

	// Assessment is the risk breakdown for the same snapshot.
	Assessment risk.Assessment `json:"assessment"`
}
