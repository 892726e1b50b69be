/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package anomaly

import (
	"math"

	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

const (
	MediumRiskLowerBound   = 0.3
	HighRiskLowerBound     = 0.6
	CriticalRiskLowerBound = 0.8

	// DefaultAnomalyThreshold is used when no trained model supplies its own boundary.
	DefaultAnomalyThreshold = 0.45
)

var recommendations = map[twin.RiskLevel]string{
	twin.RiskLow:      "Continue normal operations",
	twin.RiskMedium:   "Monitor closely and reduce flight intensity",
	twin.RiskHigh:     "Return to base for inspection",
	twin.RiskCritical: "IMMEDIATE ACTION: Land drone immediately and perform maintenance",
}

type RiskClassifier struct {
	AnomalyThreshold float64
}

func NewRiskClassifier(anomalyThreshold float64) RiskClassifier {
	return RiskClassifier{AnomalyThreshold: anomalyThreshold}
}

// Classify maps a normalized score onto a risk level and recommendation.
func (c RiskClassifier) Classify(score float64) (twin.RiskAssessment, error) {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return twin.RiskAssessment{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput,
			"anomaly score must be within [0,1], got %v", score)
	}
	level := LevelForScore(score)
	return twin.RiskAssessment{
		IsAnomaly:      score >= c.AnomalyThreshold,
		AnomalyScore:   score,
		RiskLevel:      level,
		Recommendation: recommendations[level],
	}, nil
}

// Classify uses DefaultAnomalyThreshold.
func Classify(score float64) (twin.RiskAssessment, error) {
	return RiskClassifier{AnomalyThreshold: DefaultAnomalyThreshold}.Classify(score)
}

func LevelForScore(score float64) twin.RiskLevel {
	switch {
	case score >= CriticalRiskLowerBound:
		return twin.RiskCritical
	case score >= HighRiskLowerBound:
		return twin.RiskHigh
	case score >= MediumRiskLowerBound:
		return twin.RiskMedium
	default:
		return twin.RiskLow
	}
}

func Recommendation(level twin.RiskLevel) string {
	return recommendations[level]
}
