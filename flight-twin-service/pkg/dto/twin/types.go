/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package twin

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	twinErrors "skytwin/common/errors"
)

// NumFeatures is the width of every sensor vector.
const NumFeatures = 6

// FeatureNames lists sensor fields in their fixed order.
var FeatureNames = [NumFeatures]string{
	"BatteryLevel",
	"Temperature",
	"Vibration",
	"Altitude",
	"Speed",
	"MotorCurrent",
}

// SensorVector is one telemetry reading: charge %, °C, vibration units, m, m/s, A.
type SensorVector struct {
	BatteryLevel float64 `json:"batteryLevel"`
	Temperature  float64 `json:"temperature"`
	Vibration    float64 `json:"vibration"`
	Altitude     float64 `json:"altitude"`
	Speed        float64 `json:"speed"`
	MotorCurrent float64 `json:"motorCurrent"`
}

func (s SensorVector) Slice() []float64 {
	return []float64{s.BatteryLevel, s.Temperature, s.Vibration, s.Altitude, s.Speed, s.MotorCurrent}
}

// SensorVectorFromSlice validates width and finiteness.
func SensorVectorFromSlice(values []float64) (SensorVector, error) {
	if err := ValidateSample(values); err != nil {
		return SensorVector{}, err
	}
	return SensorVector{
		BatteryLevel: values[0],
		Temperature:  values[1],
		Vibration:    values[2],
		Altitude:     values[3],
		Speed:        values[4],
		MotorCurrent: values[5],
	}, nil
}

func ValidateSample(values []float64) error {
	if len(values) != NumFeatures {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput,
			"expected %d sensor values, got %d", NumFeatures, len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput,
				"sensor value %s is not finite", FeatureNames[i])
		}
	}
	return nil
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Position) IsFinite() bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Distance is the euclidean distance between two positions.
func (p Position) Distance(o Position) float64 {
	dx, dy, dz := o.X-p.X, o.Y-p.Y, o.Z-p.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (p Position) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// Trajectory is an ordered waypoint sequence; the first waypoint is where it was generated.
type Trajectory []Position

type PathMetrics struct {
	TotalDistance       float64 `json:"totalDistance"`
	TotalAltitudeChange float64 `json:"totalAltitudeChange"`
	Smoothness          float64 `json:"smoothness"`
	NumWaypoints        int     `json:"numWaypoints"`
}

type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

// RiskLevels in ascending severity.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

var riskLevelNames = map[RiskLevel]string{
	RiskLow:      "LOW",
	RiskMedium:   "MEDIUM",
	RiskHigh:     "HIGH",
	RiskCritical: "CRITICAL",
}

func (r RiskLevel) String() string {
	if name, ok := riskLevelNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RiskLevel(%d)", int(r))
}

func (r RiskLevel) IsValid() bool {
	_, ok := riskLevelNames[r]
	return ok
}

// IsElevated is true for every level that calls for a path update.
func (r RiskLevel) IsElevated() bool {
	return r == RiskMedium || r == RiskHigh || r == RiskCritical
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	for level, name := range riskLevelNames {
		if strings.EqualFold(name, s) {
			return level, nil
		}
	}
	return RiskLow, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput, "unknown risk level %q", s)
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// MarshalText lets RiskLevel be used as a JSON map key.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = level
	return nil
}

type RiskAssessment struct {
	IsAnomaly      bool      `json:"isAnomaly"`
	AnomalyScore   float64   `json:"anomalyScore"`
	RiskLevel      RiskLevel `json:"riskLevel"`
	Recommendation string    `json:"recommendation"`
}

type HistoryEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Sensors   SensorVector   `json:"sensors"`
	Risk      RiskAssessment `json:"risk"`
	Position  Position       `json:"position"`
	// FlightStress is the overall airframe stress in percent when the reading was taken.
	FlightStress float64 `json:"flightStress"`
}
