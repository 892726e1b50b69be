/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package simulator

import (
	"math"
	"math/rand/v2"

	"skytwin/flight-twin-service/pkg/dto/twin"
)

type AnomalyKind string

const (
	AnomalyRandom      AnomalyKind = "random"
	AnomalyBattery     AnomalyKind = "battery"
	AnomalyTemperature AnomalyKind = "temperature"
	AnomalyVibration   AnomalyKind = "vibration"

	randomAnomalyProbability = 0.3
)

type Range struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

// Profile holds one Range per sensor in twin.FeatureNames order.
type Profile [twin.NumFeatures]Range

var (
	NormalProfile = Profile{
		{80, 100}, // battery %
		{20, 35},  // °C
		{0, 2},
		{50, 100}, // m
		{5, 15},   // m/s
		{2, 5},    // A
	}
	AnomalyProfile = Profile{
		{10, 40},
		{45, 70},
		{5, 15},
		{5, 30},
		{0.5, 3},
		{8, 15},
	}
)

// FlightStep is one simulated reading with the position it was taken at.
type FlightStep struct {
	Sensors  []float64
	Position twin.Position
}

// TelemetrySimulator produces reproducible synthetic drone telemetry.
type TelemetrySimulator struct {
	Normal    Profile
	Anomalous Profile
	rng       *rand.Rand
}

func NewTelemetrySimulator(seed uint64) *TelemetrySimulator {
	return &TelemetrySimulator{
		Normal:    NormalProfile,
		Anomalous: AnomalyProfile,
		rng:       rand.New(rand.NewPCG(seed, seed)),
	}
}

func (s *TelemetrySimulator) uniform(r Range) float64 {
	return r.Min + s.rng.Float64()*(r.Max-r.Min)
}

func (s *TelemetrySimulator) NormalSample() []float64 {
	sample := make([]float64, twin.NumFeatures)
	for i, r := range s.Normal {
		sample[i] = s.uniform(r)
	}
	return sample
}

func (s *TelemetrySimulator) NormalSamples(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = s.NormalSample()
	}
	return out
}

// AnomalousSample starts from a normal reading and pushes the sensors of kind into their anomaly range.
// AnomalyRandom affects each group with a 30% chance.
func (s *TelemetrySimulator) AnomalousSample(kind AnomalyKind) []float64 {
	sample := s.NormalSample()
	hit := func(k AnomalyKind) bool {
		return kind == k || (kind == AnomalyRandom && s.rng.Float64() < randomAnomalyProbability)
	}
	if hit(AnomalyBattery) {
		sample[0] = s.uniform(s.Anomalous[0])
	}
	if hit(AnomalyTemperature) {
		sample[1] = s.uniform(s.Anomalous[1])
	}
	if hit(AnomalyVibration) {
		sample[2] = s.uniform(s.Anomalous[2])
		sample[5] = s.uniform(s.Anomalous[5])
	}
	return sample
}

func (s *TelemetrySimulator) AnomalousSamples(n int, kind AnomalyKind) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = s.AnomalousSample(kind)
	}
	return out
}

// TrainingSet mixes int(n*contamination) random anomalies into normal readings and shuffles them.
func (s *TelemetrySimulator) TrainingSet(n int, contamination float64) [][]float64 {
	anomalies := int(float64(n) * contamination)
	out := append(s.NormalSamples(n-anomalies), s.AnomalousSamples(anomalies, AnomalyRandom)...)
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// DegradingSample is a normal reading degraded by severity in [0,1].
func (s *TelemetrySimulator) DegradingSample(severity float64) []float64 {
	sample := s.NormalSample()
	sample[0] -= severity * 50
	sample[1] += severity * 30
	sample[2] += severity * 8
	sample[5] += severity * 7
	return sample
}

// FlightSequence simulates duration steps that degrade gradually from anomalyStart on.
func (s *TelemetrySimulator) FlightSequence(duration, anomalyStart int) []FlightStep {
	steps := make([]FlightStep, duration)
	for i := 0; i < duration; i++ {
		var sensors []float64
		if i < anomalyStart {
			sensors = s.NormalSample()
		} else {
			severity := float64(i-anomalyStart) / float64(duration-anomalyStart)
			sensors = s.DegradingSample(severity)
		}
		steps[i] = FlightStep{
			Sensors: sensors,
			Position: twin.Position{
				X: float64(i) * 5,
				Y: float64(i) * 3,
				Z: 50 + math.Sin(float64(i)*0.3)*10,
			},
		}
	}
	return steps
}
