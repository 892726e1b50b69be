/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package planner

import (
	"math"

	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

const (
	InitialWaypoints    = 20
	DefaultSafetyMargin = 10.0
	GroundLevel         = 0.0
)

type shape int

const (
	direct shape = iota
	lowered
	descent
)

// Strategy is how a replanned path is generated for one risk level.
type Strategy struct {
	Name      string
	Waypoints int
	shape     shape
}

var strategies = map[twin.RiskLevel]Strategy{
	twin.RiskLow:      {Name: "direct", Waypoints: 20, shape: direct},
	twin.RiskMedium:   {Name: "conservative", Waypoints: 30, shape: direct},
	twin.RiskHigh:     {Name: "safe-altitude", Waypoints: 25, shape: lowered},
	twin.RiskCritical: {Name: "emergency-landing", Waypoints: 10, shape: descent},
}

func StrategyFor(level twin.RiskLevel) (Strategy, bool) {
	s, ok := strategies[level]
	return s, ok
}

// PlanInitial interpolates InitialWaypoints points from start to end inclusive.
func PlanInitial(start, end twin.Position) (twin.Trajectory, error) {
	if !start.IsFinite() || !end.IsFinite() {
		return nil, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeInvalidInput, "start and end positions must be finite")
	}
	return interpolate(start, end, InitialWaypoints), nil
}

// Replan builds a new trajectory from current according to the strategy of level.
func Replan(current twin.Position, level twin.RiskLevel, destination twin.Position, safetyMargin float64) (twin.Trajectory, error) {
	strategy, ok := strategies[level]
	if !ok {
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput, "no replanning strategy for risk level %s", level)
	}
	if math.IsNaN(safetyMargin) || math.IsInf(safetyMargin, 0) || safetyMargin < 0 {
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput, "safety margin must be a non-negative number, got %v", safetyMargin)
	}
	if !current.IsFinite() {
		return nil, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeInvalidInput, "current position must be finite")
	}
	if strategy.shape != descent && !destination.IsFinite() {
		return nil, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeInvalidInput, "destination must be finite")
	}

	switch strategy.shape {
	case lowered:
		path := interpolate(current, destination, strategy.Waypoints)
		for i := 1; i < len(path)-1; i++ {
			path[i].Z = math.Max(GroundLevel, path[i].Z-safetyMargin)
		}
		return path, nil
	case descent:
		ground := twin.Position{X: current.X, Y: current.Y, Z: GroundLevel}
		return interpolate(current, ground, strategy.Waypoints), nil
	default:
		return interpolate(current, destination, strategy.Waypoints), nil
	}
}

// Metrics computes distance, altitude change and smoothness of a trajectory.
// Smoothness is the mean of (cos+1)/2 over consecutive non-zero segment pairs, 1 when there are none.
func Metrics(trajectory twin.Trajectory) (twin.PathMetrics, error) {
	if len(trajectory) < 2 {
		return twin.PathMetrics{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput,
			"trajectory needs at least 2 waypoints, got %d", len(trajectory))
	}
	metrics := twin.PathMetrics{NumWaypoints: len(trajectory)}

	var segments [][3]float64
	for i := 1; i < len(trajectory); i++ {
		a, b := trajectory[i-1], trajectory[i]
		metrics.TotalDistance += a.Distance(b)
		metrics.TotalAltitudeChange += math.Abs(b.Z - a.Z)
		seg := [3]float64{b.X - a.X, b.Y - a.Y, b.Z - a.Z}
		if norm(seg) > 0 {
			segments = append(segments, seg)
		}
	}

	metrics.Smoothness = 1
	if len(segments) >= 2 {
		total := 0.0
		for i := 1; i < len(segments); i++ {
			total += (cosine(segments[i-1], segments[i]) + 1) / 2
		}
		metrics.Smoothness = total / float64(len(segments)-1)
	}
	return metrics, nil
}

func interpolate(from, to twin.Position, n int) twin.Trajectory {
	path := make(twin.Trajectory, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		path[i] = twin.Position{
			X: from.X + t*(to.X-from.X),
			Y: from.Y + t*(to.Y-from.Y),
			Z: from.Z + t*(to.Z-from.Z),
		}
	}
	path[0] = from
	path[n-1] = to
	return path
}

func norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func cosine(a, b [3]float64) float64 {
	c := (a[0]*b[0] + a[1]*b[1] + a[2]*b[2]) / (norm(a) * norm(b))
	return math.Max(-1, math.Min(1, c))
}
