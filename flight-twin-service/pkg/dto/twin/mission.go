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
	"time"

	"skytwin/flight-twin-service/pkg/health"
)

type MissionState int

const (
	Uninitialized MissionState = iota
	Initialized
	Active
	Stopped
)

var MissionStateMap = map[MissionState]string{
	Uninitialized: "Uninitialized",
	Initialized:   "Initialized",
	Active:        "Active",
	Stopped:       "Stopped",
}

func (s MissionState) String() string {
	if name, ok := MissionStateMap[s]; ok {
		return name
	}
	return fmt.Sprintf("MissionState(%d)", int(s))
}

func (s MissionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *MissionState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for state, stateName := range MissionStateMap {
		if stateName == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown mission state %q", name)
}

// MissionDescriptor is returned when a mission starts.
type MissionDescriptor struct {
	MissionID   string       `json:"missionId"`
	State       MissionState `json:"state"`
	Start       Position     `json:"start"`
	End         Position     `json:"end"`
	InitialPath Trajectory   `json:"initialPath"`
	PathMetrics PathMetrics  `json:"pathMetrics"`
}

// TelemetryUpdate is the result of one telemetry update.
type TelemetryUpdate struct {
	Timestamp          time.Time      `json:"timestamp"`
	Position           Position       `json:"position"`
	RiskAssessment     RiskAssessment `json:"riskAssessment"`
	PathUpdateRequired bool           `json:"pathUpdateRequired"`
}

type ReplanResult struct {
	RiskLevel   RiskLevel   `json:"riskLevel"`
	NewPath     Trajectory  `json:"newPath"`
	PathMetrics PathMetrics `json:"pathMetrics"`
}

// RiskSummary aggregates the history of one mission.
type RiskSummary struct {
	LevelCounts     map[RiskLevel]int `json:"levelCounts"`
	AvgAnomalyScore float64           `json:"avgAnomalyScore"`
	MaxAnomalyScore float64           `json:"maxAnomalyScore"`
}

type SystemStatus struct {
	State              MissionState    `json:"state"`
	MissionID          string          `json:"missionId,omitempty"`
	CurrentPathMetrics *PathMetrics    `json:"currentPathMetrics,omitempty"`
	CurrentPosition    *Position       `json:"currentPosition,omitempty"`
	CurrentRisk        *RiskAssessment `json:"currentRisk,omitempty"`
	TotalUpdates       int             `json:"totalUpdates"`
	Health             *HealthReport   `json:"health,omitempty"`
	RiskSummary
}

type MissionSummary struct {
	MissionID        string          `json:"missionId"`
	TotalUpdates     int             `json:"totalUpdates"`
	ReplanCount      int             `json:"replanCount"`
	DistanceTraveled float64         `json:"distanceTraveled"`
	Duration         time.Duration   `json:"duration"`
	StartedAt        time.Time       `json:"startedAt"`
	StoppedAt        time.Time       `json:"stoppedAt"`
	FinalPosition    *Position       `json:"finalPosition,omitempty"`
	FinalRisk        *RiskAssessment `json:"finalRisk,omitempty"`
	Health           *HealthReport   `json:"health,omitempty"`
	RiskSummary
}

// HealthReport mirrors the stress and wear of the airframe. AverageStress covers the current or
// last mission, FlightHours the whole life of the vehicle.
type HealthReport struct {
	CurrentStress *health.FlightStress   `json:"currentStress,omitempty"`
	AverageStress float64                `json:"averageStress"`
	FlightHours   float64                `json:"flightHours"`
	Components    health.ComponentHealth `json:"components"`
}

// TwinUpdate is what the service publishes after processing a reading for a vehicle.
type TwinUpdate struct {
	VehicleID string          `json:"vehicleId"`
	MissionID string          `json:"missionId"`
	Update    TelemetryUpdate `json:"update"`
	Replan    *ReplanResult   `json:"replan,omitempty"`
}
