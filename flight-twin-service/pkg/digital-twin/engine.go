/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package digital_twin

import (
	"math"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/google/uuid"

	"skytwin/common/client"
	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/anomaly"
	"skytwin/flight-twin-service/pkg/dto/twin"
	"skytwin/flight-twin-service/pkg/health"
	"skytwin/flight-twin-service/pkg/planner"
)

// TwinEngine is the mission orchestrator of one vehicle. Callers serialize access.
type TwinEngine interface {
	Initialize(samples [][]float64) (bool, error)
	StartMission(start, end twin.Position) (twin.MissionDescriptor, error)
	UpdateTelemetry(sample []float64, position twin.Position) (twin.TelemetryUpdate, error)
	ReplanTrajectory(position, destination twin.Position) (twin.ReplanResult, error)
	GetSystemStatus() twin.SystemStatus
	StopMission() (twin.MissionSummary, error)
	State() twin.MissionState
	MissionID() string
	History() []twin.HistoryEntry
	Trajectory() twin.Trajectory
	Destination() twin.Position
}

const gravity = 9.81

// EngineConfig configures one vehicle's twin. A zero Drone means the default quadcopter.
type EngineConfig struct {
	Contamination float64
	Seed          uint64
	SafetyMargin  float64
	NumTrees      int
	Drone         health.DroneConfig
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Contamination: anomaly.DefaultContamination,
		Seed:          42,
		SafetyMargin:  planner.DefaultSafetyMargin,
		NumTrees:      anomaly.DefaultNumTrees,
		Drone:         health.DefaultDroneConfig(),
	}
}

type Engine struct {
	LoggingClient logger.LoggingClient
	Clock         func() time.Time
	config        EngineConfig
	model         *anomaly.OutlierModel
	classifier    anomaly.RiskClassifier
	stress        *health.StressCalculator

	state       twin.MissionState
	missionID   string
	start       twin.Position
	destination twin.Position
	trajectory  twin.Trajectory
	pathMetrics twin.PathMetrics
	history     []twin.HistoryEntry
	replanCount int
	startedAt   time.Time
	// hours flown in completed missions
	flownHours float64
	lastStress *health.FlightStress
}

func NewEngine(config EngineConfig, lc logger.LoggingClient) *Engine {
	if lc == nil {
		lc = logger.NewClient(client.TwinEngineServiceName, "INFO")
	}
	if config.Drone.DroneID == "" {
		config.Drone = health.DefaultDroneConfig()
	}
	model := anomaly.NewOutlierModel(lc)
	if config.NumTrees > 0 {
		model.NumTrees = config.NumTrees
	}
	return &Engine{
		LoggingClient: lc,
		Clock:         time.Now,
		config:        config,
		model:         model,
		classifier:    anomaly.NewRiskClassifier(anomaly.DefaultAnomalyThreshold),
		stress:        health.NewStressCalculator(config.Drone),
		state:         twin.Uninitialized,
	}
}

// Initialize trains the outlier model. Training is refused while a mission is in flight.
func (e *Engine) Initialize(samples [][]float64) (bool, error) {
	if e.state == twin.Active {
		return false, twinErrors.NewCommonTwinError(twinErrors.ErrorTypePreconditionViolation,
			"cannot retrain while a mission is active")
	}
	if err := e.model.Train(samples, e.config.Contamination, e.config.Seed); err != nil {
		e.LoggingClient.Errorf("outlier model training failed: %s", err.Error())
		return false, err
	}
	threshold, err := e.model.DecisionThreshold()
	if err != nil {
		return false, err
	}
	e.classifier = anomaly.NewRiskClassifier(threshold)
	e.state = twin.Initialized
	e.LoggingClient.Infof("digital twin initialized with %d samples, anomaly threshold %.4f", len(samples), threshold)
	return true, nil
}

func (e *Engine) StartMission(start, end twin.Position) (twin.MissionDescriptor, error) {
	if e.state != twin.Initialized && e.state != twin.Stopped {
		return twin.MissionDescriptor{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePreconditionViolation,
			"cannot start a mission in state %s", e.state)
	}
	path, err := planner.PlanInitial(start, end)
	if err != nil {
		return twin.MissionDescriptor{}, err
	}
	metrics, err := planner.Metrics(path)
	if err != nil {
		return twin.MissionDescriptor{}, err
	}

	e.missionID = uuid.NewString()
	e.start = start
	e.destination = end
	e.trajectory = path
	e.pathMetrics = metrics
	e.history = nil
	e.lastStress = nil
	e.replanCount = 0
	e.startedAt = e.Clock()
	e.state = twin.Active
	e.LoggingClient.Infof("mission %s started from %s to %s", e.missionID, start, end)

	return twin.MissionDescriptor{
		MissionID:   e.missionID,
		State:       e.state,
		Start:       start,
		End:         end,
		InitialPath: clonePath(path),
		PathMetrics: metrics,
	}, nil
}

// UpdateTelemetry scores one reading and records it. Nothing is recorded on failure.
func (e *Engine) UpdateTelemetry(sample []float64, position twin.Position) (twin.TelemetryUpdate, error) {
	if e.state != twin.Active {
		return twin.TelemetryUpdate{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePreconditionViolation,
			"telemetry requires an active mission, state is %s", e.state)
	}
	sensors, err := twin.SensorVectorFromSlice(sample)
	if err != nil {
		return twin.TelemetryUpdate{}, err
	}
	if !position.IsFinite() {
		return twin.TelemetryUpdate{}, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeInvalidInput, "position must be finite")
	}
	score, err := e.model.Score(sample)
	if err != nil {
		return twin.TelemetryUpdate{}, err
	}
	assessment, err := e.classifier.Classify(score)
	if err != nil {
		return twin.TelemetryUpdate{}, err
	}

	now := e.Clock()
	stress := e.stress.FlightStress(e.flightConditions(sensors, now))
	e.lastStress = &stress
	e.history = append(e.history, twin.HistoryEntry{
		Timestamp:    now,
		Sensors:      sensors,
		Risk:         assessment,
		Position:     position,
		FlightStress: stress.Overall,
	})
	if assessment.RiskLevel.IsElevated() {
		e.LoggingClient.Warnf("mission %s: %s risk (score %.3f) at %s", e.missionID, assessment.RiskLevel, score, position)
	} else {
		e.LoggingClient.Debugf("mission %s: %s risk (score %.3f) at %s", e.missionID, assessment.RiskLevel, score, position)
	}

	return twin.TelemetryUpdate{
		Timestamp:          now,
		Position:           position,
		RiskAssessment:     assessment,
		PathUpdateRequired: assessment.RiskLevel.IsElevated(),
	}, nil
}

// ReplanTrajectory replaces the current trajectory using the latest recorded risk level.
func (e *Engine) ReplanTrajectory(position, destination twin.Position) (twin.ReplanResult, error) {
	if e.state != twin.Active {
		return twin.ReplanResult{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePreconditionViolation,
			"replanning requires an active mission, state is %s", e.state)
	}
	if len(e.history) == 0 {
		return twin.ReplanResult{}, twinErrors.NewCommonTwinError(twinErrors.ErrorTypePreconditionViolation,
			"no telemetry recorded yet")
	}
	level := e.history[len(e.history)-1].Risk.RiskLevel
	path, err := planner.Replan(position, level, destination, e.config.SafetyMargin)
	if err != nil {
		return twin.ReplanResult{}, err
	}
	metrics, err := planner.Metrics(path)
	if err != nil {
		return twin.ReplanResult{}, err
	}

	e.trajectory = path
	e.pathMetrics = metrics
	e.replanCount++
	e.LoggingClient.Infof("mission %s replanned for %s risk: %d waypoints", e.missionID, level, metrics.NumWaypoints)

	return twin.ReplanResult{
		RiskLevel:   level,
		NewPath:     clonePath(path),
		PathMetrics: metrics,
	}, nil
}

func (e *Engine) GetSystemStatus() twin.SystemStatus {
	status := twin.SystemStatus{
		State:        e.state,
		MissionID:    e.missionID,
		TotalUpdates: len(e.history),
		Health:       e.healthReport(),
		RiskSummary:  summarize(e.history),
	}
	if e.trajectory != nil {
		metrics := e.pathMetrics
		status.CurrentPathMetrics = &metrics
	}
	if n := len(e.history); n > 0 {
		latest := e.history[n-1]
		status.CurrentPosition = &latest.Position
		status.CurrentRisk = &latest.Risk
	}
	return status
}

func (e *Engine) StopMission() (twin.MissionSummary, error) {
	if e.state != twin.Active {
		return twin.MissionSummary{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePreconditionViolation,
			"no active mission to stop, state is %s", e.state)
	}
	stoppedAt := e.Clock()
	summary := twin.MissionSummary{
		MissionID:    e.missionID,
		TotalUpdates: len(e.history),
		ReplanCount:  e.replanCount,
		StartedAt:    e.startedAt,
		StoppedAt:    stoppedAt,
		Duration:     stoppedAt.Sub(e.startedAt),
		RiskSummary:  summarize(e.history),
	}
	for i := 1; i < len(e.history); i++ {
		summary.DistanceTraveled += e.history[i-1].Position.Distance(e.history[i].Position)
	}
	if n := len(e.history); n > 0 {
		latest := e.history[n-1]
		summary.FinalPosition = &latest.Position
		summary.FinalRisk = &latest.Risk
	}
	e.flownHours += summary.Duration.Hours()
	e.state = twin.Stopped
	summary.Health = e.healthReport()
	e.LoggingClient.Infof("mission %s stopped after %d updates and %d replans", e.missionID, summary.TotalUpdates, summary.ReplanCount)
	return summary, nil
}

func (e *Engine) State() twin.MissionState {
	return e.state
}

func (e *Engine) MissionID() string {
	return e.missionID
}

func (e *Engine) Destination() twin.Position {
	return e.destination
}

// History returns a copy of the recorded entries of the current mission.
func (e *Engine) History() []twin.HistoryEntry {
	out := make([]twin.HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Engine) Trajectory() twin.Trajectory {
	return clonePath(e.trajectory)
}

// flightConditions derives the airframe loads from a reading. The G-force comes from the change in
// speed since the previous reading; wind is not measured.
func (e *Engine) flightConditions(sensors twin.SensorVector, at time.Time) health.FlightConditions {
	conditions := health.DefaultFlightConditions()
	conditions.AirTemperature = sensors.Temperature
	conditions.Altitude = sensors.Altitude
	if n := len(e.history); n > 0 {
		previous := e.history[n-1]
		if dt := at.Sub(previous.Timestamp).Seconds(); dt > 0 {
			acceleration := math.Abs(sensors.Speed-previous.Sensors.Speed) / dt
			conditions.GForce = math.Hypot(1, acceleration/gravity)
		}
	}
	return conditions
}

// healthReport counts the active mission up to its latest reading, so repeated calls agree.
func (e *Engine) healthReport() *twin.HealthReport {
	hours := e.config.Drone.FlightHours + e.flownHours
	if n := len(e.history); e.state == twin.Active && n > 0 {
		hours += e.history[n-1].Timestamp.Sub(e.startedAt).Hours()
	}
	average := 0.0
	for _, entry := range e.history {
		average += entry.FlightStress
	}
	if len(e.history) > 0 {
		average /= float64(len(e.history))
	}
	report := &twin.HealthReport{
		AverageStress: average,
		FlightHours:   hours,
		Components:    e.stress.ComponentHealth(hours, average),
	}
	if e.lastStress != nil {
		current := *e.lastStress
		report.CurrentStress = &current
	}
	return report
}

func summarize(history []twin.HistoryEntry) twin.RiskSummary {
	summary := twin.RiskSummary{LevelCounts: make(map[twin.RiskLevel]int, len(twin.RiskLevels))}
	for _, level := range twin.RiskLevels {
		summary.LevelCounts[level] = 0
	}
	if len(history) == 0 {
		return summary
	}
	total := 0.0
	for _, entry := range history {
		summary.LevelCounts[entry.Risk.RiskLevel]++
		total += entry.Risk.AnomalyScore
		if entry.Risk.AnomalyScore > summary.MaxAnomalyScore {
			summary.MaxAnomalyScore = entry.Risk.AnomalyScore
		}
	}
	summary.AvgAnomalyScore = total / float64(len(history))
	return summary
}

func clonePath(path twin.Trajectory) twin.Trajectory {
	if path == nil {
		return nil
	}
	out := make(twin.Trajectory, len(path))
	copy(out, path)
	return out
}
