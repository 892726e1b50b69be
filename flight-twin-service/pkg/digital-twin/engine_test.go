package digital_twin

import (
	"math"
	"testing"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
	"skytwin/flight-twin-service/pkg/planner"
	"skytwin/flight-twin-service/pkg/simulator"
)

var (
	home = twin.Position{X: 0, Y: 0, Z: 50}
	dest = twin.Position{X: 100, Y: 100, Z: 50}
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestEngine(t *testing.T) (*Engine, *simulator.TelemetrySimulator) {
	t.Helper()
	config := DefaultEngineConfig()
	config.NumTrees = 50
	e := NewEngine(config, logger.NewMockClient())
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	e.Clock = clock.Now
	return e, simulator.NewTelemetrySimulator(42)
}

func initializedEngine(t *testing.T) (*Engine, *simulator.TelemetrySimulator) {
	t.Helper()
	e, sim := newTestEngine(t)
	ok, err := e.Initialize(sim.NormalSamples(300))
	require.NoError(t, err)
	require.True(t, ok)
	return e, sim
}

func activeEngine(t *testing.T) (*Engine, *simulator.TelemetrySimulator) {
	t.Helper()
	e, sim := initializedEngine(t)
	_, err := e.StartMission(home, dest)
	require.NoError(t, err)
	return e, sim
}

func assertErrorType(t *testing.T, err error, errorType twinErrors.ErrorType) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, twinErrors.IsType(err, errorType), "expected %s, got %v", errorType, err)
}

func TestEngine_UninitializedRejectsMissionOperations(t *testing.T) {
	e, sim := newTestEngine(t)
	assert.Equal(t, twin.Uninitialized, e.State())

	_, err := e.StartMission(home, dest)
	assertErrorType(t, err, twinErrors.ErrorTypePreconditionViolation)

	_, err = e.UpdateTelemetry(sim.NormalSample(), home)
	assertErrorType(t, err, twinErrors.ErrorTypePreconditionViolation)

	_, err = e.ReplanTrajectory(home, dest)
	assertErrorType(t, err, twinErrors.ErrorTypePreconditionViolation)

	_, err = e.StopMission()
	assertErrorType(t, err, twinErrors.ErrorTypePreconditionViolation)

	status := e.GetSystemStatus()
	assert.Equal(t, twin.Uninitialized, status.State)
	assert.Equal(t, 0, status.TotalUpdates)
	assert.Nil(t, status.CurrentPathMetrics)
}

func TestEngine_InitializeInvalidInput(t *testing.T) {
	e, _ := newTestEngine(t)

	ok, err := e.Initialize([][]float64{{1, 2, 3, 4, 5, 6}})
	assert.False(t, ok)
	assertErrorType(t, err, twinErrors.ErrorTypeInvalidInput)
	assert.Equal(t, twin.Uninitialized, e.State())
}

func TestEngine_InitializeWhileActive(t *testing.T) {
	e, sim := activeEngine(t)

	ok, err := e.Initialize(sim.NormalSamples(50))
	assert.False(t, ok)
	assertErrorType(t, err, twinErrors.ErrorTypePreconditionViolation)
	assert.Equal(t, twin.Active, e.State())
}

func TestEngine_StartMission(t *testing.T) {
	e, _ := initializedEngine(t)

	descriptor, err := e.StartMission(home, dest)
	require.NoError(t, err)
	assert.NotEmpty(t, descriptor.MissionID)
	assert.Equal(t, twin.Active, descriptor.State)
	assert.Len(t, descriptor.InitialPath, planner.InitialWaypoints)
	assert.Equal(t, home, descriptor.InitialPath[0])
	assert.Equal(t, dest, descriptor.InitialPath[planner.InitialWaypoints-1])
	assert.Equal(t, planner.InitialWaypoints, descriptor.PathMetrics.NumWaypoints)
	assert.Equal(t, dest, e.Destination())

	_, err = e.StartMission(home, dest)
	assertErrorType(t, err, twinErrors.ErrorTypePreconditionViolation)
}

func TestEngine_UpdateTelemetryNormal(t *testing.T) {
	e, sim := activeEngine(t)

	update, err := e.UpdateTelemetry([]float64{90, 27.5, 1, 75, 10, 3.5}, twin.Position{X: 5, Y: 5, Z: 50})
	require.NoError(t, err)
	assert.Equal(t, twin.RiskLow, update.RiskAssessment.RiskLevel)
	assert.False(t, update.PathUpdateRequired)
	assert.Equal(t, "Continue normal operations", update.RiskAssessment.Recommendation)

	_, err = e.UpdateTelemetry(sim.NormalSample(), twin.Position{X: 10, Y: 10, Z: 50})
	require.NoError(t, err)
	assert.Len(t, e.History(), 2)
}

func TestEngine_UpdateTelemetryAnomaly(t *testing.T) {
	e, _ := activeEngine(t)

	update, err := e.UpdateTelemetry([]float64{15, 65, 12, 10, 1, 14}, twin.Position{X: 5, Y: 5, Z: 50})
	require.NoError(t, err)
	assert.True(t, update.RiskAssessment.IsAnomaly)
	assert.True(t, update.RiskAssessment.RiskLevel.IsElevated())
	assert.True(t, update.PathUpdateRequired)

	result, err := e.ReplanTrajectory(twin.Position{X: 5, Y: 5, Z: 50}, dest)
	require.NoError(t, err)
	assert.Equal(t, update.RiskAssessment.RiskLevel, result.RiskLevel)
	assert.Equal(t, twin.Position{X: 5, Y: 5, Z: 50}, result.NewPath[0])
	assert.Equal(t, len(result.NewPath), result.PathMetrics.NumWaypoints)
	assert.Equal(t, result.NewPath, e.Trajectory())
}

func TestEngine_UpdateTelemetryFailureRecordsNothing(t *testing.T) {
	e, sim := activeEngine(t)

	_, err := e.UpdateTelemetry([]float64{1, 2, 3}, home)
	assertErrorType(t, err, twinErrors.ErrorTypeInvalidInput)

	_, err = e.UpdateTelemetry(sim.NormalSample(), twin.Position{X: 1, Y: 2, Z: math.NaN()})
	assertErrorType(t, err, twinErrors.ErrorTypeInvalidInput)

	assert.Empty(t, e.History())
	assert.Equal(t, 0, e.GetSystemStatus().TotalUpdates)
}

func TestEngine_ReplanWithoutTelemetry(t *testing.T) {
	e, _ := activeEngine(t)

	_, err := e.ReplanTrajectory(home, dest)
	assertErrorType(t, err, twinErrors.ErrorTypePreconditionViolation)
}

func TestEngine_GetSystemStatusIdempotent(t *testing.T) {
	e, sim := activeEngine(t)
	for i := 0; i < 5; i++ {
		_, err := e.UpdateTelemetry(sim.NormalSample(), twin.Position{X: float64(i)})
		require.NoError(t, err)
	}

	first := e.GetSystemStatus()
	second := e.GetSystemStatus()
	assert.Equal(t, first, second)
	assert.Equal(t, twin.Active, first.State)
	assert.Equal(t, 5, first.TotalUpdates)
	require.NotNil(t, first.CurrentPosition)
	assert.Equal(t, 4.0, first.CurrentPosition.X)
	require.NotNil(t, first.CurrentRisk)

	total := 0
	for _, count := range first.LevelCounts {
		total += count
	}
	assert.Equal(t, 5, total)
	assert.GreaterOrEqual(t, first.MaxAnomalyScore, first.AvgAnomalyScore)
}

func TestEngine_StopMission(t *testing.T) {
	e, sim := activeEngine(t)
	positions := []twin.Position{{X: 0, Y: 0, Z: 50}, {X: 3, Y: 4, Z: 50}, {X: 3, Y: 4, Z: 60}}
	for _, p := range positions {
		_, err := e.UpdateTelemetry(sim.NormalSample(), p)
		require.NoError(t, err)
	}
	_, err := e.ReplanTrajectory(positions[2], dest)
	require.NoError(t, err)

	summary, err := e.StopMission()
	require.NoError(t, err)
	assert.Equal(t, twin.Stopped, e.State())
	assert.Equal(t, 3, summary.TotalUpdates)
	assert.Equal(t, 1, summary.ReplanCount)
	assert.InDelta(t, 15.0, summary.DistanceTraveled, 1e-9)
	// one clock tick per update plus the stop
	assert.Equal(t, 4*time.Second, summary.Duration)
	require.NotNil(t, summary.FinalPosition)
	assert.Equal(t, positions[2], *summary.FinalPosition)

	_, err = e.StopMission()
	assertErrorType(t, err, twinErrors.ErrorTypePreconditionViolation)
	_, err = e.UpdateTelemetry(sim.NormalSample(), home)
	assertErrorType(t, err, twinErrors.ErrorTypePreconditionViolation)

	assert.Equal(t, twin.Stopped, e.GetSystemStatus().State)
}

func TestEngine_RestartAfterStop(t *testing.T) {
	e, sim := activeEngine(t)
	first := e.MissionID()
	_, err := e.UpdateTelemetry(sim.NormalSample(), home)
	require.NoError(t, err)
	_, err = e.StopMission()
	require.NoError(t, err)

	descriptor, err := e.StartMission(dest, home)
	require.NoError(t, err)
	assert.NotEqual(t, first, descriptor.MissionID)
	assert.Empty(t, e.History())
	assert.Equal(t, 0, e.GetSystemStatus().TotalUpdates)
}

func TestEngine_RetrainAfterStop(t *testing.T) {
	e, sim := activeEngine(t)
	_, err := e.StopMission()
	require.NoError(t, err)

	ok, err := e.Initialize(sim.TrainingSet(200, 0.1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, twin.Initialized, e.State())
}

func TestEngine_DegradingFlight(t *testing.T) {
	e, sim := activeEngine(t)

	replans := 0
	var last twin.TelemetryUpdate
	for _, step := range sim.FlightSequence(20, 10) {
		update, err := e.UpdateTelemetry(step.Sensors, step.Position)
		require.NoError(t, err)
		if update.PathUpdateRequired {
			_, err := e.ReplanTrajectory(step.Position, dest)
			require.NoError(t, err)
			replans++
		}
		last = update
	}

	assert.Greater(t, replans, 0)
	assert.True(t, last.RiskAssessment.RiskLevel.IsElevated())

	summary, err := e.StopMission()
	require.NoError(t, err)
	assert.Equal(t, 20, summary.TotalUpdates)
	assert.Equal(t, replans, summary.ReplanCount)
}

func TestEngine_LowChargeOutsideTrainingRange(t *testing.T) {
	e, sim := newTestEngine(t)
	_, err := e.Initialize(sim.NormalSamples(1000))
	require.NoError(t, err)
	_, err = e.StartMission(home, dest)
	require.NoError(t, err)

	update, err := e.UpdateTelemetry([]float64{20, 27.5, 1, 75, 10, 3.5}, home)
	require.NoError(t, err)
	assert.True(t, update.RiskAssessment.IsAnomaly)
	assert.True(t, update.RiskAssessment.RiskLevel >= twin.RiskHigh, "got %s", update.RiskAssessment.RiskLevel)
	assert.True(t, update.PathUpdateRequired)
}

func TestEngine_NilLoggingClient(t *testing.T) {
	config := DefaultEngineConfig()
	config.NumTrees = 20
	e := NewEngine(config, nil)
	require.NotNil(t, e.LoggingClient)

	ok, err := e.Initialize(simulator.NewTelemetrySimulator(3).NormalSamples(100))
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = e.StartMission(home, dest)
	require.NoError(t, err)
	_, err = e.UpdateTelemetry([]float64{90, 27.5, 1, 75, 10, 3.5}, home)
	require.NoError(t, err)
	_, err = e.StopMission()
	require.NoError(t, err)
}

func TestEngine_DefaultDroneWhenUnset(t *testing.T) {
	e := NewEngine(EngineConfig{Contamination: 0.1, Seed: 1}, logger.NewMockClient())
	assert.Equal(t, "QUAD_450_01", e.config.Drone.DroneID)
	assert.Equal(t, e.config.Drone, e.stress.Config)
}

func TestEngine_HealthTracksStress(t *testing.T) {
	e, _ := activeEngine(t)

	status := e.GetSystemStatus()
	require.NotNil(t, status.Health)
	assert.Nil(t, status.Health.CurrentStress)
	assert.Equal(t, 100.0, status.Health.Components.Overall)

	_, err := e.UpdateTelemetry([]float64{90, 25, 1, 75, 10, 3.5}, home)
	require.NoError(t, err)
	_, err = e.UpdateTelemetry([]float64{90, 60, 1, 75, 10, 3.5}, twin.Position{X: 3, Y: 4, Z: 50})
	require.NoError(t, err)

	history := e.History()
	require.Len(t, history, 2)
	assert.Greater(t, history[1].FlightStress, history[0].FlightStress)

	status = e.GetSystemStatus()
	require.NotNil(t, status.Health)
	require.NotNil(t, status.Health.CurrentStress)
	assert.Equal(t, history[1].FlightStress, status.Health.CurrentStress.Overall)
	assert.Equal(t, 100.0, status.Health.CurrentStress.Temperature)
	assert.InDelta(t, (history[0].FlightStress+history[1].FlightStress)/2, status.Health.AverageStress, 1e-9)
	// two clock ticks since the mission started
	assert.InDelta(t, 2.0/3600, status.Health.FlightHours, 1e-12)

	summary, err := e.StopMission()
	require.NoError(t, err)
	require.NotNil(t, summary.Health)
	assert.InDelta(t, 3.0/3600, summary.Health.FlightHours, 1e-12)
	assert.Less(t, summary.Health.Components.Overall, 100.0)
	assert.Equal(t, summary.Health, e.GetSystemStatus().Health)
}

func TestEngine_SpeedChangeRaisesGForceStress(t *testing.T) {
	e, _ := activeEngine(t)

	_, err := e.UpdateTelemetry([]float64{90, 25, 1, 75, 6, 3.5}, home)
	require.NoError(t, err)
	steady := e.GetSystemStatus().Health.CurrentStress
	require.NotNil(t, steady)
	assert.Equal(t, 0.0, steady.GForce)

	_, err = e.UpdateTelemetry([]float64{90, 25, 1, 75, 14, 3.5}, home)
	require.NoError(t, err)
	accelerating := e.GetSystemStatus().Health.CurrentStress
	require.NotNil(t, accelerating)
	assert.Greater(t, accelerating.GForce, 0.0)
	assert.Greater(t, accelerating.Overall, steady.Overall)
}
