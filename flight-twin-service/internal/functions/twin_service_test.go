package functions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	twinErrors "skytwin/common/errors"
	"skytwin/common/telemetry"
	"skytwin/flight-twin-service/internal/config"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

func TestTwinService_UnknownVehicle(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.StartMission("ghost", home, dest)
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeNotFound))
	_, err = f.service.Status("ghost")
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeNotFound))
	_, err = f.service.ProcessTelemetry(context.Background(), "ghost", normalRead, home)
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeNotFound))
}

func TestTwinService_InitializeInvalidSamples(t *testing.T) {
	f := newFixture(t, nil)

	err := f.service.Initialize("drone-1", [][]float64{{1, 2, 3}})
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeInvalidInput))

	status, err := f.service.Status("drone-1")
	require.NoError(t, err)
	assert.Equal(t, twin.Uninitialized, status.State)
}

func TestTwinService_InitializeSimulated(t *testing.T) {
	f := newFixture(t, nil)

	n, err := f.service.InitializeSimulated("drone-1", 200, 0.1, 7)
	require.NoError(t, err)
	assert.Equal(t, 200, n)
	status, err := f.service.Status("drone-1")
	require.NoError(t, err)
	assert.Equal(t, twin.Initialized, status.State)

	_, err = f.service.InitializeSimulated("drone-1", 0, 0.1, 7)
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeInvalidInput))
	_, err = f.service.InitializeSimulated("drone-1", 100, 1.5, 7)
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeInvalidInput))
}

func TestTwinService_NormalTelemetry(t *testing.T) {
	f := newFixture(t, nil)
	descriptor := f.activeVehicle(t, "drone-1")

	update, err := f.service.ProcessTelemetry(context.Background(), "drone-1", normalRead, twin.Position{X: 5, Y: 5, Z: 50})
	require.NoError(t, err)
	assert.Equal(t, "drone-1", update.VehicleID)
	assert.Equal(t, descriptor.MissionID, update.MissionID)
	assert.Equal(t, twin.RiskLow, update.Update.RiskAssessment.RiskLevel)
	assert.Nil(t, update.Replan)

	history, terr := f.store.GetHistory(descriptor.MissionID)
	require.Nil(t, terr)
	require.Len(t, history, 1)
	assert.Equal(t, twin.Position{X: 5, Y: 5, Z: 50}, history[0].Position)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, "twin/updates/drone-1", update)
	assert.Equal(t, int64(1), f.telemetry.Count(telemetry.TelemetryUpdatesCount))
	assert.Equal(t, int64(0), f.telemetry.Count(telemetry.ReplansCount))
}

func TestTwinService_AnomalyTriggersReplan(t *testing.T) {
	f := newFixture(t, nil)
	f.activeVehicle(t, "drone-1")

	position := twin.Position{X: 5, Y: 5, Z: 50}
	update, err := f.service.ProcessTelemetry(context.Background(), "drone-1", anomalyRead, position)
	require.NoError(t, err)
	require.True(t, update.Update.PathUpdateRequired)
	require.NotNil(t, update.Replan)
	assert.Equal(t, update.Update.RiskAssessment.RiskLevel, update.Replan.RiskLevel)
	assert.Equal(t, position, update.Replan.NewPath[0])

	trajectory, err := f.service.Trajectory("drone-1")
	require.NoError(t, err)
	assert.Equal(t, update.Replan.NewPath, trajectory)
	assert.Equal(t, int64(1), f.telemetry.Count(telemetry.ReplansCount))
	assert.Equal(t, int64(1), f.telemetry.Count(telemetry.AnomaliesCount))

	// elevated policy replans on every elevated reading
	update, err = f.service.ProcessTelemetry(context.Background(), "drone-1", anomalyRead, position)
	require.NoError(t, err)
	assert.NotNil(t, update.Replan)
}

func TestTwinService_OnChangePolicy(t *testing.T) {
	f := newFixture(t, func(cfg *config.ServiceConfig) {
		cfg.ReplanPolicy = config.ReplanPolicyOnChange
	})
	f.activeVehicle(t, "drone-1")
	position := twin.Position{X: 5, Y: 5, Z: 50}

	first, err := f.service.ProcessTelemetry(context.Background(), "drone-1", anomalyRead, position)
	require.NoError(t, err)
	require.NotNil(t, first.Replan)

	second, err := f.service.ProcessTelemetry(context.Background(), "drone-1", anomalyRead, position)
	require.NoError(t, err)
	assert.Equal(t, first.Update.RiskAssessment.RiskLevel, second.Update.RiskAssessment.RiskLevel)
	assert.Nil(t, second.Replan)

	// a new mission forgets the last replanned level
	_, err = f.service.StopMission(context.Background(), "drone-1")
	require.NoError(t, err)
	_, err = f.service.StartMission("drone-1", home, dest)
	require.NoError(t, err)
	third, err := f.service.ProcessTelemetry(context.Background(), "drone-1", anomalyRead, position)
	require.NoError(t, err)
	assert.NotNil(t, third.Replan)
}

func TestTwinService_AutoReplanDisabled(t *testing.T) {
	f := newFixture(t, func(cfg *config.ServiceConfig) {
		cfg.AutoReplan = false
	})
	f.activeVehicle(t, "drone-1")

	update, err := f.service.ProcessTelemetry(context.Background(), "drone-1", anomalyRead, home)
	require.NoError(t, err)
	assert.True(t, update.Update.PathUpdateRequired)
	assert.Nil(t, update.Replan)

	result, err := f.service.Replan(context.Background(), "drone-1", home, nil)
	require.NoError(t, err)
	assert.Equal(t, update.Update.RiskAssessment.RiskLevel, result.RiskLevel)
}

func TestTwinService_ReplanToExplicitDestination(t *testing.T) {
	f := newFixture(t, nil)
	f.activeVehicle(t, "drone-1")
	_, err := f.service.ProcessTelemetry(context.Background(), "drone-1", normalRead, home)
	require.NoError(t, err)

	target := twin.Position{X: 40, Y: 40, Z: 60}
	result, err := f.service.Replan(context.Background(), "drone-1", home, &target)
	require.NoError(t, err)
	assert.Equal(t, twin.RiskLow, result.RiskLevel)
	assert.Equal(t, target, result.NewPath[len(result.NewPath)-1])
}

func TestTwinService_InvalidReadingCounted(t *testing.T) {
	f := newFixture(t, nil)
	f.activeVehicle(t, "drone-1")

	_, err := f.service.ProcessTelemetry(context.Background(), "drone-1", []float64{1, 2}, home)
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeInvalidInput))
	assert.Equal(t, int64(1), f.telemetry.Count(telemetry.RejectedReadingsCount))
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestTwinService_PublishFailureDoesNotFailUpdate(t *testing.T) {
	f := newFixture(t, nil)
	f.activeVehicle(t, "drone-1")
	f.publisher.ExpectedCalls = nil
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := f.service.ProcessTelemetry(context.Background(), "drone-1", normalRead, home)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.telemetry.Count(telemetry.PublishErrorsCount))
}

func TestTwinService_StopMission(t *testing.T) {
	f := newFixture(t, nil)
	descriptor := f.activeVehicle(t, "drone-1")

	_, err := f.service.ProcessTelemetry(context.Background(), "drone-1", normalRead, twin.Position{X: 0, Y: 0, Z: 50})
	require.NoError(t, err)
	_, err = f.service.ProcessTelemetry(context.Background(), "drone-1", normalRead, twin.Position{X: 3, Y: 4, Z: 50})
	require.NoError(t, err)

	summary, err := f.service.StopMission(context.Background(), "drone-1")
	require.NoError(t, err)
	assert.Equal(t, descriptor.MissionID, summary.MissionID)
	assert.Equal(t, 2, summary.TotalUpdates)
	assert.InDelta(t, 5.0, summary.DistanceTraveled, 1e-9)

	stored, err := f.service.Summary(descriptor.MissionID)
	require.NoError(t, err)
	assert.Equal(t, summary.TotalUpdates, stored.TotalUpdates)
	f.sessions.AssertCalled(t, "Save", mock.Anything, "drone-1", summary)
	f.publisher.AssertCalled(t, "Publish", mock.Anything, "twin/updates/drone-1/summary", summary)

	missions, err := f.service.Missions("drone-1")
	require.NoError(t, err)
	assert.Equal(t, []string{descriptor.MissionID}, missions)

	_, err = f.service.StopMission(context.Background(), "drone-1")
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypePreconditionViolation))
}

func TestTwinService_StopMissionStorageFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.activeVehicle(t, "drone-1")
	f.sessions.ExpectedCalls = nil
	f.sessions.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))
	f.redis.FailCommands["SET"] = true

	summary, err := f.service.StopMission(context.Background(), "drone-1")
	require.NoError(t, err)
	status, err := f.service.Status("drone-1")
	require.NoError(t, err)
	assert.Equal(t, twin.Stopped, status.State)
	assert.Equal(t, summary.MissionID, status.MissionID)
}

func TestTwinService_History(t *testing.T) {
	f := newFixture(t, nil)
	first := f.activeVehicle(t, "drone-1")
	_, err := f.service.ProcessTelemetry(context.Background(), "drone-1", normalRead, home)
	require.NoError(t, err)
	_, err = f.service.StopMission(context.Background(), "drone-1")
	require.NoError(t, err)

	second, err := f.service.StartMission("drone-1", home, dest)
	require.NoError(t, err)
	history, err := f.service.History("drone-1", "")
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = f.service.History("drone-1", first.MissionID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	history, err = f.service.History("drone-1", second.MissionID)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.service.History("drone-1", "unknown")
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeNotFound))
	_, err = f.service.History("ghost", "")
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeNotFound))
}

func TestTwinService_Vehicles(t *testing.T) {
	f := newFixture(t, nil)
	f.activeVehicle(t, "drone-b")
	assert.Error(t, f.service.Initialize("drone-a", [][]float64{}))

	vehicles := f.service.Vehicles()
	require.Len(t, vehicles, 2)
	assert.Equal(t, "drone-a", vehicles[0].VehicleID)
	assert.Equal(t, twin.Uninitialized, vehicles[0].Status.State)
	assert.Equal(t, twin.Active, vehicles[1].Status.State)
}
