package functions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/common"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/dtos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twinErrors "skytwin/common/errors"
	"skytwin/common/telemetry"
	"skytwin/flight-twin-service/pkg/dto/twin"
	"skytwin/mocks/skytwin/common/infrastructure/interfaces/utils"
)

func telemetryEvent(t *testing.T, vehicleID string, sample []float64, position *twin.Position) dtos.Event {
	t.Helper()
	event := dtos.NewEvent("drone-profile", vehicleID, "telemetry")
	for i, name := range twin.FeatureNames {
		require.NoError(t, event.AddSimpleReading(name, common.ValueTypeFloat64, sample[i]))
	}
	if position != nil {
		require.NoError(t, event.AddSimpleReading(ResourcePositionX, common.ValueTypeFloat64, position.X))
		require.NoError(t, event.AddSimpleReading(ResourcePositionY, common.ValueTypeFloat64, position.Y))
		require.NoError(t, event.AddSimpleReading(ResourcePositionZ, common.ValueTypeFloat64, position.Z))
	}
	return event
}

func newPipeline(t *testing.T, f *testFixture) *TelemetryPipeline {
	p := NewTelemetryPipeline(f.service, time.Minute, logger.NewMockClient())
	t.Cleanup(p.Stop)
	return p
}

func TestEventToSample(t *testing.T) {
	event := telemetryEvent(t, "drone-1", normalRead, &twin.Position{X: 1, Y: 2, Z: 3})
	sample, position, err := EventToSample(event)
	require.NoError(t, err)
	assert.Equal(t, normalRead, sample)
	assert.Equal(t, twin.Position{X: 1, Y: 2, Z: 3}, position)
}

func TestEventToSample_AltitudeFallback(t *testing.T) {
	event := telemetryEvent(t, "drone-1", normalRead, nil)
	require.NoError(t, event.AddSimpleReading(ResourcePositionX, common.ValueTypeInt32, int32(10)))
	require.NoError(t, event.AddSimpleReading(ResourcePositionY, common.ValueTypeInt32, int32(20)))

	_, position, err := EventToSample(event)
	require.NoError(t, err)
	assert.Equal(t, twin.Position{X: 10, Y: 20, Z: normalRead[3]}, position)
}

func TestEventToSample_Invalid(t *testing.T) {
	_, _, err := EventToSample(telemetryEvent(t, "drone-1", normalRead, nil))
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeInvalidInput))

	event := dtos.NewEvent("drone-profile", "drone-1", "telemetry")
	require.NoError(t, event.AddSimpleReading("BatteryLevel", common.ValueTypeFloat64, 90.0))
	_, _, err = EventToSample(event)
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeInvalidInput))

	event = telemetryEvent(t, "drone-1", normalRead, &twin.Position{})
	require.NoError(t, event.AddSimpleReading("Status", common.ValueTypeString, "ok"))
	_, _, err = EventToSample(event)
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeInvalidInput))
}

func TestProcessEvent(t *testing.T) {
	f := newFixture(t, nil)
	f.activeVehicle(t, "drone-1")
	p := newPipeline(t, f)
	ctx := utils.NewApplicationServiceMock(nil).AppFunctionContext

	event := telemetryEvent(t, "drone-1", anomalyRead, &twin.Position{X: 5, Y: 5, Z: 50})
	ok, result := p.ProcessEvent(ctx, event)
	require.True(t, ok)
	update, isUpdate := result.(twin.TwinUpdate)
	require.True(t, isUpdate)
	assert.Equal(t, "drone-1", update.VehicleID)
	assert.True(t, update.Update.PathUpdateRequired)
	assert.NotNil(t, update.Replan)

	// the same event id is processed once
	ok, result = p.ProcessEvent(ctx, event)
	assert.False(t, ok)
	assert.Nil(t, result)

	status, err := f.service.Status("drone-1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalUpdates)
}

func TestProcessEvent_DropsUnknownVehicle(t *testing.T) {
	f := newFixture(t, nil)
	p := newPipeline(t, f)
	ctx := utils.NewApplicationServiceMock(nil).AppFunctionContext

	ok, result := p.ProcessEvent(ctx, telemetryEvent(t, "ghost", normalRead, &twin.Position{}))
	assert.False(t, ok)
	assert.Nil(t, result)
}

func TestProcessEvent_RedeliveredAfterDrop(t *testing.T) {
	f := newFixture(t, nil)
	p := newPipeline(t, f)
	ctx := utils.NewApplicationServiceMock(nil).AppFunctionContext
	event := telemetryEvent(t, "drone-1", normalRead, &twin.Position{X: 1, Y: 1, Z: 50})

	// no mission yet, the event is not applied and not remembered
	ok, result := p.ProcessEvent(ctx, event)
	assert.False(t, ok)
	assert.Nil(t, result)
	assert.False(t, p.seen.Has(event.Id))

	f.activeVehicle(t, "drone-1")
	ok, result = p.ProcessEvent(ctx, event)
	require.True(t, ok)
	update, isUpdate := result.(twin.TwinUpdate)
	require.True(t, isUpdate)
	assert.Equal(t, twin.Position{X: 1, Y: 1, Z: 50}, update.Update.Position)
	assert.True(t, p.seen.Has(event.Id))

	ok, _ = p.ProcessEvent(ctx, event)
	assert.False(t, ok)
	status, err := f.service.Status("drone-1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalUpdates)
}

func TestProcessEvent_RejectedEventIsNotRemembered(t *testing.T) {
	f := newFixture(t, nil)
	p := newPipeline(t, f)
	ctx := utils.NewApplicationServiceMock(nil).AppFunctionContext
	event := telemetryEvent(t, "drone-1", normalRead, nil)

	ok, _ := p.ProcessEvent(ctx, event)
	assert.False(t, ok)
	assert.False(t, p.seen.Has(event.Id))
}

func TestProcessEvent_InvalidData(t *testing.T) {
	f := newFixture(t, nil)
	p := newPipeline(t, f)
	ctx := utils.NewApplicationServiceMock(nil).AppFunctionContext

	ok, result := p.ProcessEvent(ctx, nil)
	assert.False(t, ok)
	assert.Error(t, result.(error))

	ok, result = p.ProcessEvent(ctx, "not an event")
	assert.False(t, ok)
	assert.Error(t, result.(error))

	ok, result = p.ProcessEvent(ctx, telemetryEvent(t, "drone-1", normalRead, nil))
	assert.False(t, ok)
	assert.Error(t, result.(error))
	assert.Equal(t, int64(1), f.telemetry.Count(telemetry.RejectedReadingsCount))
}

func TestSetResponse(t *testing.T) {
	f := newFixture(t, nil)
	p := newPipeline(t, f)
	ctx := utils.NewApplicationServiceMock(nil).AppFunctionContext

	update := twin.TwinUpdate{VehicleID: "drone-1", MissionID: "m-1"}
	expected, err := json.Marshal(update)
	require.NoError(t, err)

	ok, result := p.SetResponse(ctx, update)
	require.True(t, ok)
	assert.Equal(t, update, result)
	ctx.AssertCalled(t, "SetResponseContentType", common.ContentTypeJSON)
	ctx.AssertCalled(t, "SetResponseData", expected)

	ok, _ = p.SetResponse(ctx, "nope")
	assert.False(t, ok)
	ctx.AssertNumberOfCalls(t, "SetResponseData", 1)
}
