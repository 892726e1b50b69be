package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDroneConfig_DerivedValues(t *testing.T) {
	config := DefaultDroneConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, 4, config.NumMotors())
	assert.Equal(t, 80.0, config.TotalMaxThrustN())
	assert.InDelta(t, 5.4366, config.ThrustToWeightRatio(), 1e-4)
	assert.InDelta(t, 3.67875, config.HoverThrustPerMotorN(), 1e-9)
	assert.InDelta(t, 18.39375, config.HoverThrottlePercent(), 1e-9)

	empty := DroneConfig{}
	assert.Equal(t, 0.0, empty.HoverThrottlePercent())
	assert.Equal(t, 0.0, empty.HoverThrustPerMotorN())
	assert.Equal(t, 0.0, empty.ThrustToWeightRatio())
}

func TestStressCalculator_CalmHover(t *testing.T) {
	stress := NewStressCalculator(DefaultDroneConfig()).FlightStress(DefaultFlightConditions())

	assert.Equal(t, 0.0, stress.GForce)
	assert.Equal(t, 0.0, stress.Wind)
	assert.Equal(t, 0.0, stress.Temperature)
	assert.Equal(t, 0.0, stress.Altitude)
	assert.Equal(t, 0.0, stress.Components.Battery)
	assert.InDelta(t, 14.715, stress.Components.Motors, 1e-9)
	assert.InDelta(t, 0.00138, stress.Components.Arms, 1e-5)
	assert.InDelta(t, 2.2074, stress.Overall, 1e-4)
}

func TestStressCalculator_Factors(t *testing.T) {
	calc := NewStressCalculator(DefaultDroneConfig())

	assert.InDelta(t, 52.763, gForceStress(2), 1e-3)
	assert.InDelta(t, 77.687, gForceStress(3), 1e-3)
	assert.Equal(t, 0.0, gForceStress(0.5))

	assert.InDelta(t, 10.0, calc.windStress(2), 1e-9)
	assert.InDelta(t, 32.5, calc.windStress(5), 1e-9)
	assert.InDelta(t, 100.0, calc.windStress(8), 1e-9)
	assert.Equal(t, 100.0, calc.windStress(12))
	assert.Equal(t, 0.0, calc.windStress(-3))

	assert.Equal(t, 15.0, temperatureStress(10))
	assert.Equal(t, 20.0, temperatureStress(40))
	assert.Equal(t, 100.0, temperatureStress(70))
	assert.Equal(t, 0.0, temperatureStress(25))

	assert.Equal(t, 0.0, altitudeStress(500))
	assert.InDelta(t, 15.0, altitudeStress(3000), 1e-9)
	assert.Equal(t, 50.0, altitudeStress(20000))

	assert.Equal(t, 20.0, batteryStress(10))
	assert.Equal(t, 15.0, batteryStress(35))
	assert.Equal(t, 0.0, batteryStress(25))

	assert.InDelta(t, 17.658, calc.motorStress(1, 40), 1e-3)
	assert.Equal(t, 0.0, NewStressCalculator(DroneConfig{}).armStress(3))
}

func TestStressCalculator_OverallIsBounded(t *testing.T) {
	stress := NewStressCalculator(DefaultDroneConfig()).FlightStress(FlightConditions{
		GForce:         8,
		WindSpeed:      30,
		AirTemperature: 90,
		Altitude:       9000,
	})
	assert.LessOrEqual(t, stress.Overall, 100.0)
	assert.Greater(t, stress.Overall, 50.0)
	assert.Equal(t, 100.0, stress.Temperature)
	assert.Equal(t, 45.0, stress.Altitude)
}

func TestStressCalculator_ComponentHealth(t *testing.T) {
	calc := NewStressCalculator(DefaultDroneConfig())

	fresh := calc.ComponentHealth(0, 0)
	assert.Equal(t, 100.0, fresh.Overall)
	require.NotNil(t, fresh.Motor)
	assert.Equal(t, 100.0, *fresh.Motor)

	worn := calc.ComponentHealth(20, 50)
	require.NotNil(t, worn.Motor)
	require.NotNil(t, worn.Battery)
	require.NotNil(t, worn.Frame)
	assert.InDelta(t, 85.0, *worn.Motor, 1e-9)
	assert.InDelta(t, 170.0, *worn.MotorRemainingHours, 1e-9)
	assert.InDelta(t, 83.3333, *worn.Battery, 1e-4)
	assert.InDelta(t, 250.0, *worn.BatteryRemainingCycles, 1e-9)
	assert.InDelta(t, 99.7, *worn.Frame, 1e-9)
	assert.InDelta(t, 89.3444, worn.Overall, 1e-4)

	spent := calc.ComponentHealth(1000, 100)
	assert.Equal(t, 0.0, *spent.Motor)
	assert.Equal(t, 0.0, *spent.MotorRemainingHours)
	assert.Equal(t, 0.0, *spent.Battery)
	assert.InDelta(t, 40.0, *spent.Frame, 1e-9)
}

func TestStressCalculator_ComponentHealthWithoutComponents(t *testing.T) {
	health := NewStressCalculator(DroneConfig{TotalWeightKg: 1}).ComponentHealth(50, 80)
	assert.Nil(t, health.Motor)
	assert.Nil(t, health.Battery)
	assert.Nil(t, health.Frame)
	assert.Equal(t, 100.0, health.Overall)
}
