/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package health

import "math"

const (
	optimalTempLow       = 15.0
	optimalTempHigh      = 35.0
	batteryTempLow       = 20.0
	batteryTempHigh      = 30.0
	altitudeStressFloorM = 1000.0
	maxAltitudeStress    = 50.0
	batteryCycleHours    = 0.5
	frameCyclesPerHour   = 60.0
	frameNominalCycles   = 100000.0
	wholeLifePercent     = 100.0
	batteryStressDivisor = 200.0
	motorStressDivisor   = 100.0
)

// FlightConditions are the loads acting on the airframe at one point of a flight.
type FlightConditions struct {
	GForce         float64 `json:"gForce"`
	WindSpeed      float64 `json:"windSpeed"`
	AirTemperature float64 `json:"airTemperature"`
	Altitude       float64 `json:"altitude"`
}

func DefaultFlightConditions() FlightConditions {
	return FlightConditions{GForce: 1, AirTemperature: 25}
}

// ComponentStress is in percent of each component's limit.
type ComponentStress struct {
	Motors  float64 `json:"motors"`
	Arms    float64 `json:"arms"`
	Battery float64 `json:"battery"`
}

// FlightStress values are percentages in [0,100].
type FlightStress struct {
	Overall     float64         `json:"overall"`
	GForce      float64         `json:"gForce"`
	Wind        float64         `json:"wind"`
	Temperature float64         `json:"temperature"`
	Altitude    float64         `json:"altitude"`
	Components  ComponentStress `json:"components"`
}

// ComponentHealth is remaining life in percent. Components the drone does not have are left nil.
type ComponentHealth struct {
	Motor                  *float64 `json:"motor,omitempty"`
	MotorRemainingHours    *float64 `json:"motorRemainingHours,omitempty"`
	Battery                *float64 `json:"battery,omitempty"`
	BatteryRemainingCycles *float64 `json:"batteryRemainingCycles,omitempty"`
	Frame                  *float64 `json:"frame,omitempty"`
	Overall                float64  `json:"overall"`
}

type StressCalculator struct {
	Config DroneConfig
}

func NewStressCalculator(config DroneConfig) *StressCalculator {
	return &StressCalculator{Config: config}
}

func (c *StressCalculator) FlightStress(conditions FlightConditions) FlightStress {
	stress := FlightStress{
		GForce:      gForceStress(conditions.GForce),
		Wind:        c.windStress(conditions.WindSpeed),
		Temperature: temperatureStress(conditions.AirTemperature),
		Altitude:    altitudeStress(conditions.Altitude),
		Components: ComponentStress{
			Motors:  c.motorStress(conditions.GForce, conditions.AirTemperature),
			Arms:    c.armStress(conditions.GForce),
			Battery: batteryStress(conditions.AirTemperature),
		},
	}
	stress.Overall = clamp(stress.GForce*0.4+
		stress.Wind*0.2+
		stress.Temperature*0.15+
		stress.Components.Motors*0.15+
		stress.Components.Arms*0.1, 0, 100)
	return stress
}

// ComponentHealth estimates wear after flightHours of use at avgStress percent overall stress.
// Stress accelerates motor and battery wear linearly and frame fatigue quadratically.
func (c *StressCalculator) ComponentHealth(flightHours, avgStress float64) ComponentHealth {
	var health ComponentHealth
	var values []float64

	if len(c.Config.Motors) > 0 {
		lifetime := c.Config.Motors[0].ExpectedLifetimeHours
		wear := flightHours / lifetime * (1 + avgStress/motorStressDivisor)
		motor := math.Max(0, wholeLifePercent-wear*100)
		remaining := math.Max(0, lifetime*(1-wear))
		health.Motor, health.MotorRemainingHours = &motor, &remaining
		values = append(values, motor)
	}
	if c.Config.Battery != nil {
		cycleLife := float64(c.Config.Battery.ExpectedCycleLife)
		wear := flightHours / batteryCycleHours / cycleLife * (1 + avgStress/batteryStressDivisor)
		battery := math.Max(0, wholeLifePercent-wear*100)
		remaining := math.Max(0, cycleLife*(1-wear))
		health.Battery, health.BatteryRemainingCycles = &battery, &remaining
		values = append(values, battery)
	}
	if len(c.Config.Arms) > 0 {
		fatigue := math.Pow(avgStress/100, 2)
		wear := flightHours * frameCyclesPerHour / frameNominalCycles * fatigue
		frame := math.Max(0, wholeLifePercent-wear*100)
		health.Frame = &frame
		values = append(values, frame)
	}

	health.Overall = wholeLifePercent
	if len(values) > 0 {
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		health.Overall = sum / float64(len(values))
	}
	return health
}

// gForceStress grows exponentially from 0 at 1 G towards 100 at 5 G.
func gForceStress(gForce float64) float64 {
	if gForce <= 1 {
		return 0
	}
	normalized := (gForce - 1) / 4
	return math.Min(100, 100*(1-math.Exp(-3*normalized)))
}

func (c *StressCalculator) windStress(windSpeed float64) float64 {
	if windSpeed <= 0 || c.Config.MaxWindSpeedMS <= 0 {
		return 0
	}
	ratio := windSpeed / c.Config.MaxWindSpeedMS
	switch {
	case ratio < 0.5:
		return ratio * 40
	case ratio < 0.8:
		return 20 + (ratio-0.5)*100
	default:
		return math.Min(100, 50+(ratio-0.8)*250)
	}
}

func temperatureStress(temperature float64) float64 {
	switch {
	case temperature < optimalTempLow:
		return clamp((optimalTempLow-temperature)*3, 0, 100)
	case temperature > optimalTempHigh:
		return clamp((temperature-optimalTempHigh)*4, 0, 100)
	}
	return 0
}

// altitudeStress accounts for thinner air, 5% per km above 1 km.
func altitudeStress(altitude float64) float64 {
	if altitude < altitudeStressFloorM {
		return 0
	}
	return math.Min(maxAltitudeStress, altitude/1000*5)
}

func (c *StressCalculator) motorStress(gForce, temperature float64) float64 {
	throttle := math.Min(100, gForce*c.Config.HoverThrottlePercent())
	factor := 1.0
	if temperature > 30 {
		factor = 1 + (temperature-30)*0.02
	} else if temperature < 10 {
		factor = 1 + (10-temperature)*0.01
	}
	return math.Min(100, throttle*factor*0.8)
}

// armStress is the bending stress of one arm relative to its material limit.
func (c *StressCalculator) armStress(gForce float64) float64 {
	if len(c.Config.Arms) == 0 || len(c.Config.Motors) == 0 {
		return 0
	}
	arm := c.Config.Arms[0]
	forcePerArm := c.Config.TotalWeightKg * gravity * gForce / float64(len(c.Config.Motors))
	bendingMPa := forcePerArm * arm.LengthM / (arm.CrossSectionAreaM2 * 1e6)
	return clamp(bendingMPa/arm.MaxBendingStressMPa*100, 0, 100)
}

func batteryStress(temperature float64) float64 {
	switch {
	case temperature < batteryTempLow:
		return clamp((batteryTempLow-temperature)*2, 0, 100)
	case temperature > batteryTempHigh:
		return clamp((temperature-batteryTempHigh)*3, 0, 100)
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
