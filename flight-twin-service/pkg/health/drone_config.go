/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package health

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	twinErrors "skytwin/common/errors"
)

const gravity = 9.81

type FrameType string

const (
	FrameX      FrameType = "X"
	FramePlus   FrameType = "Plus"
	FrameH      FrameType = "H"
	FrameCustom FrameType = "Custom"
)

type MaterialType string

const (
	MaterialCarbonFiber MaterialType = "Carbon Fiber"
	MaterialAluminum    MaterialType = "Aluminum"
	MaterialPlastic     MaterialType = "Plastic"
	MaterialComposite   MaterialType = "Composite"
)

var frameTypeMap = map[string]FrameType{
	"x":      FrameX,
	"quad_x": FrameX,
	"plus":   FramePlus,
	"h":      FrameH,
	"custom": FrameCustom,
}

var materialMap = map[string]MaterialType{
	"carbon fiber": MaterialCarbonFiber,
	"carbon_fiber": MaterialCarbonFiber,
	"aluminum":     MaterialAluminum,
	"plastic":      MaterialPlastic,
	"composite":    MaterialComposite,
}

// ParseFrameType is case insensitive and falls back to FrameX.
func ParseFrameType(value string) FrameType {
	if frame, ok := frameTypeMap[strings.ToLower(strings.TrimSpace(value))]; ok {
		return frame
	}
	return FrameX
}

// ParseMaterial is case insensitive and falls back to carbon fiber.
func ParseMaterial(value string) MaterialType {
	if material, ok := materialMap[strings.ToLower(strings.TrimSpace(value))]; ok {
		return material
	}
	return MaterialCarbonFiber
}

func (f *FrameType) UnmarshalText(text []byte) error {
	*f = ParseFrameType(string(text))
	return nil
}

func (m *MaterialType) UnmarshalText(text []byte) error {
	*m = ParseMaterial(string(text))
	return nil
}

type MotorConfig struct {
	MotorID               int     `json:"motorId"`
	MaxThrustN            float64 `json:"maxThrustN" validate:"gt=0"`
	MaxRPM                int     `json:"maxRpm" validate:"gte=0"`
	WeightKg              float64 `json:"weightKg" validate:"gte=0"`
	ExpectedLifetimeHours float64 `json:"expectedLifetimeHours" validate:"gt=0"`
	CriticalTempCelsius   float64 `json:"criticalTempCelsius"`
}

type ArmConfig struct {
	ArmID               int          `json:"armId"`
	LengthM             float64      `json:"lengthM" validate:"gt=0"`
	CrossSectionAreaM2  float64      `json:"crossSectionAreaM2" validate:"gt=0"`
	Material            MaterialType `json:"material"`
	ThicknessMM         float64      `json:"thicknessMm" validate:"gte=0"`
	MaxBendingStressMPa float64      `json:"maxBendingStressMpa" validate:"gt=0"`
	FatigueLimitMPa     float64      `json:"fatigueLimitMpa" validate:"gte=0"`
	MotorID             int          `json:"motorId"`
}

type BatteryConfig struct {
	CapacityMAh       int     `json:"capacityMah" validate:"gt=0"`
	VoltageNominal    float64 `json:"voltageNominal" validate:"gt=0"`
	VoltageMax        float64 `json:"voltageMax" validate:"gtefield=VoltageNominal"`
	VoltageMin        float64 `json:"voltageMin" validate:"gt=0,ltefield=VoltageNominal"`
	Chemistry         string  `json:"chemistry"`
	Cells             int     `json:"cells" validate:"gt=0"`
	WeightKg          float64 `json:"weightKg" validate:"gte=0"`
	MaxDischargeC     float64 `json:"maxDischargeC" validate:"gte=0"`
	MaxChargeC        float64 `json:"maxChargeC" validate:"gte=0"`
	ExpectedCycleLife int     `json:"expectedCycleLife" validate:"gt=0"`
}

// DroneConfig describes the airframe whose stress and wear the twin tracks.
// FlightHours is the usage accumulated before the twin was created.
type DroneConfig struct {
	DroneID         string         `json:"droneId" validate:"required"`
	ModelName       string         `json:"modelName"`
	FrameType       FrameType      `json:"frameType"`
	TotalWeightKg   float64        `json:"totalWeightKg" validate:"gt=0"`
	FrameMaterial   MaterialType   `json:"frameMaterial"`
	WheelbaseM      float64        `json:"wheelbaseM" validate:"gte=0"`
	Motors          []MotorConfig  `json:"motors" validate:"dive"`
	Arms            []ArmConfig    `json:"arms" validate:"dive"`
	Battery         *BatteryConfig `json:"battery,omitempty"`
	DragCoefficient float64        `json:"dragCoefficient" validate:"gte=0"`
	FrontalAreaM2   float64        `json:"frontalAreaM2" validate:"gte=0"`
	MaxSpeedMS      float64        `json:"maxSpeedMs" validate:"gt=0"`
	MaxClimbRateMS  float64        `json:"maxClimbRateMs" validate:"gt=0"`
	MaxBankAngleDeg float64        `json:"maxBankAngleDeg" validate:"gt=0"`
	MaxYawRateDegS  float64        `json:"maxYawRateDegs" validate:"gt=0"`
	MaxWindSpeedMS  float64        `json:"maxWindSpeedMs" validate:"gt=0"`
	FlightHours     float64        `json:"flightHours" validate:"gte=0"`
}

func (c DroneConfig) NumMotors() int {
	return len(c.Motors)
}

func (c DroneConfig) TotalMaxThrustN() float64 {
	total := 0.0
	for _, motor := range c.Motors {
		total += motor.MaxThrustN
	}
	return total
}

func (c DroneConfig) ThrustToWeightRatio() float64 {
	weight := c.TotalWeightKg * gravity
	if weight <= 0 {
		return 0
	}
	return c.TotalMaxThrustN() / weight
}

func (c DroneConfig) HoverThrustPerMotorN() float64 {
	if len(c.Motors) == 0 {
		return 0
	}
	return c.TotalWeightKg * gravity / float64(len(c.Motors))
}

// HoverThrottlePercent is the share of total thrust needed to hold altitude.
func (c DroneConfig) HoverThrottlePercent() float64 {
	thrust := c.TotalMaxThrustN()
	if thrust == 0 {
		return 0
	}
	return c.TotalWeightKg * gravity / thrust * 100
}

func (c DroneConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput, "invalid drone config: %s", err.Error())
	}
	return nil
}

// DefaultDroneConfig is a 450 mm carbon fiber X quadcopter with a 4S LiPo.
func DefaultDroneConfig() DroneConfig {
	motors := make([]MotorConfig, 4)
	arms := make([]ArmConfig, 4)
	for i := range motors {
		motors[i] = MotorConfig{
			MotorID:               i + 1,
			MaxThrustN:            20,
			MaxRPM:                8000,
			WeightKg:              0.055,
			ExpectedLifetimeHours: 200,
			CriticalTempCelsius:   85,
		}
		arms[i] = ArmConfig{
			ArmID:               i + 1,
			LengthM:             0.225,
			CrossSectionAreaM2:  0.0001,
			Material:            MaterialCarbonFiber,
			ThicknessMM:         2,
			MaxBendingStressMPa: 600,
			FatigueLimitMPa:     300,
			MotorID:             i + 1,
		}
	}
	config := baseDroneConfig()
	config.DroneID = "QUAD_450_01"
	config.ModelName = "Standard 450mm Quadcopter"
	config.TotalWeightKg = 1.5
	config.WheelbaseM = 0.45
	config.Motors = motors
	config.Arms = arms
	config.Battery = &BatteryConfig{
		CapacityMAh:       5000,
		VoltageNominal:    14.8,
		VoltageMax:        16.8,
		VoltageMin:        12.8,
		Chemistry:         "LiPo",
		Cells:             4,
		WeightKg:          0.45,
		MaxDischargeC:     50,
		MaxChargeC:        5,
		ExpectedCycleLife: 300,
	}
	config.FrontalAreaM2 = 0.09
	config.MaxWindSpeedMS = 8
	return config
}

// baseDroneConfig carries the performance limits a config file may leave out.
func baseDroneConfig() DroneConfig {
	return DroneConfig{
		FrameType:       FrameX,
		FrameMaterial:   MaterialCarbonFiber,
		DragCoefficient: 0.6,
		FrontalAreaM2:   0.1,
		MaxSpeedMS:      15,
		MaxClimbRateMS:  5,
		MaxBankAngleDeg: 45,
		MaxYawRateDegS:  180,
		MaxWindSpeedMS:  10,
	}
}

// LoadDroneConfig reads a JSON drone description. Omitted performance limits keep their defaults.
func LoadDroneConfig(path string) (DroneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DroneConfig{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeConfig, "reading drone config %s: %s", path, err.Error())
	}
	config := baseDroneConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return DroneConfig{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeConfig, "decoding drone config %s: %s", path, err.Error())
	}
	if err := config.Validate(); err != nil {
		return DroneConfig{}, err
	}
	return config, nil
}
