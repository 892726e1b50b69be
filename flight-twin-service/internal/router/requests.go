/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package router

import (
	"skytwin/flight-twin-service/pkg/dto/twin"
)

type InitializeRequest struct {
	Samples [][]float64 `json:"samples" validate:"required,min=1,dive,len=6"`
}

type SimulatedInitializeRequest struct {
	NumSamples    int     `json:"numSamples" validate:"required,min=1,max=100000"`
	Contamination float64 `json:"contamination" validate:"gte=0,lt=1"`
	Seed          uint64  `json:"seed"`
}

type InitializeResponse struct {
	VehicleID string `json:"vehicleId"`
	Samples   int    `json:"samples"`
	Skipped   int    `json:"skipped,omitempty"`
}

type StartMissionRequest struct {
	Start *twin.Position `json:"start" validate:"required"`
	End   *twin.Position `json:"end" validate:"required"`
}

type TelemetryRequest struct {
	Sensors  *twin.SensorVector `json:"sensors" validate:"required"`
	Position *twin.Position     `json:"position" validate:"required"`
}

// ReplanRequest replans to Destination, or to the mission destination when it is omitted.
type ReplanRequest struct {
	Position    *twin.Position `json:"position" validate:"required"`
	Destination *twin.Position `json:"destination,omitempty"`
}
