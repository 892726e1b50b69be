/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package client

// Constants related to how services identify themselves in the Service Registry
const (
	ServiceKeyTwinPrefix = "app-skytwin-"

	// ServiceNames
	TwinEngineServiceName = "skytwin-engine"
	SimulatorName         = "skytwin-sim"

	// ServiceKeys - app services start with app-
	TwinEngineServiceKey = "app-skytwin-engine"
)

const (
	LabelVehicle   = "vehicle"
	LabelMission   = "mission"
	LabelRiskLevel = "risk_level"
	LabelNodeName  = "host"
	LabelService   = "service"
)
