/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

// Package skytwin is a flight digital twin: per-vehicle outlier scoring of drone telemetry,
// risk classification and trajectory replanning, served as an EdgeX application service.
//
//	@title			skytwin APIs
//	@version		v3
//
// @BasePath	/
// @host		localhost:48110
//
// @securityDefinitions.basic  BasicAuth
// @Security BasicAuth
package skytwin

//go:generate swag init --parseInternal=true --generalInfo=doc.go --pd=true --ot=json --output=./flight-twin-service/cmd/skytwin-engine/res/swagger/
