/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package db

import (
	"errors"
	"time"
)

const (
	// Mission storage keys
	Mission        = "st:ms"
	MissionHistory = Mission + ":hist"
	MissionSummary = Mission + ":sum"
	VehicleMission = "st:vh:ms"

	MetricCounter = "st:mc"
)

var (
	ErrNotFound = errors.New("item not found")
	ErrInternal = errors.New("internal error")
)

func MakeTimestamp() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
