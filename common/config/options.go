/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package config

import (
	"strconv"

	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
)

func GetMQTTRetain(service interfaces.ApplicationService) bool {
	lc := service.LoggingClient()
	retain, err := service.GetAppSetting("Retain")
	if err != nil || retain == "" {
		return false
	}
	retained, err := strconv.ParseBool(retain)
	if err != nil {
		lc.Errorf("Invalid value specified for Retain in configuration: %s", err.Error())
		return false
	}
	return retained
}

func GetMQTTQoS(service interfaces.ApplicationService) byte {
	lc := service.LoggingClient()
	qoS, err := service.GetAppSetting("QoS")
	if err != nil {
		lc.Errorf("failed to retrieve MqttQoS from configuration: %s", err.Error())
		lc.Info("Set MqttQoS to 0")
		qoS = "0"
	}
	var mqttQoS byte
	if qoS == "1" {
		mqttQoS = 1
	} else if qoS == "2" {
		mqttQoS = 2
	} else {
		mqttQoS = 0
		lc.Debugf("MqttQoS configuration defaulting to 0")
	}
	return mqttQoS
}
