/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package config

import (
	"os"
	"strings"

	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
	"github.com/lithammer/shortuuid/v3"
)

const (
	defaultTopicPrefix = "skytwin"
	AuthModeNone       = "none"
	AuthModeUserPass   = "usernamepassword"
)

// MQTTConfig is the broker connection used by the twin publishers and the metric reporter.
type MQTTConfig struct {
	BrokerAddress  string
	ClientId       string
	Topic          string
	QoS            byte
	Retain         bool
	AutoReconnect  bool
	KeepAlive      string
	ConnectTimeout string
	AuthMode       string
	SecretName     string
	Username       string
	Password       string
}

func GenerateClientId(clientId string) string {
	return clientId + "-" + shortuuid.New()
}

func BuildMQTTConfig(service interfaces.ApplicationService, topic string, clientId string) (MQTTConfig, error) {
	lc := service.LoggingClient()

	setting := func(name, fallback string) string {
		value, err := service.GetAppSetting(name)
		if err != nil || value == "" {
			return fallback
		}
		return value
	}

	scheme := setting("scheme", "tcp")
	mqttServer := setting("MqttServer", "edgex-mqtt-broker")
	mqttPort := setting("MqttPort", "1883")
	lc.Infof("MQTT Server is %s:%s", mqttServer, mqttPort)

	mqttAuthMode := strings.ToLower(setting("MqttAuthMode", AuthModeNone))
	mqttSecretName := setting("MqttSecretName", "mbconnection")
	lc.Infof("MQTT AuthMode is %v", mqttAuthMode)

	mqttConfig := MQTTConfig{
		BrokerAddress:  scheme + "://" + mqttServer + ":" + mqttPort,
		ClientId:       GenerateClientId(clientId),
		Topic:          BuildTopicNameFromBaseTopicPrefix(topic, "/"),
		QoS:            GetMQTTQoS(service),
		Retain:         GetMQTTRetain(service),
		AutoReconnect:  true,
		KeepAlive:      "30s",
		ConnectTimeout: "60s",
		AuthMode:       mqttAuthMode,
		SecretName:     mqttSecretName,
	}

	if mqttAuthMode == AuthModeUserPass {
		secrets, err := service.SecretProvider().GetSecret(mqttSecretName, "username", "password")
		if err != nil {
			lc.Errorf("failed to read MQTT secret %s: %s", mqttSecretName, err.Error())
			return mqttConfig, err
		}
		mqttConfig.Username = secrets["username"]
		mqttConfig.Password = secrets["password"]
	}
	return mqttConfig, nil
}

func BuildTopicNameFromBaseTopicPrefix(topic string, separator string) string {
	prefix := os.Getenv("MESSAGEBUS_BASETOPICPREFIX")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	if topic == "" {
		return prefix
	}
	if !strings.HasPrefix(topic, prefix) {
		return prefix + separator + topic
	}
	return topic
}
