/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package publisher

import (
	"context"
	"strings"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/pkg/errors"

	"skytwin/common/config"
	twinErrors "skytwin/common/errors"
)

// max concurrent MQTT publish command
const maxConcurrency = 5

// MQTTPublisher publishes JSON payloads below the configured base topic.
// The broker connection is established lazily on first publish and re-established when lost.
type MQTTPublisher struct {
	lock       sync.Mutex
	client     MQTT.Client
	mqttConfig config.MQTTConfig
	opts       *MQTT.ClientOptions
	lc         logger.LoggingClient
	sem        chan bool
}

func NewMQTTPublisher(mqttConfig config.MQTTConfig, lc logger.LoggingClient) (*MQTTPublisher, error) {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(mqttConfig.BrokerAddress)
	opts.SetClientID(mqttConfig.ClientId)
	opts.SetAutoReconnect(mqttConfig.AutoReconnect)

	if strings.ToLower(mqttConfig.AuthMode) == config.AuthModeUserPass {
		opts.SetUsername(mqttConfig.Username)
		opts.SetPassword(mqttConfig.Password)
	}
	if len(mqttConfig.KeepAlive) > 0 {
		keepAlive, err := time.ParseDuration(mqttConfig.KeepAlive)
		if err != nil {
			return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeConfig, "unable to parse KeepAlive value of '%s': %v", mqttConfig.KeepAlive, err)
		}
		opts.SetKeepAlive(keepAlive)
	}
	if len(mqttConfig.ConnectTimeout) > 0 {
		timeout, err := time.ParseDuration(mqttConfig.ConnectTimeout)
		if err != nil {
			return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeConfig, "unable to parse ConnectTimeout value of '%s': %v", mqttConfig.ConnectTimeout, err)
		}
		opts.SetConnectTimeout(timeout)
	}

	return &MQTTPublisher{
		mqttConfig: mqttConfig,
		opts:       opts,
		lc:         lc,
		sem:        make(chan bool, maxConcurrency),
	}, nil
}

func (p *MQTTPublisher) Options() *MQTT.ClientOptions {
	return p.opts
}

// Topic resolves a relative topic below the configured base topic.
func (p *MQTTPublisher) Topic(topic string) string {
	if topic == "" {
		return p.mqttConfig.Topic
	}
	if p.mqttConfig.Topic == "" || strings.HasPrefix(topic, p.mqttConfig.Topic) {
		return topic
	}
	return p.mqttConfig.Topic + "/" + topic
}

func (p *MQTTPublisher) connect() (MQTT.Client, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.client != nil && p.client.IsConnected() {
		return p.client, nil
	}
	p.lc.Infof("Connecting to MQTT broker %s", p.mqttConfig.BrokerAddress)
	client := MQTT.NewClient(p.opts)
	token := client.Connect()
	if !token.WaitTimeout(p.opts.ConnectTimeout) {
		return nil, errors.Errorf("timed out connecting to MQTT broker %s", p.mqttConfig.BrokerAddress)
	}
	if token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "could not connect to MQTT broker %s", p.mqttConfig.BrokerAddress)
	}
	p.client = client
	return client, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	// limit concurrent publish operations
	p.sem <- true
	defer func() { <-p.sem }()

	data, err := encode(payload)
	if err != nil {
		return err
	}
	client, err := p.connect()
	if err != nil {
		p.lc.Errorf("MQTT publish skipped: %v", err)
		return twinErrors.NewCommonTwinError(twinErrors.ErrorTypePublish, err.Error())
	}

	fullTopic := p.Topic(topic)
	token := client.Publish(fullTopic, p.mqttConfig.QoS, p.mqttConfig.Retain, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "publish to %s cancelled: %v", fullTopic, ctx.Err())
	}
	if token.Error() != nil {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "failed to publish to %s: %v", fullTopic, token.Error())
	}
	p.lc.Debugf("Published %d bytes to MQTT topic %s", len(data), fullTopic)
	return nil
}

func (p *MQTTPublisher) Close() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.client = nil
}
