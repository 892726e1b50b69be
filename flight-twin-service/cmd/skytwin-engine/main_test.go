package main

import (
	"testing"

	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
	"github.com/stretchr/testify/assert"

	"skytwin/common/client"
	"skytwin/mocks/skytwin/common/infrastructure/interfaces/utils"
)

func factoryFor(settings map[string]string) func(string) (interfaces.ApplicationService, bool) {
	return func(string) (interfaces.ApplicationService, bool) {
		return utils.NewApplicationServiceMock(settings).AppService, true
	}
}

func TestCreateAndRunAppService_FactoryFails(t *testing.T) {
	app := twinApp{}
	code := app.CreateAndRunAppService(client.TwinEngineServiceKey, func(string) (interfaces.ApplicationService, bool) {
		return nil, false
	})
	assert.Equal(t, -1, code)
}

func TestCreateAndRunAppService_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
	}{
		{"unknown replan policy", map[string]string{"ReplanPolicy": "sometimes"}},
		{"negative idle ttl", map[string]string{"IdleTTL": "-5m"}},
		{"mqtt secret missing", map[string]string{"MqttAuthMode": "usernamepassword", "MqttSecretName": "mbconnectionerror"}},
		{"bad metric interval", map[string]string{"MetricReportInterval": "often"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := twinApp{}
			assert.Equal(t, -1, app.CreateAndRunAppService(client.TwinEngineServiceKey, factoryFor(tt.settings)))
			assert.Nil(t, app.pipeline)
		})
	}
}

func TestNewMQTTPublisher_Topic(t *testing.T) {
	app := twinApp{}
	app.service = utils.NewApplicationServiceMock(map[string]string{"MqttTopic": "fleet"}).AppService
	app.lc = app.service.LoggingClient()

	mqttPublisher, err := app.newMQTTPublisher()
	assert.NoError(t, err)
	assert.Equal(t, "skytwin/fleet/twin/updates/uav-1", mqttPublisher.Topic("twin/updates/uav-1"))

	app.service = utils.NewApplicationServiceMock(nil).AppService
	mqttPublisher, err = app.newMQTTPublisher()
	assert.NoError(t, err)
	assert.Equal(t, "skytwin/metrics/skytwin-engine", mqttPublisher.Topic("metrics/skytwin-engine"))
}
