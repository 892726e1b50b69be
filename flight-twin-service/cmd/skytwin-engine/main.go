/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package main

import (
	"context"
	"os"
	"time"

	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg"
	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"

	"skytwin/common/client"
	commonconfig "skytwin/common/config"
	"skytwin/common/db"
	"skytwin/common/telemetry"
	"skytwin/flight-twin-service/internal/config"
	"skytwin/flight-twin-service/internal/functions"
	"skytwin/flight-twin-service/internal/router"
	"skytwin/flight-twin-service/internal/stream"
	"skytwin/flight-twin-service/pkg/db/postgres"
	redisdb "skytwin/flight-twin-service/pkg/db/redis"
	digital_twin "skytwin/flight-twin-service/pkg/digital-twin"
	"skytwin/flight-twin-service/pkg/fleet"
	"skytwin/flight-twin-service/pkg/publisher"
)

const natsConnectTimeout = 30 * time.Second

type twinApp struct {
	service   interfaces.ApplicationService
	lc        logger.LoggingClient
	config    *config.ServiceConfig
	publisher *publisher.MultiPublisher
	metrics   *telemetry.MetricsManager
	pipeline  *functions.TelemetryPipeline
	hub       *stream.Hub
}

func main() {
	app := twinApp{}
	code := app.CreateAndRunAppService(client.TwinEngineServiceKey, pkg.NewAppService)
	os.Exit(code)
}

func (app *twinApp) CreateAndRunAppService(serviceKey string, newServiceFactory func(string) (interfaces.ApplicationService, bool)) int {
	var ok bool
	app.service, ok = newServiceFactory(serviceKey)
	if !ok {
		return -1
	}
	app.lc = app.service.LoggingClient()
	defer app.cleanup()

	app.config = config.NewServiceConfig()
	if err := app.config.LoadConfigurations(app.service); err != nil {
		app.lc.Errorf("failed to load service configuration: %s", err.Error())
		return -1
	}

	mqttPublisher, err := app.newMQTTPublisher()
	if err != nil {
		app.lc.Errorf("failed to create MQTT publisher: %s, exiting", err.Error())
		return -1
	}
	app.metrics, err = telemetry.NewMetricsManager(app.service, client.TwinEngineServiceName, mqttPublisher)
	if err != nil {
		app.lc.Errorf("failed to create metrics manager: %s", err.Error())
		return -1
	}

	dbConfig := db.NewDatabaseConfig()
	dbConfig.LoadAppConfigurations(app.service)
	store := redisdb.DBClientImpl.GetDbClient(dbConfig, app.lc)

	var sessions postgres.FlightSessionRepository
	if dbConfig.PostgresEnabled() {
		repository, err := postgres.OpenFlightSessionRepository(dbConfig, app.lc)
		if err != nil {
			app.lc.Errorf("flight sessions disabled: %s", err.Error())
		} else if err := repository.Migrate(); err != nil {
			app.lc.Errorf("flight sessions disabled, migration failed: %s", err.Error())
		} else {
			sessions = repository
		}
	}

	app.hub = stream.NewHub(app.lc)
	app.publisher = publisher.NewMultiPublisher(app.hub)
	if app.config.PublishMQTT {
		app.publisher.Add(mqttPublisher)
	}
	if app.config.NatsServer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), natsConnectTimeout)
		natsPublisher, err := publisher.NewNATSPublisher(ctx, app.config.NatsServer, app.config.NatsSubject, app.config.NatsStream, app.lc)
		cancel()
		if err != nil {
			app.lc.Errorf("failed to connect to NATS server %s: %s", app.config.NatsServer, err.Error())
			return -1
		}
		app.publisher.Add(natsPublisher)
	}

	hostName, _ := os.Hostname()
	twinTelemetry, terr := functions.NewTelemetry(app.service, client.TwinEngineServiceName, app.metrics.MetricsMgr, hostName, store, app.config.MetricsBatchSize)
	if terr != nil {
		app.lc.Errorf("failed to create telemetry: %s", terr.Error())
		return -1
	}
	app.metrics.Run()

	engineConfig := app.config.Engine
	registry := fleet.NewRegistry(app.config.IdleTTL, func(vehicleID string) digital_twin.TwinEngine {
		return digital_twin.NewEngine(engineConfig, app.lc)
	}, app.lc)
	twinService := functions.NewTwinService(app.config, registry, store, sessions, app.publisher, twinTelemetry, app.lc)

	if err := router.NewRouter(app.service, twinService, app.hub).LoadRestRoutes(); err != nil {
		app.lc.Errorf("failed to add REST routes: %s", err.Error())
		return -1
	}

	subscribedTopics, err := app.service.GetAppSettingStrings("SubscribeTopics")
	if err != nil {
		app.lc.Errorf("failed to retrieve SubscribeTopics from configuration: %s", err.Error())
		return -1
	}
	app.pipeline = functions.NewTelemetryPipeline(twinService, app.config.DedupeTTL, app.lc)
	err = app.service.AddFunctionsPipelineForTopics("Twin", subscribedTopics,
		app.pipeline.ProcessEvent,
		app.pipeline.SetResponse,
	)
	if err != nil {
		app.lc.Errorf("AddFunctionsPipelineForTopics returned error: %s", err.Error())
		return -1
	}

	if err := app.service.Run(); err != nil {
		app.lc.Errorf("Run returned error: %s", err.Error())
		return -1
	}
	return 0
}

func (app *twinApp) newMQTTPublisher() (*publisher.MQTTPublisher, error) {
	topic, err := app.service.GetAppSetting("MqttTopic")
	if err != nil {
		app.lc.Debugf("MqttTopic not configured, publishing under the base topic: %s", err.Error())
	}
	mqttConfig, err := commonconfig.BuildMQTTConfig(app.service, topic, client.TwinEngineServiceName)
	if err != nil {
		return nil, err
	}
	return publisher.NewMQTTPublisher(mqttConfig, app.lc)
}

func (app *twinApp) cleanup() {
	if app.pipeline != nil {
		app.pipeline.Stop()
	}
	if app.metrics != nil {
		app.metrics.Stop()
	}
	if app.publisher != nil {
		app.publisher.Close()
	}
}
