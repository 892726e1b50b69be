/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package config

import (
	"strings"
	"time"

	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
	"github.com/spf13/cast"

	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/anomaly"
	digital_twin "skytwin/flight-twin-service/pkg/digital-twin"
	"skytwin/flight-twin-service/pkg/health"
)

const (
	ReplanPolicyElevated = "elevated"
	ReplanPolicyOnChange = "on-change"

	defaultIdleTTL          = 30 * time.Minute
	defaultDedupeTTL        = time.Minute
	defaultMetricsBatchSize = 10
	defaultUpdatesTopic     = "twin/updates"
	defaultSubjectPrefix    = "skytwin"
)

// ServiceConfig holds the ApplicationSettings of the twin engine service
type ServiceConfig struct {
	Engine           digital_twin.EngineConfig
	ReplanPolicy     string
	AutoReplan       bool
	IdleTTL          time.Duration
	DedupeTTL        time.Duration
	MetricsBatchSize int64
	UpdatesTopic     string
	PublishMQTT      bool
	NatsServer       string
	NatsSubject      string
	NatsStream       string
	PersistHistory   bool
}

func NewServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Engine:           digital_twin.DefaultEngineConfig(),
		ReplanPolicy:     ReplanPolicyElevated,
		AutoReplan:       true,
		IdleTTL:          defaultIdleTTL,
		DedupeTTL:        defaultDedupeTTL,
		MetricsBatchSize: defaultMetricsBatchSize,
		UpdatesTopic:     defaultUpdatesTopic,
		NatsSubject:      defaultSubjectPrefix,
		PersistHistory:   true,
	}
}

// LoadConfigurations overrides the defaults with the configured settings. Unset settings keep
// their default, malformed ones are reported as configuration errors.
func (cfg *ServiceConfig) LoadConfigurations(service interfaces.ApplicationService) twinErrors.TwinError {
	lc := service.LoggingClient()

	setting := func(name string) (string, bool) {
		value, err := service.GetAppSetting(name)
		if err != nil {
			lc.Debugf("%s not configured: %s", name, err.Error())
			return "", false
		}
		value = strings.TrimSpace(value)
		return value, value != ""
	}
	invalid := func(name, value string, err error) twinErrors.TwinError {
		lc.Errorf("Invalid value %q for %s: %v", value, name, err)
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeConfig, "invalid value %q for %s", value, name)
	}

	if value, ok := setting("Contamination"); ok {
		contamination, err := cast.ToFloat64E(value)
		if err != nil || contamination <= 0 || contamination > anomaly.MaxContamination {
			return invalid("Contamination", value, err)
		}
		cfg.Engine.Contamination = contamination
	}
	if value, ok := setting("Seed"); ok {
		seed, err := cast.ToUint64E(value)
		if err != nil {
			return invalid("Seed", value, err)
		}
		cfg.Engine.Seed = seed
	}
	if value, ok := setting("SafetyMargin"); ok {
		margin, err := cast.ToFloat64E(value)
		if err != nil || margin < 0 {
			return invalid("SafetyMargin", value, err)
		}
		cfg.Engine.SafetyMargin = margin
	}
	if value, ok := setting("NumTrees"); ok {
		trees, err := cast.ToIntE(value)
		if err != nil || trees <= 0 {
			return invalid("NumTrees", value, err)
		}
		cfg.Engine.NumTrees = trees
	}
	if value, ok := setting("DroneConfigFile"); ok {
		drone, err := health.LoadDroneConfig(value)
		if err != nil {
			return invalid("DroneConfigFile", value, err)
		}
		cfg.Engine.Drone = drone
	}
	if value, ok := setting("ReplanPolicy"); ok {
		policy := strings.ToLower(value)
		if policy != ReplanPolicyElevated && policy != ReplanPolicyOnChange {
			return invalid("ReplanPolicy", value, nil)
		}
		cfg.ReplanPolicy = policy
	}
	if value, ok := setting("AutoReplan"); ok {
		autoReplan, err := cast.ToBoolE(value)
		if err != nil {
			return invalid("AutoReplan", value, err)
		}
		cfg.AutoReplan = autoReplan
	}
	if value, ok := setting("IdleTTL"); ok {
		ttl, err := cast.ToDurationE(value)
		if err != nil || ttl < 0 {
			return invalid("IdleTTL", value, err)
		}
		cfg.IdleTTL = ttl
	}
	if value, ok := setting("DedupeTTL"); ok {
		ttl, err := cast.ToDurationE(value)
		if err != nil || ttl <= 0 {
			return invalid("DedupeTTL", value, err)
		}
		cfg.DedupeTTL = ttl
	}
	if value, ok := setting("MetricsBatchSize"); ok {
		batch, err := cast.ToInt64E(value)
		if err != nil || batch <= 0 {
			return invalid("MetricsBatchSize", value, err)
		}
		cfg.MetricsBatchSize = batch
	}
	if value, ok := setting("UpdatesTopic"); ok {
		cfg.UpdatesTopic = value
	}
	if value, ok := setting("PublishMQTT"); ok {
		publish, err := cast.ToBoolE(value)
		if err != nil {
			return invalid("PublishMQTT", value, err)
		}
		cfg.PublishMQTT = publish
	}
	if value, ok := setting("PersistHistory"); ok {
		persist, err := cast.ToBoolE(value)
		if err != nil {
			return invalid("PersistHistory", value, err)
		}
		cfg.PersistHistory = persist
	}
	if value, ok := setting("NatsServer"); ok {
		cfg.NatsServer = value
	}
	if value, ok := setting("NatsSubject"); ok {
		cfg.NatsSubject = value
	}
	if value, ok := setting("NatsStream"); ok {
		cfg.NatsStream = value
	}

	lc.Infof("twin engine config: contamination=%v seed=%d margin=%v trees=%d replanPolicy=%s drone=%s",
		cfg.Engine.Contamination, cfg.Engine.Seed, cfg.Engine.SafetyMargin, cfg.Engine.NumTrees, cfg.ReplanPolicy, cfg.Engine.Drone.DroneID)
	return nil
}
