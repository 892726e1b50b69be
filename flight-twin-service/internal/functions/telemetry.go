/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package functions

import (
	"strings"
	"sync"

	"github.com/caio/go-tdigest/v4"
	sdkinterfaces "github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
	"github.com/edgexfoundry/go-mod-bootstrap/v3/bootstrap/interfaces"
	gometrics "github.com/rcrowley/go-metrics"

	"skytwin/common/client"
	"skytwin/common/db"
	twinErrors "skytwin/common/errors"
	common "skytwin/common/telemetry"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

// CounterStore persists metric counters across service restarts.
type CounterStore interface {
	GetMetricCounter(key string) (int64, twinErrors.TwinError)
	SetMetricCounter(key string, value int64) twinErrors.TwinError
}

type Telemetry struct {
	updates           gometrics.Counter
	rejected          gometrics.Counter
	anomalies         gometrics.Counter
	replans           gometrics.Counter
	missionsStarted   gometrics.Counter
	missionsCompleted gometrics.Counter
	publishErrors     gometrics.Counter
	levelCounts       map[twin.RiskLevel]gometrics.Counter
	scoreP95          gometrics.GaugeFloat64
	digest            *tdigest.TDigest
	store             CounterStore
	metricsBatchSize  int64
	currentBatchCount int64
	mutex             sync.Mutex
}

func NewTelemetry(service sdkinterfaces.ApplicationService, serviceName string, metricsManager interfaces.MetricsManager, hostName string, store CounterStore, batchSize int64) (*Telemetry, twinErrors.TwinError) {
	telemetry := &Telemetry{
		updates:           gometrics.NewCounter(),
		rejected:          gometrics.NewCounter(),
		anomalies:         gometrics.NewCounter(),
		replans:           gometrics.NewCounter(),
		missionsStarted:   gometrics.NewCounter(),
		missionsCompleted: gometrics.NewCounter(),
		publishErrors:     gometrics.NewCounter(),
		levelCounts:       make(map[twin.RiskLevel]gometrics.Counter, len(twin.RiskLevels)),
		scoreP95:          gometrics.NewGaugeFloat64(),
		store:             store,
		metricsBatchSize:  batchSize,
	}
	for _, level := range twin.RiskLevels {
		telemetry.levelCounts[level] = gometrics.NewCounter()
	}
	digest, err := tdigest.New()
	if err != nil {
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeServerError, "failed to create score digest: %v", err)
	}
	telemetry.digest = digest

	if store != nil {
		// counting must resume from the persisted values, otherwise the reported totals drop to 0 on restart
		if err := telemetry.fetchCurrentCountersValuesFromDb(); err != nil {
			service.LoggingClient().Errorf(err.Error())
			return nil, err
		}
		service.LoggingClient().Infof("metrics counters retrieved from db at the service start: %s-%v, %s-%v",
			common.TelemetryUpdatesCount, telemetry.updates.Count(), common.ReplansCount, telemetry.replans.Count())
	}

	tags := make(map[string]string)
	tags[client.LabelService] = serviceName
	tags[client.LabelNodeName] = hostName

	if metricsManager != nil {
		for name, metric := range telemetry.metrics() {
			if err := metricsManager.Register(name, metric, tags); err != nil {
				return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeServerError, "failed to register metric %s: %v", name, err)
			}
		}
	}
	return telemetry, nil
}

func (t *Telemetry) metrics() map[string]interface{} {
	metrics := map[string]interface{}{
		common.TelemetryUpdatesCount:  t.updates,
		common.RejectedReadingsCount:  t.rejected,
		common.AnomaliesCount:         t.anomalies,
		common.ReplansCount:           t.replans,
		common.MissionsStartedCount:   t.missionsStarted,
		common.MissionsCompletedCount: t.missionsCompleted,
		common.PublishErrorsCount:     t.publishErrors,
		common.AnomalyScoreP95:        t.scoreP95,
	}
	for level, counter := range t.levelCounts {
		metrics[levelMetricName(level)] = counter
	}
	return metrics
}

func levelMetricName(level twin.RiskLevel) string {
	return common.RiskLevelCountPrefix + strings.ToLower(level.String())
}

// persisted counters
func (t *Telemetry) persisted() map[string]gometrics.Counter {
	return map[string]gometrics.Counter{
		common.TelemetryUpdatesCount: t.updates,
		common.AnomaliesCount:        t.anomalies,
		common.ReplansCount:          t.replans,
	}
}

// RecordUpdate counts one scored reading.
func (t *Telemetry) RecordUpdate(update twin.TelemetryUpdate) twinErrors.TwinError {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.updates.Inc(1)
	if update.RiskAssessment.IsAnomaly {
		t.anomalies.Inc(1)
	}
	if counter, ok := t.levelCounts[update.RiskAssessment.RiskLevel]; ok {
		counter.Inc(1)
	}
	if err := t.digest.Add(update.RiskAssessment.AnomalyScore); err == nil {
		t.scoreP95.Update(t.digest.Quantile(0.95))
	}
	return t.countAndFlush()
}

func (t *Telemetry) RecordReplan() twinErrors.TwinError {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.replans.Inc(1)
	return t.countAndFlush()
}

func (t *Telemetry) RecordRejected() {
	t.rejected.Inc(1)
}

func (t *Telemetry) RecordMissionStarted() {
	t.missionsStarted.Inc(1)
}

func (t *Telemetry) RecordMissionCompleted() {
	t.missionsCompleted.Inc(1)
}

func (t *Telemetry) RecordPublishError() {
	t.publishErrors.Inc(1)
}

func (t *Telemetry) ScoreP95() float64 {
	return t.scoreP95.Value()
}

func (t *Telemetry) Count(name string) int64 {
	if metric, ok := t.metrics()[name].(gometrics.Counter); ok {
		return metric.Count()
	}
	return 0
}

// countAndFlush writes the counters to the store once per batch. Caller holds the mutex.
func (t *Telemetry) countAndFlush() twinErrors.TwinError {
	if t.store == nil {
		return nil
	}
	t.currentBatchCount++
	if t.currentBatchCount < t.metricsBatchSize {
		return nil
	}
	if err := t.updateCountersInDb(); err != nil {
		return err
	}
	t.currentBatchCount = 0
	return nil
}

func (t *Telemetry) updateCountersInDb() twinErrors.TwinError {
	for name, counter := range t.persisted() {
		if err := t.store.SetMetricCounter(db.MetricCounter+":"+name, counter.Count()); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telemetry) fetchCurrentCountersValuesFromDb() twinErrors.TwinError {
	for name, counter := range t.persisted() {
		value, err := t.store.GetMetricCounter(db.MetricCounter + ":" + name)
		if err != nil {
			return err
		}
		counter.Clear()
		counter.Inc(value)
	}
	return nil
}
