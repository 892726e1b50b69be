/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package telemetry

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/edgexfoundry/go-mod-bootstrap/v3/bootstrap/interfaces"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/common"
	"github.com/hashicorp/go-multierror"
	gometrics "github.com/rcrowley/go-metrics"

	"skytwin/common/dto"
)

const reportTimeout = 10 * time.Second

// MetricPublisher delivers a metrics payload to a topic.
type MetricPublisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

type MetricReporter struct {
	lc                logger.LoggingClient
	publisher         MetricPublisher
	serviceName       string
	topic             string
	tags              map[string]string
	mu                sync.Mutex
	lastReportedValue map[string]string
}

// NewMetricReporter creates a reporter that publishes changed service metrics to "<baseTopic>/<serviceName>"
func NewMetricReporter(
	lc logger.LoggingClient,
	publisher MetricPublisher,
	baseTopic string,
	serviceName string,
	tags map[string]string,
) interfaces.MetricsReporter {
	return &MetricReporter{
		lc:                lc,
		publisher:         publisher,
		serviceName:       serviceName,
		topic:             baseTopic + "/" + serviceName,
		tags:              tags,
		lastReportedValue: make(map[string]string),
	}
}

func (r *MetricReporter) Report(
	registry gometrics.Registry,
	metricTags map[string]map[string]string,
) error {
	var errs error
	publishedCount := 0

	if r.publisher == nil {
		return fmt.Errorf("no publisher available. Unable to report metrics")
	}

	metricGroup := dto.MetricGroup{
		Tags:    make(map[string]interface{}),
		Samples: make([]dto.Data, 0),
	}
	for key, value := range r.tags {
		metricGroup.Tags[key] = value
	}

	registry.Each(func(name string, item interface{}) {
		if !strings.HasPrefix(name, MetricPrefix) {
			return
		}
		var value, valueType string
		switch metric := item.(type) {
		case gometrics.Counter:
			count := metric.Count()
			if count == 0 {
				return
			}
			if count >= (math.MaxInt64 - 1000) { // Near overflow threshold
				r.lc.Warnf("Resetting counter '%s' with value: %d to avoid overflow", name, count)
				metric.Clear()
			}
			value, valueType = strconv.FormatInt(count, 10), common.ValueTypeInt64
		case gometrics.Gauge:
			value, valueType = strconv.FormatInt(metric.Value(), 10), common.ValueTypeInt64
		case gometrics.GaugeFloat64:
			value, valueType = strconv.FormatFloat(metric.Value(), 'f', -1, 64), common.ValueTypeFloat64
		default:
			errs = multierror.Append(errs, fmt.Errorf("metric type %T not supported", metric))
			return
		}

		// only publish values that changed since the last report
		r.mu.Lock()
		if lastValue, exists := r.lastReportedValue[name]; !exists || lastValue != value {
			metricGroup.Samples = append(metricGroup.Samples, dto.Data{
				Name:      name,
				TimeStamp: time.Now().UnixNano(),
				Value:     value,
				ValueType: valueType,
			})
			r.lastReportedValue[name] = value
			publishedCount++
		}
		r.mu.Unlock()

		// The tags are same for all telemetry metrics of a service
		if len(metricGroup.Tags) == 0 {
			for key, value := range metricTags[name] {
				metricGroup.Tags[key] = value
			}
		}
	})

	if publishedCount == 0 {
		r.lc.Debugf("No telemetry metrics to publish.")
		return errs
	}

	metrics := dto.Metrics{
		IsCompressed: false,
		MetricGroup:  metricGroup,
	}
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	if err := r.publisher.Publish(ctx, r.topic, metrics); err != nil {
		r.lc.Errorf("Error publishing telemetry data: %v", err)
		errs = multierror.Append(errs, fmt.Errorf("failed to publish telemetry to topic '%s': %w", r.topic, err))
	} else {
		r.lc.Debugf("Published %d telemetry metrics to the '%s' topic", publishedCount, r.topic)
	}
	return errs
}
