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
	"sync"
	"time"

	sdkinterfaces "github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
	"github.com/edgexfoundry/go-mod-bootstrap/v3/bootstrap/interfaces"
	"github.com/edgexfoundry/go-mod-bootstrap/v3/bootstrap/metrics"
	"github.com/spf13/cast"
)

const (
	defaultReportInterval = 30
	defaultTopicPrefix    = "metrics"
)

type MetricsManager struct {
	wg         sync.WaitGroup
	Ctx        context.Context
	cancel     context.CancelFunc
	MetricsMgr interfaces.MetricsManager
}

func NewMetricsManager(service sdkinterfaces.ApplicationService, serviceName string, publisher MetricPublisher) (*MetricsManager, error) {
	lc := service.LoggingClient()

	interval := defaultReportInterval
	if value, err := service.GetAppSetting("MetricReportInterval"); err == nil && value != "" {
		interval, err = cast.ToIntE(value)
		if err != nil || interval <= 0 {
			lc.Errorf("invalid MetricReportInterval %q in configuration", value)
			return nil, fmt.Errorf("invalid MetricReportInterval %q", value)
		}
	}
	duration := time.Duration(interval) * time.Second

	baseTopic, err := service.GetAppSetting("MetricPublishTopicPrefix")
	if err != nil || baseTopic == "" {
		baseTopic = defaultTopicPrefix
	}
	tags := make(map[string]string)
	reporter := NewMetricReporter(lc, publisher, baseTopic, serviceName, tags)

	mmgr := MetricsManager{}
	mmgr.Ctx, mmgr.cancel = context.WithCancel(context.Background())

	mmgr.MetricsMgr = metrics.NewManager(lc, duration, reporter)
	if mmgr.MetricsMgr == nil {
		lc.Errorf("failed to create metrics manager")
		return nil, fmt.Errorf("Failed to create metrics manager")
	}
	return &mmgr, nil
}

func (s *MetricsManager) Run() {
	s.MetricsMgr.Run(s.Ctx, &s.wg)
}

func (s *MetricsManager) Stop() {
	s.cancel()
	s.wg.Wait()
}
