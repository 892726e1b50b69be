/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package functions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/common"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/dtos"
	ttlcache "github.com/jellydator/ttlcache/v3"

	twinErrors "skytwin/common/errors"
	"skytwin/common/utils"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

const (
	ResourcePositionX = "PositionX"
	ResourcePositionY = "PositionY"
	ResourcePositionZ = "PositionZ"

	dedupeCapacity = 10000
)

// TelemetryPipeline turns message bus events into twin updates.
type TelemetryPipeline struct {
	service    *TwinService
	seen       *ttlcache.Cache[string, bool]
	cacheMutex sync.Mutex
	lc         logger.LoggingClient
}

func NewTelemetryPipeline(service *TwinService, dedupeTTL time.Duration, lc logger.LoggingClient) *TelemetryPipeline {
	seen := ttlcache.New[string, bool](
		ttlcache.WithTTL[string, bool](dedupeTTL),
		ttlcache.WithCapacity[string, bool](dedupeCapacity),
	)
	go seen.Start()
	return &TelemetryPipeline{service: service, seen: seen, lc: lc}
}

func (p *TelemetryPipeline) Stop() {
	p.seen.Stop()
}

// claim records the event id and reports false when it was already claimed within the dedupe TTL.
// Events without an id are always processed.
func (p *TelemetryPipeline) claim(eventID string) bool {
	if eventID == "" {
		return true
	}
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	if p.seen.Has(eventID) {
		return false
	}
	p.seen.Set(eventID, true, ttlcache.DefaultTTL)
	return true
}

// release forgets an event that was not applied so a redelivery is processed.
func (p *TelemetryPipeline) release(eventID string) {
	if eventID == "" {
		return
	}
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.seen.Delete(eventID)
}

// ProcessEvent feeds the readings of an event into the twin of event.DeviceName.
func (p *TelemetryPipeline) ProcessEvent(ctx interfaces.AppFunctionContext, data interface{}) (bool, interface{}) {
	lc := ctx.LoggingClient()
	if data == nil {
		return false, fmt.Errorf("function ProcessEvent in pipeline '%s': No Data Received", ctx.PipelineId())
	}
	event, ok := data.(dtos.Event)
	if !ok {
		return false, fmt.Errorf("function ProcessEvent in pipeline '%s': type received is not an Event", ctx.PipelineId())
	}
	if !p.claim(event.Id) {
		lc.Debugf("skipping duplicate event %s of %s", event.Id, event.DeviceName)
		return false, nil
	}

	sample, position, err := EventToSample(event)
	if err != nil {
		p.release(event.Id)
		p.service.telemetry.RecordRejected()
		lc.Warnf("rejected event %s of %s: %v", event.Id, event.DeviceName, err)
		return false, err
	}

	update, err := p.service.ProcessTelemetry(context.Background(), event.DeviceName, sample, position)
	if err != nil {
		p.release(event.Id)
		if twinErrors.IsType(err, twinErrors.ErrorTypeNotFound) || twinErrors.IsType(err, twinErrors.ErrorTypePreconditionViolation) {
			lc.Debugf("no active twin for %s, event dropped: %v", event.DeviceName, err)
			return false, nil
		}
		lc.Errorf("failed to process event %s of %s: %v", event.Id, event.DeviceName, err)
		return false, err
	}
	return true, update
}

// SetResponse makes the update the pipeline's response payload.
func (p *TelemetryPipeline) SetResponse(ctx interfaces.AppFunctionContext, data interface{}) (bool, interface{}) {
	update, ok := data.(twin.TwinUpdate)
	if !ok {
		return false, fmt.Errorf("function SetResponse in pipeline '%s': type received is not a TwinUpdate", ctx.PipelineId())
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return false, err
	}
	ctx.SetResponseContentType(common.ContentTypeJSON)
	ctx.SetResponseData(payload)
	return true, update
}

// EventToSample extracts the sensor vector and the position from the readings of an event.
// The position altitude falls back to the Altitude reading when PositionZ is absent.
func EventToSample(event dtos.Event) ([]float64, twin.Position, error) {
	values := make(map[string]float64, len(event.Readings))
	for _, reading := range event.Readings {
		v, err := utils.ReadingToFloat64(reading)
		if err != nil {
			return nil, twin.Position{}, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeInvalidInput, err.Error())
		}
		values[reading.ResourceName] = v
	}

	sample := make([]float64, twin.NumFeatures)
	for i, name := range twin.FeatureNames {
		v, ok := values[name]
		if !ok {
			return nil, twin.Position{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput, "reading %s missing", name)
		}
		sample[i] = v
	}

	x, okX := values[ResourcePositionX]
	y, okY := values[ResourcePositionY]
	if !okX || !okY {
		return nil, twin.Position{}, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeInvalidInput, "position readings missing")
	}
	z, ok := values[ResourcePositionZ]
	if !ok {
		z = values[twin.FeatureNames[3]]
	}
	return sample, twin.Position{X: x, Y: y, Z: z}, nil
}
