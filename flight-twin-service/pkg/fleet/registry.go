/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package fleet

import (
	"strings"
	"sync"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/patrickmn/go-cache"
	"golang.org/x/exp/slices"

	twinErrors "skytwin/common/errors"
	digital_twin "skytwin/flight-twin-service/pkg/digital-twin"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

// EngineFactory builds the engine of a vehicle seen for the first time.
type EngineFactory func(vehicleID string) digital_twin.TwinEngine

type VehicleStatus struct {
	VehicleID string            `json:"vehicleId"`
	Status    twin.SystemStatus `json:"status"`
}

type entry struct {
	mu     sync.Mutex
	engine digital_twin.TwinEngine
}

// Registry holds one engine per vehicle. Calls for the same vehicle are serialized on the
// vehicle's own lock, different vehicles proceed in parallel. A vehicle that sees no call for
// the idle TTL is dropped together with its engine.
type Registry struct {
	sharedLockMutex sync.Mutex
	engines         *cache.Cache
	factory         EngineFactory
	lc              logger.LoggingClient
}

func NewRegistry(idleTTL time.Duration, factory EngineFactory, lc logger.LoggingClient) *Registry {
	expiration := idleTTL
	cleanup := idleTTL + time.Second
	if idleTTL <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	r := &Registry{
		engines: cache.New(expiration, cleanup),
		factory: factory,
		lc:      lc,
	}
	r.engines.OnEvicted(func(vehicleID string, _ interface{}) {
		lc.Infof("engine of vehicle %s evicted after being idle", vehicleID)
	})
	return r
}

func (r *Registry) lookup(vehicleID string, create bool) (*entry, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return nil, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeBadRequest, "vehicle id is required")
	}

	r.sharedLockMutex.Lock()
	defer r.sharedLockMutex.Unlock()

	var e *entry
	if item, found := r.engines.Get(vehicleID); found {
		e = item.(*entry)
	} else if create {
		e = &entry{engine: r.factory(vehicleID)}
		r.lc.Infof("created engine for vehicle %s", vehicleID)
	} else {
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeNotFound, "vehicle %s not found", vehicleID)
	}
	// every access pushes the idle expiry out
	r.engines.SetDefault(vehicleID, e)
	return e, nil
}

// With runs fn against the engine of vehicleID, creating the engine when needed.
func (r *Registry) With(vehicleID string, fn func(engine digital_twin.TwinEngine) error) error {
	e, err := r.lookup(vehicleID, true)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.engine)
}

// WithExisting is With for a vehicle that must already be registered.
func (r *Registry) WithExisting(vehicleID string, fn func(engine digital_twin.TwinEngine) error) error {
	e, err := r.lookup(vehicleID, false)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.engine)
}

func (r *Registry) Remove(vehicleID string) {
	r.sharedLockMutex.Lock()
	defer r.sharedLockMutex.Unlock()
	r.engines.Delete(vehicleID)
}

func (r *Registry) Vehicles() []string {
	items := r.engines.Items()
	vehicles := make([]string, 0, len(items))
	for vehicleID := range items {
		vehicles = append(vehicles, vehicleID)
	}
	slices.Sort(vehicles)
	return vehicles
}

// Statuses reports every registered vehicle ordered by vehicle id.
func (r *Registry) Statuses() []VehicleStatus {
	statuses := make([]VehicleStatus, 0)
	for vehicleID, item := range r.engines.Items() {
		e := item.Object.(*entry)
		e.mu.Lock()
		statuses = append(statuses, VehicleStatus{VehicleID: vehicleID, Status: e.engine.GetSystemStatus()})
		e.mu.Unlock()
	}
	slices.SortFunc(statuses, func(a, b VehicleStatus) int {
		return strings.Compare(a.VehicleID, b.VehicleID)
	})
	return statuses
}
