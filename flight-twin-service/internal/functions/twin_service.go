/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package functions

import (
	"context"
	"sync"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/hashicorp/go-multierror"

	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/internal/config"
	"skytwin/flight-twin-service/pkg/db/postgres"
	redisdb "skytwin/flight-twin-service/pkg/db/redis"
	digital_twin "skytwin/flight-twin-service/pkg/digital-twin"
	"skytwin/flight-twin-service/pkg/dto/twin"
	"skytwin/flight-twin-service/pkg/fleet"
	"skytwin/flight-twin-service/pkg/publisher"
	"skytwin/flight-twin-service/pkg/simulator"
)

// TwinService runs the twin operations of the fleet and takes care of everything around the
// engines: persistence, publishing and metrics. Storage, sessions and publisher are optional.
type TwinService struct {
	config    *config.ServiceConfig
	registry  *fleet.Registry
	store     redisdb.MissionStore
	sessions  postgres.FlightSessionRepository
	publisher publisher.Publisher
	telemetry *Telemetry
	lc        logger.LoggingClient

	replanMutex sync.Mutex
	lastReplan  map[string]twin.RiskLevel
}

func NewTwinService(
	cfg *config.ServiceConfig,
	registry *fleet.Registry,
	store redisdb.MissionStore,
	sessions postgres.FlightSessionRepository,
	pub publisher.Publisher,
	telemetry *Telemetry,
	lc logger.LoggingClient,
) *TwinService {
	return &TwinService{
		config:     cfg,
		registry:   registry,
		store:      store,
		sessions:   sessions,
		publisher:  pub,
		telemetry:  telemetry,
		lc:         lc,
		lastReplan: make(map[string]twin.RiskLevel),
	}
}

func (s *TwinService) Initialize(vehicleID string, samples [][]float64) error {
	return s.registry.With(vehicleID, func(engine digital_twin.TwinEngine) error {
		_, err := engine.Initialize(samples)
		return err
	})
}

// InitializeSimulated trains the vehicle's model on a generated dataset with the given outlier share.
func (s *TwinService) InitializeSimulated(vehicleID string, numSamples int, contamination float64, seed uint64) (int, error) {
	if numSamples <= 0 {
		return 0, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeInvalidInput, "number of samples must be positive")
	}
	if contamination < 0 || contamination >= 1 {
		return 0, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeInvalidInput, "contamination must be in [0,1)")
	}
	samples := simulator.NewTelemetrySimulator(seed).TrainingSet(numSamples, contamination)
	if err := s.Initialize(vehicleID, samples); err != nil {
		return 0, err
	}
	return len(samples), nil
}

func (s *TwinService) StartMission(vehicleID string, start, end twin.Position) (twin.MissionDescriptor, error) {
	var descriptor twin.MissionDescriptor
	err := s.registry.WithExisting(vehicleID, func(engine digital_twin.TwinEngine) error {
		var err error
		descriptor, err = engine.StartMission(start, end)
		return err
	})
	if err != nil {
		return descriptor, err
	}
	s.replanMutex.Lock()
	delete(s.lastReplan, vehicleID)
	s.replanMutex.Unlock()
	s.telemetry.RecordMissionStarted()
	return descriptor, nil
}

func (s *TwinService) shouldReplan(vehicleID string, update twin.TelemetryUpdate) bool {
	if !s.config.AutoReplan || !update.PathUpdateRequired {
		return false
	}
	if s.config.ReplanPolicy != config.ReplanPolicyOnChange {
		return true
	}
	s.replanMutex.Lock()
	defer s.replanMutex.Unlock()
	last, found := s.lastReplan[vehicleID]
	return !found || last != update.RiskAssessment.RiskLevel
}

func (s *TwinService) markReplanned(vehicleID string, level twin.RiskLevel) {
	s.replanMutex.Lock()
	defer s.replanMutex.Unlock()
	s.lastReplan[vehicleID] = level
}

// ProcessTelemetry scores one reading of vehicleID, replans when the policy asks for it,
// then records and publishes the outcome.
func (s *TwinService) ProcessTelemetry(ctx context.Context, vehicleID string, sample []float64, position twin.Position) (twin.TwinUpdate, error) {
	var (
		result twin.TwinUpdate
		entry  twin.HistoryEntry
	)
	err := s.registry.WithExisting(vehicleID, func(engine digital_twin.TwinEngine) error {
		update, err := engine.UpdateTelemetry(sample, position)
		if err != nil {
			return err
		}
		result = twin.TwinUpdate{VehicleID: vehicleID, MissionID: engine.MissionID(), Update: update}
		history := engine.History()
		entry = history[len(history)-1]

		if s.shouldReplan(vehicleID, update) {
			replan, err := engine.ReplanTrajectory(position, engine.Destination())
			if err != nil {
				s.lc.Errorf("automatic replan of vehicle %s failed: %v", vehicleID, err)
				return nil
			}
			result.Replan = &replan
			s.markReplanned(vehicleID, replan.RiskLevel)
		}
		return nil
	})
	if err != nil {
		if twinErrors.IsType(err, twinErrors.ErrorTypeInvalidInput) {
			s.telemetry.RecordRejected()
		}
		return twin.TwinUpdate{}, err
	}

	if err := s.telemetry.RecordUpdate(result.Update); err != nil {
		s.lc.Errorf("failed to persist metric counters: %v", err)
	}
	if result.Replan != nil {
		if err := s.telemetry.RecordReplan(); err != nil {
			s.lc.Errorf("failed to persist metric counters: %v", err)
		}
	}
	if s.store != nil && s.config.PersistHistory {
		if err := s.store.AppendHistory(vehicleID, result.MissionID, entry); err != nil {
			s.lc.Errorf("failed to persist history of mission %s: %v", result.MissionID, err)
		}
	}
	s.publish(ctx, s.updatesTopic(vehicleID), result)
	return result, nil
}

// Replan replans from position to destination, or to the mission destination when none is given.
func (s *TwinService) Replan(ctx context.Context, vehicleID string, position twin.Position, destination *twin.Position) (twin.ReplanResult, error) {
	var result twin.ReplanResult
	var missionID string
	err := s.registry.WithExisting(vehicleID, func(engine digital_twin.TwinEngine) error {
		target := engine.Destination()
		if destination != nil {
			target = *destination
		}
		var err error
		result, err = engine.ReplanTrajectory(position, target)
		missionID = engine.MissionID()
		return err
	})
	if err != nil {
		return result, err
	}
	s.markReplanned(vehicleID, result.RiskLevel)
	if err := s.telemetry.RecordReplan(); err != nil {
		s.lc.Errorf("failed to persist metric counters: %v", err)
	}
	s.publish(ctx, s.updatesTopic(vehicleID), twin.TwinUpdate{VehicleID: vehicleID, MissionID: missionID, Replan: &result})
	return result, nil
}

func (s *TwinService) Status(vehicleID string) (twin.SystemStatus, error) {
	var status twin.SystemStatus
	err := s.registry.WithExisting(vehicleID, func(engine digital_twin.TwinEngine) error {
		status = engine.GetSystemStatus()
		return nil
	})
	return status, err
}

func (s *TwinService) Trajectory(vehicleID string) (twin.Trajectory, error) {
	var trajectory twin.Trajectory
	err := s.registry.WithExisting(vehicleID, func(engine digital_twin.TwinEngine) error {
		trajectory = engine.Trajectory()
		return nil
	})
	return trajectory, err
}

// StopMission ends the vehicle's mission and stores the summary. Storage failures are logged,
// the mission is stopped regardless.
func (s *TwinService) StopMission(ctx context.Context, vehicleID string) (twin.MissionSummary, error) {
	var summary twin.MissionSummary
	err := s.registry.WithExisting(vehicleID, func(engine digital_twin.TwinEngine) error {
		var err error
		summary, err = engine.StopMission()
		return err
	})
	if err != nil {
		return summary, err
	}
	s.telemetry.RecordMissionCompleted()

	var errs error
	if s.store != nil {
		if err := s.store.SaveSummary(vehicleID, summary); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if s.sessions != nil {
		if err := s.sessions.Save(ctx, vehicleID, summary); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		s.lc.Errorf("failed to store summary of mission %s: %v", summary.MissionID, errs)
	}
	s.publish(ctx, s.updatesTopic(vehicleID)+"/summary", summary)
	return summary, nil
}

// History returns the entries of missionID, or of the current mission when missionID is empty.
// Earlier missions are read from the store.
func (s *TwinService) History(vehicleID string, missionID string) ([]twin.HistoryEntry, error) {
	var history []twin.HistoryEntry
	current := false
	err := s.registry.WithExisting(vehicleID, func(engine digital_twin.TwinEngine) error {
		if missionID == "" || missionID == engine.MissionID() {
			current = true
			history = engine.History()
		}
		return nil
	})
	if current {
		return history, nil
	}
	if err != nil && (missionID == "" || !twinErrors.IsType(err, twinErrors.ErrorTypeNotFound)) {
		return nil, err
	}
	if s.store == nil {
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeNotFound, "mission %s not found", missionID)
	}
	return s.store.GetHistory(missionID)
}

func (s *TwinService) Summary(missionID string) (twin.MissionSummary, error) {
	if s.store == nil {
		return twin.MissionSummary{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeNotFound, "mission %s not found", missionID)
	}
	return s.store.GetSummary(missionID)
}

func (s *TwinService) Missions(vehicleID string) ([]string, error) {
	if s.store == nil {
		return []string{}, nil
	}
	return s.store.GetMissionIDs(vehicleID)
}

func (s *TwinService) Sessions(ctx context.Context, vehicleID string, limit int) ([]postgres.FlightSession, error) {
	if s.sessions == nil {
		return []postgres.FlightSession{}, nil
	}
	return s.sessions.ListByVehicle(ctx, vehicleID, limit)
}

func (s *TwinService) Vehicles() []fleet.VehicleStatus {
	return s.registry.Statuses()
}

func (s *TwinService) updatesTopic(vehicleID string) string {
	return s.config.UpdatesTopic + "/" + vehicleID
}

func (s *TwinService) publish(ctx context.Context, topic string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.telemetry.RecordPublishError()
		s.lc.Errorf("failed to publish to %s: %v", topic, err)
	}
}
