/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/edgexfoundry/go-mod-bootstrap/v3/bootstrap/startup"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skytwin/common/db"
	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

// FlightSession is the relational record of one finished mission.
type FlightSession struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	MissionID        string    `json:"missionId" gorm:"size:64;uniqueIndex"`
	VehicleID        string    `json:"vehicleId" gorm:"size:128;index"`
	StartedAt        time.Time `json:"startedAt"`
	StoppedAt        time.Time `json:"stoppedAt"`
	DurationSeconds  float64   `json:"durationSeconds"`
	TotalUpdates     int       `json:"totalUpdates"`
	ReplanCount      int       `json:"replanCount"`
	DistanceTraveled float64   `json:"distanceTraveled"`
	AvgAnomalyScore  float64   `json:"avgAnomalyScore"`
	MaxAnomalyScore  float64   `json:"maxAnomalyScore"`
	LowCount         int       `json:"lowCount"`
	MediumCount      int       `json:"mediumCount"`
	HighCount        int       `json:"highCount"`
	CriticalCount    int       `json:"criticalCount"`
	FinalRiskLevel   string    `json:"finalRiskLevel" gorm:"size:16"`
	AvgFlightStress  float64   `json:"avgFlightStress"`
	FlightHours      float64   `json:"flightHours"`
	OverallHealth    float64   `json:"overallHealth"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (FlightSession) TableName() string {
	return "flight_sessions"
}

// NewFlightSession flattens a mission summary into a session row.
func NewFlightSession(vehicleID string, summary twin.MissionSummary) FlightSession {
	session := FlightSession{
		MissionID:        summary.MissionID,
		VehicleID:        vehicleID,
		StartedAt:        summary.StartedAt,
		StoppedAt:        summary.StoppedAt,
		DurationSeconds:  summary.Duration.Seconds(),
		TotalUpdates:     summary.TotalUpdates,
		ReplanCount:      summary.ReplanCount,
		DistanceTraveled: summary.DistanceTraveled,
		AvgAnomalyScore:  summary.AvgAnomalyScore,
		MaxAnomalyScore:  summary.MaxAnomalyScore,
		LowCount:         summary.LevelCounts[twin.RiskLow],
		MediumCount:      summary.LevelCounts[twin.RiskMedium],
		HighCount:        summary.LevelCounts[twin.RiskHigh],
		CriticalCount:    summary.LevelCounts[twin.RiskCritical],
	}
	if summary.FinalRisk != nil {
		session.FinalRiskLevel = summary.FinalRisk.RiskLevel.String()
	}
	if summary.Health != nil {
		session.AvgFlightStress = summary.Health.AverageStress
		session.FlightHours = summary.Health.FlightHours
		session.OverallHealth = summary.Health.Components.Overall
	}
	return session
}

type FlightSessionRepository interface {
	Migrate() error
	Save(ctx context.Context, vehicleID string, summary twin.MissionSummary) error
	GetByMission(ctx context.Context, missionID string) (FlightSession, error)
	ListByVehicle(ctx context.Context, vehicleID string, limit int) ([]FlightSession, error)
}

type GormFlightSessionRepository struct {
	db *gorm.DB
	lc logger.LoggingClient
}

func NewFlightSessionRepository(db *gorm.DB, lc logger.LoggingClient) *GormFlightSessionRepository {
	return &GormFlightSessionRepository{db: db, lc: lc}
}

// OpenFlightSessionRepository connects to postgres, retrying until the startup timer elapses.
func OpenFlightSessionRepository(dbConfig *db.DatabaseConfig, lc logger.LoggingClient) (*GormFlightSessionRepository, error) {
	var err error
	startupTimer := startup.NewStartUpTimer("postgres-db")
	for startupTimer.HasNotElapsed() {
		var gdb *gorm.DB
		gdb, err = gorm.Open(pgdriver.Open(dbConfig.PostgresDSN()), &gorm.Config{})
		if err == nil {
			lc.Debugf("Successfully connected to postgres %s:%s", dbConfig.PostgresHost, dbConfig.PostgresPort)
			return NewFlightSessionRepository(gdb, lc), nil
		}
		lc.Errorf("Failed connecting to DB (%s:%s|%s). Retrying..", dbConfig.PostgresHost, dbConfig.PostgresPort, dbConfig.PostgresDatabase)
		startupTimer.SleepForInterval()
	}
	return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeDBError, "could not connect to postgres: %v", err)
}

func (r *GormFlightSessionRepository) Migrate() error {
	if err := r.db.AutoMigrate(&FlightSession{}); err != nil {
		r.lc.Errorf("flight session migration failed: %s", err.Error())
		return twinErrors.NewCommonTwinError(twinErrors.ErrorTypeDBError, "flight session migration failed")
	}
	return nil
}

// Save upserts the session of summary.MissionID.
func (r *GormFlightSessionRepository) Save(ctx context.Context, vehicleID string, summary twin.MissionSummary) error {
	session := NewFlightSession(vehicleID, summary)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mission_id"}},
		UpdateAll: true,
	}).Create(&session)
	if result.Error != nil {
		r.lc.Errorf("saving flight session %s failed: %s", summary.MissionID, result.Error.Error())
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeDBError, "saving flight session %s failed", summary.MissionID)
	}
	return nil
}

func (r *GormFlightSessionRepository) GetByMission(ctx context.Context, missionID string) (FlightSession, error) {
	var session FlightSession
	err := r.db.WithContext(ctx).Where("mission_id = ?", missionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeNotFound, "flight session %s not found", missionID)
	}
	if err != nil {
		return session, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeDBError, "reading flight session %s failed", missionID)
	}
	return session, nil
}

func (r *GormFlightSessionRepository) ListByVehicle(ctx context.Context, vehicleID string, limit int) ([]FlightSession, error) {
	var sessions []FlightSession
	query := r.db.WithContext(ctx).Where("vehicle_id = ?", vehicleID).Order("started_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeDBError, "listing flight sessions of %s failed", vehicleID)
	}
	return sessions, nil
}
