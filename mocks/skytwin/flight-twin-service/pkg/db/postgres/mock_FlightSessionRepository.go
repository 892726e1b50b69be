package postgres

import (
	"context"

	"github.com/stretchr/testify/mock"

	pgdb "skytwin/flight-twin-service/pkg/db/postgres"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

// MockFlightSessionRepository is a mock implementation for the FlightSessionRepository interface
type MockFlightSessionRepository struct {
	mock.Mock
}

func (m *MockFlightSessionRepository) Migrate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockFlightSessionRepository) Save(ctx context.Context, vehicleID string, summary twin.MissionSummary) error {
	args := m.Called(ctx, vehicleID, summary)
	return args.Error(0)
}

func (m *MockFlightSessionRepository) GetByMission(ctx context.Context, missionID string) (pgdb.FlightSession, error) {
	args := m.Called(ctx, missionID)
	var res pgdb.FlightSession
	if args.Get(0) != nil {
		res = args.Get(0).(pgdb.FlightSession)
	}
	return res, args.Error(1)
}

func (m *MockFlightSessionRepository) ListByVehicle(ctx context.Context, vehicleID string, limit int) ([]pgdb.FlightSession, error) {
	args := m.Called(ctx, vehicleID, limit)
	var res []pgdb.FlightSession
	if args.Get(0) != nil {
		res = args.Get(0).([]pgdb.FlightSession)
	}
	return res, args.Error(1)
}
