package redis

import (
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/go-redsync/redsync/v4"
	"github.com/stretchr/testify/mock"

	"skytwin/common/db"
	twinErrors "skytwin/common/errors"
	redisdb "skytwin/flight-twin-service/pkg/db/redis"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

// MockMissionStore is a mock implementation for the MissionStore interface
type MockMissionStore struct {
	mock.Mock
}

func twinError(args mock.Arguments, index int) twinErrors.TwinError {
	if err := args.Get(index); err != nil {
		return err.(twinErrors.TwinError)
	}
	return nil
}

func (m *MockMissionStore) GetDbClient(dbConfig *db.DatabaseConfig, lc logger.LoggingClient) redisdb.MissionStore {
	args := m.Called(dbConfig, lc)
	if args.Get(0) != nil {
		return args.Get(0).(redisdb.MissionStore)
	}
	return nil
}

func (m *MockMissionStore) IncrMetricCounterBy(key string, value int64) (int64, twinErrors.TwinError) {
	args := m.Called(key, value)
	return args.Get(0).(int64), twinError(args, 1)
}

func (m *MockMissionStore) GetMetricCounter(key string) (int64, twinErrors.TwinError) {
	args := m.Called(key)
	return args.Get(0).(int64), twinError(args, 1)
}

func (m *MockMissionStore) SetMetricCounter(key string, value int64) twinErrors.TwinError {
	args := m.Called(key, value)
	return twinError(args, 0)
}

func (m *MockMissionStore) AcquireRedisLock(lockName string) (*redsync.Mutex, twinErrors.TwinError) {
	args := m.Called(lockName)
	var res *redsync.Mutex
	if args.Get(0) != nil {
		res = args.Get(0).(*redsync.Mutex)
	}
	return res, twinError(args, 1)
}

func (m *MockMissionStore) AppendHistory(vehicleID, missionID string, entry twin.HistoryEntry) twinErrors.TwinError {
	args := m.Called(vehicleID, missionID, entry)
	return twinError(args, 0)
}

func (m *MockMissionStore) GetHistory(missionID string) ([]twin.HistoryEntry, twinErrors.TwinError) {
	args := m.Called(missionID)
	var res []twin.HistoryEntry
	if args.Get(0) != nil {
		res = args.Get(0).([]twin.HistoryEntry)
	}
	return res, twinError(args, 1)
}

func (m *MockMissionStore) SaveSummary(vehicleID string, summary twin.MissionSummary) twinErrors.TwinError {
	args := m.Called(vehicleID, summary)
	return twinError(args, 0)
}

func (m *MockMissionStore) GetSummary(missionID string) (twin.MissionSummary, twinErrors.TwinError) {
	args := m.Called(missionID)
	var res twin.MissionSummary
	if args.Get(0) != nil {
		res = args.Get(0).(twin.MissionSummary)
	}
	return res, twinError(args, 1)
}

func (m *MockMissionStore) GetMissionIDs(vehicleID string) ([]string, twinErrors.TwinError) {
	args := m.Called(vehicleID)
	var res []string
	if args.Get(0) != nil {
		res = args.Get(0).([]string)
	}
	return res, twinError(args, 1)
}
