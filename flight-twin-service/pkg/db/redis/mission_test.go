package redis

import (
	"testing"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skytwin/common/db/redis"
	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
	fakeredis "skytwin/mocks/skytwin/common/db/redis"
)

func newTestStore() (*MissionDBClient, *fakeredis.Store) {
	store := fakeredis.NewStore()
	client := redis.NewDBClientFromPool(fakeredis.NewPool(store), logger.NewMockClient())
	return NewMissionDBClient(client), store
}

func sampleEntry(score float64, level twin.RiskLevel) twin.HistoryEntry {
	return twin.HistoryEntry{
		Timestamp: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		Sensors:   twin.SensorVector{BatteryLevel: 90, Temperature: 30, Vibration: 1, Altitude: 60, Speed: 9, MotorCurrent: 3},
		Risk:      twin.RiskAssessment{AnomalyScore: score, RiskLevel: level, Recommendation: "x"},
		Position:  twin.Position{X: 1, Y: 2, Z: 3},
	}
}

func TestAppendAndGetHistory(t *testing.T) {
	dbClient, _ := newTestStore()

	require.Nil(t, dbClient.AppendHistory("drone-1", "m-1", sampleEntry(0.1, twin.RiskLow)))
	require.Nil(t, dbClient.AppendHistory("drone-1", "m-1", sampleEntry(0.7, twin.RiskHigh)))

	history, err := dbClient.GetHistory("m-1")
	require.Nil(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, sampleEntry(0.1, twin.RiskLow), history[0])
	assert.Equal(t, twin.RiskHigh, history[1].Risk.RiskLevel)

	ids, err := dbClient.GetMissionIDs("drone-1")
	require.Nil(t, err)
	assert.Equal(t, []string{"m-1"}, ids)
}

func TestGetHistory_NotFound(t *testing.T) {
	dbClient, _ := newTestStore()
	_, err := dbClient.GetHistory("unknown")
	require.NotNil(t, err)
	assert.True(t, err.IsErrorType(twinErrors.ErrorTypeNotFound))
}

func TestAppendHistory_DBError(t *testing.T) {
	dbClient, store := newTestStore()
	store.FailCommands["RPUSH"] = true

	err := dbClient.AppendHistory("drone-1", "m-1", sampleEntry(0.1, twin.RiskLow))
	require.NotNil(t, err)
	assert.True(t, err.IsErrorType(twinErrors.ErrorTypeDBError))
}

func TestSaveAndGetSummary(t *testing.T) {
	dbClient, store := newTestStore()
	final := twin.Position{X: 10, Y: 5, Z: 0}
	summary := twin.MissionSummary{
		MissionID:        "m-2",
		TotalUpdates:     12,
		ReplanCount:      2,
		DistanceTraveled: 42.5,
		Duration:         90 * time.Second,
		StartedAt:        time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		StoppedAt:        time.Date(2025, 5, 1, 8, 1, 30, 0, time.UTC),
		FinalPosition:    &final,
		RiskSummary: twin.RiskSummary{
			LevelCounts:     map[twin.RiskLevel]int{twin.RiskLow: 10, twin.RiskMedium: 0, twin.RiskHigh: 1, twin.RiskCritical: 1},
			AvgAnomalyScore: 0.2,
			MaxAnomalyScore: 0.9,
		},
	}

	require.Nil(t, dbClient.SaveSummary("drone-2", summary))

	got, err := dbClient.GetSummary("m-2")
	require.Nil(t, err)
	assert.Equal(t, summary, got)

	_, held := store.String("st:ms:lock:m-2")
	assert.False(t, held, "lock should be released")

	ids, err := dbClient.GetMissionIDs("drone-2")
	require.Nil(t, err)
	assert.Equal(t, []string{"m-2"}, ids)
}

func TestGetSummary_NotFound(t *testing.T) {
	dbClient, _ := newTestStore()
	_, err := dbClient.GetSummary("missing")
	require.NotNil(t, err)
	assert.True(t, err.IsErrorType(twinErrors.ErrorTypeNotFound))
}

func TestMetricCountersPassThrough(t *testing.T) {
	dbClient, _ := newTestStore()
	require.Nil(t, dbClient.SetMetricCounter("st:mc:x", 2))
	v, err := dbClient.IncrMetricCounterBy("st:mc:x", 2)
	require.Nil(t, err)
	assert.Equal(t, int64(4), v)
	v, err = dbClient.GetMetricCounter("st:mc:x")
	require.Nil(t, err)
	assert.Equal(t, int64(4), v)
}
