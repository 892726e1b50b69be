package functions

import (
	"testing"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skytwin/common/db/redis"
	"skytwin/flight-twin-service/internal/config"
	redisdb "skytwin/flight-twin-service/pkg/db/redis"
	digital_twin "skytwin/flight-twin-service/pkg/digital-twin"
	"skytwin/flight-twin-service/pkg/dto/twin"
	"skytwin/flight-twin-service/pkg/fleet"
	"skytwin/flight-twin-service/pkg/simulator"
	fakeredis "skytwin/mocks/skytwin/common/db/redis"
	"skytwin/mocks/skytwin/common/infrastructure/interfaces/utils"
	mockpostgres "skytwin/mocks/skytwin/flight-twin-service/pkg/db/postgres"
	mockpublisher "skytwin/mocks/skytwin/flight-twin-service/pkg/publisher"
)

var (
	home        = twin.Position{X: 0, Y: 0, Z: 50}
	dest        = twin.Position{X: 100, Y: 100, Z: 50}
	normalRead  = []float64{90, 27.5, 1, 75, 10, 3.5}
	anomalyRead = []float64{15, 65, 12, 10, 1, 14}
)

type testFixture struct {
	service   *TwinService
	redis     *fakeredis.Store
	store     *redisdb.MissionDBClient
	publisher *mockpublisher.MockPublisher
	sessions  *mockpostgres.MockFlightSessionRepository
	telemetry *Telemetry
	config    *config.ServiceConfig
}

func newFixture(t *testing.T, configure func(cfg *config.ServiceConfig)) *testFixture {
	t.Helper()
	lc := logger.NewMockClient()
	cfg := config.NewServiceConfig()
	cfg.Engine.NumTrees = 50
	if configure != nil {
		configure(cfg)
	}

	registry := fleet.NewRegistry(time.Minute, func(vehicleID string) digital_twin.TwinEngine {
		return digital_twin.NewEngine(cfg.Engine, lc)
	}, lc)

	redisStore := fakeredis.NewStore()
	store := redisdb.NewMissionDBClient(redis.NewDBClientFromPool(fakeredis.NewPool(redisStore), lc))

	twinMockUtils := utils.NewApplicationServiceMock(nil)
	telemetry, err := NewTelemetry(twinMockUtils.AppService, "skytwin-engine", nil, "edge-1", store, 1)
	require.Nil(t, err)

	publisher := &mockpublisher.MockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sessions := &mockpostgres.MockFlightSessionRepository{}
	sessions.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return &testFixture{
		service:   NewTwinService(cfg, registry, store, sessions, publisher, telemetry, lc),
		redis:     redisStore,
		store:     store,
		publisher: publisher,
		sessions:  sessions,
		telemetry: telemetry,
		config:    cfg,
	}
}

// activeVehicle trains vehicleID on normal readings and starts a mission
func (f *testFixture) activeVehicle(t *testing.T, vehicleID string) twin.MissionDescriptor {
	t.Helper()
	require.NoError(t, f.service.Initialize(vehicleID, simulator.NewTelemetrySimulator(42).NormalSamples(300)))
	descriptor, err := f.service.StartMission(vehicleID, home, dest)
	require.NoError(t, err)
	return descriptor
}
