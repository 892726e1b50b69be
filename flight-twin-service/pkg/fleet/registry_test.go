package fleet

import (
	"sync"
	"testing"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twinErrors "skytwin/common/errors"
	digital_twin "skytwin/flight-twin-service/pkg/digital-twin"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

func newTestRegistry(ttl time.Duration) (*Registry, *int) {
	created := 0
	lc := logger.NewMockClient()
	r := NewRegistry(ttl, func(vehicleID string) digital_twin.TwinEngine {
		created++
		config := digital_twin.DefaultEngineConfig()
		config.NumTrees = 10
		return digital_twin.NewEngine(config, lc)
	}, lc)
	return r, &created
}

func TestRegistry_CreatesOncePerVehicle(t *testing.T) {
	r, created := newTestRegistry(time.Minute)

	for i := 0; i < 3; i++ {
		require.NoError(t, r.With("drone-1", func(engine digital_twin.TwinEngine) error {
			assert.Equal(t, twin.Uninitialized, engine.State())
			return nil
		}))
	}
	require.NoError(t, r.With("drone-2", func(engine digital_twin.TwinEngine) error { return nil }))

	assert.Equal(t, 2, *created)
	assert.Equal(t, []string{"drone-1", "drone-2"}, r.Vehicles())
}

func TestRegistry_SameEngineReturned(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	var first, second digital_twin.TwinEngine
	require.NoError(t, r.With("drone-1", func(engine digital_twin.TwinEngine) error { first = engine; return nil }))
	require.NoError(t, r.With("drone-1", func(engine digital_twin.TwinEngine) error { second = engine; return nil }))
	assert.Same(t, first, second)
}

func TestRegistry_EmptyVehicleID(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	err := r.With("  ", func(engine digital_twin.TwinEngine) error { return nil })
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeBadRequest))
}

func TestRegistry_WithExisting(t *testing.T) {
	r, created := newTestRegistry(time.Minute)
	err := r.WithExisting("ghost", func(engine digital_twin.TwinEngine) error { return nil })
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeNotFound))
	assert.Equal(t, 0, *created)
	assert.Empty(t, r.Vehicles())
}

func TestRegistry_PropagatesCallbackError(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	err := r.With("drone-1", func(engine digital_twin.TwinEngine) error {
		_, err := engine.StopMission()
		return err
	})
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypePreconditionViolation))
}

func TestRegistry_Remove(t *testing.T) {
	r, created := newTestRegistry(time.Minute)
	require.NoError(t, r.With("drone-1", func(engine digital_twin.TwinEngine) error { return nil }))
	r.Remove("drone-1")
	assert.Empty(t, r.Vehicles())
	require.NoError(t, r.With("drone-1", func(engine digital_twin.TwinEngine) error { return nil }))
	assert.Equal(t, 2, *created)
}

func TestRegistry_IdleExpiry(t *testing.T) {
	r, _ := newTestRegistry(50 * time.Millisecond)
	require.NoError(t, r.With("drone-1", func(engine digital_twin.TwinEngine) error { return nil }))
	time.Sleep(120 * time.Millisecond)

	err := r.WithExisting("drone-1", func(engine digital_twin.TwinEngine) error { return nil })
	assert.True(t, twinErrors.IsType(err, twinErrors.ErrorTypeNotFound))
}

func TestRegistry_Statuses(t *testing.T) {
	r, _ := newTestRegistry(0)
	for _, id := range []string{"drone-c", "drone-a", "drone-b"} {
		require.NoError(t, r.With(id, func(engine digital_twin.TwinEngine) error { return nil }))
	}
	statuses := r.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, "drone-a", statuses[0].VehicleID)
	assert.Equal(t, "drone-c", statuses[2].VehicleID)
	assert.Equal(t, twin.Uninitialized, statuses[1].Status.State)
}

func TestRegistry_SerializesPerVehicle(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.With("drone-1", func(engine digital_twin.TwinEngine) error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
