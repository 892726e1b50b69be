package publisher

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock implementation for the Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

func (m *MockPublisher) Close() {
	m.Called()
}
