package nats

import (
	"context"
	"sync"

	"github.com/fastygo/boatclosers/domain"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []domain.Event
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{publishedEvents: make([]domain.Event, 0)}
}

// Publish records the event and returns any configured error.
func (m *MockPublisher) Publish(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of all published events.
func (m *MockPublisher) Events() []domain.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]domain.Event, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// EventNames returns the names of published events in order.
func (m *MockPublisher) EventNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.publishedEvents))
	for _, ev := range m.publishedEvents {
		names = append(names, ev.Name)
	}
	return names
}

// SetPublishError configures the mock to return an error on Publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
