package sink

import (
	"context"
	"sync"

	"github.com/maxpert/geyserbridge/publisher"
)

// MockSink is a mock implementation of Publisher for testing
type MockSink struct {
	Messages   []MockMessage
	PublishErr error
	Closed     bool
	mu         sync.Mutex
}

// MockMessage represents a published message for testing
type MockMessage struct {
	Channel string
	Message string
}

// Publish records a message for later inspection in tests
func (m *MockSink) Publish(ctx context.Context, channel, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishErr != nil {
		return &publisher.PublishError{Channel: channel, Err: m.PublishErr}
	}

	m.Messages = append(m.Messages, MockMessage{
		Channel: channel,
		Message: message,
	})

	return nil
}

// Close marks the sink closed
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Published returns a copy of the recorded messages
func (m *MockSink) Published() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// Reset clears all recorded messages
func (m *MockSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}
