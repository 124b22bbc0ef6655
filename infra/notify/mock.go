package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/veeo/driver-dispatch/core/model"
)

// MockProvider is a simple provider used in tests.
type MockProvider struct {
	mu      sync.Mutex
	Sent    []model.Notification
	FailIDs map[string]bool
	Refuse  bool
}

// NewMockProvider creates a new MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{FailIDs: make(map[string]bool)}
}

// Send records the notification, or fails if the recipient is configured to.
func (m *MockProvider) Send(_ context.Context, n model.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[n.RecipientID] {
		return false, fmt.Errorf("delivery to %s failed", n.RecipientID)
	}
	m.Sent = append(m.Sent, n)
	return !m.Refuse, nil
}

// SentTo returns the notifications recorded for one recipient.
func (m *MockProvider) SentTo(recipientID string) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.Sent {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}
