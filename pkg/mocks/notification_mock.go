package mocks

import (
	"context"
	"sync"

	"github.com/dukex/docflow/pkg/notification"
	mail "github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of notification.Gateway interface.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Notify(ctx context.Context, userID string, kind notification.Kind, data map[string]any) error {
	args := m.Called(ctx, userID, kind, data)

	return args.Error(0)
}

// RecordingGateway keeps every notification it receives.
type RecordingGateway struct {
	mu   sync.Mutex
	sent []SentNotification
}

// SentNotification is one call recorded by RecordingGateway.
type SentNotification struct {
	UserID string
	Kind   notification.Kind
	Data   map[string]any
}

func (g *RecordingGateway) Notify(_ context.Context, userID string, kind notification.Kind, data map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sent = append(g.sent, SentNotification{UserID: userID, Kind: kind, Data: data})

	return nil
}

// Sent returns a copy of the recorded notifications.
func (g *RecordingGateway) Sent() []SentNotification {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]SentNotification(nil), g.sent...)
}

// SentOfKind returns the recipients of notifications of the given kind.
func (g *RecordingGateway) SentOfKind(kind notification.Kind) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	users := make([]string, 0)

	for _, sent := range g.sent {
		if sent.Kind == kind {
			users = append(users, sent.UserID)
		}
	}

	return users
}

// MockMailSender is a mock implementation of notification.Sender interface.
type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) DialAndSend(messages ...*mail.Message) error {
	args := m.Called(messages)

	return args.Error(0)
}
