// Package events defines the messages exchanged between docflow services.
package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const NotificationTopic = "docflow.notifications"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	NotificationRequestedEvent EventType = "notification.requested"
)

var (
	ErrUserIDRequired = errors.New("user_id is required")
	ErrKindRequired   = errors.New("kind is required")
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	DocumentID string         `json:"document_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NotificationRequested asks the notifier to deliver one message to one user.
type NotificationRequested struct {
	BaseEvent

	UserID string         `json:"user_id"`
	Kind   string         `json:"kind"`
	Data   map[string]any `json:"data,omitempty"`
}

func (n NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}

// Validate checks the fields the notifier cannot work without.
func (n NotificationRequested) Validate() error {
	if n.UserID == "" {
		return ErrUserIDRequired
	}

	if n.Kind == "" {
		return ErrKindRequired
	}

	return nil
}

// NewBaseEvent creates a base event stamped now.
func NewBaseEvent(eventType EventType, documentID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		DocumentID: documentID,
	}
}
