package notification

import (
	"context"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/events"
)

// EventBusGateway hands notifications to the event bus; the notifier service
// delivers them.
type EventBusGateway struct {
	publisher eventbus.EventPublisher
}

func NewEventBusGateway(publisher eventbus.EventPublisher) *EventBusGateway {
	return &EventBusGateway{publisher: publisher}
}

func (g *EventBusGateway) Notify(ctx context.Context, userID string, kind Kind, data map[string]any) error {
	documentID, _ := data["document_id"].(string)

	event := events.NotificationRequested{
		BaseEvent: events.NewBaseEvent(events.NotificationRequestedEvent, documentID),
		UserID:    userID,
		Kind:      string(kind),
		Data:      data,
	}

	err := event.Validate()
	if err != nil {
		return err
	}

	// Keyed by user so one user's notifications keep their order on a partition.
	return g.publisher.Publish(ctx, userID, event)
}
