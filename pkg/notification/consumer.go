package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/events"
	"github.com/dukex/docflow/pkg/template"
)

// Consumer delivers NotificationRequested events through a gateway. Deliveries that
// can never succeed are dropped with a log line; other failures are retried by the bus.
type Consumer struct {
	subscriber eventbus.EventSubscriber
	delivery   Gateway
	logger     *slog.Logger
}

func NewConsumer(logger *slog.Logger, subscriber eventbus.EventSubscriber, delivery Gateway) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		delivery:   delivery,
		logger:     logger.With("module", "notification-consumer"),
	}
}

// Start registers the handler and begins consuming.
func (c *Consumer) Start(ctx context.Context) error {
	err := c.subscriber.Handle(events.NotificationRequestedEvent, c.Handle)
	if err != nil {
		return fmt.Errorf("failed to register notification handler: %w", err)
	}

	return c.subscriber.Subscribe(ctx)
}

// Handle delivers one event.
func (c *Consumer) Handle(ctx context.Context, event any) error {
	requested, ok := event.(*events.NotificationRequested)
	if !ok {
		c.logger.ErrorContext(ctx, "unexpected event payload", "type", fmt.Sprintf("%T", event))

		return nil
	}

	err := requested.Validate()
	if err != nil {
		c.logger.WarnContext(ctx, "dropping invalid notification", "event_id", requested.ID, "error", err)

		return nil
	}

	err = c.delivery.Notify(ctx, requested.UserID, Kind(requested.Kind), requested.Data)

	switch {
	case err == nil:
		c.logger.DebugContext(ctx, "notification delivered", "event_id", requested.ID, "user_id", requested.UserID)

		return nil
	case errors.Is(err, ErrNoAddress), errors.Is(err, template.ErrUnknownKind):
		c.logger.WarnContext(ctx, "dropping undeliverable notification",
			"event_id", requested.ID,
			"user_id", requested.UserID,
			"kind", requested.Kind,
			"error", err,
		)

		return nil
	default:
		return err
	}
}
