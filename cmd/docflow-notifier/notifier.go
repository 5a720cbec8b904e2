package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/notification"
)

// Notifier consumes NotificationRequested events and delivers them to users.
type Notifier struct {
	id       string
	eventBus eventbus.EventSubscriber
	delivery notification.Gateway
	logger   *slog.Logger
}

func NewNotifier(
	id string,
	eventBus eventbus.EventSubscriber,
	delivery notification.Gateway,
	logger *slog.Logger,
) *Notifier {
	return &Notifier{
		id:       id,
		eventBus: eventBus,
		delivery: delivery,
		logger:   logger.With("module", "notifier", "notifier_id", id),
	}
}

// Start subscribes and blocks until ctx is cancelled or the process is signalled.
func (n *Notifier) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return n.run(ctx)
}

func (n *Notifier) run(ctx context.Context) error {
	n.logger.InfoContext(ctx, "Starting notification consumption")

	consumer := notification.NewConsumer(n.logger, n.eventBus, n.delivery)

	err := consumer.Start(ctx)
	if err != nil {
		n.logger.ErrorContext(ctx, "Failed to start notification subscription", "error", err)

		return err
	}

	n.logger.InfoContext(ctx, "Successfully subscribed to notifications - waiting for events...")

	// The subscription runs in background goroutines.
	<-ctx.Done()
	n.logger.Info("Notifier context cancelled, stopping...")

	return nil
}
