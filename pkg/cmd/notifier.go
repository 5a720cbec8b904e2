package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/notification"
	"github.com/dukex/docflow/pkg/template"
)

// NewDelivery builds the gateway that actually reaches users. Every notification is
// logged; it is also mailed when an SMTP host is configured.
func NewDelivery(smtp notification.SMTPConfig, addresses notification.AddressBook, logger *slog.Logger) notification.Gateway {
	logGateway := notification.NewLogGateway(logger)

	if smtp.Host == "" {
		return logGateway
	}

	mailGateway := notification.NewMailGateway(addresses, template.Default(), smtp.From, notification.NewDialer(smtp))

	return notification.Multi{logGateway, mailGateway}
}

// NewNotifier builds the gateway the engine notifies through. The eventbus mode
// publishes NotificationRequested events for the notifier consumer; the direct mode
// delivers in-process.
func NewNotifier(mode string, bus eventbus.EventPublisher, delivery notification.Gateway, logger *slog.Logger) (notification.Gateway, error) {
	switch mode {
	case "eventbus":
		if bus == nil {
			return nil, fmt.Errorf("notifier mode %s requires an event bus", mode)
		}

		return notification.NewEventBusGateway(bus), nil
	case "direct", "":
		return delivery, nil
	case "log":
		return notification.NewLogGateway(logger), nil
	default:
		return nil, fmt.Errorf("unsupported notifier mode: %s", mode)
	}
}
