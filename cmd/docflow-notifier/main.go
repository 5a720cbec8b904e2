// Package main consumes notification events from the bus and delivers them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/log"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("docflow-notifier")

	cmd.LoadEnv(logger)

	command := &cli.Command{
		Name:                  "docflow-notifier",
		Usage:                 "Deliver approval notifications published on the event bus",
		EnableShellCompletion: true,
		Flags: cmd.Flags(
			[]cli.Flag{
				&cli.StringFlag{
					Name:    "notifier-id",
					Usage:   "Identifier of this notifier instance",
					Sources: cli.EnvVars("NOTIFIER_ID"),
				},
			},
			cmd.CommonFlags(),
			cmd.DirectoryFlags(),
			cmd.EventBusFlags(),
			cmd.SMTPFlags(),
		),
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("docflow-notifier stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	id := command.String("notifier-id")
	if id == "" {
		id = "notifier-" + uuid.NewString()[:8]
	}

	logger := log.WithModule("docflow-notifier").With("notifier_id", id)

	// The address book may be backed by the database.
	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	_, addresses, closeDirectory, err := cmd.NewDirectory(cmd.DirectoryConfigFrom(command), persistence, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := closeDirectory(); err != nil {
			logger.ErrorContext(ctx, "Failed to close directory cache", "error", err)
		}
	}()

	if command.String("event-bus") != "kafka" {
		logger.WarnContext(ctx, "event bus is in-process, only events published by this process will be delivered",
			"event_bus", command.String("event-bus"))
	}

	bus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "notifier", logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	defer func() {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	delivery := cmd.NewDelivery(cmd.SMTPConfigFrom(command), addresses, logger)

	return NewNotifier(id, bus, delivery, logger).Start(ctx)
}
