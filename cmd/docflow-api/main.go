package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/log"
	"github.com/dukex/docflow/pkg/notification"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("docflow-api")

	cmd.LoadEnv(logger)

	command := &cli.Command{
		Name:                  "docflow-api",
		Usage:                 "Define approval workflows and drive documents through them",
		EnableShellCompletion: true,
		Flags: cmd.Flags(
			[]cli.Flag{
				&cli.IntFlag{
					Name:    "port",
					Aliases: []string{"p"},
					Usage:   "Port to run the API server on",
					Value:   defaultPort,
					Sources: cli.EnvVars("PORT"),
				},
			},
			cmd.CommonFlags(),
			cmd.DirectoryFlags(),
			cmd.NotifierFlags(),
			cmd.EventBusFlags(),
			cmd.SMTPFlags(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("docflow-api")
			logger.InfoContext(ctx, "Initializing docflow API")

			tracer, shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("otel-enabled"), "docflow-api")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			defer func() {
				if err := shutdownTracer(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			users, addresses, closeDirectory, err := cmd.NewDirectory(cmd.DirectoryConfigFrom(command), persistence, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := closeDirectory(); err != nil {
					logger.ErrorContext(ctx, "Failed to close directory cache", "error", err)
				}
			}()

			delivery := cmd.NewDelivery(cmd.SMTPConfigFrom(command), addresses, logger)

			var bus eventbus.EventBus

			if command.String("notifier") == "eventbus" {
				bus, err = cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "api", logger)
				if err != nil {
					return err
				}

				defer func() {
					if err := bus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()

				// An in-memory bus has no other consumer, so deliver from this process.
				if command.String("event-bus") != "kafka" {
					err = notification.NewConsumer(logger, bus, delivery).Start(ctx)
					if err != nil {
						return err
					}
				}
			}

			notifier, err := cmd.NewNotifier(command.String("notifier"), bus, delivery, logger)
			if err != nil {
				return err
			}

			api := NewAPI(logger, persistence, users, notifier, tracer)

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("docflow-api stopped", "error", err)
		os.Exit(1)
	}
}
