// Package main runs the escalation and reminder sweeps.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/log"
	"github.com/dukex/docflow/pkg/notification"
	"github.com/dukex/docflow/pkg/services"
	"github.com/dukex/docflow/pkg/sweep"
	cli "github.com/urfave/cli/v3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := log.WithModule("docflow-sweeper")

	cmd.LoadEnv(logger)

	err := newCommand().Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("docflow-sweeper stopped", "error", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "docflow-sweeper",
		Usage:                 "Escalate overdue approvals and remind approvers",
		EnableShellCompletion: true,
		Flags: cmd.Flags(
			[]cli.Flag{
				&cli.StringFlag{
					Name:    "escalation-schedule",
					Usage:   "Cron expression of the escalation pass (empty disables it)",
					Value:   "*/15 * * * *",
					Sources: cli.EnvVars("ESCALATION_SCHEDULE"),
				},
				&cli.StringFlag{
					Name:    "reminder-schedule",
					Usage:   "Cron expression of the reminder pass (empty disables it)",
					Value:   "0 * * * *",
					Sources: cli.EnvVars("REMINDER_SCHEDULE"),
				},
				&cli.IntFlag{
					Name:    "page-size",
					Usage:   "Pending approvals loaded per page",
					Value:   sweep.DefaultPageSize,
					Sources: cli.EnvVars("SWEEP_PAGE_SIZE"),
				},
				&cli.BoolFlag{
					Name:  "once",
					Usage: "Run both passes once and exit",
				},
			},
			cmd.CommonFlags(),
			cmd.DirectoryFlags(),
			cmd.NotifierFlags(),
			cmd.EventBusFlags(),
			cmd.SMTPFlags(),
		),
		Action: run,
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("docflow-sweeper")

	tracer, shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("otel-enabled"), "docflow-sweeper")
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
		bus, err = cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "sweeper", logger)
		if err != nil {
			return err
		}

		defer func() {
			if err := bus.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
			}
		}()

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

	engine := services.NewApproval(persistence, users, notifier,
		services.WithLogger(logger.With("module", "approval")),
		services.WithTracer(tracer),
	)

	sweeper := sweep.NewSweeper(engine, persistence.ApprovalRepository(), logger,
		sweep.WithPageSize(command.Int("page-size")),
		sweep.WithTracer(tracer),
	)

	if command.Bool("once") {
		results, err := sweeper.RunOnce(ctx)
		for _, result := range results {
			logger.InfoContext(ctx, "sweep result",
				"kind", result.Kind,
				"scanned", result.Scanned,
				"acted", result.Acted,
				"failed", result.Failed,
			)
		}

		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = sweeper.Start(ctx, command.String("escalation-schedule"), command.String("reminder-schedule"))
	if err != nil {
		return err
	}

	<-ctx.Done()

	logger.Info("Shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return sweeper.Stop(stopCtx)
}
