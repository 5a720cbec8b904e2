package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/notification"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

// LoadEnv loads .env files into the environment before flags read it. Missing files
// are not an error.
func LoadEnv(logger *slog.Logger, files ...string) {
	err := godotenv.Load(files...)
	if err != nil {
		logger.Debug("No .env file loaded, using environment variables", "error", err)
	}
}

func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (postgres://, file://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "otel-enabled",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}
}

func DirectoryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "directory-source",
			Usage:   "User directory source (static, postgres)",
			Value:   "static",
			Sources: cli.EnvVars("DIRECTORY_SOURCE"),
		},
		&cli.StringFlag{
			Name:    "directory-file",
			Usage:   "JSON file with directory users for the static source",
			Value:   "./directory.json",
			Sources: cli.EnvVars("DIRECTORY_FILE"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL caching designation lookups (disabled when empty)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.DurationFlag{
			Name:    "directory-cache-ttl",
			Usage:   "How long resolved designations stay cached",
			Value:   5 * time.Minute,
			Sources: cli.EnvVars("DIRECTORY_CACHE_TTL"),
		},
	}
}

func EventBusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
	}
}

func NotifierFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "notifier",
			Usage:   "How the engine notifies users (direct, eventbus, log)",
			Value:   "direct",
			Sources: cli.EnvVars("NOTIFIER_MODE"),
		},
	}
}

func SMTPFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host; notifications are only logged when empty",
			Sources: cli.EnvVars("SMTP_HOST"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Sources: cli.EnvVars("SMTP_PORT"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Sources: cli.EnvVars("SMTP_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Sources: cli.EnvVars("SMTP_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "docflow@localhost",
			Sources: cli.EnvVars("SMTP_FROM"),
		},
		&cli.BoolFlag{
			Name:    "smtp-skip-tls-verify",
			Sources: cli.EnvVars("SMTP_SKIP_TLS_VERIFY"),
		},
	}
}

// Flags concatenates flag groups.
func Flags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag

	for _, group := range groups {
		flags = append(flags, group...)
	}

	return flags
}

func DirectoryConfigFrom(command *cli.Command) DirectoryConfig {
	return DirectoryConfig{
		Source:     command.String("directory-source"),
		StaticPath: command.String("directory-file"),
		RedisURL:   command.String("redis-url"),
		CacheTTL:   command.Duration("directory-cache-ttl"),
	}
}

func SMTPConfigFrom(command *cli.Command) notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:          command.String("smtp-host"),
		Port:          command.Int("smtp-port"),
		Username:      command.String("smtp-username"),
		Password:      command.String("smtp-password"),
		From:          command.String("smtp-from"),
		SkipTLSVerify: command.Bool("smtp-skip-tls-verify"),
	}
}

// NewTracer returns an OTLP tracer when enabled and a no-op tracer otherwise.
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, enabled bool, serviceName string) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, serviceName)
}
