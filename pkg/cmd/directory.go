package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/directory"
	"github.com/dukex/docflow/pkg/notification"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

var ErrDirectoryNeedsSQL = errors.New("postgres directory requires a postgres database url")

// DirectoryConfig selects the user directory backing approver resolution.
type DirectoryConfig struct {
	Source     string // static or postgres
	StaticPath string
	RedisURL   string // enables the designation cache when set
	CacheTTL   time.Duration
}

type userDirectory interface {
	directory.UserDirectory
	notification.AddressBook
}

// NewDirectory builds the user directory and the address book used for mail delivery.
// The returned cleanup closes the cache connection.
func NewDirectory(
	config DirectoryConfig,
	store persistence.Persistence,
	logger *slog.Logger,
) (directory.UserDirectory, notification.AddressBook, func() error, error) {
	var base userDirectory

	switch config.Source {
	case "static", "":
		static, err := directory.LoadStatic(config.StaticPath)
		if err != nil {
			return nil, nil, nil, err
		}

		base = static
	case "postgres":
		db, ok := sqlDB(store)
		if !ok {
			return nil, nil, nil, ErrDirectoryNeedsSQL
		}

		base = directory.NewPostgres(db, logger.With("module", "directory"))
	default:
		return nil, nil, nil, fmt.Errorf("unsupported directory source: %s", config.Source)
	}

	if config.RedisURL == "" {
		return base, base, func() error { return nil }, nil
	}

	options, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)
	cached := directory.NewCached(base, client, config.CacheTTL, logger.With("module", "directory-cache"))

	return cached, base, client.Close, nil
}
