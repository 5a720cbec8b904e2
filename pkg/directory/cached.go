package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "docflow:designation:"

// Cached keeps designation lookups of another directory in Redis. Cache failures fall
// back to the wrapped directory.
type Cached struct {
	next   UserDirectory
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next UserDirectory, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With("module", "directory-cache"),
	}
}

func (c *Cached) ResolveApprovers(ctx context.Context, designationID string) ([]string, error) {
	if designationID == "" {
		return nil, ErrDesignationRequired
	}

	key := cacheKeyPrefix + designationID

	cached, err := c.client.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		var ids []string

		if err := json.Unmarshal(cached, &ids); err == nil {
			return ids, nil
		}

		c.logger.WarnContext(ctx, "discarding corrupt cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "directory cache unavailable", "error", err)
	}

	ids, err := c.next.ResolveApprovers(ctx, designationID)
	if err != nil {
		return nil, err
	}

	// An empty answer is not cached so a newly appointed holder is seen right away.
	if len(ids) == 0 {
		return ids, nil
	}

	payload, err := json.Marshal(ids)
	if err != nil {
		return ids, nil
	}

	err = c.client.Set(ctx, key, payload, c.ttl).Err()
	if err != nil {
		c.logger.WarnContext(ctx, "failed to cache designation", "key", key, "error", err)
	}

	return ids, nil
}

// Invalidate drops the cached holders of a designation.
func (c *Cached) Invalidate(ctx context.Context, designationID string) error {
	return c.client.Del(ctx, cacheKeyPrefix+designationID).Err()
}
