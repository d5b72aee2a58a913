package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teemow/workdigest/internal/logging"
	"github.com/teemow/workdigest/internal/pipeline"
)

const (
	// DefaultTTL is how long a stage output stays cached.
	DefaultTTL = 7 * 24 * time.Hour

	keyPrefix = "workdigest:"
)

// RedisCache stores stage outputs in Redis. Backend errors are logged and
// reported as misses.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ pipeline.ResultCache = (*RedisCache)(nil)

// New creates a RedisCache on an existing client. A non-positive ttl uses
// DefaultTTL.
func New(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Dial connects to the Redis server at addr and verifies the connection.
func Dial(ctx context.Context, addr string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(client, ttl, logger), nil
}

func (c *RedisCache) key(k string) string {
	return keyPrefix + k
}

func (c *RedisCache) Lookup(ctx context.Context, key string) (string, bool) {
	out, err := c.client.Get(ctx, c.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false
	case err != nil:
		c.logger.Warn("stage cache lookup failed", slog.String("key", key), logging.Err(err))
		return "", false
	}
	return out, true
}

func (c *RedisCache) Store(ctx context.Context, key, output string) {
	if err := c.client.Set(ctx, c.key(key), output, c.ttl).Err(); err != nil {
		c.logger.Warn("stage cache store failed", slog.String("key", key), logging.Err(err))
	}
}

// Ping checks that the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
