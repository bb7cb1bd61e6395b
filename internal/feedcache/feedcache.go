// Package feedcache short-TTL-caches the feed and trending read surfaces
// behind Redis, so repeated reads against an unchanged assignment don't
// re-walk the score matrix. All calls run through a breaker: a cache outage
// degrades to always-miss, never an error surfaced to callers.
package feedcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/opendoor-marketplace/matchengine/infra/breakers"
)

// Config carries the Redis connection and TTL knobs.
type Config struct {
	Addr     string
	DB       int
	Password string
	TTL      time.Duration
}

// DefaultConfig points at a local Redis with a 10s feed/trending TTL —
// short enough that a solve's effects become visible within one cache
// window without requiring active invalidation.
func DefaultConfig() Config {
	return Config{Addr: "localhost:6379", DB: 0, TTL: 10 * time.Second}
}

// Cache wraps a redis client for get/set of arbitrary JSON-serializable
// values, tolerating Redis being unavailable.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *breakers.Breaker[[]byte]
}

// New constructs a Cache against the given config.
func New(cfg Config) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			DB:       cfg.DB,
			Password: cfg.Password,
		}),
		ttl:     cfg.TTL,
		breaker: breakers.New[[]byte]("feedcache"),
	}
}

// Get looks up key and unmarshals into dest. It returns ok=false on a cache
// miss, a breaker trip, or any Redis error — callers always fall through to
// recomputing the value.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("feedcache: corrupt cached value")
		return false
	}
	return true
}

// Set stores v under key with the configured TTL. Failures are logged and
// swallowed.
func (c *Cache) Set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, err = c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("feedcache: set failed")
	}
}

// Invalidate deletes key. The HTTP layer calls it for the trending entry
// after a solve or rebalance; cached feed entries expire by TTL only.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	_, _ = c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Del(ctx, key).Err()
	})
}
