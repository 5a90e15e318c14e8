// Package cache is a short-TTL redis cache for finished job results, read by
// the API layer so repeated status polls skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fabriqd/fabriq/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type ResultCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.SugaredLogger
}

func New(cfg *config.CacheConfig, log *zap.SugaredLogger) *ResultCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	return &ResultCache{rdb: rdb, ttl: cfg.ResultTTL, log: log}
}

func key(kind, id string) string {
	return fmt.Sprintf("fabriq:result:%s:%s", kind, id)
}

// Put stores a result best-effort: a cache write failure is logged, never
// propagated, since the database row is the source of truth.
func (c *ResultCache) Put(ctx context.Context, kind, id string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warnw("cache marshal failed", "kind", kind, "id", id, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key(kind, id), raw, c.ttl).Err(); err != nil {
		c.log.Warnw("cache write failed", "kind", kind, "id", id, "error", err)
	}
}

// Get loads a cached result into dest. Returns false on a miss.
func (c *ResultCache) Get(ctx context.Context, kind, id string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache read: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

// Invalidate drops a cached entry, used when a record is mutated outside the
// worker flow.
func (c *ResultCache) Invalidate(ctx context.Context, kind, id string) error {
	if err := c.rdb.Del(ctx, key(kind, id)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

func (c *ResultCache) Close() error {
	return c.rdb.Close()
}
