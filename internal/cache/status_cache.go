package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vivero-po/internal/config"
	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/state"
)

// StatusCache keeps the read models served by the API. Everything is
// dropped by InvalidateAll after a run or a reset.
type StatusCache interface {
	GetStatus(ctx context.Context) (*state.Status, bool, error)
	SetStatus(ctx context.Context, status *state.Status) error
	GetExecutions(ctx context.Context, limit int) ([]domain.ExecutionRecord, bool, error)
	SetExecutions(ctx context.Context, limit int, records []domain.ExecutionRecord) error
	InvalidateAll(ctx context.Context) error
	Close() error
}

type redisStatusCache struct {
	client *redis.Client
	keys   keyspace
	ttl    time.Duration
}

type noopStatusCache struct{}

// NewStatusCache connects to redis, or returns a cache that stores nothing
// when caching is disabled.
func NewStatusCache(cfg config.CacheConfig) (StatusCache, error) {
	if !cfg.Enabled {
		return &noopStatusCache{}, nil
	}

	client, err := connectRedis(cfg)
	if err != nil {
		return nil, err
	}

	return &redisStatusCache{
		client: client,
		keys:   newKeyspace(cfg.Namespace),
		ttl:    statusTTL(cfg),
	}, nil
}

func NewNoopStatusCache() StatusCache {
	return &noopStatusCache{}
}

func (c *redisStatusCache) GetStatus(ctx context.Context) (*state.Status, bool, error) {
	var status state.Status
	ok, err := c.get(ctx, c.keys.status(), &status)
	if !ok || err != nil {
		return nil, false, err
	}
	return &status, true, nil
}

func (c *redisStatusCache) SetStatus(ctx context.Context, status *state.Status) error {
	return c.set(ctx, c.keys.status(), status)
}

func (c *redisStatusCache) GetExecutions(ctx context.Context, limit int) ([]domain.ExecutionRecord, bool, error) {
	var records []domain.ExecutionRecord
	ok, err := c.get(ctx, c.keys.executions(limit), &records)
	if !ok || err != nil {
		return nil, false, err
	}
	return records, true, nil
}

func (c *redisStatusCache) SetExecutions(ctx context.Context, limit int, records []domain.ExecutionRecord) error {
	return c.set(ctx, c.keys.executions(limit), records)
}

func (c *redisStatusCache) InvalidateAll(ctx context.Context) error {
	removed, err := purge(ctx, c.client, c.keys.pattern())
	if err != nil {
		return err
	}
	log.Debug().Int("keys", removed).Str("pattern", c.keys.pattern()).Msg("planning cache invalidated")
	return nil
}

func (c *redisStatusCache) Close() error {
	return c.client.Close()
}

func (c *redisStatusCache) get(ctx context.Context, key string, out interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("decode %s cache: %w", key, err)
	}
	return true, nil
}

func (c *redisStatusCache) set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", key, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopStatusCache) GetStatus(ctx context.Context) (*state.Status, bool, error) {
	return nil, false, nil
}

func (n *noopStatusCache) SetStatus(ctx context.Context, status *state.Status) error {
	return nil
}

func (n *noopStatusCache) GetExecutions(ctx context.Context, limit int) ([]domain.ExecutionRecord, bool, error) {
	return nil, false, nil
}

func (n *noopStatusCache) SetExecutions(ctx context.Context, limit int, records []domain.ExecutionRecord) error {
	return nil
}

func (n *noopStatusCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func (n *noopStatusCache) Close() error {
	return nil
}
