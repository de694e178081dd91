package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/logger"
)

// RedisCache is a distributed enginetypes.Cache backed by go-redis, for
// deployments sharing a cache across engine instances (common/redis/client.go
// wraps the same driver for the teacher's stream/queue concerns).
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

var _ enginetypes.Cache = (*RedisCache)(nil)

// NewRedisCache wraps an existing *redis.Client. ttl of zero means entries
// never expire.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: log}
}

// Get returns the cached NodeExecutionResult for key, if present.
func (c *RedisCache) Get(ctx context.Context, key string) (*enginetypes.NodeExecutionResult, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		c.log.Error("redis GET failed", "key", key, "error", err)
		return nil, false, err
	}
	var out enginetypes.NodeExecutionResult
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

// Set stores value under key, JSON-encoded, with the cache's configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value *enginetypes.NodeExecutionResult) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Error("redis SET failed", "key", key, "error", err)
		return err
	}
	return nil
}
