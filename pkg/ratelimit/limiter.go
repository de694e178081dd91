package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/orchestrator/pkg/logger"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Result is the outcome of a single rate limit check.
type Result struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64
}

// Limiter enforces fixed-window request budgets in Redis, keyed per user and
// per workflow Tier, so submission traffic from one tenant or tier can't
// starve another's budget.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
	log    *logger.Logger
}

// New wraps an already-connected redis.Client.
func New(client *redis.Client, log *logger.Logger) *Limiter {
	return &Limiter{redis: client, script: redis.NewScript(rateLimitScript), log: log}
}

// CheckTier checks the shared budget for username's requests at tier.
func (l *Limiter) CheckTier(ctx context.Context, username string, tier Tier) (*Result, error) {
	cfg := DefaultTierConfigs[tier]
	key := fmt.Sprintf("ratelimit:user:%s:tier:%s", username, tier)
	return l.check(ctx, key, cfg.Limit, cfg.WindowSeconds)
}

// CheckGlobal checks the service-wide budget, independent of tier/user.
func (l *Limiter) CheckGlobal(ctx context.Context, limit int64, windowSeconds int) (*Result, error) {
	return l.check(ctx, "ratelimit:global", limit, windowSeconds)
}

func (l *Limiter) check(ctx context.Context, key string, limit int64, windowSeconds int) (*Result, error) {
	raw, err := l.script.Run(ctx, l.redis, []string{key}, limit, windowSeconds).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check for %q: %w", key, err)
	}

	fields, ok := raw.([]interface{})
	if !ok || len(fields) != 4 {
		return nil, fmt.Errorf("rate limit check for %q: unexpected script result shape", key)
	}

	result := &Result{
		Allowed:           fields[0].(int64) == 1,
		CurrentCount:      fields[1].(int64),
		Limit:             fields[2].(int64),
		RetryAfterSeconds: fields[3].(int64),
	}
	if !result.Allowed {
		l.log.Warn("rate limit exceeded", "key", key, "current", result.CurrentCount, "limit", result.Limit)
	}
	return result, nil
}
