// Package cache implements the content-addressed, single-flight node result
// cache (spec.md §4.4.1, §6.4), adapted from common/cache/cache.go's
// MemoryCache shape with JSON-encoded values and per-key single-flight
// coalescing via golang.org/x/sync/singleflight.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/logger"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-memory, TTL-expiring enginetypes.Cache implementation.
// A singleflight.Group ensures concurrent Build-on-miss callers coalesce
// into a single underlying computation per key (spec.md §6.4: "single-flight
// semantics per key").
type MemoryCache struct {
	mu    sync.RWMutex
	data  map[string]*entry
	ttl   time.Duration
	sf    singleflight.Group
	log   *logger.Logger
}

var _ enginetypes.Cache = (*MemoryCache)(nil)

// NewMemoryCache returns a MemoryCache whose entries expire after ttl (zero
// means entries never expire).
func NewMemoryCache(ttl time.Duration, log *logger.Logger) *MemoryCache {
	c := &MemoryCache{
		data: make(map[string]*entry),
		ttl:  ttl,
		log:  log,
	}
	if ttl > 0 {
		go c.cleanup()
	}
	return c
}

// Get returns the cached NodeExecutionResult for key, if present and
// unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) (*enginetypes.NodeExecutionResult, bool, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	var out enginetypes.NodeExecutionResult
	if err := json.Unmarshal(e.value, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

// Set stores value under key, JSON-encoded.
func (c *MemoryCache) Set(_ context.Context, key string, value *enginetypes.NodeExecutionResult) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = &entry{value: b, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// GetOrBuild returns the cached result for key if present, otherwise calls
// build exactly once across all concurrent callers sharing key and caches a
// successful result (spec.md §4.4.1: "in-flight callers await the first
// result").
func (c *MemoryCache) GetOrBuild(ctx context.Context, key string, build func() (*enginetypes.NodeExecutionResult, error)) (*enginetypes.NodeExecutionResult, error) {
	if cached, ok, err := c.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		if cached, ok, err := c.Get(ctx, key); err == nil && ok {
			return cached, nil
		}
		result, buildErr := build()
		if buildErr != nil {
			return nil, buildErr
		}
		if result.Success {
			if setErr := c.Set(ctx, key, result); setErr != nil && c.log != nil {
				c.log.Warn("cache set failed", "key", key, "error", setErr)
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*enginetypes.NodeExecutionResult), nil
}

func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for k, e := range c.data {
			if now.After(e.expiresAt) {
				delete(c.data, k)
			}
		}
		c.mu.Unlock()
	}
}

// Stats returns coarse cache statistics for diagnostics endpoints.
func (c *MemoryCache) Stats() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]any{"entries": len(c.data), "backend": "memory"}
}
