// Package cache provides a two-tier response cache: an in-memory Ristretto
// L1 and an optional Redis L2 shared across instances. It holds web-search
// responses and answer-bank lookups; model completions are never cached.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResponseCache is a bounded, time-expiring byte cache.
type ResponseCache struct {
	l1     *ristretto.Cache[string, []byte]
	l2     *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a cache. maxCost bounds the L1 size in bytes; redisClient may
// be nil for single-instance deployments.
func New(maxCost int64, ttl time.Duration, redisClient *redis.Client, logger *zap.Logger) (*ResponseCache, error) {
	if maxCost <= 0 {
		maxCost = 32 << 20
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l1, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100_000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &ResponseCache{
		l1:     l1,
		l2:     redisClient,
		ttl:    ttl,
		logger: logger.Named("cache"),
	}, nil
}

// Get returns the cached bytes for key, consulting L1 then L2. An L2 hit is
// promoted into L1.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if data, ok := c.l1.Get(key); ok {
		return data, true
	}

	if c.l2 != nil {
		data, err := c.l2.Get(ctx, key).Bytes()
		if err == nil && len(data) > 0 {
			c.l1.SetWithTTL(key, data, int64(len(data)), c.ttl)
			return data, true
		}
		if err != nil && err != redis.Nil {
			c.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil, false
}

// Set stores data under key in L1 and, when configured, asynchronously in L2.
func (c *ResponseCache) Set(ctx context.Context, key string, data []byte) {
	c.l1.SetWithTTL(key, data, int64(len(data)), c.ttl)

	if c.l2 != nil {
		go func() {
			// Detach from the request context; the write should outlive it.
			wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.l2.Set(wctx, key, data, c.ttl).Err(); err != nil {
				c.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
			}
		}()
	}
}

// Wait blocks until pending L1 writes are applied; used by tests.
func (c *ResponseCache) Wait() { c.l1.Wait() }

// Close releases the L1 cache resources.
func (c *ResponseCache) Close() { c.l1.Close() }
