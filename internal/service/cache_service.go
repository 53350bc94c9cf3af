package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bb-fantasy/pkg/redis"

	"go.uber.org/zap"
)

// CacheService provides cache-aside reads over Redis. A nil Redis client
// turns every call into a pass-through to the loader.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// Enabled reports whether a Redis backend is configured
func (c *CacheService) Enabled() bool {
	return c != nil && c.redis != nil
}

// Keys returns the key builder, or nil when caching is disabled
func (c *CacheService) Keys() *redis.KeyBuilder {
	if !c.Enabled() {
		return nil
	}
	return c.redis.KeyBuilder
}

// getOrLoad reads key as JSON into T, or calls load and stores the result.
// Cache errors and corrupt entries are logged and fall through to load.
func getOrLoad[T any](ctx context.Context, c *CacheService, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return load(ctx)
	}

	cached, err := c.redis.Get(ctx, key)
	switch {
	case err == nil && cached != "":
		var value T
		unmarshalErr := json.Unmarshal([]byte(cached), &value)
		if unmarshalErr == nil {
			c.logger.Debug("Cache hit", zap.String("key", key))
			return value, nil
		}
		c.logger.Warn("Cache entry corrupted, falling back to database",
			zap.String("key", key),
			zap.Error(unmarshalErr))
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Warn("Cache error, falling back to database",
			zap.String("key", key),
			zap.Error(err))
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.store(key, value, ttl)
	return value, nil
}

// store writes value under its own short deadline so a cancelled request
// does not drop the write.
func (c *CacheService) store(key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to marshal value for caching",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.redis.Set(ctx, key, string(data), ttl); err != nil {
		c.logger.Warn("Failed to cache value",
			zap.String("key", key),
			zap.Error(err))
	}
}

// InvalidateLeague drops every cached leaderboard, roster, history and
// profile entry. Called after any write that can change standings.
func (c *CacheService) InvalidateLeague(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	n, err := c.redis.InvalidatePattern(ctx, c.redis.KeyBuilder.KeyLeagueAll())
	if err != nil {
		c.logger.Error("Failed to invalidate league caches", zap.Error(err))
		return
	}
	c.logger.Debug("League caches invalidated", zap.Int("keys", n))
}

// HealthCheck performs a health check on the cache system
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("cache not configured")
	}

	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Cache health check passed", zap.Duration("duration", duration))
	return nil
}
