// Package cache stores typeahead search results in Redis.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/metrics"
)

// KVStore is the subset of Redis the cache needs.
type KVStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

const keyPrefix = "rbi:search:"

// SearchCache caches search responses keyed by source and normalised query.
// A nil *SearchCache is valid and caches nothing.
type SearchCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient creates the Redis client from config.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewSearchCache creates a search cache
func NewSearchCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *SearchCache {
	return &SearchCache{kv: kv, ttl: ttl, logger: logger}
}

// Key builds the cache key; the query is folded and hashed so arbitrary input is key-safe.
func (c *SearchCache) Key(source string, parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s%s:%s", keyPrefix, source, hex.EncodeToString(h.Sum(nil)))
}

// Get loads a cached value into dst. Misses and Redis failures both report false;
// a broken cache degrades to uncached search.
func (c *SearchCache) Get(ctx context.Context, source, key string, dst any) bool {
	if c == nil {
		return false
	}

	raw, err := c.kv.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("search cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.RecordCacheLookup(source, false)
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		c.logger.Warn("search cache entry corrupt", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheLookup(source, false)
		return false
	}

	metrics.RecordCacheLookup(source, true)
	return true
}

// Set stores value under key with the cache TTL.
func (c *SearchCache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("search cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.kv.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("search cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached entry for a source, e.g. after a custom occupation is created.
func (c *SearchCache) Invalidate(ctx context.Context, source string) error {
	if c == nil {
		return nil
	}

	pattern := keyPrefix + source + ":*"
	var cursor uint64
	for {
		keys, next, err := c.kv.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.kv.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
