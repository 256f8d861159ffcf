// Package cache provides an optional Redis-backed cache for embedding
// extraction results. The model is deterministic for identical input bytes,
// so caching is transparent to API semantics.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

// EmbeddingCache handles Redis-based caching of face embedding results
type EmbeddingCache struct {
	client *redis.Client
	config config.CacheConfig
	logger *zap.Logger
	hits   int64
	misses int64
}

// NewEmbeddingCache creates a new Redis-based embedding cache
func NewEmbeddingCache(cfg config.CacheConfig, logger *zap.Logger) (*EmbeddingCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	cache := &EmbeddingCache{
		client: client,
		config: cfg,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Embedding cache initialized",
		zap.Duration("ttl", cfg.TTL),
		zap.String("key_prefix", cfg.KeyPrefix))

	return cache, nil
}

// Key derives the cache key for an image payload
func (c *EmbeddingCache) Key(imageData []byte) string {
	sum := sha256.Sum256(imageData)
	return c.config.KeyPrefix + hex.EncodeToString(sum[:])
}

// Lookup returns the cached extraction result for an image payload, if any.
// Cache failures are treated as misses.
func (c *EmbeddingCache) Lookup(ctx context.Context, imageData []byte) (*CachedFace, bool) {
	key := c.Key(imageData)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	} else if err != nil {
		c.logger.Error("Cache lookup failed", zap.Error(err))
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	var face CachedFace
	if err := json.Unmarshal([]byte(data), &face); err != nil {
		c.logger.Error("Failed to unmarshal cached face", zap.Error(err))
		// Delete corrupted cache entry
		c.client.Del(ctx, key)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	c.logger.Debug("Cache hit", zap.String("key", key))
	return &face, true
}

// Store caches an extraction result with the configured TTL. Best effort.
func (c *EmbeddingCache) Store(ctx context.Context, imageData []byte, face *CachedFace) {
	face.CachedAt = time.Now()

	data, err := json.Marshal(face)
	if err != nil {
		c.logger.Error("Failed to marshal face for caching", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, c.Key(imageData), data, c.config.TTL).Err(); err != nil {
		c.logger.Error("Failed to cache face", zap.Error(err))
	}
}

// Stats returns cache hit/miss counters
func (c *EmbeddingCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, HitRate: rate}
}

// Close releases the Redis connection
func (c *EmbeddingCache) Close() error {
	return c.client.Close()
}
