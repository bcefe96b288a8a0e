package keywords

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores extracted sets by key. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedExtractor memoizes another Extractor. Cache failures degrade to a
// direct extraction.
type CachedExtractor struct {
	next  Extractor
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedExtractor(next Extractor, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedExtractor{next: next, cache: cache, ttl: ttl, log: logger}
}

func (c *CachedExtractor) Extract(ctx context.Context, text string) (*Set, error) {
	key := cacheKey(text)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.log.Warn("keyword cache read failed", "err", err)
	case raw != nil:
		var set Set
		if uerr := json.Unmarshal(raw, &set); uerr == nil {
			return &set, nil
		}
		c.log.Warn("keyword cache entry corrupt, re-extracting", "key", key)
	}

	set, err := c.next.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	if raw, merr := json.Marshal(set); merr == nil {
		if serr := c.cache.Set(ctx, key, raw, c.ttl); serr != nil {
			c.log.Warn("keyword cache write failed", "err", serr)
		}
	}
	return set, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "keywords:" + hex.EncodeToString(sum[:])
}

// RedisCache implements Cache on a Redis client.
type RedisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}
	result, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return result, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Health pings the server.
func (r *RedisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
