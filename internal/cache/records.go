// Package cache provides the best-effort local record cache. It is never
// authoritative: the document store always wins on disagreement.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docsense/client/internal/analysis"
)

// RecordCache is the cache port. Get's second return reports a fresh hit.
type RecordCache interface {
	Get(ctx context.Context, documentID string) (analysis.DocumentRecord, bool)
	Set(ctx context.Context, rec analysis.DocumentRecord)
	Clear(ctx context.Context) error
	Close() error
}

// RedisCache stores last-known document records with a freshness TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.SugaredLogger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(redisURL string, ttl time.Duration, log *zap.SugaredLogger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "docsense:record:",
		log:    log,
	}, nil
}

func (c *RedisCache) key(documentID string) string {
	return c.prefix + documentID
}

// Get returns the cached record if present and still fresh. Failures are
// logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, documentID string) (analysis.DocumentRecord, bool) {
	raw, err := c.client.Get(ctx, c.key(documentID)).Result()
	if err == redis.Nil {
		return analysis.DocumentRecord{}, false
	}
	if err != nil {
		c.log.Warnw("cache: get failed", "document", documentID, "err", err)
		return analysis.DocumentRecord{}, false
	}

	var rec analysis.DocumentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.log.Warnw("cache: corrupt record dropped", "document", documentID, "err", err)
		_ = c.client.Del(ctx, c.key(documentID)).Err()
		return analysis.DocumentRecord{}, false
	}
	return rec, true
}

// Set writes the record opportunistically. Errors are logged, not returned.
func (c *RedisCache) Set(ctx context.Context, rec analysis.DocumentRecord) {
	if rec.ID == "" {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		c.log.Warnw("cache: marshal record", "document", rec.ID, "err", err)
		return
	}
	if err := c.client.Set(ctx, c.key(rec.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warnw("cache: set failed", "document", rec.ID, "err", err)
	}
}

// Clear removes every cached record. Used on delete-all and sign-out.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Noop is the cache used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (analysis.DocumentRecord, bool) {
	return analysis.DocumentRecord{}, false
}
func (Noop) Set(context.Context, analysis.DocumentRecord) {}

func (Noop) Clear(context.Context) error { return nil }

func (Noop) Close() error { return nil }
