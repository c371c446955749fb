// Package cache implements the idempotency cache port on Redis.
//
// The cache fronts the UNIQUE index on transactions.reference_id. Every
// entry expires after the configured TTL, so Redis holds only the recent
// working set while the index stays the source of truth.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/centralpay/paycore/internal/application/ports"
)

// keyPrefix namespaces idempotency entries so the Redis instance can be
// shared with other consumers.
const keyPrefix = "txn_idempotency:"

// Config holds Redis connection settings.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// TTL bounds the lifetime of a reference to transaction mapping.
	// Zero stores entries without expiry.
	TTL time.Duration
}

// IdempotencyCache is the Redis-backed ports.IdempotencyCache.
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.IdempotencyCache = (*IdempotencyCache)(nil)

// NewIdempotencyCache connects to Redis and verifies the connection
// before returning.
func NewIdempotencyCache(cfg Config) (*IdempotencyCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &IdempotencyCache{client: client, ttl: cfg.TTL}, nil
}

// Get returns the transaction id cached for a reference id. A missing key
// is not an error.
func (c *IdempotencyCache) Get(ctx context.Context, referenceID string) (uuid.UUID, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+referenceID).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("redis get: %w", err)
	}

	id, err := uuid.Parse(val)
	if err != nil {
		// A value that does not parse is treated as a miss and dropped.
		_ = c.client.Del(ctx, keyPrefix+referenceID).Err()
		return uuid.Nil, false, nil
	}

	return id, true, nil
}

// Set stores a reference to transaction mapping with the configured TTL.
func (c *IdempotencyCache) Set(ctx context.Context, referenceID string, transactionID uuid.UUID) error {
	if err := c.client.Set(ctx, keyPrefix+referenceID, transactionID.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate removes a mapping. Deleting an absent key is not an error.
func (c *IdempotencyCache) Invalidate(ctx context.Context, referenceID string) error {
	if err := c.client.Del(ctx, keyPrefix+referenceID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *IdempotencyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *IdempotencyCache) Close() error {
	return c.client.Close()
}
