package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyKeyPrefix namespaces billing run claims in Redis
const DefaultIdempotencyKeyPrefix = "billing:idempotency:"

// RedisIdempotencyStore implements shared.IdempotencyStore on Redis.
// Claims are shared by every service instance pointing at the same server,
// so two concurrent billing runs cannot claim the same tenant period.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing client.
// The client stays owned by the caller and is not closed by Close.
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultIdempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed claims key with SET NX and the given ttl
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, shared.NewDomainError("INVALID_INPUT", "Idempotency TTL must be positive")
	}
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key %s: %w", key, err)
	}
	return ok, nil
}

// IsProcessed reports whether key is currently claimed
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key %s: %w", key, err)
	}
	return n > 0, nil
}

// Release drops the claim on key. Releasing an unknown key is not an error.
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client is closed by its owner
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
