package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the idempotency store and plan cache selected by the
// billing configuration. Both share a single Redis client when they use Redis.
type Factory struct {
	billingConfig         config.BillingConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool

	mu       sync.Mutex
	client   *redis.Client
	dial     func(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error)
	dialErr  error
	attempts int
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable.
// Default is false.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithRedisClient makes the factory use an existing client instead of dialing
func WithRedisClient(client *redis.Client) FactoryOption {
	return func(f *Factory) {
		f.client = client
	}
}

// NewFactory creates a new factory
func NewFactory(billingCfg config.BillingConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		billingConfig: billingCfg,
		redisConfig:   redisCfg,
		logger:        zap.NewNop(),
		dial:          NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IdempotencyStore creates the configured idempotency store
func (f *Factory) IdempotencyStore(ctx context.Context) (shared.IdempotencyStore, error) {
	if f.billingConfig.IdempotencyBackend == config.BackendMemory {
		f.logger.Warn("using in-memory idempotency store; billing run claims are not shared between instances")
		return NewInMemoryIdempotencyStore(), nil
	}

	client, err := f.redisClient(ctx)
	if err == nil {
		f.logger.Info("using Redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisIdempotencyStore(client, DefaultIdempotencyKeyPrefix), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"Concurrent billing runs on other instances may claim the same periods.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}

// PlanCache creates the configured plan cache
func (f *Factory) PlanCache(ctx context.Context) (billing.PlanCache, error) {
	ttl := f.billingConfig.PlanCacheTTL
	if f.billingConfig.PlanCacheBackend == config.BackendMemory {
		return NewInMemoryPlanCache(ttl), nil
	}

	client, err := f.redisClient(ctx)
	if err == nil {
		return NewRedisPlanCache(client, ttl), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for plan cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory plan cache", zap.Error(err))
	return NewInMemoryPlanCache(ttl), nil
}

// Client returns the shared Redis client, or nil if none was opened
func (f *Factory) Client() *redis.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client
}

// Close closes the shared Redis client
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}

// redisClient dials at most once; a failed dial is remembered
func (f *Factory) redisClient(ctx context.Context) (*redis.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return f.client, nil
	}
	if f.attempts > 0 {
		return nil, f.dialErr
	}

	f.attempts++
	client, err := f.dial(ctx, f.redisConfig)
	if err != nil {
		f.dialErr = err
		return nil, err
	}
	f.client = client
	return client, nil
}
