package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("builds redis backed stores on one client", func(t *testing.T) {
		mr := miniredis.RunT(t)
		f := NewFactory(config.BillingConfig{
			IdempotencyBackend: config.BackendRedis,
			PlanCacheBackend:   config.BackendRedis,
			PlanCacheTTL:       time.Minute,
		}, redisConfigFor(t, mr), WithLogger(zaptest.NewLogger(t)))
		defer f.Close()

		store, err := f.IdempotencyStore(ctx)
		require.NoError(t, err)
		assert.IsType(t, &RedisIdempotencyStore{}, store)

		pc, err := f.PlanCache(ctx)
		require.NoError(t, err)
		assert.IsType(t, &RedisPlanCache{}, pc)

		require.NotNil(t, f.Client())
		require.NoError(t, f.Close())
		assert.Nil(t, f.Client())
	})

	t.Run("memory backends never dial", func(t *testing.T) {
		f := NewFactory(config.BillingConfig{
			IdempotencyBackend: config.BackendMemory,
			PlanCacheBackend:   config.BackendMemory,
		}, config.RedisConfig{})
		f.dial = func(context.Context, config.RedisConfig) (*redis.Client, error) {
			t.Fatal("dial must not be called")
			return nil, nil
		}

		store, err := f.IdempotencyStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)

		pc, err := f.PlanCache(ctx)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryPlanCache{}, pc)
		assert.Nil(t, f.Client())
	})

	t.Run("redis required without fallback", func(t *testing.T) {
		dials := 0
		f := NewFactory(config.BillingConfig{
			IdempotencyBackend: config.BackendRedis,
			PlanCacheBackend:   config.BackendRedis,
		}, config.RedisConfig{})
		f.dial = func(context.Context, config.RedisConfig) (*redis.Client, error) {
			dials++
			return nil, errors.New("connection refused")
		}

		_, err := f.IdempotencyStore(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Redis required for idempotency")

		_, err = f.PlanCache(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Redis required for plan cache")
		assert.Equal(t, 1, dials, "failed dial is not retried")
	})

	t.Run("falls back to memory when allowed", func(t *testing.T) {
		f := NewFactory(config.BillingConfig{
			IdempotencyBackend: config.BackendRedis,
			PlanCacheBackend:   config.BackendRedis,
		}, config.RedisConfig{}, WithInMemoryFallback(true))
		f.dial = func(context.Context, config.RedisConfig) (*redis.Client, error) {
			return nil, errors.New("connection refused")
		}

		store, err := f.IdempotencyStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)

		pc, err := f.PlanCache(ctx)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryPlanCache{}, pc)
	})

	t.Run("uses an injected client", func(t *testing.T) {
		_, client := setupMiniredis(t)
		f := NewFactory(config.BillingConfig{IdempotencyBackend: config.BackendRedis}, config.RedisConfig{},
			WithRedisClient(client))

		store, err := f.IdempotencyStore(ctx)
		require.NoError(t, err)
		assert.IsType(t, &RedisIdempotencyStore{}, store)
		assert.Same(t, client, f.Client())
	})
}
