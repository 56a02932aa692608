package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedTestPlan(t *testing.T) *billing.Plan {
	t.Helper()
	plan, err := billing.NewPlan("PRO", "Pro", billing.PlanPricing{
		IncludedUsers:        5,
		PriceMonthly:         decimal.NewFromInt(15000),
		PriceYearly:          decimal.NewFromInt(150000),
		ExtraUserMonthlyFee:  decimal.NewFromInt(1000),
		ExtraUserCreationFee: decimal.NewFromInt(500),
	}, []string{"stock", "sales"}, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return plan
}

func assertSamePlan(t *testing.T, want, got *billing.Plan) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Code, got.Code)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.IncludedUsers, got.IncludedUsers)
	assert.True(t, want.PriceMonthly.Equal(got.PriceMonthly))
	assert.True(t, want.PriceYearly.Equal(got.PriceYearly))
	assert.True(t, want.ExtraUserMonthlyFee.Equal(got.ExtraUserMonthlyFee))
	assert.True(t, want.ExtraUserCreationFee.Equal(got.ExtraUserCreationFee))
	assert.Equal(t, want.Currency, got.Currency)
	assert.Equal(t, want.Modules, got.Modules)
	assert.Equal(t, want.IsActive, got.IsActive)
	assert.Equal(t, want.Version, got.Version)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestRedisPlanCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss returns nil", func(t *testing.T) {
		_, client := setupMiniredis(t)
		c := NewRedisPlanCache(client, time.Minute)

		got, err := c.Get(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("round trips a plan with ttl", func(t *testing.T) {
		mr, client := setupMiniredis(t)
		c := NewRedisPlanCache(client, time.Minute)
		plan := newCachedTestPlan(t)

		require.NoError(t, c.Set(ctx, plan))

		got, err := c.Get(ctx, plan.ID)
		require.NoError(t, err)
		assertSamePlan(t, plan, got)
		assert.Equal(t, time.Minute, mr.TTL(DefaultPlanKeyPrefix+plan.ID.String()))
	})

	t.Run("entry expires", func(t *testing.T) {
		mr, client := setupMiniredis(t)
		c := NewRedisPlanCache(client, time.Minute)
		plan := newCachedTestPlan(t)
		require.NoError(t, c.Set(ctx, plan))

		mr.FastForward(2 * time.Minute)

		got, err := c.Get(ctx, plan.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invalidate removes the entry", func(t *testing.T) {
		_, client := setupMiniredis(t)
		c := NewRedisPlanCache(client, 0)
		plan := newCachedTestPlan(t)
		require.NoError(t, c.Set(ctx, plan))

		require.NoError(t, c.Invalidate(ctx, plan.ID))

		got, err := c.Get(ctx, plan.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("corrupt entry is dropped as a miss", func(t *testing.T) {
		mr, client := setupMiniredis(t)
		c := NewRedisPlanCache(client, time.Minute)
		id := uuid.New()
		require.NoError(t, mr.Set(DefaultPlanKeyPrefix+id.String(), "{not json"))

		got, err := c.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.False(t, mr.Exists(DefaultPlanKeyPrefix+id.String()))
	})

	t.Run("server error is returned", func(t *testing.T) {
		mr, client := setupMiniredis(t)
		c := NewRedisPlanCache(client, time.Minute)
		mr.SetError("LOADING")

		_, err := c.Get(ctx, uuid.New())
		assert.Error(t, err)
	})
}

func TestInMemoryPlanCache(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a copy", func(t *testing.T) {
		c := NewInMemoryPlanCache(time.Minute)
		plan := newCachedTestPlan(t)
		require.NoError(t, c.Set(ctx, plan))

		got, err := c.Get(ctx, plan.ID)
		require.NoError(t, err)
		assertSamePlan(t, plan, got)

		got.Modules[0] = "mutated"
		again, err := c.Get(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, plan.Modules, again.Modules)
	})

	t.Run("stores a snapshot of the plan", func(t *testing.T) {
		c := NewInMemoryPlanCache(time.Minute)
		plan := newCachedTestPlan(t)
		want := append([]string{}, plan.Modules...)
		require.NoError(t, c.Set(ctx, plan))

		plan.Modules[0] = "mutated"
		got, err := c.Get(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got.Modules)
	})

	t.Run("expired entries miss", func(t *testing.T) {
		c := NewInMemoryPlanCache(time.Minute)
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }
		plan := newCachedTestPlan(t)
		require.NoError(t, c.Set(ctx, plan))

		now = now.Add(time.Minute)

		got, err := c.Get(ctx, plan.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invalidate and nil set", func(t *testing.T) {
		c := NewInMemoryPlanCache(time.Minute)
		plan := newCachedTestPlan(t)
		require.NoError(t, c.Set(ctx, plan))
		require.NoError(t, c.Set(ctx, nil))

		require.NoError(t, c.Invalidate(ctx, plan.ID))

		got, err := c.Get(ctx, plan.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
