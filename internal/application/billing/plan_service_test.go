package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func planInput() PlanInput {
	return PlanInput{
		Code:                 "pro",
		Name:                 "Pro",
		IncludedUsers:        10,
		PriceMonthly:         decimal.NewFromInt(40000),
		PriceYearly:          decimal.NewFromInt(400000),
		ExtraUserMonthlyFee:  decimal.NewFromInt(2000),
		ExtraUserCreationFee: decimal.NewFromInt(1000),
		Modules:              []string{"sales", "stock"},
	}
}

func TestPlanService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates plan", func(t *testing.T) {
		repo := new(mockPlanRepository)
		svc := NewPlanService(repo, nil, testLogger(), fixedClock())

		repo.On("ExistsByCode", ctx, "PRO").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*billing.Plan")).Return(nil)

		dto, err := svc.Create(ctx, planInput())
		require.NoError(t, err)
		assert.Equal(t, "PRO", dto.Code)
		assert.Equal(t, "XOF", dto.Currency)
		assert.Equal(t, fixedNow, dto.CreatedAt)
		assert.True(t, dto.IsActive)
		repo.AssertExpectations(t)
	})

	t.Run("rejects duplicate code", func(t *testing.T) {
		repo := new(mockPlanRepository)
		svc := NewPlanService(repo, nil, testLogger(), fixedClock())

		repo.On("ExistsByCode", ctx, "PRO").Return(true, nil)

		_, err := svc.Create(ctx, planInput())
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects invalid pricing before touching the repository", func(t *testing.T) {
		repo := new(mockPlanRepository)
		svc := NewPlanService(repo, nil, testLogger(), fixedClock())

		input := planInput()
		input.PriceMonthly = decimal.NewFromInt(-1)
		_, err := svc.Create(ctx, input)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_PRICE", de.Code)
		repo.AssertNotCalled(t, "ExistsByCode", mock.Anything, mock.Anything)
	})

	t.Run("repository failure becomes internal error", func(t *testing.T) {
		repo := new(mockPlanRepository)
		svc := NewPlanService(repo, nil, testLogger(), fixedClock())

		repo.On("ExistsByCode", ctx, "PRO").Return(false, errors.New("db down"))

		_, err := svc.Create(ctx, planInput())
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INTERNAL_ERROR", de.Code)
	})
}

func TestPlanService_GetPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips repository", func(t *testing.T) {
		repo := new(mockPlanRepository)
		cache := new(mockPlanCache)
		svc := NewPlanService(repo, cache, testLogger())
		plan := testPlan(t)

		cache.On("Get", ctx, plan.ID).Return(plan, nil)

		got, err := svc.GetPlan(ctx, plan.ID)
		require.NoError(t, err)
		assert.Same(t, plan, got)
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("cache miss loads and fills cache", func(t *testing.T) {
		repo := new(mockPlanRepository)
		cache := new(mockPlanCache)
		svc := NewPlanService(repo, cache, testLogger())
		plan := testPlan(t)

		cache.On("Get", ctx, plan.ID).Return(nil, nil)
		repo.On("FindByID", ctx, plan.ID).Return(plan, nil)
		cache.On("Set", ctx, plan).Return(nil)

		got, err := svc.GetPlan(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, plan.ID, got.ID)
		cache.AssertExpectations(t)
	})

	t.Run("cache errors fall back to repository", func(t *testing.T) {
		repo := new(mockPlanRepository)
		cache := new(mockPlanCache)
		svc := NewPlanService(repo, cache, testLogger())
		plan := testPlan(t)

		cache.On("Get", ctx, plan.ID).Return(nil, errors.New("redis down"))
		repo.On("FindByID", ctx, plan.ID).Return(plan, nil)
		cache.On("Set", ctx, plan).Return(errors.New("redis down"))

		got, err := svc.GetPlan(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, plan.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(mockPlanRepository)
		svc := NewPlanService(repo, nil, testLogger())
		plan := testPlan(t)

		repo.On("FindByID", ctx, plan.ID).Return(nil, shared.ErrNotFound)

		_, err := svc.GetByID(ctx, plan.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, "Plan not found", err.Error())
	})
}

func TestPlanService_Update(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPlanRepository)
	cache := new(mockPlanCache)
	svc := NewPlanService(repo, cache, testLogger(), fixedClock())
	plan := testPlan(t)

	repo.On("FindByID", ctx, plan.ID).Return(plan, nil)
	repo.On("Update", ctx, plan).Return(nil)
	cache.On("Invalidate", ctx, plan.ID).Return(nil)

	input := planInput()
	input.Name = "Starter Plus"
	dto, err := svc.Update(ctx, plan.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Starter Plus", dto.Name)
	assert.Equal(t, "STARTER", dto.Code)
	assert.Equal(t, 2, dto.Version)
	assert.Equal(t, fixedNow, dto.UpdatedAt)
	cache.AssertExpectations(t)
}

func TestPlanService_UpdateConflict(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPlanRepository)
	svc := NewPlanService(repo, nil, testLogger(), fixedClock())
	plan := testPlan(t)

	repo.On("FindByID", ctx, plan.ID).Return(plan, nil)
	repo.On("Update", ctx, plan).Return(shared.ErrConcurrencyConflict)

	_, err := svc.Deactivate(ctx, plan.ID)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestPlanService_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPlanRepository)
	cache := new(mockPlanCache)
	svc := NewPlanService(repo, cache, testLogger(), fixedClock())
	plan := testPlan(t)

	repo.On("FindByID", ctx, plan.ID).Return(plan, nil)
	repo.On("Update", ctx, plan).Return(nil)
	cache.On("Invalidate", ctx, plan.ID).Return(nil)

	dto, err := svc.Deactivate(ctx, plan.ID)
	require.NoError(t, err)
	assert.False(t, dto.IsActive)

	_, err = svc.Deactivate(ctx, plan.ID)
	assert.Error(t, err)

	dto, err = svc.Activate(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, dto.IsActive)
}

func TestPlanService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPlanRepository)
	svc := NewPlanService(repo, nil, testLogger())
	plan := testPlan(t)

	repo.On("FindAll", ctx, mock.MatchedBy(func(f billing.PlanFilter) bool {
		return f.IsActive != nil && *f.IsActive && f.Page == 1 && f.PageSize == 20
	})).Return([]billing.Plan{*plan}, int64(1), nil)

	result, err := svc.List(ctx, ListFilter{Status: "active"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "STARTER", result.Items[0].Code)
	assert.Equal(t, int64(1), result.Total)
	assert.Equal(t, 1, result.TotalPages)
}

func TestPlanService_GetByCode(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPlanRepository)
	svc := NewPlanService(repo, nil, testLogger())
	plan := testPlan(t)

	repo.On("FindByCode", ctx, "STARTER").Return(plan, nil)

	dto, err := svc.GetByCode(ctx, " starter ")
	require.NoError(t, err)
	assert.Equal(t, plan.ID, dto.ID)
}
