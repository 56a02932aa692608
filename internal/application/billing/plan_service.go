package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlanProvider loads plans for pricing
type PlanProvider interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*billing.Plan, error)
}

// PlanService handles subscription plan management
type PlanService struct {
	planRepo billing.PlanRepository
	cache    billing.PlanCache
	logger   *zap.Logger
	opts     options
}

// NewPlanService creates a new plan service. cache may be nil.
func NewPlanService(
	planRepo billing.PlanRepository,
	cache billing.PlanCache,
	logger *zap.Logger,
	opts ...Option,
) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		cache:    cache,
		logger:   logger,
		opts:     newOptions(opts),
	}
}

// Create creates a new plan
func (s *PlanService) Create(ctx context.Context, input PlanInput) (*PlanDTO, error) {
	s.logger.Info("Creating plan", zap.String("code", input.Code))

	plan, err := billing.NewPlan(input.Code, input.Name, input.pricing(), input.Modules, s.opts.now())
	if err != nil {
		return nil, err
	}

	exists, err := s.planRepo.ExistsByCode(ctx, plan.Code)
	if err != nil {
		s.logger.Error("Failed to check plan code existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check code availability")
	}
	if exists {
		return nil, shared.ErrAlreadyExists.Withf("Plan code %s already exists", plan.Code)
	}

	if err := s.planRepo.Save(ctx, plan); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, err
		}
		s.logger.Error("Failed to create plan", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create plan")
	}

	s.logger.Info("Plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("code", plan.Code))

	return toPlanDTO(plan), nil
}

// Update replaces a plan's name, pricing and modules. Existing invoices are not affected.
func (s *PlanService) Update(ctx context.Context, id uuid.UUID, input PlanInput) (*PlanDTO, error) {
	plan, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := plan.Update(input.Name, input.pricing(), input.Modules, s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, plan); err != nil {
		return nil, err
	}
	return toPlanDTO(plan), nil
}

// Activate makes a plan available for new subscriptions
func (s *PlanService) Activate(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	plan, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := plan.Activate(s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, plan); err != nil {
		return nil, err
	}
	return toPlanDTO(plan), nil
}

// Deactivate withdraws a plan from new subscriptions
func (s *PlanService) Deactivate(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	plan, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := plan.Deactivate(s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, plan); err != nil {
		return nil, err
	}
	return toPlanDTO(plan), nil
}

// GetByID retrieves a plan by ID
func (s *PlanService) GetByID(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPlanDTO(plan), nil
}

// GetByCode retrieves a plan by code
func (s *PlanService) GetByCode(ctx context.Context, code string) (*PlanDTO, error) {
	plan, err := s.planRepo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, s.translateFindError(err)
	}
	return toPlanDTO(plan), nil
}

// List retrieves a paginated list of plans
func (s *PlanService) List(ctx context.Context, filter ListFilter) (*shared.Paginated[PlanDTO], error) {
	planFilter := billing.PlanFilter{Filter: filter.ToSharedFilter()}
	switch filter.Status {
	case "active":
		active := true
		planFilter.IsActive = &active
	case "inactive":
		active := false
		planFilter.IsActive = &active
	}

	plans, total, err := s.planRepo.FindAll(ctx, planFilter)
	if err != nil {
		s.logger.Error("Failed to list plans", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list plans")
	}

	result := shared.NewPaginated(mapSlice(plans, toPlanDTO), total, planFilter.Page, planFilter.PageSize)
	return &result, nil
}

// GetPlan loads a plan through the cache
func (s *PlanService) GetPlan(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Plan cache read failed", zap.String("plan_id", id.String()), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateFindError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, plan); err != nil {
			s.logger.Warn("Plan cache write failed", zap.String("plan_id", id.String()), zap.Error(err))
		}
	}
	return plan, nil
}

// load reads a plan from the repository, bypassing the cache so writes start from the stored version
func (s *PlanService) load(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateFindError(err)
	}
	return plan, nil
}

func (s *PlanService) persist(ctx context.Context, plan *billing.Plan) error {
	if err := s.planRepo.Update(ctx, plan); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		s.logger.Error("Failed to update plan", zap.String("plan_id", plan.ID.String()), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update plan")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, plan.ID); err != nil {
			s.logger.Warn("Plan cache invalidation failed", zap.String("plan_id", plan.ID.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *PlanService) translateFindError(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.ErrNotFound.Withf("Plan not found")
	}
	s.logger.Error("Failed to find plan", zap.Error(err))
	return shared.NewDomainError("INTERNAL_ERROR", "Failed to find plan")
}
