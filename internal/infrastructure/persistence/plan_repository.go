package persistence

import (
	"context"
	"strings"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPlanRepository implements billing.PlanRepository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByID finds a plan by its ID
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	var model models.PlanModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a plan by its unique code
func (r *GormPlanRepository) FindByCode(ctx context.Context, code string) (*billing.Plan, error) {
	var model models.PlanModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds plans matching the filter
func (r *GormPlanRepository) FindAll(ctx context.Context, filter billing.PlanFilter) ([]billing.Plan, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PlanModel{})
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		keyword := likePattern(strings.ToLower(filter.Search))
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", keyword, keyword)
	}

	var planModels []models.PlanModel
	total, err := paginate(query, filter.Filter, PlanSortFields, &planModels)
	if err != nil {
		return nil, 0, err
	}

	plans := make([]billing.Plan, len(planModels))
	for i := range planModels {
		plans[i] = *planModels[i].ToDomain()
	}
	return plans, total, nil
}

// ExistsByCode checks if a plan with the given code exists
func (r *GormPlanRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PlanModel{}).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts a new plan
func (r *GormPlanRepository) Save(ctx context.Context, plan *billing.Plan) error {
	return translateError(r.db.WithContext(ctx).Create(models.PlanModelFromDomain(plan)).Error)
}

// Update persists plan changes with optimistic locking
func (r *GormPlanRepository) Update(ctx context.Context, plan *billing.Plan) error {
	return updateVersioned(ctx, r.db, models.PlanModelFromDomain(plan), plan.ID, plan.Version)
}

var _ billing.PlanRepository = (*GormPlanRepository)(nil)
