package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/identity"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantRepository implements TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a tenant by its unique code
func (r *GormTenantRepository) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all tenants matching the filter
func (r *GormTenantRepository) FindAll(ctx context.Context, filter identity.TenantFilter) ([]identity.Tenant, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TenantModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PlanID != nil {
		query = query.Where("plan_id = ?", *filter.PlanID)
	}
	if filter.Search != "" {
		keyword := likePattern(strings.ToLower(filter.Search))
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", keyword, keyword)
	}

	var tenantModels []models.TenantModel
	total, err := paginate(query, filter.Filter, TenantSortFields, &tenantModels)
	if err != nil {
		return nil, 0, err
	}
	return toTenants(tenantModels), total, nil
}

// FindDue finds active tenants whose next invoice is due at or before now,
// the longest overdue first
func (r *GormTenantRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]identity.Tenant, error) {
	var tenantModels []models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", identity.TenantStatusActive).
		Where("next_invoice_at <= ?", now.UTC()).
		Order("next_invoice_at ASC").
		Order("id").
		Limit(limit).
		Find(&tenantModels).Error; err != nil {
		return nil, err
	}
	return toTenants(tenantModels), nil
}

// ExistsByCode checks if a tenant with the given code exists
func (r *GormTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TenantModel{}).
		Where("code = ?", strings.ToUpper(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts a new tenant
func (r *GormTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	return translateError(r.db.WithContext(ctx).Create(models.TenantModelFromDomain(tenant)).Error)
}

// Update persists tenant changes with optimistic locking
func (r *GormTenantRepository) Update(ctx context.Context, tenant *identity.Tenant) error {
	return updateVersioned(ctx, r.db, models.TenantModelFromDomain(tenant), tenant.ID, tenant.Version)
}

func toTenants(tenantModels []models.TenantModel) []identity.Tenant {
	tenants := make([]identity.Tenant, len(tenantModels))
	for i := range tenantModels {
		tenants[i] = *tenantModels[i].ToDomain()
	}
	return tenants
}

var _ identity.TenantRepository = (*GormTenantRepository)(nil)
