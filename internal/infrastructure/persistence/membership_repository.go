package persistence

import (
	"context"
	"strings"

	"github.com/erp/billing/internal/domain/identity"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMembershipRepository implements identity.MembershipRepository using GORM.
// Every query is scoped to a single tenant.
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GormMembershipRepository
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

func tenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// FindByID finds a membership of the tenant
func (r *GormMembershipRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.Membership, error) {
	var model models.MembershipModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByTenant lists the tenant's memberships
func (r *GormMembershipRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter identity.MembershipFilter) ([]identity.Membership, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MembershipModel{}).Scopes(tenantScope(tenantID))
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		keyword := likePattern(strings.ToLower(filter.Search))
		query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", keyword, keyword)
	}

	var membershipModels []models.MembershipModel
	total, err := paginate(query, filter.Filter, MembershipSortFields, &membershipModels)
	if err != nil {
		return nil, 0, err
	}

	memberships := make([]identity.Membership, len(membershipModels))
	for i := range membershipModels {
		memberships[i] = *membershipModels[i].ToDomain()
	}
	return memberships, total, nil
}

// CountActive counts the tenant's active memberships, the billable user count
func (r *GormMembershipRepository) CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.MembershipModel{}).
		Scopes(tenantScope(tenantID)).
		Where("status = ?", identity.MembershipStatusActive).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByEmail checks if the tenant already has a membership for the email
func (r *GormMembershipRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.MembershipModel{}).
		Scopes(tenantScope(tenantID)).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts a new membership
func (r *GormMembershipRepository) Save(ctx context.Context, membership *identity.Membership) error {
	return translateError(r.db.WithContext(ctx).Create(models.MembershipModelFromDomain(membership)).Error)
}

// Update persists membership changes with optimistic locking
func (r *GormMembershipRepository) Update(ctx context.Context, membership *identity.Membership) error {
	return updateVersioned(ctx, r.db, models.MembershipModelFromDomain(membership), membership.ID, membership.Version)
}

var _ identity.MembershipRepository = (*GormMembershipRepository)(nil)
