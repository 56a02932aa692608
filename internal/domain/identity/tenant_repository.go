package identity

import (
	"context"
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantFilter defines filtering options for tenant queries
type TenantFilter struct {
	shared.Filter
	Status *TenantStatus
	PlanID *uuid.UUID
}

// TenantRepository defines the interface for tenant persistence
type TenantRepository interface {
	// FindByID finds a tenant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByCode finds a tenant by its unique code
	FindByCode(ctx context.Context, code string) (*Tenant, error)

	// FindAll finds tenants matching the filter, returning the page and the total count
	FindAll(ctx context.Context, filter TenantFilter) ([]Tenant, int64, error)

	// FindDue finds active tenants whose next invoice is due at or before now, oldest due first
	FindDue(ctx context.Context, now time.Time, limit int) ([]Tenant, error)

	// ExistsByCode checks if a tenant with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// Save inserts a new tenant
	Save(ctx context.Context, tenant *Tenant) error

	// Update persists changes to an existing tenant using optimistic locking
	Update(ctx context.Context, tenant *Tenant) error
}
