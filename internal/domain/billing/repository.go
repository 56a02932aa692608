package billing

import (
	"context"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// PlanFilter defines filtering options for plan queries
type PlanFilter struct {
	shared.Filter
	IsActive *bool
}

// PlanRepository defines the interface for plan persistence
type PlanRepository interface {
	// FindByID finds a plan by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Plan, error)

	// FindByCode finds a plan by its unique code
	FindByCode(ctx context.Context, code string) (*Plan, error)

	// FindAll finds plans matching the filter, returning the page and the total count
	FindAll(ctx context.Context, filter PlanFilter) ([]Plan, int64, error)

	// ExistsByCode checks if a plan with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// Save inserts a new plan
	Save(ctx context.Context, plan *Plan) error

	// Update persists changes to an existing plan using optimistic locking
	Update(ctx context.Context, plan *Plan) error
}

// PlanCache caches plans by ID in front of the repository.
// Get returns (nil, nil) on a miss.
type PlanCache interface {
	Get(ctx context.Context, id uuid.UUID) (*Plan, error)
	Set(ctx context.Context, plan *Plan) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	TenantID *uuid.UUID
	Status   *InvoiceStatus
	Period   string
}

// InvoiceRepository defines the interface for billing invoice persistence.
// Implementations must enforce at most one invoice per tenant and period.
type InvoiceRepository interface {
	// FindByID finds an invoice by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*BillingInvoice, error)

	// FindByTenantAndPeriod finds the invoice of a tenant for a period
	FindByTenantAndPeriod(ctx context.Context, tenantID uuid.UUID, period string) (*BillingInvoice, error)

	// FindAll finds invoices matching the filter, returning the page and the total count
	FindAll(ctx context.Context, filter InvoiceFilter) ([]BillingInvoice, int64, error)

	// Save inserts a new invoice; returns shared.ErrAlreadyExists when the tenant already has one for the period
	Save(ctx context.Context, invoice *BillingInvoice) error

	// Update persists a status change using optimistic locking
	Update(ctx context.Context, invoice *BillingInvoice) error
}
