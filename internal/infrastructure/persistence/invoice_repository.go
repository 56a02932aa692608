package persistence

import (
	"context"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingInvoice, error) {
	var model models.BillingInvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByTenantAndPeriod finds the tenant's invoice for a period
func (r *GormInvoiceRepository) FindByTenantAndPeriod(ctx context.Context, tenantID uuid.UUID, period string) (*billing.BillingInvoice, error) {
	var model models.BillingInvoiceModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("period = ?", period).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.BillingInvoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BillingInvoiceModel{})
	if filter.TenantID != nil {
		query = query.Scopes(tenantScope(*filter.TenantID))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Period != "" {
		query = query.Where("period = ?", filter.Period)
	}
	if filter.Search != "" {
		query = query.Where("number LIKE ?", likePattern(filter.Search))
	}

	var invoiceModels []models.BillingInvoiceModel
	total, err := paginate(query, filter.Filter, InvoiceSortFields, &invoiceModels)
	if err != nil {
		return nil, 0, err
	}

	invoices := make([]billing.BillingInvoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, total, nil
}

// Save inserts a new invoice. A second invoice for the same tenant and period
// violates the unique index and yields shared.ErrAlreadyExists.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.BillingInvoice) error {
	return translateError(r.db.WithContext(ctx).Create(models.BillingInvoiceModelFromDomain(invoice)).Error)
}

// Update persists a status change with optimistic locking
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *billing.BillingInvoice) error {
	return updateVersioned(ctx, r.db, models.BillingInvoiceModelFromDomain(invoice), invoice.ID, invoice.Version)
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
