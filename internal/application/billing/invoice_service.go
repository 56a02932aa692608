package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/identity"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceService prices tenants and issues their billing invoices
type InvoiceService struct {
	invoiceRepo    billing.InvoiceRepository
	tenantRepo     identity.TenantRepository
	membershipRepo identity.MembershipRepository
	plans          PlanProvider
	publisher      shared.EventPublisher
	logger         *zap.Logger
	opts           options
}

// NewInvoiceService creates a new invoice service. publisher may be nil.
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	tenantRepo identity.TenantRepository,
	membershipRepo identity.MembershipRepository,
	plans PlanProvider,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...Option,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:    invoiceRepo,
		tenantRepo:     tenantRepo,
		membershipRepo: membershipRepo,
		plans:          plans,
		publisher:      publisher,
		logger:         logger,
		opts:           newOptions(opts),
	}
}

// Preview computes what the tenant would be invoiced for a period without persisting anything.
// An empty period means the current period for the tenant's billing frequency.
func (s *InvoiceService) Preview(ctx context.Context, tenantID uuid.UUID, period string) (*billing.BillingPreview, error) {
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	p, err := s.resolvePeriod(tenant, period)
	if err != nil {
		return nil, err
	}
	return s.preview(ctx, tenant, p)
}

// CreateInvoice issues the tenant's invoice for a period and rolls its next
// due date forward when that date falls in the invoiced period.
func (s *InvoiceService) CreateInvoice(ctx context.Context, tenantID uuid.UUID, period string) (*InvoiceDTO, error) {
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	p, err := s.resolvePeriod(tenant, period)
	if err != nil {
		return nil, err
	}

	invoice, err := s.IssueForPeriod(ctx, tenant, p)
	if err != nil {
		return nil, err
	}
	if err := s.AdvanceTenant(ctx, tenant, p); err != nil {
		// the billing run retries the advance; the invoice itself is persisted
		s.logger.Error("Failed to advance tenant due date after invoicing",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("invoice_number", invoice.Number),
			zap.Error(err))
	}
	return toInvoiceDTO(invoice), nil
}

// IssueForPeriod prices the tenant for the period and persists an issued invoice.
// Returns shared.ErrAlreadyExists if the tenant already has an invoice for the period.
func (s *InvoiceService) IssueForPeriod(ctx context.Context, tenant *identity.Tenant, period billing.Period) (invoice *billing.BillingInvoice, err error) {
	labels := telemetry.InvoiceIssueLabels(tenant.ID.String(), period.String())
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		invoice, err = s.issueForPeriod(ctx, tenant, period)
	})
	return invoice, err
}

func (s *InvoiceService) issueForPeriod(ctx context.Context, tenant *identity.Tenant, period billing.Period) (*billing.BillingInvoice, error) {
	number := billing.InvoiceNumber(tenant.Code, period.String())
	ctx, span := telemetry.StartSpan(ctx, "invoice", "issue",
		telemetry.SpanAttrTenantID, tenant.ID,
		telemetry.SpanAttrPeriod, period.String(),
		telemetry.SpanAttrInvoiceNumber, number)
	defer span.End()

	existing, err := s.invoiceRepo.FindByTenantAndPeriod(ctx, tenant.ID, period.String())
	switch {
	case err == nil && existing != nil:
		return nil, shared.ErrAlreadyExists.Withf("Invoice %s already exists", number)
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		s.logger.Error("Failed to check existing invoice", zap.String("number", number), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check existing invoice")
	}

	preview, err := s.preview(ctx, tenant, period)
	if err != nil {
		return nil, err
	}

	invoice, err := billing.IssueInvoice(tenant.ID, tenant.Code, preview, s.opts.now())
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.ErrAlreadyExists.Withf("Invoice %s already exists", number)
		}
		s.logger.Error("Failed to save invoice", zap.String("number", number), zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save invoice")
	}
	s.publish(ctx, invoice)

	s.logger.Info("Invoice issued",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("total", invoice.TotalAmount.String()),
		zap.String("currency", string(invoice.Currency)))

	return invoice, nil
}

// AdvanceTenant rolls the tenant's next due date past an invoiced period
func (s *InvoiceService) AdvanceTenant(ctx context.Context, tenant *identity.Tenant, period billing.Period) error {
	advanced, err := tenant.AdvanceNextInvoice(period, s.opts.now())
	if err != nil || !advanced {
		return err
	}
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return err
	}
	s.logger.Debug("Tenant due date advanced",
		zap.String("tenant_id", tenant.ID.String()),
		zap.Time("next_invoice_at", tenant.NextInvoiceAt))
	return nil
}

// MarkPaid records the payment of an issued invoice
func (s *InvoiceService) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (*InvoiceDTO, error) {
	invoice, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.MarkPaid(paymentRef, s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.updateInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	return toInvoiceDTO(invoice), nil
}

// Cancel voids an issued invoice
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*InvoiceDTO, error) {
	invoice, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Cancel(reason, s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.updateInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	return toInvoiceDTO(invoice), nil
}

// GetByID retrieves an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceDTO(invoice), nil
}

// ListByTenant lists a tenant's invoices, optionally narrowed to a period
func (s *InvoiceService) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter ListFilter, period string) (*shared.Paginated[InvoiceDTO], error) {
	if _, err := s.loadTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	invoiceFilter := billing.InvoiceFilter{
		Filter:   filter.ToSharedFilter(),
		TenantID: &tenantID,
		Period:   strings.TrimSpace(period),
	}
	if filter.Status != "" {
		status := billing.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.ErrInvalidInput.Withf("Invalid invoice status %q", filter.Status)
		}
		invoiceFilter.Status = &status
	}

	invoices, total, err := s.invoiceRepo.FindAll(ctx, invoiceFilter)
	if err != nil {
		s.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list invoices")
	}

	result := shared.NewPaginated(mapSlice(invoices, toInvoiceDTO), total, invoiceFilter.Page, invoiceFilter.PageSize)
	return &result, nil
}

func (s *InvoiceService) preview(ctx context.Context, tenant *identity.Tenant, period billing.Period) (*billing.BillingPreview, error) {
	plan, err := s.plans.GetPlan(ctx, tenant.PlanID)
	if err != nil {
		return nil, err
	}
	active, err := s.membershipRepo.CountActive(ctx, tenant.ID)
	if err != nil {
		s.logger.Error("Failed to count active members", zap.String("tenant_id", tenant.ID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count active users")
	}
	return billing.ComputePlanBilling(plan, period.String(), tenant.BillingFrequency, int(active))
}

func (s *InvoiceService) resolvePeriod(tenant *identity.Tenant, period string) (billing.Period, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return tenant.CurrentPeriod(s.opts.now())
	}
	return billing.ParsePeriod(tenant.BillingFrequency, period)
}

func (s *InvoiceService) loadTenant(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.Withf("Tenant not found")
		}
		s.logger.Error("Failed to find tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return tenant, nil
}

func (s *InvoiceService) loadInvoice(ctx context.Context, id uuid.UUID) (*billing.BillingInvoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.Withf("Invoice not found")
		}
		s.logger.Error("Failed to find invoice", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find invoice")
	}
	return invoice, nil
}

func (s *InvoiceService) updateInvoice(ctx context.Context, invoice *billing.BillingInvoice) error {
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		s.logger.Error("Failed to update invoice", zap.String("number", invoice.Number), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update invoice")
	}
	s.publish(ctx, invoice)
	return nil
}

func (s *InvoiceService) publish(ctx context.Context, invoice *billing.BillingInvoice) {
	events := invoice.GetDomainEvents()
	invoice.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish invoice events",
			zap.String("number", invoice.Number),
			zap.Error(err))
	}
}
