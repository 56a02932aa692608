package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/identity"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/infrastructure/logger"
	"github.com/erp/billing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceIssuer issues invoices for due periods
type InvoiceIssuer interface {
	IssueForPeriod(ctx context.Context, tenant *identity.Tenant, period billing.Period) (*billing.BillingInvoice, error)
	AdvanceTenant(ctx context.Context, tenant *identity.Tenant, period billing.Period) error
}

// BillingRunConfig contains configuration for BillingRunService
type BillingRunConfig struct {
	BatchSize         int           // Maximum tenants processed per run
	IdempotencyTTL    time.Duration // How long a tenant/period claim is held
	MaxCatchUpPeriods int           // Periods invoiced per tenant when runs were missed
}

// DefaultBillingRunConfig returns default configuration
func DefaultBillingRunConfig() BillingRunConfig {
	return BillingRunConfig{
		BatchSize:         500,
		IdempotencyTTL:    48 * time.Hour,
		MaxCatchUpPeriods: 12,
	}
}

// RunFailure describes a tenant the run could not invoice
type RunFailure struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Period   string    `json:"period"`
	Error    string    `json:"error"`
}

// RunSummary reports the outcome of a billing run
type RunSummary struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	DueTenants int          `json:"due_tenants"`
	Issued     int          `json:"issued"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Invoices   []string     `json:"invoices"`
	Failures   []RunFailure `json:"failures,omitempty"`
}

// BillingRunService invoices every tenant whose next invoice is due
type BillingRunService struct {
	tenantRepo  identity.TenantRepository
	issuer      InvoiceIssuer
	idempotency shared.IdempotencyStore
	logger      *zap.Logger
	config      BillingRunConfig
	opts        options
}

// NewBillingRunService creates a new billing run service
func NewBillingRunService(
	tenantRepo identity.TenantRepository,
	issuer InvoiceIssuer,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
	config BillingRunConfig,
	opts ...Option,
) *BillingRunService {
	defaults := DefaultBillingRunConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = defaults.IdempotencyTTL
	}
	if config.MaxCatchUpPeriods <= 0 {
		config.MaxCatchUpPeriods = defaults.MaxCatchUpPeriods
	}

	return &BillingRunService{
		tenantRepo:  tenantRepo,
		issuer:      issuer,
		idempotency: idempotency,
		logger:      logger,
		config:      config,
		opts:        newOptions(opts),
	}
}

// RunKey returns the idempotency key claimed while invoicing a tenant for a period
func RunKey(tenantID uuid.UUID, period billing.Period) string {
	return fmt.Sprintf("billing-run:%s:%s", tenantID, period)
}

// RunDue invoices every active tenant due at or before now. Each tenant/period
// is claimed in the idempotency store first, so concurrent runs never invoice
// the same period twice.
func (s *BillingRunService) RunDue(ctx context.Context, now time.Time) (summary *RunSummary, err error) {
	telemetry.WithProfilingLabels(ctx, telemetry.BillingRunLabels(logger.GetRunID(ctx)), func(ctx context.Context) {
		summary, err = s.runDue(ctx, now)
	})
	return summary, err
}

func (s *BillingRunService) runDue(ctx context.Context, now time.Time) (*RunSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "billing_run", "run_due")
	defer span.End()

	summary := &RunSummary{
		StartedAt: s.opts.now(),
		Invoices:  []string{},
	}

	tenants, err := s.tenantRepo.FindDue(ctx, now, s.config.BatchSize)
	if err != nil {
		s.logger.Error("Failed to find due tenants", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find due tenants")
	}
	summary.DueTenants = len(tenants)

	s.logger.Info("Billing run started",
		zap.Time("now", now),
		zap.Int("due_tenants", len(tenants)))

	for i := range tenants {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Billing run interrupted", zap.Error(err))
			summary.FinishedAt = s.opts.now()
			return summary, err
		}
		s.runTenant(ctx, &tenants[i], now, summary)
	}

	summary.FinishedAt = s.opts.now()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDueTenants, summary.DueTenants,
		telemetry.SpanAttrIssued, summary.Issued,
		telemetry.SpanAttrFailed, summary.Failed)
	s.logger.Info("Billing run completed",
		zap.Int("issued", summary.Issued),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary, nil
}

func (s *BillingRunService) runTenant(ctx context.Context, tenant *identity.Tenant, now time.Time, summary *RunSummary) {
	ctx, span := telemetry.StartSpan(ctx, "billing_run", "tenant", telemetry.SpanAttrTenantID, tenant.ID)
	defer span.End()
	failedBefore := summary.Failed
	defer func() {
		if summary.Failed > failedBefore {
			telemetry.RecordError(span, errors.New(summary.Failures[len(summary.Failures)-1].Error))
		}
	}()

	log := s.logger.With(zap.String("tenant_id", tenant.ID.String()), zap.String("tenant_code", tenant.Code))

	for range s.config.MaxCatchUpPeriods {
		if !tenant.IsDue(now) {
			return
		}
		period, err := tenant.DuePeriod()
		if err != nil {
			s.fail(summary, tenant, "", err)
			log.Error("Failed to resolve due period", zap.Error(err))
			return
		}

		key := RunKey(tenant.ID, period)
		claimed, err := s.idempotency.MarkProcessed(ctx, key, s.config.IdempotencyTTL)
		if err != nil {
			s.fail(summary, tenant, period.String(), err)
			log.Error("Failed to claim billing run key", zap.String("key", key), zap.Error(err))
			return
		}
		if !claimed {
			summary.Skipped++
			log.Info("Billing period already claimed", zap.String("period", period.String()))
			return
		}

		invoice, err := s.issuer.IssueForPeriod(ctx, tenant, period)
		switch {
		case err == nil:
			summary.Issued++
			summary.Invoices = append(summary.Invoices, invoice.Number)
		case errors.Is(err, shared.ErrAlreadyExists):
			summary.Skipped++
			log.Info("Invoice already exists, advancing due date", zap.String("period", period.String()))
		default:
			s.release(ctx, key)
			s.fail(summary, tenant, period.String(), err)
			log.Error("Failed to issue invoice", zap.String("period", period.String()), zap.Error(err))
			return
		}

		if err := s.issuer.AdvanceTenant(ctx, tenant, period); err != nil {
			s.release(ctx, key)
			s.fail(summary, tenant, period.String(), err)
			log.Error("Failed to advance tenant due date", zap.String("period", period.String()), zap.Error(err))
			return
		}
	}
}

func (s *BillingRunService) release(ctx context.Context, key string) {
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("Failed to release billing run key", zap.String("key", key), zap.Error(err))
	}
}

func (s *BillingRunService) fail(summary *RunSummary, tenant *identity.Tenant, period string, err error) {
	summary.Failed++
	summary.Failures = append(summary.Failures, RunFailure{
		TenantID: tenant.ID,
		Period:   period,
		Error:    err.Error(),
	})
}
