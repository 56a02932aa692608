package event

import (
	"context"
	"sync"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceAuditHandler writes an audit log line for every invoice lifecycle event
type InvoiceAuditHandler struct {
	logger *zap.Logger
}

// NewInvoiceAuditHandler creates the audit handler
func NewInvoiceAuditHandler(log *zap.Logger) *InvoiceAuditHandler {
	return &InvoiceAuditHandler{logger: log.Named("invoice_audit")}
}

// EventTypes returns the invoice lifecycle events
func (h *InvoiceAuditHandler) EventTypes() []string {
	return []string{
		billing.EventTypeBillingInvoiceIssued,
		billing.EventTypeBillingInvoicePaid,
		billing.EventTypeBillingInvoiceCancelled,
	}
}

// Handle logs the event
func (h *InvoiceAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	log := logger.Enrich(ctx, h.logger).With(
		zap.String("event_id", event.EventID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)

	switch e := event.(type) {
	case *billing.BillingInvoiceIssuedEvent:
		log.Info("invoice issued",
			zap.String("number", e.Number),
			zap.String("period", e.Period),
			zap.String("frequency", string(e.Frequency)),
			zap.String("total", e.TotalAmount.String()),
			zap.String("currency", e.Currency),
		)
	case *billing.BillingInvoicePaidEvent:
		log.Info("invoice paid",
			zap.String("number", e.Number),
			zap.String("total", e.TotalAmount.String()),
			zap.String("payment_ref", e.PaymentRef),
		)
	case *billing.BillingInvoiceCancelledEvent:
		log.Info("invoice cancelled",
			zap.String("number", e.Number),
			zap.String("reason", e.Reason),
		)
	default:
		log.Debug("ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}

// InvoiceStats is a snapshot of invoice activity since process start
type InvoiceStats struct {
	Issued       int64           `json:"issued"`
	Paid         int64           `json:"paid"`
	Cancelled    int64           `json:"cancelled"`
	IssuedAmount decimal.Decimal `json:"issued_amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
}

// InvoiceStatsHandler counts invoice lifecycle events for the health endpoint
type InvoiceStatsHandler struct {
	mu    sync.Mutex
	stats InvoiceStats
}

// NewInvoiceStatsHandler creates an empty counter
func NewInvoiceStatsHandler() *InvoiceStatsHandler {
	return &InvoiceStatsHandler{
		stats: InvoiceStats{IssuedAmount: decimal.Zero, PaidAmount: decimal.Zero},
	}
}

// EventTypes returns the invoice lifecycle events
func (h *InvoiceStatsHandler) EventTypes() []string {
	return []string{
		billing.EventTypeBillingInvoiceIssued,
		billing.EventTypeBillingInvoicePaid,
		billing.EventTypeBillingInvoiceCancelled,
	}
}

// Handle updates the counters
func (h *InvoiceStatsHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e := event.(type) {
	case *billing.BillingInvoiceIssuedEvent:
		h.stats.Issued++
		h.stats.IssuedAmount = h.stats.IssuedAmount.Add(e.TotalAmount)
	case *billing.BillingInvoicePaidEvent:
		h.stats.Paid++
		h.stats.PaidAmount = h.stats.PaidAmount.Add(e.TotalAmount)
	case *billing.BillingInvoiceCancelledEvent:
		h.stats.Cancelled++
	}
	return nil
}

// Snapshot returns the current counters
func (h *InvoiceStatsHandler) Snapshot() InvoiceStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

var (
	_ shared.EventHandler = (*InvoiceAuditHandler)(nil)
	_ shared.EventHandler = (*InvoiceStatsHandler)(nil)
)
