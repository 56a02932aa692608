package billing

import (
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeBillingInvoice = "BillingInvoice"

// Event type constants
const (
	EventTypeBillingInvoiceIssued    = "BillingInvoiceIssued"
	EventTypeBillingInvoicePaid      = "BillingInvoicePaid"
	EventTypeBillingInvoiceCancelled = "BillingInvoiceCancelled"
)

// BillingInvoiceIssuedEvent is published when an invoice is issued
type BillingInvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Number      string          `json:"number"`
	Period      string          `json:"period"`
	Frequency   Frequency       `json:"frequency"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}

// NewBillingInvoiceIssuedEvent creates a new BillingInvoiceIssuedEvent
func NewBillingInvoiceIssuedEvent(invoice *BillingInvoice) *BillingInvoiceIssuedEvent {
	return &BillingInvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingInvoiceIssued, AggregateTypeBillingInvoice, invoice.ID, invoice.TenantID, invoice.IssuedAt),
		InvoiceID:       invoice.ID,
		Number:          invoice.Number,
		Period:          invoice.Period,
		Frequency:       invoice.Frequency,
		TotalAmount:     invoice.TotalAmount,
		Currency:        string(invoice.Currency),
	}
}

// BillingInvoicePaidEvent is published when an invoice is paid
type BillingInvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaymentRef  string          `json:"payment_ref,omitempty"`
	PaidAt      time.Time       `json:"paid_at"`
}

// NewBillingInvoicePaidEvent creates a new BillingInvoicePaidEvent
func NewBillingInvoicePaidEvent(invoice *BillingInvoice) *BillingInvoicePaidEvent {
	return &BillingInvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingInvoicePaid, AggregateTypeBillingInvoice, invoice.ID, invoice.TenantID, *invoice.PaidAt),
		InvoiceID:       invoice.ID,
		Number:          invoice.Number,
		TotalAmount:     invoice.TotalAmount,
		PaymentRef:      invoice.PaymentRef,
		PaidAt:          *invoice.PaidAt,
	}
}

// BillingInvoiceCancelledEvent is published when an invoice is cancelled
type BillingInvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Number    string    `json:"number"`
	Reason    string    `json:"reason"`
}

// NewBillingInvoiceCancelledEvent creates a new BillingInvoiceCancelledEvent
func NewBillingInvoiceCancelledEvent(invoice *BillingInvoice) *BillingInvoiceCancelledEvent {
	return &BillingInvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingInvoiceCancelled, AggregateTypeBillingInvoice, invoice.ID, invoice.TenantID, *invoice.CancelledAt),
		InvoiceID:       invoice.ID,
		Number:          invoice.Number,
		Reason:          invoice.CancelReason,
	}
}
