package billing

import (
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of a billing invoice
type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// BillingInvoice is a billing preview promoted to a persisted invoice.
// Amounts never change after issue; only the status moves forward.
type BillingInvoice struct {
	shared.TenantAggregateRoot
	Number        string
	PlanID        uuid.UUID
	PlanCode      string
	PlanName      string
	Period        string
	Frequency     Frequency
	PeriodStart   time.Time
	PeriodEnd     time.Time
	ActiveUsers   int
	IncludedUsers int
	ExtrasCount   int
	BaseAmount    decimal.Decimal
	ExtrasAmount  decimal.Decimal
	TotalAmount   decimal.Decimal
	Currency      valueobject.Currency
	Status        InvoiceStatus
	IssuedAt      time.Time
	PaidAt        *time.Time
	PaymentRef    string
	CancelledAt   *time.Time
	CancelReason  string
}

// InvoiceNumber formats the invoice number of a tenant and period
func InvoiceNumber(tenantCode, period string) string {
	return "INV-" + strings.ToUpper(tenantCode) + "-" + period
}

// IssueInvoice creates an issued invoice from a billing preview
func IssueInvoice(tenantID uuid.UUID, tenantCode string, preview *BillingPreview, at time.Time) (*BillingInvoice, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if strings.TrimSpace(tenantCode) == "" {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant code cannot be empty")
	}
	if preview == nil {
		return nil, shared.ErrInvalidInput.Withf("Billing preview is required")
	}
	period, err := ParsePeriod(preview.Frequency, preview.Period)
	if err != nil {
		return nil, err
	}

	currency := preview.Amounts.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	// amounts are settled line by line so the total stays base plus extras
	base := settle(preview.Amounts.Base, currency)
	extras := settle(preview.Amounts.Extras, currency)
	total := base.MustAdd(extras)

	invoice := &BillingInvoice{
		TenantAggregateRoot: shared.NewTenantAggregateRootAt(tenantID, at),
		Number:              InvoiceNumber(tenantCode, preview.Period),
		PlanID:              preview.Plan.ID,
		PlanCode:            preview.Plan.Code,
		PlanName:            preview.Plan.Name,
		Period:              preview.Period,
		Frequency:           preview.Frequency,
		PeriodStart:         period.Start(),
		PeriodEnd:           period.End(),
		ActiveUsers:         preview.Numbers.ActiveUsers,
		IncludedUsers:       preview.Numbers.IncludedUsers,
		ExtrasCount:         preview.Numbers.ExtrasCount,
		BaseAmount:          base.Amount(),
		ExtrasAmount:        extras.Amount(),
		TotalAmount:         total.Amount(),
		Currency:            currency,
		Status:              InvoiceStatusIssued,
		IssuedAt:            at,
	}
	invoice.AddDomainEvent(NewBillingInvoiceIssuedEvent(invoice))
	return invoice, nil
}

func settle(amount decimal.Decimal, currency valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(amount, currency)
	return m.Settle()
}

// MarkPaid records the payment of an issued invoice
func (i *BillingInvoice) MarkPaid(paymentRef string, at time.Time) error {
	if i.Status != InvoiceStatusIssued {
		return shared.ErrInvalidState.Withf("Cannot mark invoice %s as paid in %s status", i.Number, i.Status)
	}
	i.Status = InvoiceStatusPaid
	i.PaidAt = &at
	i.PaymentRef = strings.TrimSpace(paymentRef)
	i.MarkModified(at)
	i.AddDomainEvent(NewBillingInvoicePaidEvent(i))
	return nil
}

// Cancel voids an issued invoice
func (i *BillingInvoice) Cancel(reason string, at time.Time) error {
	if i.Status != InvoiceStatusIssued {
		return shared.ErrInvalidState.Withf("Cannot cancel invoice %s in %s status", i.Number, i.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason cannot be empty")
	}
	i.Status = InvoiceStatusCancelled
	i.CancelledAt = &at
	i.CancelReason = reason
	i.MarkModified(at)
	i.AddDomainEvent(NewBillingInvoiceCancelledEvent(i))
	return nil
}

// Preview returns the billing breakdown the invoice was issued from
func (i *BillingInvoice) Preview() *BillingPreview {
	return &BillingPreview{
		Plan:      PlanRef{ID: i.PlanID, Code: i.PlanCode, Name: i.PlanName},
		Period:    i.Period,
		Frequency: i.Frequency,
		Numbers: BillingNumbers{
			ActiveUsers:   i.ActiveUsers,
			IncludedUsers: i.IncludedUsers,
			ExtrasCount:   i.ExtrasCount,
		},
		Amounts: BillingAmounts{
			Base:     i.BaseAmount,
			Extras:   i.ExtrasAmount,
			Total:    i.TotalAmount,
			Currency: i.Currency,
		},
	}
}
