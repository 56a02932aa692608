package models

import (
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanModel is the persistence model for the Plan aggregate
type PlanModel struct {
	AggregateModel
	Code                 string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name                 string               `gorm:"type:varchar(200);not null"`
	IncludedUsers        int                  `gorm:"not null"`
	PriceMonthly         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PriceYearly          decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	ExtraUserMonthlyFee  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	ExtraUserCreationFee decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency             valueobject.Currency `gorm:"type:varchar(3);not null"`
	Modules              []string             `gorm:"type:jsonb;serializer:json"`
	IsActive             bool                 `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (PlanModel) TableName() string {
	return "plans"
}

// ToDomain converts the persistence model to a domain Plan
func (m *PlanModel) ToDomain() *billing.Plan {
	modules := m.Modules
	if modules == nil {
		modules = []string{}
	}
	return &billing.Plan{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		Code:                 m.Code,
		Name:                 m.Name,
		IncludedUsers:        m.IncludedUsers,
		PriceMonthly:         m.PriceMonthly,
		PriceYearly:          m.PriceYearly,
		ExtraUserMonthlyFee:  m.ExtraUserMonthlyFee,
		ExtraUserCreationFee: m.ExtraUserCreationFee,
		Currency:             m.Currency,
		Modules:              modules,
		IsActive:             m.IsActive,
	}
}

// PlanModelFromDomain creates a persistence model from a domain Plan
func PlanModelFromDomain(p *billing.Plan) *PlanModel {
	m := &PlanModel{
		Code:                 p.Code,
		Name:                 p.Name,
		IncludedUsers:        p.IncludedUsers,
		PriceMonthly:         p.PriceMonthly,
		PriceYearly:          p.PriceYearly,
		ExtraUserMonthlyFee:  p.ExtraUserMonthlyFee,
		ExtraUserCreationFee: p.ExtraUserCreationFee,
		Currency:             p.Currency,
		Modules:              p.Modules,
		IsActive:             p.IsActive,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// BillingInvoiceModel is the persistence model for the BillingInvoice aggregate.
// The (tenant_id, period) unique index backs the one-invoice-per-period rule.
type BillingInvoiceModel struct {
	AggregateModel
	TenantID      uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_billing_invoices_tenant_period,priority:1"`
	Period        string                `gorm:"type:varchar(7);not null;uniqueIndex:idx_billing_invoices_tenant_period,priority:2"`
	Number        string                `gorm:"type:varchar(80);not null;uniqueIndex"`
	PlanID        uuid.UUID             `gorm:"type:uuid;not null"`
	PlanCode      string                `gorm:"type:varchar(50);not null"`
	PlanName      string                `gorm:"type:varchar(200);not null"`
	Frequency     billing.Frequency     `gorm:"type:varchar(20);not null"`
	PeriodStart   time.Time             `gorm:"not null"`
	PeriodEnd     time.Time             `gorm:"not null"`
	ActiveUsers   int                   `gorm:"not null"`
	IncludedUsers int                   `gorm:"not null"`
	ExtrasCount   int                   `gorm:"not null"`
	BaseAmount    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	ExtrasAmount  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalAmount   decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency      valueobject.Currency  `gorm:"type:varchar(3);not null"`
	Status        billing.InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	IssuedAt      time.Time             `gorm:"not null"`
	PaidAt        *time.Time
	PaymentRef    string `gorm:"type:varchar(100)"`
	CancelledAt   *time.Time
	CancelReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BillingInvoiceModel) TableName() string {
	return "billing_invoices"
}

// ToDomain converts the persistence model to a domain BillingInvoice
func (m *BillingInvoiceModel) ToDomain() *billing.BillingInvoice {
	return &billing.BillingInvoice{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: m.ToDomainAggregateRoot(),
			TenantID:          m.TenantID,
		},
		Number:        m.Number,
		PlanID:        m.PlanID,
		PlanCode:      m.PlanCode,
		PlanName:      m.PlanName,
		Period:        m.Period,
		Frequency:     m.Frequency,
		PeriodStart:   m.PeriodStart,
		PeriodEnd:     m.PeriodEnd,
		ActiveUsers:   m.ActiveUsers,
		IncludedUsers: m.IncludedUsers,
		ExtrasCount:   m.ExtrasCount,
		BaseAmount:    m.BaseAmount,
		ExtrasAmount:  m.ExtrasAmount,
		TotalAmount:   m.TotalAmount,
		Currency:      m.Currency,
		Status:        m.Status,
		IssuedAt:      m.IssuedAt,
		PaidAt:        m.PaidAt,
		PaymentRef:    m.PaymentRef,
		CancelledAt:   m.CancelledAt,
		CancelReason:  m.CancelReason,
	}
}

// BillingInvoiceModelFromDomain creates a persistence model from a domain BillingInvoice
func BillingInvoiceModelFromDomain(i *billing.BillingInvoice) *BillingInvoiceModel {
	m := &BillingInvoiceModel{
		TenantID:      i.TenantID,
		Period:        i.Period,
		Number:        i.Number,
		PlanID:        i.PlanID,
		PlanCode:      i.PlanCode,
		PlanName:      i.PlanName,
		Frequency:     i.Frequency,
		PeriodStart:   i.PeriodStart,
		PeriodEnd:     i.PeriodEnd,
		ActiveUsers:   i.ActiveUsers,
		IncludedUsers: i.IncludedUsers,
		ExtrasCount:   i.ExtrasCount,
		BaseAmount:    i.BaseAmount,
		ExtrasAmount:  i.ExtrasAmount,
		TotalAmount:   i.TotalAmount,
		Currency:      i.Currency,
		Status:        i.Status,
		IssuedAt:      i.IssuedAt,
		PaidAt:        i.PaidAt,
		PaymentRef:    i.PaymentRef,
		CancelledAt:   i.CancelledAt,
		CancelReason:  i.CancelReason,
	}
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	return m
}

// All returns every model managed by the billing schema, for tests and tooling
func All() []any {
	return []any{
		&PlanModel{},
		&TenantModel{},
		&MembershipModel{},
		&BillingInvoiceModel{},
	}
}
