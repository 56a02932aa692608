package billing

import (
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/identity"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanDTO represents plan data transfer object
type PlanDTO struct {
	ID                   uuid.UUID       `json:"id"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	IncludedUsers        int             `json:"included_users"`
	PriceMonthly         decimal.Decimal `json:"price_monthly"`
	PriceYearly          decimal.Decimal `json:"price_yearly"`
	ExtraUserMonthlyFee  decimal.Decimal `json:"extra_user_monthly_fee"`
	ExtraUserCreationFee decimal.Decimal `json:"extra_user_creation_fee"`
	Currency             string          `json:"currency"`
	Modules              []string        `json:"modules"`
	IsActive             bool            `json:"is_active"`
	Version              int             `json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// PlanInput contains input for creating or updating a plan
type PlanInput struct {
	Code                 string
	Name                 string
	IncludedUsers        int
	PriceMonthly         decimal.Decimal
	PriceYearly          decimal.Decimal
	ExtraUserMonthlyFee  decimal.Decimal
	ExtraUserCreationFee decimal.Decimal
	Currency             string
	Modules              []string
}

func (in PlanInput) pricing() billing.PlanPricing {
	return billing.PlanPricing{
		IncludedUsers:        in.IncludedUsers,
		PriceMonthly:         in.PriceMonthly,
		PriceYearly:          in.PriceYearly,
		ExtraUserMonthlyFee:  in.ExtraUserMonthlyFee,
		ExtraUserCreationFee: in.ExtraUserCreationFee,
		Currency:             valueobject.Currency(strings.ToUpper(strings.TrimSpace(in.Currency))),
	}
}

// TenantDTO represents tenant billing data transfer object
type TenantDTO struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	ContactEmail       string    `json:"contact_email,omitempty"`
	Status             string    `json:"status"`
	PlanID             uuid.UUID `json:"plan_id"`
	BillingFrequency   string    `json:"billing_frequency"`
	BillingAnchorDay   int       `json:"billing_anchor_day"`
	BillingAnchorMonth int       `json:"billing_anchor_month"`
	NextInvoiceAt      time.Time `json:"next_invoice_at"`
	Version            int       `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateTenantInput contains input for creating a tenant
type CreateTenantInput struct {
	Code             string
	Name             string
	ContactEmail     string
	PlanID           uuid.UUID
	BillingFrequency string
}

// MemberDTO represents a tenant membership
type MemberDTO struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	Email      string     `json:"email"`
	Name       string     `json:"name,omitempty"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	DisabledAt *time.Time `json:"disabled_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AddMemberInput contains input for adding a member to a tenant
type AddMemberInput struct {
	Email string
	Name  string
	Role  string
}

// AddMemberResult is the added member with the one-off fee it triggers
// when the tenant goes beyond its plan's included users
type AddMemberResult struct {
	Member      MemberDTO       `json:"member"`
	ActiveUsers int64           `json:"active_users"`
	CreationFee decimal.Decimal `json:"creation_fee"`
	Currency    string          `json:"currency"`
}

// ModuleAccessDTO answers whether a tenant may use an ERP module
type ModuleAccessDTO struct {
	TenantID uuid.UUID `json:"tenant_id"`
	PlanCode string    `json:"plan_code"`
	Module   string    `json:"module"`
	Granted  bool      `json:"granted"`
	Reason   string    `json:"reason,omitempty"`
}

// InvoiceDTO represents billing invoice data transfer object
type InvoiceDTO struct {
	ID           uuid.UUID              `json:"id"`
	TenantID     uuid.UUID              `json:"tenant_id"`
	Number       string                 `json:"number"`
	Status       string                 `json:"status"`
	PeriodStart  time.Time              `json:"period_start"`
	PeriodEnd    time.Time              `json:"period_end"`
	Billing      billing.BillingPreview `json:"billing"`
	IssuedAt     time.Time              `json:"issued_at"`
	PaidAt       *time.Time             `json:"paid_at,omitempty"`
	PaymentRef   string                 `json:"payment_ref,omitempty"`
	CancelledAt  *time.Time             `json:"cancelled_at,omitempty"`
	CancelReason string                 `json:"cancel_reason,omitempty"`
	Version      int                    `json:"version"`
}

// ListFilter represents paging and sorting input shared by list queries
type ListFilter struct {
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
	Keyword  string
	Status   string
}

// ToSharedFilter converts ListFilter to shared.Filter
func (f ListFilter) ToSharedFilter() shared.Filter {
	filter := shared.Filter{
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  f.SortBy,
		OrderDir: f.SortDir,
		Search:   f.Keyword,
	}.Normalize()
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}
	return filter
}

func toPlanDTO(p *billing.Plan) *PlanDTO {
	modules := p.Modules
	if modules == nil {
		modules = []string{}
	}
	return &PlanDTO{
		ID:                   p.ID,
		Code:                 p.Code,
		Name:                 p.Name,
		IncludedUsers:        p.IncludedUsers,
		PriceMonthly:         p.PriceMonthly,
		PriceYearly:          p.PriceYearly,
		ExtraUserMonthlyFee:  p.ExtraUserMonthlyFee,
		ExtraUserCreationFee: p.ExtraUserCreationFee,
		Currency:             string(p.Currency),
		Modules:              modules,
		IsActive:             p.IsActive,
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toTenantDTO(t *identity.Tenant) *TenantDTO {
	return &TenantDTO{
		ID:                 t.ID,
		Code:               t.Code,
		Name:               t.Name,
		ContactEmail:       t.ContactEmail,
		Status:             string(t.Status),
		PlanID:             t.PlanID,
		BillingFrequency:   string(t.BillingFrequency),
		BillingAnchorDay:   t.BillingAnchorDay,
		BillingAnchorMonth: t.BillingAnchorMonth,
		NextInvoiceAt:      t.NextInvoiceAt,
		Version:            t.Version,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func toMemberDTO(m *identity.Membership) *MemberDTO {
	return &MemberDTO{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Email:      m.Email,
		Name:       m.Name,
		Role:       string(m.Role),
		Status:     string(m.Status),
		DisabledAt: m.DisabledAt,
		CreatedAt:  m.CreatedAt,
	}
}

func toInvoiceDTO(i *billing.BillingInvoice) *InvoiceDTO {
	return &InvoiceDTO{
		ID:           i.ID,
		TenantID:     i.TenantID,
		Number:       i.Number,
		Status:       string(i.Status),
		PeriodStart:  i.PeriodStart,
		PeriodEnd:    i.PeriodEnd,
		Billing:      *i.Preview(),
		IssuedAt:     i.IssuedAt,
		PaidAt:       i.PaidAt,
		PaymentRef:   i.PaymentRef,
		CancelledAt:  i.CancelledAt,
		CancelReason: i.CancelReason,
		Version:      i.Version,
	}
}

func mapSlice[S any, D any](items []S, fn func(*S) *D) []D {
	out := make([]D, 0, len(items))
	for i := range items {
		out = append(out, *fn(&items[i]))
	}
	return out
}
