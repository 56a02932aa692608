package billing

import (
	"slices"
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const (
	maxPlanCodeLength = 50
	maxPlanNameLength = 200
)

// Plan is a subscription tier. It defines how many users are included and
// what a tenant pays per month or per year, plus the per-user fees charged
// for users beyond the included quota.
type Plan struct {
	shared.BaseAggregateRoot
	Code                 string               `json:"code"`
	Name                 string               `json:"name"`
	IncludedUsers        int                  `json:"included_users"`
	PriceMonthly         decimal.Decimal      `json:"price_monthly"`
	PriceYearly          decimal.Decimal      `json:"price_yearly"`
	ExtraUserMonthlyFee  decimal.Decimal      `json:"extra_user_monthly_fee"`
	ExtraUserCreationFee decimal.Decimal      `json:"extra_user_creation_fee"`
	Currency             valueobject.Currency `json:"currency"`
	Modules              []string             `json:"modules"`
	IsActive             bool                 `json:"is_active"`
}

// PlanPricing groups the priced attributes of a plan
type PlanPricing struct {
	IncludedUsers        int
	PriceMonthly         decimal.Decimal
	PriceYearly          decimal.Decimal
	ExtraUserMonthlyFee  decimal.Decimal
	ExtraUserCreationFee decimal.Decimal
	Currency             valueobject.Currency
}

// NewPlan creates a new active plan
func NewPlan(code, name string, pricing PlanPricing, modules []string, at time.Time) (*Plan, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Plan code cannot be empty")
	}
	if len(code) > maxPlanCodeLength {
		return nil, shared.NewDomainError("INVALID_CODE", "Plan code cannot exceed 50 characters")
	}

	plan := &Plan{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(at),
		Code:              code,
		IsActive:          true,
	}
	if err := plan.apply(name, pricing, modules); err != nil {
		return nil, err
	}
	return plan, nil
}

// Update replaces the plan's name, pricing and modules
func (p *Plan) Update(name string, pricing PlanPricing, modules []string, at time.Time) error {
	if err := p.apply(name, pricing, modules); err != nil {
		return err
	}
	p.MarkModified(at)
	return nil
}

func (p *Plan) apply(name string, pricing PlanPricing, modules []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Plan name cannot be empty")
	}
	if len(name) > maxPlanNameLength {
		return shared.NewDomainError("INVALID_NAME", "Plan name cannot exceed 200 characters")
	}
	if err := pricing.validate(); err != nil {
		return err
	}

	currency := pricing.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	p.Name = name
	p.IncludedUsers = pricing.IncludedUsers
	p.PriceMonthly = pricing.PriceMonthly
	p.PriceYearly = pricing.PriceYearly
	p.ExtraUserMonthlyFee = pricing.ExtraUserMonthlyFee
	p.ExtraUserCreationFee = pricing.ExtraUserCreationFee
	p.Currency = currency
	p.Modules = normalizeModules(modules)
	return nil
}

func (pp PlanPricing) validate() error {
	if pp.IncludedUsers < 0 {
		return shared.NewDomainError("INVALID_INCLUDED_USERS", "Included users cannot be negative")
	}
	if pp.Currency != "" && !pp.Currency.IsKnown() {
		return shared.NewDomainError("INVALID_CURRENCY", "Unsupported currency "+string(pp.Currency))
	}

	currency := pp.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	prices := []struct {
		field string
		value decimal.Decimal
	}{
		{"price_monthly", pp.PriceMonthly},
		{"price_yearly", pp.PriceYearly},
		{"extra_user_monthly_fee", pp.ExtraUserMonthlyFee},
		{"extra_user_creation_fee", pp.ExtraUserCreationFee},
	}
	for _, price := range prices {
		if price.value.IsNegative() {
			return shared.NewDomainError("INVALID_PRICE", price.field+" cannot be negative")
		}
		if !price.value.Equal(price.value.Round(currency.Precision())) {
			return shared.NewDomainError("INVALID_PRICE", price.field+" has more decimals than "+string(currency)+" allows")
		}
	}
	return nil
}

func normalizeModules(modules []string) []string {
	out := make([]string, 0, len(modules))
	for _, m := range modules {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Activate makes the plan available for new subscriptions
func (p *Plan) Activate(at time.Time) error {
	if p.IsActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Plan is already active")
	}
	p.IsActive = true
	p.MarkModified(at)
	return nil
}

// Deactivate withdraws the plan from new subscriptions.
// Tenants already on the plan keep being billed against it.
func (p *Plan) Deactivate(at time.Time) error {
	if !p.IsActive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Plan is already inactive")
	}
	p.IsActive = false
	p.MarkModified(at)
	return nil
}

// HasModule reports whether the plan grants access to the module
func (p *Plan) HasModule(module string) bool {
	_, found := slices.BinarySearch(p.Modules, strings.ToLower(strings.TrimSpace(module)))
	return found
}

// BasePrice returns the base price for the billing frequency
func (p *Plan) BasePrice(frequency Frequency) decimal.Decimal {
	if frequency.IsAnnual() {
		return p.PriceYearly
	}
	return p.PriceMonthly
}

// ExtraUserCreationCharge returns the one-off fee for creating n users beyond the included quota
func (p *Plan) ExtraUserCreationCharge(n int) valueobject.Money {
	if n < 0 {
		n = 0
	}
	return p.money(p.ExtraUserCreationFee).MultiplyByInt(int64(n))
}

func (p *Plan) money(amount decimal.Decimal) valueobject.Money {
	currency := p.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	m, _ := valueobject.NewMoney(amount, currency)
	return m
}
