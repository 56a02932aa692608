package billing

import (
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNegativeUserCount is returned when the active user count is below zero
var ErrNegativeUserCount = shared.ErrInvalidInput.Withf("Active user count cannot be negative")

// PlanRef identifies the plan a preview was computed against
type PlanRef struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

// BillingNumbers holds the user counts behind a preview
type BillingNumbers struct {
	ActiveUsers   int `json:"active_users"`
	IncludedUsers int `json:"included_users"`
	ExtrasCount   int `json:"extras_count"`
}

// BillingAmounts is the cost breakdown of a preview. Total always equals Base plus Extras.
type BillingAmounts struct {
	Base     decimal.Decimal      `json:"base"`
	Extras   decimal.Decimal      `json:"extras"`
	Total    decimal.Decimal      `json:"total"`
	Currency valueobject.Currency `json:"currency"`
}

// BillingPreview is the unsaved result of pricing a tenant for one period
type BillingPreview struct {
	Plan      PlanRef        `json:"plan"`
	Period    string         `json:"period"`
	Frequency Frequency      `json:"frequency"`
	Numbers   BillingNumbers `json:"numbers"`
	Amounts   BillingAmounts `json:"amounts"`
}

// ComputePlanBilling prices a plan for one period.
//
// The base fee is the plan's monthly or yearly price depending on frequency.
// Every active user beyond the plan's included users is charged the plan's
// monthly extra-user fee, for annual periods too.
func ComputePlanBilling(plan *Plan, period string, frequency Frequency, activeUserCount int) (*BillingPreview, error) {
	if plan == nil {
		return nil, ErrInvalidPlan
	}
	if !frequency.IsValid() {
		return nil, ErrInvalidFrequency.Withf("Invalid billing frequency %q", frequency)
	}
	if _, err := ParsePeriod(frequency, period); err != nil {
		return nil, err
	}
	if activeUserCount < 0 {
		return nil, ErrNegativeUserCount
	}

	extrasCount := max(0, activeUserCount-plan.IncludedUsers)

	base := plan.money(plan.BasePrice(frequency))
	extras := plan.money(plan.ExtraUserMonthlyFee).MultiplyByInt(int64(extrasCount))
	total := base.MustAdd(extras)

	return &BillingPreview{
		Plan: PlanRef{
			ID:   plan.ID,
			Code: plan.Code,
			Name: plan.Name,
		},
		Period:    period,
		Frequency: frequency,
		Numbers: BillingNumbers{
			ActiveUsers:   activeUserCount,
			IncludedUsers: plan.IncludedUsers,
			ExtrasCount:   extrasCount,
		},
		Amounts: BillingAmounts{
			Base:     base.Amount(),
			Extras:   extras.Amount(),
			Total:    total.Amount(),
			Currency: total.Currency(),
		},
	}, nil
}
