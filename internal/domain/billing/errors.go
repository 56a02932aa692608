package billing

import "github.com/erp/billing/internal/domain/shared"

// Billing computation errors
var (
	ErrInvalidPlan      = shared.NewDomainError("INVALID_PLAN", "Plan is required")
	ErrInvalidPeriod    = shared.NewDomainError("INVALID_PERIOD", "Period does not match the billing frequency")
	ErrInvalidFrequency = shared.NewDomainError("INVALID_FREQUENCY", "Billing frequency must be monthly or annual")
)
