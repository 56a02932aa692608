package billing

import (
	"testing"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/identity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() Option {
	return WithClock(func() time.Time { return fixedNow })
}

func testPlan(t *testing.T) *billing.Plan {
	t.Helper()
	plan, err := billing.NewPlan("STARTER", "Starter", billing.PlanPricing{
		IncludedUsers:        3,
		PriceMonthly:         decimal.NewFromInt(15000),
		PriceYearly:          decimal.NewFromInt(150000),
		ExtraUserMonthlyFee:  decimal.NewFromInt(1000),
		ExtraUserCreationFee: decimal.NewFromInt(500),
	}, []string{"sales"}, fixedNow.AddDate(-1, 0, 0))
	require.NoError(t, err)
	return plan
}

func testTenant(t *testing.T, plan *billing.Plan, frequency billing.Frequency, createdAt time.Time) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant("acme", "Acme SARL", plan.ID, frequency, createdAt)
	require.NoError(t, err)
	tenant.ClearDomainEvents()
	return tenant
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
