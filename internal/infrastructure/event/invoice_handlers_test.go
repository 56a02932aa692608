package event

import (
	"context"
	"testing"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var eventTestNow = time.Date(2025, 1, 15, 6, 0, 0, 0, time.UTC)

func issueEventTestInvoice(t *testing.T) *billing.BillingInvoice {
	t.Helper()
	plan, err := billing.NewPlan("STARTER", "Starter", billing.PlanPricing{
		IncludedUsers:       3,
		PriceMonthly:        decimal.NewFromInt(15000),
		PriceYearly:         decimal.NewFromInt(150000),
		ExtraUserMonthlyFee: decimal.NewFromInt(1000),
	}, nil, eventTestNow)
	require.NoError(t, err)

	preview, err := billing.ComputePlanBilling(plan, "2025-01", billing.FrequencyMonthly, 5)
	require.NoError(t, err)

	invoice, err := billing.IssueInvoice(uuid.New(), "acme", preview, eventTestNow)
	require.NoError(t, err)
	return invoice
}

func TestInvoiceAuditHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewInvoiceAuditHandler(zap.New(core))
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(handler)

	invoice := issueEventTestInvoice(t)
	require.NoError(t, invoice.MarkPaid("MM-123", eventTestNow.Add(time.Hour)))

	require.NoError(t, bus.Publish(context.Background(), invoice.GetDomainEvents()...))

	issued := logs.FilterMessage("invoice issued").All()
	require.Len(t, issued, 1)
	fields := issued[0].ContextMap()
	assert.Equal(t, "INV-ACME-2025-01", fields["number"])
	assert.Equal(t, "2025-01", fields["period"])
	assert.Equal(t, "17000", fields["total"])
	assert.Equal(t, invoice.TenantID.String(), fields["tenant_id"])

	paid := logs.FilterMessage("invoice paid").All()
	require.Len(t, paid, 1)
	assert.Equal(t, "MM-123", paid[0].ContextMap()["payment_ref"])
}

func TestInvoiceStatsHandler(t *testing.T) {
	ctx := context.Background()
	stats := NewInvoiceStatsHandler()
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(stats)

	paid := issueEventTestInvoice(t)
	require.NoError(t, paid.MarkPaid("", eventTestNow))
	cancelled := issueEventTestInvoice(t)
	require.NoError(t, cancelled.Cancel("duplicate", eventTestNow))

	require.NoError(t, bus.Publish(ctx, paid.GetDomainEvents()...))
	require.NoError(t, bus.Publish(ctx, cancelled.GetDomainEvents()...))
	require.NoError(t, bus.Publish(ctx, newTestEvent("Unrelated")))

	snap := stats.Snapshot()
	assert.Equal(t, int64(2), snap.Issued)
	assert.Equal(t, int64(1), snap.Paid)
	assert.Equal(t, int64(1), snap.Cancelled)
	assert.True(t, snap.IssuedAmount.Equal(decimal.NewFromInt(34000)))
	assert.True(t, snap.PaidAmount.Equal(decimal.NewFromInt(17000)))
}
