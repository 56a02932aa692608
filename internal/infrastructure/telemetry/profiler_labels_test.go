package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithProfilingLabels(t *testing.T) {
	t.Run("labels the context passed to fn", func(t *testing.T) {
		var tenant, period, op string
		WithProfilingLabels(context.Background(), InvoiceIssueLabels("tenant-1", "2025-03"), func(ctx context.Context) {
			tenant, _ = pprof.Label(ctx, ProfilingLabelTenantID)
			period, _ = pprof.Label(ctx, ProfilingLabelPeriod)
			op, _ = pprof.Label(ctx, ProfilingLabelOperation)
		})
		assert.Equal(t, "tenant-1", tenant)
		assert.Equal(t, "2025-03", period)
		assert.Equal(t, OperationIssueInvoice, op)
	})

	t.Run("run labels", func(t *testing.T) {
		var runID string
		WithProfilingLabels(context.Background(), BillingRunLabels("run-42"), func(ctx context.Context) {
			runID, _ = pprof.Label(ctx, ProfilingLabelRunID)
		})
		assert.Equal(t, "run-42", runID)
	})

	t.Run("empty labels still run fn", func(t *testing.T) {
		called := 0
		WithProfilingLabels(context.Background(), nil, func(context.Context) { called++ })
		WithProfilingLabels(context.Background(), map[string]string{"request_id": "r-1"}, func(context.Context) { called++ })
		assert.Equal(t, 2, called)
	})
}

func TestSanitizeLabels(t *testing.T) {
	long := strings.Repeat("x", 200)
	pairs := sanitizeLabels(map[string]string{
		"Tenant-ID":  "t-1",
		"operation":  long,
		"request_id": "r-1",
		"period":     "",
		"???":        "dropped",
	})

	// sorted by the original key
	assert.Equal(t, []string{"tenant_id", "t-1", "operation", long[:MaxLabelValueLength]}, pairs)
	assert.Nil(t, sanitizeLabels(nil))
}
