package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profile label keys
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelRunID     = "run_id"
	ProfilingLabelTenantID  = "tenant_id"
	ProfilingLabelPeriod    = "period"
)

// Profiling operations
const (
	OperationBillingRun   = "billing_run"
	OperationIssueInvoice = "issue_invoice"
)

// MaxLabelValueLength caps label values to keep profile series bounded
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped from profile labels.
// run_id is kept: there is one run per day.
var highCardinalityLabels = map[string]bool{
	"user_id":    true,
	"request_id": true,
	"invoice_id": true,
	"trace_id":   true,
	"span_id":    true,
}

// WithProfilingLabels runs fn with pprof labels attached to its goroutine, so
// CPU and allocation samples taken inside fn can be filtered by them in Pyroscope.
// Labels are applied even when the profiler is off; they cost one context value.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// BillingRunLabels labels a whole billing run
func BillingRunLabels(runID string) map[string]string {
	return map[string]string{
		ProfilingLabelOperation: OperationBillingRun,
		ProfilingLabelRunID:     runID,
	}
}

// InvoiceIssueLabels labels the issuing of one tenant's invoice
func InvoiceIssueLabels(tenantID, period string) map[string]string {
	return map[string]string{
		ProfilingLabelOperation: OperationIssueInvoice,
		ProfilingLabelTenantID:  tenantID,
		ProfilingLabelPeriod:    period,
	}
}

// sanitizeLabels returns key/value pairs sorted by key, without empty or
// high-cardinality entries, with values truncated to MaxLabelValueLength.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if value == "" || highCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		key = sanitizeLabelKey(key)
		if key == "" {
			continue
		}
		pairs = append(pairs, key, value)
	}
	return pairs
}

// sanitizeLabelKey lower-cases key and keeps only [a-z0-9_]
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
