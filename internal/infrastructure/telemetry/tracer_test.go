package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func enabledConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     1.0,
		ServiceName:       "billing-test",
		Insecure:          true,
	}
}

func newRecordingTracer(t *testing.T) (*TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewTracerProvider(context.Background(), enabledConfig(), zaptest.NewLogger(t), WithSpanExporter(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exporter
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, config.TelemetryConfig{ServiceName: "billing-test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NotNil(t, tp.Provider())
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_RecordsSpans(t *testing.T) {
	tp, exporter := newRecordingTracer(t)
	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("test").Start(context.Background(), "test-span")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "test-span", spans[0].Name)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1.0).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), samplerFor(0.25).Description())
}

func TestStartSpan(t *testing.T) {
	_, exporter := newRecordingTracer(t)

	ctx, span := StartSpan(context.Background(), "billing_run", "tenant",
		SpanAttrTenantID, "t-1",
		SpanAttrIssued, 2,
		"ignored")
	assert.True(t, span.SpanContext().IsValid())
	SetAttributes(span, SpanAttrPeriod, "2025-01")
	AddEvent(span, "claimed", SpanAttrPeriod, "2025-01")
	RecordError(span, errors.New("db down"))
	RecordError(span, nil)
	span.End()
	_ = ctx

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "billing_run.tenant", got.Name)
	attrs := attrMap(got.Attributes)
	assert.Equal(t, "t-1", attrs[SpanAttrTenantID])
	assert.Equal(t, "2", attrs[SpanAttrIssued])
	assert.Equal(t, "2025-01", attrs[SpanAttrPeriod])
	assert.Equal(t, codes.Error, got.Status.Code)
	assert.Equal(t, "db down", got.Status.Description)
	require.Len(t, got.Events, 2, "claimed plus the recorded exception")
	assert.Equal(t, "claimed", got.Events[0].Name)
}

func TestSpanHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		SetAttributes(nil, "k", "v")
		AddEvent(nil, "e")
		RecordError(nil, errors.New("x"))
	})
}

func TestTracerProvider_EnableSpanProfiles(t *testing.T) {
	t.Run("wraps the provider and keeps exporting", func(t *testing.T) {
		tp, exporter := newRecordingTracer(t)
		sdkProvider := tp.Provider()
		require.False(t, tp.IsSpanProfilesEnabled())

		tp.EnableSpanProfiles()
		tp.EnableSpanProfiles()

		assert.True(t, tp.IsSpanProfilesEnabled())
		assert.NotSame(t, sdkProvider, tp.Provider())

		_, span := tp.Tracer("test").Start(context.Background(), "profiled")
		span.End()
		require.Len(t, exporter.GetSpans(), 1)
		assert.Equal(t, "profiled", exporter.GetSpans()[0].Name)
	})

	t.Run("no-op when telemetry is disabled", func(t *testing.T) {
		tp, err := NewTracerProvider(context.Background(), config.TelemetryConfig{}, zaptest.NewLogger(t))
		require.NoError(t, err)

		tp.EnableSpanProfiles()
		assert.False(t, tp.IsSpanProfilesEnabled())
	})
}
