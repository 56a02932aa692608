package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// MeterOption customises NewMeterProvider
type MeterOption func(*meterOptions)

type meterOptions struct {
	reader sdkmetric.Reader
}

// WithMetricReader replaces the periodic OTLP reader, e.g. with a manual reader in tests
func WithMetricReader(reader sdkmetric.Reader) MeterOption {
	return func(o *meterOptions) {
		o.reader = reader
	}
}

// MeterProvider wraps the OpenTelemetry MeterProvider with lifecycle management.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

// NewMeterProvider creates a MeterProvider exporting to the collector and installs it globally.
// If telemetry is disabled, Meter falls back to the no-op global provider.
func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger, opts ...MeterOption) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		return mp, nil
	}

	o := &meterOptions{}
	for _, opt := range opts {
		opt(o)
	}

	reader := o.reader
	if reader == nil {
		exporterOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
		}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricsInterval))
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("OpenTelemetry MeterProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", cfg.MetricsInterval),
	)
	return mp, nil
}

// Meter returns a named meter from the provider.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// IsEnabled returns whether metrics are exported.
func (mp *MeterProvider) IsEnabled() bool {
	return mp.provider != nil
}

// Shutdown flushes pending metrics and stops the provider
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		mp.logger.Error("Error shutting down meter provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// Metric attribute keys
var (
	AttrFrequency = attribute.Key("frequency")
	AttrCurrency  = attribute.Key("currency")
	AttrOutcome   = attribute.Key("outcome")
)

// BillingMetrics records invoice lifecycle and billing run instruments.
// It subscribes to invoice events like any other event handler.
type BillingMetrics struct {
	invoicesIssued    metric.Int64Counter
	invoicesPaid      metric.Int64Counter
	invoicesCancelled metric.Int64Counter
	invoicedAmount    metric.Float64Counter
	runDuration       metric.Float64Histogram
	runTenants        metric.Int64Counter
}

// NewBillingMetrics creates the billing instruments on meter
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	m := &BillingMetrics{}
	var err error

	if m.invoicesIssued, err = meter.Int64Counter("billing.invoices.issued",
		metric.WithDescription("Invoices issued"),
		metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	if m.invoicesPaid, err = meter.Int64Counter("billing.invoices.paid",
		metric.WithDescription("Invoices marked paid"),
		metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	if m.invoicesCancelled, err = meter.Int64Counter("billing.invoices.cancelled",
		metric.WithDescription("Invoices cancelled"),
		metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	if m.invoicedAmount, err = meter.Float64Counter("billing.invoiced.amount",
		metric.WithDescription("Total amount invoiced, per currency")); err != nil {
		return nil, err
	}
	if m.runDuration, err = meter.Float64Histogram("billing.run.duration",
		metric.WithDescription("Duration of billing runs"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.runTenants, err = meter.Int64Counter("billing.run.tenants",
		metric.WithDescription("Tenants processed by billing runs, per outcome"),
		metric.WithUnit("{tenant}")); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes returns the invoice lifecycle events
func (m *BillingMetrics) EventTypes() []string {
	return []string{
		billing.EventTypeBillingInvoiceIssued,
		billing.EventTypeBillingInvoicePaid,
		billing.EventTypeBillingInvoiceCancelled,
	}
}

// Handle records an invoice event
func (m *BillingMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *billing.BillingInvoiceIssuedEvent:
		m.invoicesIssued.Add(ctx, 1, metric.WithAttributes(AttrFrequency.String(string(e.Frequency))))
		m.invoicedAmount.Add(ctx, e.TotalAmount.InexactFloat64(), metric.WithAttributes(AttrCurrency.String(e.Currency)))
	case *billing.BillingInvoicePaidEvent:
		m.invoicesPaid.Add(ctx, 1)
	case *billing.BillingInvoiceCancelledEvent:
		m.invoicesCancelled.Add(ctx, 1)
	}
	return nil
}

// RecordRun records the outcome of a billing run
func (m *BillingMetrics) RecordRun(ctx context.Context, duration time.Duration, issued, skipped, failed int) {
	m.runDuration.Record(ctx, duration.Seconds())
	m.runTenants.Add(ctx, int64(issued), metric.WithAttributes(AttrOutcome.String("issued")))
	m.runTenants.Add(ctx, int64(skipped), metric.WithAttributes(AttrOutcome.String("skipped")))
	m.runTenants.Add(ctx, int64(failed), metric.WithAttributes(AttrOutcome.String("failed")))
}

var _ shared.EventHandler = (*BillingMetrics)(nil)
