package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/billing/internal/infrastructure/config"
	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// TracerOption customises NewTracerProvider
type TracerOption func(*tracerOptions)

type tracerOptions struct {
	exporter sdktrace.SpanExporter
	sync     bool
}

// WithSpanExporter replaces the OTLP exporter. Spans are exported synchronously,
// which is what tests want.
func WithSpanExporter(exporter sdktrace.SpanExporter) TracerOption {
	return func(o *tracerOptions) {
		o.exporter = exporter
		o.sync = true
	}
}

// TracerProvider wraps the OpenTelemetry TracerProvider with lifecycle management.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	logger   *zap.Logger
	config   config.TelemetryConfig

	mu           sync.Mutex
	spanProfiles trace.TracerProvider
}

// NewTracerProvider creates and configures a new TracerProvider and installs it globally.
// If telemetry is disabled, it returns a no-op provider.
func NewTracerProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger, opts ...TracerOption) (*TracerProvider, error) {
	tp := &TracerProvider{
		logger: logger,
		config: cfg,
	}

	if !cfg.Enabled {
		logger.Info("Telemetry disabled, using no-op tracer provider")
		return tp, nil
	}

	o := &tracerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	exporter := o.exporter
	if exporter == nil {
		exporterOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint),
		}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		var err error
		exporter, err = otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	processor := sdktrace.WithBatcher(exporter)
	if o.sync {
		processor = sdktrace.WithSyncer(exporter)
	}

	tp.provider = sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(cfg.SamplingRatio))),
	)

	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("OpenTelemetry TracerProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.String("service_name", cfg.ServiceName),
	)
	return tp, nil
}

func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// Shutdown flushes pending spans and stops the provider
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := tp.provider.Shutdown(shutdownCtx); err != nil {
		tp.logger.Error("Error shutting down tracer provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	tp.logger.Info("OpenTelemetry TracerProvider shutdown complete")
	return nil
}

// Tracer returns a named tracer from the provider.
func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return tp.Provider().Tracer(name, opts...)
}

// Provider returns the provider spans should be started from: the span
// profiles wrapper once enabled, else the SDK provider, or the global one
// when telemetry is disabled.
func (tp *TracerProvider) Provider() trace.TracerProvider {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.spanProfiles != nil {
		return tp.spanProfiles
	}
	if tp.provider == nil {
		return otel.GetTracerProvider()
	}
	return tp.provider
}

// EnableSpanProfiles wraps the provider so every root span tags the CPU
// profile of its goroutine with its span_id. Call it after the profiler has
// started and before handing Provider() to instrumentation.
func (tp *TracerProvider) EnableSpanProfiles() {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.provider == nil {
		tp.logger.Debug("Cannot enable span profiles: telemetry disabled")
		return
	}
	if tp.spanProfiles != nil {
		return
	}

	tp.spanProfiles = otelpyroscope.NewTracerProvider(tp.provider)
	otel.SetTracerProvider(tp.spanProfiles)

	tp.logger.Info("Span profiles enabled", zap.String("service_name", tp.config.ServiceName))
}

// IsSpanProfilesEnabled returns whether spans are linked to profiles
func (tp *TracerProvider) IsSpanProfilesEnabled() bool {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.spanProfiles != nil
}

// IsEnabled returns whether telemetry is enabled.
func (tp *TracerProvider) IsEnabled() bool {
	return tp.config.Enabled && tp.provider != nil
}

// ForceFlush exports all spans that have not yet been exported.
func (tp *TracerProvider) ForceFlush(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.ForceFlush(ctx)
}
