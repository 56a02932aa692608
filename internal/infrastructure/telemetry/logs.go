package telemetry

import (
	"context"
	"fmt"

	"github.com/erp/billing/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogOption customises NewLoggerProvider
type LogOption func(*logOptions)

type logOptions struct {
	exporter sdklog.Exporter
}

// WithLogExporter replaces the OTLP exporter. Records are exported synchronously.
func WithLogExporter(exporter sdklog.Exporter) LogOption {
	return func(o *logOptions) {
		o.exporter = exporter
	}
}

// LoggerProvider bridges zap records to OpenTelemetry logs
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
	logger   *zap.Logger
}

// NewLoggerProvider creates the logs pipeline when both telemetry and the logs bridge are enabled
func NewLoggerProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger, opts ...LogOption) (*LoggerProvider, error) {
	lp := &LoggerProvider{logger: logger}
	if !cfg.Enabled || !cfg.LogsEnabled {
		return lp, nil
	}

	o := &logOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var processor sdklog.Processor
	if o.exporter != nil {
		processor = sdklog.NewSimpleProcessor(o.exporter)
	} else {
		exporterOpts := []otlploggrpc.Option{
			otlploggrpc.WithEndpoint(cfg.CollectorEndpoint),
		}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlploggrpc.WithInsecure())
		}
		exporter, err := otlploggrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
		}
		processor = sdklog.NewBatchProcessor(exporter)
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	)
	global.SetLoggerProvider(lp.provider)

	logger.Info("OpenTelemetry LoggerProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint))
	return lp, nil
}

// IsEnabled returns whether logs are exported
func (lp *LoggerProvider) IsEnabled() bool {
	return lp.provider != nil
}

// Attach returns a logger that writes to base and, when enabled, to the OTEL pipeline
func (lp *LoggerProvider) Attach(base *zap.Logger, name string) *zap.Logger {
	if lp.provider == nil {
		return base
	}
	bridge := otelzap.NewCore(name, otelzap.WithLoggerProvider(lp.provider))
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, bridge)
	}))
}

// Shutdown flushes pending records and stops the provider
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := lp.provider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown logger provider: %w", err)
	}
	return nil
}
