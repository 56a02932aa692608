package telemetry

import (
	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterDBTracing installs the otelgorm plugin so every query becomes a span.
// Query parameters are never attached to spans.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, dbName string, provider trace.TracerProvider, logger *zap.Logger) error {
	if !cfg.Enabled || !cfg.DBTracing {
		return nil
	}

	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(dbName),
		otelgorm.WithTracerProvider(provider),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return err
	}

	logger.Info("Database tracing enabled", zap.String("db_name", dbName))
	return nil
}
