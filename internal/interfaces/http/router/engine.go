package router

import (
	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/erp/billing/internal/infrastructure/logger"
	"github.com/erp/billing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EngineDeps are the collaborators of the middleware stack. Nil
// providers fall back to the global OpenTelemetry providers.
type EngineDeps struct {
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	Meter          metric.Meter
	ServiceName    string
}

// NewEngine creates a gin engine with the standard middleware stack.
// RequestID runs first so that panics and access logs carry the ID.
func NewEngine(cfg *config.Config, deps EngineDeps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			deps.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(deps.Logger))
	engine.Use(logger.GinMiddleware(deps.Logger))

	tracing := middleware.DefaultTracingConfig()
	tracing.Enabled = cfg.Telemetry.Enabled
	tracing.TracerProvider = deps.TracerProvider
	if deps.ServiceName != "" {
		tracing.ServiceName = deps.ServiceName
	}
	engine.Use(middleware.TracingWithConfig(tracing))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.HTTPMetrics(deps.Meter))

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	return engine
}
