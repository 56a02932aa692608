package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/infrastructure/cache"
	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/erp/billing/internal/infrastructure/event"
	"github.com/erp/billing/internal/infrastructure/logger"
	"github.com/erp/billing/internal/infrastructure/migration"
	"github.com/erp/billing/internal/infrastructure/persistence"
	"github.com/erp/billing/internal/infrastructure/scheduler"
	"github.com/erp/billing/internal/infrastructure/telemetry"
	"github.com/erp/billing/internal/interfaces/http/handler"
	"github.com/erp/billing/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	startedAt := time.Now()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Attach(log, cfg.Telemetry.ServiceName)
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	defer shutdownTelemetry(log, tracerProvider, meterProvider, loggerProvider, profiler)

	log.Info("Starting billing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, cfg.Database.DBName, tracerProvider.Provider(), log); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Redis backed stores
	cacheFactory := cache.NewFactory(cfg.Billing, cfg.Redis, cache.WithLogger(log))
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()
	planCache, err := cacheFactory.PlanCache(ctx)
	if err != nil {
		log.Fatal("Failed to initialize plan cache", zap.Error(err))
	}
	idempotencyStore, err := cacheFactory.IdempotencyStore(ctx)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}

	// Repositories
	planRepo := persistence.NewGormPlanRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	membershipRepo := persistence.NewGormMembershipRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)

	// Event bus and subscribers
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := event.NewInvoiceAuditHandler(log)
	statsHandler := event.NewInvoiceStatsHandler()
	eventBus.Subscribe(auditHandler)
	eventBus.Subscribe(statsHandler)

	billingMetrics, err := telemetry.NewBillingMetrics(meterProvider.Meter("billing"))
	if err != nil {
		log.Fatal("Failed to create billing metrics", zap.Error(err))
	}
	eventBus.Subscribe(billingMetrics)

	log.Info("Event handlers registered",
		zap.Strings("audit_events", auditHandler.EventTypes()),
		zap.Strings("stats_events", statsHandler.EventTypes()),
		zap.Strings("metrics_events", billingMetrics.EventTypes()),
	)

	// Application services
	clock := billingapp.WithClock(func() time.Time { return time.Now().UTC() })
	planService := billingapp.NewPlanService(planRepo, planCache, log, clock)
	tenantService := billingapp.NewTenantBillingService(tenantRepo, membershipRepo, planService, eventBus, log, clock)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, tenantRepo, membershipRepo, planService, eventBus, log, clock)
	billingRunService := billingapp.NewBillingRunService(tenantRepo, invoiceService, idempotencyStore, log, billingapp.BillingRunConfig{
		BatchSize:         cfg.Billing.BatchSize,
		IdempotencyTTL:    cfg.Billing.IdempotencyTTL,
		MaxCatchUpPeriods: cfg.Billing.MaxCatchUpPeriods,
	}, clock)

	// Daily billing run
	schedulerConfig := scheduler.DefaultBillingRunSchedulerConfig()
	schedulerConfig.Enabled = cfg.Billing.RunEnabled
	schedulerConfig.RunHour = cfg.Billing.RunHour
	schedulerConfig.RunTimeout = cfg.Billing.RunTimeout
	runScheduler := scheduler.NewBillingRunScheduler(billingRunService, log, schedulerConfig,
		scheduler.WithRunRecorder(billingMetrics))
	if err := runScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start billing run scheduler", zap.Error(err))
	}
	defer func() {
		if err := runScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping billing run scheduler", zap.Error(err))
		}
	}()

	// HTTP
	healthDeps := handler.HealthDeps{
		Database:         handler.PingerFunc(db.Ping),
		Stats:            statsHandler.Snapshot,
		LastRun:          runScheduler.LastRun,
		SchedulerRunning: runScheduler.IsRunning,
		Version:          version,
		StartedAt:        startedAt,
	}
	if client := cacheFactory.Client(); client != nil {
		healthDeps.Redis = handler.PingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	engine := router.NewEngine(cfg, router.EngineDeps{
		Logger:         log,
		TracerProvider: tracerProvider.Provider(),
		Meter:          meterProvider.Meter("http"),
		ServiceName:    cfg.Telemetry.ServiceName,
	})
	engine.GET("/health", handler.NewHealthHandler(healthDeps).Health)

	router.NewRouter(engine).
		Register(router.NewBillingRoutes(router.BillingHandlers{
			Plans:      handler.NewPlanHandler(planService, cfg.Billing.Currency),
			Tenants:    handler.NewTenantHandler(tenantService),
			Invoices:   handler.NewInvoiceHandler(invoiceService),
			BillingRun: handler.NewBillingRunHandler(runScheduler),
		})).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// applyMigrations runs the embedded migrations against the open pool.
// The migrator is not closed: closing it would close the shared pool.
func applyMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	migrator, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	return migrator.Up()
}

func shutdownTelemetry(
	log *zap.Logger,
	tracerProvider *telemetry.TracerProvider,
	meterProvider *telemetry.MeterProvider,
	loggerProvider *telemetry.LoggerProvider,
	profiler *telemetry.Profiler,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}
