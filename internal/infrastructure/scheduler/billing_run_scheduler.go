package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appbilling "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BillingRunner runs the billing of every due tenant
type BillingRunner interface {
	RunDue(ctx context.Context, now time.Time) (*appbilling.RunSummary, error)
}

// RunRecorder records the outcome of billing runs, e.g. as metrics
type RunRecorder interface {
	RecordRun(ctx context.Context, duration time.Duration, issued, skipped, failed int)
}

// Option customises a BillingRunScheduler
type Option func(*BillingRunScheduler)

// WithRunRecorder reports every completed run to recorder
func WithRunRecorder(recorder RunRecorder) Option {
	return func(s *BillingRunScheduler) {
		s.recorder = recorder
	}
}

// BillingRunSchedulerConfig holds configuration for the billing run scheduler
type BillingRunSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// RunHour is the UTC hour (0-23) of the daily run
	RunHour int

	// RunTimeout is the maximum time for a single run
	RunTimeout time.Duration

	// RunOnStart triggers a run right after Start to catch up on missed days
	RunOnStart bool
}

// DefaultBillingRunSchedulerConfig returns default configuration
func DefaultBillingRunSchedulerConfig() BillingRunSchedulerConfig {
	return BillingRunSchedulerConfig{
		Enabled:    true,
		RunHour:    0,
		RunTimeout: 30 * time.Minute,
	}
}

// Validate checks the configuration
func (c BillingRunSchedulerConfig) Validate() error {
	if c.RunHour < 0 || c.RunHour > 23 {
		return fmt.Errorf("%w: run hour must be between 0 and 23, got %d", ErrInvalidConfig, c.RunHour)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: run timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// BillingRunScheduler runs the billing of due tenants once a day
type BillingRunScheduler struct {
	runner    BillingRunner
	recorder  RunRecorder
	logger    *zap.Logger
	config    BillingRunSchedulerConfig
	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	executing atomic.Bool
	lastRun   atomic.Pointer[appbilling.RunSummary]
}

// NewBillingRunScheduler creates a new billing run scheduler
func NewBillingRunScheduler(
	runner BillingRunner,
	logger *zap.Logger,
	config BillingRunSchedulerConfig,
	opts ...Option,
) *BillingRunScheduler {
	s := &BillingRunScheduler{
		runner: runner,
		logger: logger,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
		after:  time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the daily loop
func (s *BillingRunScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Billing run scheduler is disabled")
		return nil
	}
	if err := s.config.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runDaily(ctx)

	if s.config.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.executeScheduled(ctx)
		}()
	}
	s.mu.Unlock()

	s.logger.Info("Billing run scheduler started",
		zap.Int("run_hour", s.config.RunHour),
		zap.Duration("run_timeout", s.config.RunTimeout),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop cancels the loop and any run in progress, then waits for them to finish
func (s *BillingRunScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Billing run scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Billing run scheduler stop timed out")
		return ctx.Err()
	}
}

// NextRun returns the first run time strictly after now
func (s *BillingRunScheduler) NextRun(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.RunHour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *BillingRunScheduler) runDaily(ctx context.Context) {
	defer s.wg.Done()

	for {
		nextRun := s.NextRun(s.now())
		delay := nextRun.Sub(s.now())

		s.logger.Info("Daily billing run scheduled",
			zap.Time("next_run", nextRun),
			zap.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			s.logger.Debug("Daily billing loop stopping")
			return
		case <-s.after(delay):
			s.executeScheduled(ctx)
		}
	}
}

// execute performs one run unless another is still executing
func (s *BillingRunScheduler) execute(ctx context.Context) (*appbilling.RunSummary, error) {
	if !s.executing.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.executing.Store(false)

	runID := uuid.NewString()
	runCtx, cancel := context.WithTimeout(logger.WithRunID(ctx, runID), s.config.RunTimeout)
	defer cancel()
	log := logger.Enrich(runCtx, s.logger)

	startTime := s.now()
	log.Info("Starting billing run", zap.Time("started_at", startTime))

	summary, err := s.runner.RunDue(runCtx, startTime)
	duration := s.now().Sub(startTime)
	if summary != nil {
		s.lastRun.Store(summary)
		if s.recorder != nil {
			s.recorder.RecordRun(ctx, duration, summary.Issued, summary.Skipped, summary.Failed)
		}
	}

	if err != nil {
		log.Error("Billing run failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return summary, err
	}

	log.Info("Billing run completed",
		zap.Duration("duration", duration),
		zap.Int("due_tenants", summary.DueTenants),
		zap.Int("issued", summary.Issued),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// executeScheduled runs a scheduled billing, skipping it while another run executes
func (s *BillingRunScheduler) executeScheduled(ctx context.Context) {
	if _, err := s.execute(ctx); errors.Is(err, ErrRunInProgress) {
		s.logger.Warn("Skipping billing run, previous run still in progress")
	}
}

// RunNow runs the billing immediately and waits for its summary. It works
// whether or not the daily loop is started, and returns ErrRunInProgress
// while another run is executing.
func (s *BillingRunScheduler) RunNow(ctx context.Context) (*appbilling.RunSummary, error) {
	s.mu.Lock()
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.logger.Info("Starting manual billing run")
	return s.execute(ctx)
}

// LastRun returns the summary of the most recent run, or nil
func (s *BillingRunScheduler) LastRun() *appbilling.RunSummary {
	return s.lastRun.Load()
}

// IsRunning returns whether the scheduler is running
func (s *BillingRunScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
