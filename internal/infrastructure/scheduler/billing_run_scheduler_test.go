package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	appbilling "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockBillingRunner struct {
	mock.Mock
}

func (m *MockBillingRunner) RunDue(ctx context.Context, now time.Time) (*appbilling.RunSummary, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.RunSummary), args.Error(1)
}

var schedulerNow = time.Date(2025, 1, 15, 1, 30, 0, 0, time.UTC)

func newTestScheduler(runner BillingRunner, cfg BillingRunSchedulerConfig) (*BillingRunScheduler, chan time.Time) {
	ticks := make(chan time.Time)
	s := NewBillingRunScheduler(runner, zap.NewNop(), cfg)
	s.now = func() time.Time { return schedulerNow }
	s.after = func(time.Duration) <-chan time.Time { return ticks }
	return s, ticks
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for billing run")
	}
}

func stop(t *testing.T, s *BillingRunScheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestBillingRunSchedulerConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultBillingRunSchedulerConfig().Validate())

	cfg := DefaultBillingRunSchedulerConfig()
	cfg.RunHour = 24
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultBillingRunSchedulerConfig()
	cfg.RunTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestBillingRunScheduler_NextRun(t *testing.T) {
	s := NewBillingRunScheduler(nil, zap.NewNop(), BillingRunSchedulerConfig{RunHour: 2})

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before run hour", time.Date(2025, 1, 15, 1, 30, 0, 0, time.UTC), time.Date(2025, 1, 15, 2, 0, 0, 0, time.UTC)},
		{"exactly at run hour", time.Date(2025, 1, 15, 2, 0, 0, 0, time.UTC), time.Date(2025, 1, 16, 2, 0, 0, 0, time.UTC)},
		{"after run hour", time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC), time.Date(2025, 2, 1, 2, 0, 0, 0, time.UTC)},
		{"non UTC input", time.Date(2025, 1, 15, 1, 0, 0, 0, time.FixedZone("WAT", 3600)), time.Date(2025, 1, 15, 2, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.NextRun(tt.now))
		})
	}
}

func TestBillingRunScheduler_Disabled(t *testing.T) {
	runner := new(MockBillingRunner)
	summary := &appbilling.RunSummary{DueTenants: 1, Issued: 1}
	runner.On("RunDue", mock.Anything, schedulerNow).Return(summary, nil).Once()
	s, _ := newTestScheduler(runner, BillingRunSchedulerConfig{Enabled: false, RunTimeout: time.Minute})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())

	got, err := s.RunNow(context.Background())
	require.NoError(t, err, "manual runs do not need the daily loop")
	assert.Equal(t, summary, got)
	assert.Equal(t, summary, s.LastRun())

	require.NoError(t, s.Stop(context.Background()))
	runner.AssertExpectations(t)
}

func TestBillingRunScheduler_InvalidConfig(t *testing.T) {
	s, _ := newTestScheduler(new(MockBillingRunner), BillingRunSchedulerConfig{Enabled: true, RunHour: 30, RunTimeout: time.Minute})

	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidConfig)
	assert.False(t, s.IsRunning())
}

type recordedRun struct {
	issued, skipped, failed int
}

type fakeRecorder struct {
	runs chan recordedRun
}

func (r *fakeRecorder) RecordRun(_ context.Context, _ time.Duration, issued, skipped, failed int) {
	r.runs <- recordedRun{issued, skipped, failed}
}

func TestBillingRunScheduler_DailyTick(t *testing.T) {
	runner := new(MockBillingRunner)
	recorder := &fakeRecorder{runs: make(chan recordedRun, 1)}
	ran := make(chan struct{}, 1)
	summary := &appbilling.RunSummary{DueTenants: 3, Issued: 2, Skipped: 1}
	runner.On("RunDue", mock.Anything, schedulerNow).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "run context carries the run timeout")
			ran <- struct{}{}
		}).
		Return(summary, nil).Once()

	s, ticks := newTestScheduler(runner, DefaultBillingRunSchedulerConfig())
	WithRunRecorder(recorder)(s)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")
	assert.True(t, s.IsRunning())

	ticks <- schedulerNow
	waitFor(t, ran)
	stop(t, s)

	assert.False(t, s.IsRunning())
	assert.Equal(t, summary, s.LastRun())
	assert.Equal(t, recordedRun{issued: 2, skipped: 1}, <-recorder.runs)
	runner.AssertExpectations(t)
}

func TestBillingRunScheduler_RunOnStartAndFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	runner := new(MockBillingRunner)
	ran := make(chan struct{}, 1)
	runner.On("RunDue", mock.Anything, schedulerNow).
		Run(func(mock.Arguments) { ran <- struct{}{} }).
		Return(nil, errors.New("db down")).Once()

	cfg := DefaultBillingRunSchedulerConfig()
	cfg.RunOnStart = true
	s, _ := newTestScheduler(runner, cfg)
	s.logger = zap.New(core)

	require.NoError(t, s.Start(context.Background()))
	waitFor(t, ran)
	stop(t, s)

	failed := logs.FilterMessage("Billing run failed").All()
	require.Len(t, failed, 1)
	assert.NotEmpty(t, failed[0].ContextMap()["billing_run_id"])
	assert.Nil(t, s.LastRun())
	runner.AssertExpectations(t)
}

func TestBillingRunScheduler_RunNow(t *testing.T) {
	runner := new(MockBillingRunner)
	recorder := &fakeRecorder{runs: make(chan recordedRun, 1)}
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	summary := &appbilling.RunSummary{DueTenants: 2, Issued: 1, Failed: 1}
	runner.On("RunDue", mock.MatchedBy(func(ctx context.Context) bool {
		return logger.GetRunID(ctx) != ""
	}), schedulerNow).
		Run(func(mock.Arguments) {
			started <- struct{}{}
			<-release
		}).
		Return(summary, nil).Once()

	s, _ := newTestScheduler(runner, DefaultBillingRunSchedulerConfig())
	WithRunRecorder(recorder)(s)
	require.NoError(t, s.Start(context.Background()))

	type result struct {
		summary *appbilling.RunSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		got, err := s.RunNow(context.Background())
		done <- result{got, err}
	}()
	waitFor(t, started)

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, summary, first.summary)
	assert.Equal(t, summary, s.LastRun())
	assert.Equal(t, recordedRun{issued: 1, failed: 1}, <-recorder.runs)

	stop(t, s)
	runner.AssertExpectations(t)
}

func TestBillingRunScheduler_RunNowFailure(t *testing.T) {
	runner := new(MockBillingRunner)
	runner.On("RunDue", mock.Anything, schedulerNow).Return(nil, errors.New("db down")).Once()
	s, _ := newTestScheduler(runner, DefaultBillingRunSchedulerConfig())

	summary, err := s.RunNow(context.Background())
	assert.EqualError(t, err, "db down")
	assert.Nil(t, summary)
	assert.Nil(t, s.LastRun())
}

func TestBillingRunScheduler_StopTimeout(t *testing.T) {
	runner := new(MockBillingRunner)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	runner.On("RunDue", mock.Anything, schedulerNow).
		Run(func(mock.Arguments) {
			started <- struct{}{}
			<-release
		}).
		Return(&appbilling.RunSummary{}, nil).Once()

	s, _ := newTestScheduler(runner, DefaultBillingRunSchedulerConfig())
	require.NoError(t, s.Start(context.Background()))
	go func() { _, _ = s.RunNow(context.Background()) }()
	waitFor(t, started)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	close(release)
}
