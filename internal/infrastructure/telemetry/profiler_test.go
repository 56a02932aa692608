package telemetry

import (
	"errors"
	"sync"
	"testing"

	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSession struct {
	mu    sync.Mutex
	stops int
	err   error
}

func (s *fakeSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return s.err
}

func profilingConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		ServiceName:            "billing-test",
		ProfilingEnabled:       true,
		ProfilingServerAddress: "http://localhost:4040",
	}
}

func TestNewProfiler_Disabled(t *testing.T) {
	started := false
	p, err := NewProfiler(config.TelemetryConfig{ServiceName: "billing-test"}, zaptest.NewLogger(t),
		withProfilerStart(func(pyroscope.Config) (profileSession, error) {
			started = true
			return &fakeSession{}, nil
		}))
	require.NoError(t, err)

	assert.False(t, started)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Enabled(t *testing.T) {
	session := &fakeSession{}
	var got pyroscope.Config

	cfg := profilingConfig()
	cfg.ProfilingBasicAuthUser = "grafana"
	cfg.ProfilingBasicAuthPass = "secret"

	p, err := NewProfiler(cfg, zaptest.NewLogger(t),
		withProfilerStart(func(c pyroscope.Config) (profileSession, error) {
			got = c
			return session, nil
		}))
	require.NoError(t, err)
	assert.True(t, p.IsEnabled())

	assert.Equal(t, "billing-test", got.ApplicationName)
	assert.Equal(t, "http://localhost:4040", got.ServerAddress)
	assert.Equal(t, "grafana", got.BasicAuthUser)
	assert.Equal(t, "secret", got.BasicAuthPassword)
	assert.Contains(t, got.ProfileTypes, pyroscope.ProfileCPU)
	assert.Contains(t, got.ProfileTypes, pyroscope.ProfileAllocSpace)
	assert.NotNil(t, got.Logger)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Stop()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, session.stops)
}

func TestNewProfiler_Validation(t *testing.T) {
	t.Run("server address required", func(t *testing.T) {
		cfg := profilingConfig()
		cfg.ProfilingServerAddress = ""

		p, err := NewProfiler(cfg, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "server address is required")
	})

	t.Run("application name required", func(t *testing.T) {
		cfg := profilingConfig()
		cfg.ServiceName = ""

		_, err := NewProfiler(cfg, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "application name is required")
	})

	t.Run("start failure", func(t *testing.T) {
		_, err := NewProfiler(profilingConfig(), zaptest.NewLogger(t),
			withProfilerStart(func(pyroscope.Config) (profileSession, error) {
				return nil, errors.New("dial tcp: refused")
			}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start Pyroscope profiler")
	})
}

func TestProfiler_StopError(t *testing.T) {
	session := &fakeSession{err: errors.New("flush failed")}
	p, err := NewProfiler(profilingConfig(), zaptest.NewLogger(t),
		withProfilerStart(func(pyroscope.Config) (profileSession, error) { return session, nil }))
	require.NoError(t, err)

	assert.ErrorContains(t, p.Stop(), "flush failed")
	assert.NoError(t, p.Stop())
}
