package telemetry

import (
	"fmt"
	"os"
	"sync"

	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// profileTypes are collected whenever profiling is on. Mutex and block
// profiles are left out: they change runtime sampling rates globally.
var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

type profileSession interface {
	Stop() error
}

// ProfilerOption customises NewProfiler
type ProfilerOption func(*Profiler)

// withProfilerStart replaces pyroscope.Start
func withProfilerStart(start func(pyroscope.Config) (profileSession, error)) ProfilerOption {
	return func(p *Profiler) {
		p.start = start
	}
}

// Profiler wraps the Pyroscope profiler with lifecycle management.
type Profiler struct {
	session profileSession
	start   func(pyroscope.Config) (profileSession, error)
	logger  *zap.Logger
	mu      sync.Mutex
	stopped bool
}

// NewProfiler starts continuous profiling when telemetry.profiling_enabled is set.
// Otherwise it returns a no-op profiler.
func NewProfiler(cfg config.TelemetryConfig, logger *zap.Logger, opts ...ProfilerOption) (*Profiler, error) {
	p := &Profiler{
		logger: logger,
		start:  startPyroscope,
	}
	for _, opt := range opts {
		opt(p)
	}

	if !cfg.ProfilingEnabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	if cfg.ProfilingServerAddress == "" {
		return nil, fmt.Errorf("profiler server address is required when profiling is enabled")
	}
	if cfg.ServiceName == "" {
		return nil, fmt.Errorf("profiler application name is required when profiling is enabled")
	}

	tags := map[string]string{}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		tags["hostname"] = hostname
	}
	if podName := os.Getenv("POD_NAME"); podName != "" {
		tags["pod"] = podName
	}

	pyroscopeCfg := pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.ProfilingServerAddress,
		Logger:          newPyroscopeLogger(logger),
		Tags:            tags,
		ProfileTypes:    profileTypes,
	}
	if cfg.ProfilingBasicAuthUser != "" && cfg.ProfilingBasicAuthPass != "" {
		pyroscopeCfg.BasicAuthUser = cfg.ProfilingBasicAuthUser
		pyroscopeCfg.BasicAuthPassword = cfg.ProfilingBasicAuthPass
	}

	session, err := p.start(pyroscopeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	p.session = session

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ProfilingServerAddress),
		zap.String("application_name", cfg.ServiceName),
		zap.Int("profile_types", len(profileTypes)),
	)
	return p, nil
}

func startPyroscope(cfg pyroscope.Config) (profileSession, error) {
	profiler, err := pyroscope.Start(cfg)
	if err != nil {
		return nil, err
	}
	return profiler, nil
}

// Stop flushes pending profiles and stops the profiler. Safe to call more than once.
// The Pyroscope SDK takes no context here; it bounds the flush internally.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.session == nil {
		p.stopped = true
		return nil
	}
	p.stopped = true

	if err := p.session.Stop(); err != nil {
		p.logger.Error("Error stopping profiler", zap.Error(err))
		return fmt.Errorf("failed to stop profiler: %w", err)
	}
	p.logger.Info("Pyroscope profiler stopped")
	return nil
}

// IsEnabled returns whether profiles are being collected
func (p *Profiler) IsEnabled() bool {
	return p.session != nil
}

// pyroscopeLogger adapts zap.Logger to pyroscope.Logger
type pyroscopeLogger struct {
	logger *zap.SugaredLogger
}

func newPyroscopeLogger(logger *zap.Logger) pyroscope.Logger {
	return &pyroscopeLogger{logger: logger.Named("pyroscope").Sugar()}
}

func (l *pyroscopeLogger) Infof(format string, args ...any) { l.logger.Infof(format, args...) }
func (l *pyroscopeLogger) Debugf(format string, args ...any) { l.logger.Debugf(format, args...) }
func (l *pyroscopeLogger) Errorf(format string, args ...any) { l.logger.Errorf(format, args...) }
