package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Billing   BillingConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int  // in minutes
	ConnMaxIdleTime int  // in minutes
	AutoMigrate     bool // apply embedded migrations on server start
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// Cache and idempotency backends
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// BillingConfig holds subscription billing settings
type BillingConfig struct {
	Currency           string        // default plan currency (XOF)
	RunEnabled         bool          // run the daily billing job in-process
	RunHour            int           // UTC hour of the daily billing run (0-23)
	RunTimeout         time.Duration // upper bound for a single billing run
	BatchSize          int           // due tenants loaded per run
	MaxCatchUpPeriods  int           // missed periods invoiced per tenant per run
	IdempotencyTTL     time.Duration // lifetime of billing run claims
	IdempotencyBackend string        // redis or memory
	PlanCacheBackend   string        // redis or memory
	PlanCacheTTL       time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          // Whether to enable OpenTelemetry
	CollectorEndpoint string        // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64       // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string        // Service name for traces
	Insecure          bool          // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration // Metrics export interval
	LogsEnabled       bool          // Export zap logs through the OTEL logs bridge
	DBTracing         bool          // Trace GORM queries

	ProfilingEnabled       bool   // Continuous profiling through Pyroscope
	ProfilingServerAddress string // Pyroscope server (e.g., "http://localhost:4040")
	ProfilingBasicAuthUser string // Optional basic auth for hosted Pyroscope
	ProfilingBasicAuthPass string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ERP_ prefix (e.g., ERP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Billing: BillingConfig{
			Currency:           v.GetString("billing.currency"),
			RunEnabled:         v.GetBool("billing.run_enabled"),
			RunHour:            v.GetInt("billing.run_hour"),
			RunTimeout:         v.GetDuration("billing.run_timeout"),
			BatchSize:          v.GetInt("billing.batch_size"),
			MaxCatchUpPeriods:  v.GetInt("billing.max_catch_up_periods"),
			IdempotencyTTL:     v.GetDuration("billing.idempotency_ttl"),
			IdempotencyBackend: v.GetString("billing.idempotency_backend"),
			PlanCacheBackend:   v.GetString("billing.plan_cache_backend"),
			PlanCacheTTL:       v.GetDuration("billing.plan_cache_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),

			ProfilingEnabled:       v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress: v.GetString("telemetry.profiling_server_address"),
			ProfilingBasicAuthUser: v.GetString("telemetry.profiling_basic_auth_user"),
			ProfilingBasicAuthPass: v.GetString("telemetry.profiling_basic_auth_password"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "billing-service"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "billing"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	// empty CORS origins means no cross-origin requests until configured
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "XOF"
	}
	if cfg.Billing.RunTimeout == 0 {
		cfg.Billing.RunTimeout = 30 * time.Minute
	}
	if cfg.Billing.BatchSize == 0 {
		cfg.Billing.BatchSize = 500
	}
	if cfg.Billing.MaxCatchUpPeriods == 0 {
		cfg.Billing.MaxCatchUpPeriods = 12
	}
	if cfg.Billing.IdempotencyTTL == 0 {
		cfg.Billing.IdempotencyTTL = 48 * time.Hour
	}
	if cfg.Billing.IdempotencyBackend == "" {
		cfg.Billing.IdempotencyBackend = BackendRedis
	}
	if cfg.Billing.PlanCacheBackend == "" {
		cfg.Billing.PlanCacheBackend = BackendRedis
	}
	if cfg.Billing.PlanCacheTTL == 0 {
		cfg.Billing.PlanCacheTTL = 10 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "billing-service"
	}
	if cfg.Telemetry.MetricsInterval <= 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.ProfilingServerAddress == "" {
		cfg.Telemetry.ProfilingServerAddress = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Billing.RunHour < 0 || c.Billing.RunHour > 23 {
		return fmt.Errorf("billing.run_hour must be between 0 and 23, got %d", c.Billing.RunHour)
	}
	if c.Billing.BatchSize < 0 || c.Billing.MaxCatchUpPeriods < 0 {
		return fmt.Errorf("billing.batch_size and billing.max_catch_up_periods cannot be negative")
	}
	if err := validateBackend("billing.idempotency_backend", c.Billing.IdempotencyBackend); err != nil {
		return err
	}
	if err := validateBackend("billing.plan_cache_backend", c.Billing.PlanCacheBackend); err != nil {
		return err
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// in-memory claims are per process and cannot guard replicas
		if c.Billing.RunEnabled && c.Billing.IdempotencyBackend == BackendMemory {
			return fmt.Errorf("billing.idempotency_backend must be 'redis' in production when billing.run_enabled is set")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

func validateBackend(key, value string) error {
	switch value {
	case BackendRedis, BackendMemory:
		return nil
	default:
		return fmt.Errorf("%s must be '%s' or '%s', got %q", key, BackendRedis, BackendMemory, value)
	}
}

// IsProduction reports whether the service runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
