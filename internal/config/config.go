package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/config"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/database"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/middleware"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/resilience"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/tracing"
)

const (
	// ServiceName tags logs, metrics and traces.
	ServiceName = "storefront"

	defaultJWTSecret = "change-this-to-a-secure-secret"

	// HistoryWriteAtomic records a view with one upsert-with-increment statement.
	HistoryWriteAtomic = "atomic"
	// HistoryWriteReadThenWrite records a view as select, then insert or update.
	HistoryWriteReadThenWrite = "read_then_write"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort            int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"20s"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass     string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB       string `env:"STOREFRONT_DB_NAME" envDefault:"storefront"`
	PostgresSSL      string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"20"`
	AutoMigrate      bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Circuit breaker around the database
	BreakerTimeout      time.Duration `env:"DB_BREAKER_TIMEOUT" envDefault:"15s"`
	BreakerFailureRatio float64       `env:"DB_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"DB_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Redis product snapshot cache
	RedisEnabled    bool          `env:"REDIS_ENABLED" envDefault:"true"`
	RedisHost       string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ProductCacheTTL time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"5m"`

	// Kafka domain events
	KafkaEnabled     bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopicPrefix string   `env:"KAFKA_TOPIC_PREFIX" envDefault:"marketplace"`

	// Identity
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"marketplace"`
	JWTTokenTTL time.Duration `env:"JWT_TOKEN_TTL" envDefault:"1h"`

	// Sessions
	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	MaxSessions          int           `env:"MAX_SESSIONS" envDefault:"100000"`
	NoticeQueueSize      int           `env:"NOTICE_QUEUE_SIZE" envDefault:"20"`

	// Browsing history
	HistoryWriteMode string `env:"HISTORY_WRITE_MODE" envDefault:"atomic"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// pprof
	PprofEnabled      bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Session creation rate limit per client IP
	SessionCreateRPS   float64 `env:"SESSION_CREATE_RPS" envDefault:"2"`
	SessionCreateBurst int     `env:"SESSION_CREATE_BURST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
}

// Load reads configuration from the environment, after loading any of the
// given dotenv files that exist.
func Load(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithDotEnv(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and production-only requirements.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("invalid Postgres port: %d", c.PostgresPort)
	}

	switch c.HistoryWriteMode {
	case HistoryWriteAtomic, HistoryWriteReadThenWrite:
	default:
		return fmt.Errorf("HISTORY_WRITE_MODE must be %q or %q, got %q",
			HistoryWriteAtomic, HistoryWriteReadThenWrite, c.HistoryWriteMode)
	}

	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive, got %s", c.SessionIdleTTL)
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive, got %s", c.SessionSweepInterval)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must be set when KAFKA_ENABLED is true")
	}
	if c.NoticeQueueSize < 1 {
		return fmt.Errorf("NOTICE_QUEUE_SIZE must be at least 1, got %d", c.NoticeQueueSize)
	}
	if c.SessionCreateRPS <= 0 || c.SessionCreateBurst < 1 {
		return fmt.Errorf("SESSION_CREATE_RPS must be positive and SESSION_CREATE_BURST at least 1")
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("DB_BREAKER_FAILURE_RATIO must be in (0,1], got %v", c.BreakerFailureRatio)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be in [0,1], got %v", c.OTELSampleRate)
	}

	// Outside development, require an explicitly set, strong JWT secret.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}

	return nil
}

// Postgres returns pool settings for pkg/database.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	if c.PostgresMaxConns > 0 {
		pg.MaxConns = c.PostgresMaxConns
	}
	return pg
}

// Redis returns client settings for pkg/database.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:        c.RedisHost,
		Port:        c.RedisPort,
		Password:    c.RedisPassword,
		DB:          c.RedisDB,
		DialTimeout: 2 * time.Second,
	}
}

// Breaker returns the database circuit breaker settings.
func (c *Config) Breaker() resilience.BreakerConfig {
	b := resilience.DefaultBreakerConfig("postgres")
	b.Timeout = c.BreakerTimeout
	b.FailureRatio = c.BreakerFailureRatio
	b.MinRequests = c.BreakerMinRequests
	return b
}

// Tracing returns OpenTelemetry settings.
func (c *Config) Tracing() tracing.Config {
	t := tracing.DefaultConfig(ServiceName)
	t.Environment = c.Environment
	t.OTLPEndpoint = c.OTELEndpoint
	t.SampleRate = c.OTELSampleRate
	t.Enabled = c.OTELEnabled
	return t
}

// CORS returns CORS middleware settings.
func (c *Config) CORS() middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = c.CORSAllowedOrigins
	cors.AllowCredentials = c.CORSAllowCredentials
	return cors
}
