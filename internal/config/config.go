package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Events    EventsConfig
	Dashboard DashboardConfig
	Logger    LoggerConfig
	Auth      AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	RetryAttempts  int
	RetryBackoffMs int
}

// RedisConfig holds connection values for the redis cache backend.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeoutMs int
}

// CacheBackend selects the cache implementation.
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// CacheConfig controls the read-through cache layer.
type CacheConfig struct {
	Backend              CacheBackend
	DashboardTTLSeconds  int
	StaticTTLSeconds     int
	SweepIntervalSeconds int
}

// EventsConfig controls the broadcaster.
type EventsConfig struct {
	SubscriberBuffer int
}

// DashboardConfig bounds aggregation work and sets SLA thresholds.
type DashboardConfig struct {
	AggregationTimeoutSeconds int
	SLACriticalHours          int
	SLAHighHours              int
	SLAMediumHours            int
	SLALowHours               int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines authentication parameters. Token issuance lives
// outside this service; only parsing happens here.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := CacheBackend(getEnv("CACHE_BACKEND", string(CacheBackendMemory)))
	if backend != CacheBackendMemory && backend != CacheBackendRedis {
		return nil, fmt.Errorf("invalid CACHE_BACKEND: %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-core"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			RetryAttempts:  getEnvAsInt("POSTGRES_RETRY_ATTEMPTS", 3),
			RetryBackoffMs: getEnvAsInt("POSTGRES_RETRY_BACKOFF_MS", 100),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			PoolSize:      getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:  getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeoutMs: getEnvAsInt("REDIS_DIAL_TIMEOUT_MS", 5000),
		},
		Cache: CacheConfig{
			Backend:              backend,
			DashboardTTLSeconds:  getEnvAsInt("CACHE_DASHBOARD_TTL_SECONDS", 300),
			StaticTTLSeconds:     getEnvAsInt("CACHE_STATIC_TTL_SECONDS", 3600),
			SweepIntervalSeconds: getEnvAsInt("CACHE_SWEEP_INTERVAL_SECONDS", 60),
		},
		Events: EventsConfig{
			SubscriberBuffer: getEnvAsInt("EVENTS_SUBSCRIBER_BUFFER", 32),
		},
		Dashboard: DashboardConfig{
			AggregationTimeoutSeconds: getEnvAsInt("DASHBOARD_AGGREGATION_TIMEOUT_SECONDS", 10),
			SLACriticalHours:          getEnvAsInt("SLA_CRITICAL_HOURS", 4),
			SLAHighHours:              getEnvAsInt("SLA_HIGH_HOURS", 8),
			SLAMediumHours:            getEnvAsInt("SLA_MEDIUM_HOURS", 24),
			SLALowHours:               getEnvAsInt("SLA_LOW_HOURS", 48),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DashboardTTL returns the TTL for volatile dashboard entries.
func (c CacheConfig) DashboardTTL() time.Duration {
	return time.Duration(c.DashboardTTLSeconds) * time.Second
}

// StaticTTL returns the TTL for near-static configuration entries.
func (c CacheConfig) StaticTTL() time.Duration {
	return time.Duration(c.StaticTTLSeconds) * time.Second
}

// SweepInterval returns the cadence of the background expiry sweep.
func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// AggregationTimeout returns the execution budget for dashboard queries.
func (d DashboardConfig) AggregationTimeout() time.Duration {
	return time.Duration(d.AggregationTimeoutSeconds) * time.Second
}

// DialTimeout returns the Redis connect/dial budget.
func (r RedisConfig) DialTimeout() time.Duration {
	return time.Duration(r.DialTimeoutMs) * time.Millisecond
}

// RetryBackoff returns the base backoff between store retries.
func (p PostgresConfig) RetryBackoff() time.Duration {
	return time.Duration(p.RetryBackoffMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
