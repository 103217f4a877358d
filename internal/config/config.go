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
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Upstream UpstreamConfig
	Pipeline PipelineConfig
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
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// UpstreamConfig points at the work-tracking platform REST API.
type UpstreamConfig struct {
	BaseURL        string
	PAT            string
	TimeoutSeconds int
	CacheTTLHours  int
}

// PipelineConfig holds rendering and cutout defaults. Per-request values
// from the panel override viewport geometry; the rest apply server-wide.
type PipelineConfig struct {
	ContextLines      int
	LineHeightPx      float64
	AvgCharWidthPx    float64
	ViewportWidthPx   float64
	DebounceMillis    int
	Locale            string
	SessionTTLMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "history-diff-service"),
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
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Upstream: UpstreamConfig{
			BaseURL:        os.Getenv("UPSTREAM_BASE_URL"),
			PAT:            os.Getenv("UPSTREAM_PAT"),
			TimeoutSeconds: getEnvAsInt("UPSTREAM_TIMEOUT_SECONDS", 30),
			CacheTTLHours:  getEnvAsInt("UPSTREAM_CACHE_TTL_HOURS", 24),
		},
		Pipeline: PipelineConfig{
			ContextLines:      getEnvAsInt("PIPELINE_CONTEXT_LINES", 3),
			LineHeightPx:      getEnvAsFloat("PIPELINE_LINE_HEIGHT_PX", 14),
			AvgCharWidthPx:    getEnvAsFloat("PIPELINE_AVG_CHAR_WIDTH_PX", 7.5),
			ViewportWidthPx:   getEnvAsFloat("PIPELINE_VIEWPORT_WIDTH_PX", 800),
			DebounceMillis:    getEnvAsInt("PIPELINE_DEBOUNCE_MILLIS", 250),
			Locale:            getEnv("PIPELINE_LOCALE", "en"),
			SessionTTLMinutes: getEnvAsInt("PIPELINE_SESSION_TTL_MINUTES", 60),
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

// Timeout returns the upstream HTTP timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	if u.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long resolved URLs and image sizes stay memoized.
func (u UpstreamConfig) CacheTTL() time.Duration {
	if u.CacheTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(u.CacheTTLHours) * time.Hour
}

// Debounce returns the recompute debounce interval.
func (p PipelineConfig) Debounce() time.Duration {
	if p.DebounceMillis <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(p.DebounceMillis) * time.Millisecond
}

// SessionTTL returns how long an idle render session is retained.
func (p PipelineConfig) SessionTTL() time.Duration {
	if p.SessionTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(p.SessionTTLMinutes) * time.Minute
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

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
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
