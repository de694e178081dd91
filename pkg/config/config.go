// Package config loads service and engine configuration from the
// environment, in the teacher's getEnv/getEnvInt/getEnvBool style
// (common/config/config.go).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration.
type Config struct {
	Service   ServiceConfig
	Engine    EngineConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings.
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// EngineConfig is the recognized set of engine options (spec.md §6.9).
type EngineConfig struct {
	MaxParallel               int
	PersistIntermediateOutputs bool
	FailurePolicy              string // halt | continue_possible | always
	TokenCeiling               *int
	DepthCeiling               *int
	UseCache                   bool
	ValidateOutputs            bool
}

// DatabaseConfig holds Postgres connection settings, used by the optional
// blueprint/result store.
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// CacheConfig holds cache settings for the optional Redis-backed cache.
type CacheConfig struct {
	Backend    string // "memory" or "redis"
	Addr       string
	Enabled    bool
	DefaultTTL time.Duration
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	EnableMetrics bool
	MetricsPort   int
}

// Load loads configuration from environment variables.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Engine: EngineConfig{
			MaxParallel:                getEnvInt("ENGINE_MAX_PARALLEL", 5),
			PersistIntermediateOutputs: getEnvBool("ENGINE_PERSIST_INTERMEDIATE_OUTPUTS", true),
			FailurePolicy:              getEnv("ENGINE_FAILURE_POLICY", "continue_possible"),
			TokenCeiling:               getEnvIntPtr("ENGINE_TOKEN_CEILING"),
			DepthCeiling:               getEnvIntPtr("ENGINE_DEPTH_CEILING"),
			UseCache:                   getEnvBool("ENGINE_USE_CACHE", true),
			ValidateOutputs:            getEnvBool("ENGINE_VALIDATE_OUTPUTS", true),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "orchestrator"),
			User:        getEnv("POSTGRES_USER", "orchestrator"),
			Password:    getEnv("POSTGRES_PASSWORD", "orchestrator"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", time.Hour),
		},
		Cache: CacheConfig{
			Backend:    getEnv("CACHE_BACKEND", "memory"),
			Addr:       getEnv("CACHE_REDIS_ADDR", "localhost:6379"),
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", time.Hour),
		},
		Telemetry: TelemetryConfig{
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks whether configuration is self-consistent.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}
	if c.Engine.MaxParallel < 1 {
		return fmt.Errorf("engine.max_parallel must be >= 1, got %d", c.Engine.MaxParallel)
	}
	switch c.Engine.FailurePolicy {
	case "halt", "continue_possible", "always":
	default:
		return fmt.Errorf("invalid engine.failure_policy: %q", c.Engine.FailurePolicy)
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database.max_conns must be >= min_conns")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string for pgx.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database,
	)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvIntPtr(key string) *int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if i, err := strconv.Atoi(v); err == nil {
		return &i
	}
	return nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
