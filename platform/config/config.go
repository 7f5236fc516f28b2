// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides Redis connection settings for the distribution
// channel and the scheduler queue.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// BusConfig provides event bus defaults.
type BusConfig interface {
	GetEventSource() string
	GetDefaultMaxRetries() int
	GetDefaultRetryDelay() time.Duration
	GetBroadcastChannel() string
}

// SchedulerConfig provides settings for the reconciliation worker.
type SchedulerConfig interface {
	RedisConfig
	GetReconcileInterval() time.Duration
	GetReconcileBatchSize() int
	GetAsynqQueueName() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	RedisURL           string
	RedisTLSInsecure   bool
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	EventSource        string
	BroadcastChannel   string
	DefaultMaxRetries  int
	DefaultRetryDelay  time.Duration
	ReconcileInterval  time.Duration
	ReconcileBatchSize int
	AsynqQueueName     string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }

// BusConfig implementation
func (c *Config) GetEventSource() string              { return c.EventSource }
func (c *Config) GetDefaultMaxRetries() int           { return c.DefaultMaxRetries }
func (c *Config) GetDefaultRetryDelay() time.Duration { return c.DefaultRetryDelay }
func (c *Config) GetBroadcastChannel() string         { return c.BroadcastChannel }

// SchedulerConfig implementation
func (c *Config) GetReconcileInterval() time.Duration { return c.ReconcileInterval }
func (c *Config) GetReconcileBatchSize() int          { return c.ReconcileBatchSize }
func (c *Config) GetAsynqQueueName() string           { return c.AsynqQueueName }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		EventSource:        getEnv("EVENT_SOURCE", "api"),
		BroadcastChannel:   getEnv("EVENT_BROADCAST_CHANNEL", "events:broadcast"),
		DefaultMaxRetries:  mustInt(getEnv("EVENT_DEFAULT_MAX_RETRIES", "3")),
		DefaultRetryDelay:  mustDuration(getEnv("EVENT_DEFAULT_RETRY_DELAY", "5s")),
		ReconcileInterval:  mustDuration(getEnv("RECONCILE_INTERVAL", "1m")),
		ReconcileBatchSize: mustInt(getEnv("RECONCILE_BATCH_SIZE", "50")),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DefaultMaxRetries < 1 {
		return nil, fmt.Errorf("EVENT_DEFAULT_MAX_RETRIES must be at least 1")
	}
	if cfg.DefaultRetryDelay <= 0 {
		return nil, fmt.Errorf("EVENT_DEFAULT_RETRY_DELAY must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
