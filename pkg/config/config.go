// Package config loads application configuration from environment
// variables, with validation at startup so a misconfigured process fails
// fast instead of mid-request.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Activity      ActivityConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// RedisConfig holds Redis settings for the distributed rate limiter.
type RedisConfig struct {
	Addr             string
	Password         string
	DB               int
	RateLimitEnabled bool
}

// ActivityConfig tunes the activity log side channel.
type ActivityConfig struct {
	BufferSize int
	Retention  time.Duration
}

// ObservabilityConfig holds logging, metrics and tracing settings.
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("ATELIER_HOST", "0.0.0.0"),
			Port:            getEnv("ATELIER_PORT", "8080"),
			ReadTimeout:     getEnvDuration("ATELIER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("ATELIER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("ATELIER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("ATELIER_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("ATELIER_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("ATELIER_POSTGRES_URL", ""),
			MaxOpenConns:    getEnvInt("ATELIER_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns:    getEnvInt("ATELIER_POSTGRES_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("ATELIER_POSTGRES_CONN_LIFETIME", 5*time.Minute),
			ConnectTimeout:  getEnvDuration("ATELIER_POSTGRES_CONNECT_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:             getEnv("ATELIER_REDIS_ADDR", ""),
			Password:         getEnv("ATELIER_REDIS_PASSWORD", ""),
			DB:               getEnvInt("ATELIER_REDIS_DB", 0),
			RateLimitEnabled: getEnvBool("ATELIER_RATELIMIT_ENABLED", false),
		},
		Activity: ActivityConfig{
			BufferSize: getEnvInt("ATELIER_ACTIVITY_BUFFER", 1024),
			Retention:  getEnvDuration("ATELIER_ACTIVITY_RETENTION", 90*24*time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:           getEnv("ATELIER_LOG_LEVEL", "info"),
			MetricsEnabled:     getEnvBool("ATELIER_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("ATELIER_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("ATELIER_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("ATELIER_OTEL_SERVICE_NAME", "atelier"),
			OTelServiceVersion: getEnv("ATELIER_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("ATELIER_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Redis.RateLimitEnabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when rate limiting is enabled")
	}

	if c.Activity.BufferSize <= 0 {
		return fmt.Errorf("activity buffer size must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
