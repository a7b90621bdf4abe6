// Package config provides environment-driven configuration for worktrail.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL Secret
	Port        string
	ListenHost  string
	MetricsPort string
	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	DBMaxConns        int
	DBRetryMaxElapsed time.Duration
	QueryTimeout      time.Duration

	TransitionCAS    bool
	StatsRowCap      int
	SubscriberBuffer int
	TimelineBuffer   int
	AuditQueueSize   int
	OTelStdout       bool
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is read first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // the file is optional.

	return loadEnv()
}

func loadEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   Secret(envOrDefault("DATABASE_URL", "")),
		Port:          envOrDefault("PORT", "3040"),
		ListenHost:    envOrDefault("LISTEN_HOST", "127.0.0.1"),
		MetricsPort:   envOrDefault("METRICS_PORT", "9092"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		LogFormat:     envOrDefault("LOG_FORMAT", "json"),
		TransitionCAS: envOrDefault("TRANSITION_CAS", "false") == "true",
		OTelStdout:    envOrDefault("OTEL_STDOUT", "false") == "true",
	}

	var err error

	if cfg.DBMaxConns, err = intInRange("DB_MAX_CONNS", 21, 2, 200); err != nil {
		return nil, err
	}

	if cfg.StatsRowCap, err = intInRange("STATS_ROW_CAP", 10000, 100, 50000); err != nil {
		return nil, err
	}

	if cfg.SubscriberBuffer, err = intInRange("SUBSCRIBER_BUFFER", 64, 1, 4096); err != nil {
		return nil, err
	}

	if cfg.TimelineBuffer, err = intInRange("TIMELINE_BUFFER", 200, 1, 10000); err != nil {
		return nil, err
	}

	if cfg.AuditQueueSize, err = intInRange("AUDIT_QUEUE_SIZE", 1000, 1, 100000); err != nil {
		return nil, err
	}

	if cfg.DBRetryMaxElapsed, err = durationInRange("DB_RETRY_MAX_ELAPSED", 2*time.Second, 0, time.Minute); err != nil {
		return nil, err
	}

	if cfg.QueryTimeout, err = durationInRange("QUERY_TIMEOUT", 5*time.Second, 100*time.Millisecond, 5*time.Minute); err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

func intInRange(key string, fallback, lo, hi int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}

	return v, nil
}

func durationInRange(key string, fallback, lo, hi time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be a duration between %s and %s", key, lo, hi)
	}

	return v, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
