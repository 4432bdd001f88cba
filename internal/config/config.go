// Package config defines service configuration and its layered loading.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported ranking cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseDriver is sqlite or postgres.
	DatabaseDriver string `koanf:"database_driver"`
	// DatabaseDSN is passed to sql.Open as-is.
	DatabaseDSN string `koanf:"database_dsn"`
	// SeedFile, when set, is loaded into the store on serve startup.
	SeedFile string `koanf:"seed_file"`

	// MaxRankingsLimit caps the ?limit query parameter of ranking routes.
	MaxRankingsLimit int `koanf:"max_rankings_limit"`
	// ScoringParallelism bounds concurrent metric normalization and value loading.
	ScoringParallelism int `koanf:"scoring_parallelism"`

	CacheBackend    string `koanf:"cache_backend"`
	CacheSize       int    `koanf:"cache_size"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingEndpoint     string  `koanf:"tracing_endpoint"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	ServiceName         string  `koanf:"service_name"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DatabaseDriver:      DriverSQLite,
		DatabaseDSN:         "file:studyrank.db?_pragma=foreign_keys(1)",
		MaxRankingsLimit:    500,
		ScoringParallelism:  runtime.NumCPU(),
		CacheBackend:        CacheMemory,
		CacheSize:           1024,
		CacheTTLSeconds:     300,
		RedisAddr:           "localhost:6379",
		TracingEndpoint:     "localhost:4318",
		TracingInsecure:     true,
		TracingSamplingRate: 1.0,
		ServiceName:         "studyrank",
	}
}

// CacheTTL returns the cache TTL as a duration. Zero disables expiry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.DatabaseDriver != DriverSQLite && c.DatabaseDriver != DriverPostgres:
		return fmt.Errorf("database_driver %q: %w", c.DatabaseDriver, ErrInvalidConfig)
	case c.DatabaseDSN == "":
		return fmt.Errorf("database_dsn must not be empty: %w", ErrInvalidConfig)
	case c.MaxRankingsLimit <= 0:
		return fmt.Errorf("max_rankings_limit must be positive: %w", ErrInvalidConfig)
	case c.ScoringParallelism <= 0:
		return fmt.Errorf("scoring_parallelism must be positive: %w", ErrInvalidConfig)
	case c.CacheTTLSeconds < 0:
		return fmt.Errorf("cache_ttl_seconds must not be negative: %w", ErrInvalidConfig)
	case c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1:
		return fmt.Errorf("tracing_sampling_rate must be within [0,1]: %w", ErrInvalidConfig)
	}

	switch c.CacheBackend {
	case CacheNone:
	case CacheMemory:
		if c.CacheSize <= 0 {
			return fmt.Errorf("cache_size must be positive: %w", ErrInvalidConfig)
		}
	case CacheRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr must not be empty: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("cache_backend %q: %w", c.CacheBackend, ErrInvalidConfig)
	}
	return nil
}
