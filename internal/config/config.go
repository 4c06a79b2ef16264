package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the meetsync service.
// Environment variables are parsed from the MEETSYNC_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"3000"`

	// Postgres Configuration (source of truth)
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Redis Configuration (cache + sync queue)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	// Snapshot cache
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"300s"`

	// Sync worker
	SyncInterval  time.Duration `envconfig:"SYNC_INTERVAL" default:"30s"`
	SyncBatchSize int           `envconfig:"SYNC_BATCH_SIZE" default:"10"`

	// AI analysis
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
}

// ResolveDefaults validates the parsed configuration and normalizes
// values that cannot be expressed as struct-tag defaults.
func (c *Config) ResolveDefaults() error {
	if c.SyncBatchSize <= 0 {
		c.SyncBatchSize = 10
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = 30 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	switch c.Environment {
	case EnvDevelopment, EnvTesting, EnvProduction:
	default:
		return fmt.Errorf("unsupported ENVIRONMENT: %s", c.Environment)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Variables are prefixed with MEETSYNC_, e.g. MEETSYNC_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("MEETSYNC", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("http_port", cfg.HTTPPort).
		Str("redis_addr", cfg.RedisAddr).
		Dur("cache_ttl", cfg.CacheTTL).
		Dur("sync_interval", cfg.SyncInterval).
		Int("sync_batch_size", cfg.SyncBatchSize).
		Str("gemini_model", cfg.GeminiModel).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		Environment:   EnvTesting,
		HTTPPort:      3000,
		RedisAddr:     "localhost:6379",
		CacheTTL:      5 * time.Minute,
		SyncInterval:  30 * time.Second,
		SyncBatchSize: 10,
		GeminiModel:   "gemini-2.5-flash",
		GeminiBaseURL: "https://generativelanguage.googleapis.com",
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
