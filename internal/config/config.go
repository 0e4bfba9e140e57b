// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Quote provider
	QuoteAPIBaseURL string
	QuoteAPIKey     string
	QuoteAPISecret  string

	// Valuation engine
	FreshnessWindow    time.Duration // Max age for a cached price to count as fresh
	PriceRefreshPeriod time.Duration // Interval of the price-refresh task
	SnapshotPeriod     time.Duration // Interval of the snapshot task
	QuoteBatchSize     int           // Symbols per quote request
	QuoteTimeout       time.Duration // Per-batch fetch timeout
	QuoteRateLimit     float64       // Quote requests per second against the provider
	ClientCacheTTL     time.Duration // TTL of the cached full-range dashboard payload
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("LEDGERLINE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8000),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		QuoteAPIBaseURL: getEnv("QUOTE_API_BASE_URL", "https://data.alpaca.markets"),
		QuoteAPIKey:     getEnv("QUOTE_API_KEY", ""),
		QuoteAPISecret:  getEnv("QUOTE_API_SECRET", ""),

		FreshnessWindow:    getEnvAsDuration("PRICE_FRESHNESS_WINDOW", 5*time.Minute),
		PriceRefreshPeriod: getEnvAsDuration("PRICE_REFRESH_PERIOD", 10*time.Second),
		SnapshotPeriod:     getEnvAsDuration("SNAPSHOT_PERIOD", 5*time.Minute),
		QuoteBatchSize:     getEnvAsInt("QUOTE_BATCH_SIZE", 100),
		QuoteTimeout:       getEnvAsDuration("QUOTE_TIMEOUT", 5*time.Second),
		QuoteRateLimit:     getEnvAsFloat("QUOTE_RATE_LIMIT", 5),
		ClientCacheTTL:     getEnvAsDuration("CLIENT_CACHE_TTL", 10*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.QuoteBatchSize <= 0 {
		return fmt.Errorf("quote batch size must be positive, got %d", c.QuoteBatchSize)
	}
	// A hung quote call must not starve subsequent refresh ticks.
	if c.QuoteTimeout >= c.PriceRefreshPeriod {
		return fmt.Errorf("quote timeout (%s) must be shorter than the price refresh period (%s)",
			c.QuoteTimeout, c.PriceRefreshPeriod)
	}
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("freshness window must be positive, got %s", c.FreshnessWindow)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
