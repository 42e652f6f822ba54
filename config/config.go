package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// HTTP server configuration
	HTTPAddr string

	// Sweep configuration
	SweepInterval      time.Duration // how often the reconciliation sweep runs
	PendingGracePeriod time.Duration // how long a zero-seat pending instance may linger
	SweepToken         string        // shared secret for the on-demand sweep endpoint

	// Lineup validator service
	ValidatorURL   string
	ValidatorToken string

	// Wallet configuration
	StartingBalance int64

	// Environment
	Environment string // "development" or "production"
}

// maxSweepInterval bounds how stale an unswept instance can get. A
// longer interval would let closed-registration instances sit unsettled
// past what downstream settlement tolerates.
const maxSweepInterval = 5 * time.Minute

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPAddr:    ":8080",

		SweepInterval:      time.Minute,
		PendingGracePeriod: 30 * time.Minute,
		SweepToken:         os.Getenv("SWEEP_TOKEN"),

		ValidatorURL:   os.Getenv("VALIDATOR_URL"),
		ValidatorToken: os.Getenv("VALIDATOR_TOKEN"),

		StartingBalance: 100000,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		config.HTTPAddr = addr
	}
	if interval := os.Getenv("SWEEP_INTERVAL"); interval != "" {
		parsed, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
		}
		config.SweepInterval = parsed
	}
	if grace := os.Getenv("PENDING_GRACE_PERIOD"); grace != "" {
		parsed, err := time.ParseDuration(grace)
		if err != nil {
			return nil, fmt.Errorf("invalid PENDING_GRACE_PERIOD: %w", err)
		}
		config.PendingGracePeriod = parsed
	}
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsedBalance, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsedBalance
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.SweepInterval <= 0 || config.SweepInterval > maxSweepInterval {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be between 1s and %s", maxSweepInterval)
	}
	if config.PendingGracePeriod <= 0 {
		return nil, fmt.Errorf("PENDING_GRACE_PERIOD must be positive")
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.ValidatorURL == "" {
			return nil, fmt.Errorf("VALIDATOR_URL is required")
		}
	}

	return config, nil
}
