// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config holds application configuration
type Config struct {
	DataDir              string // Base directory for state files and the database (always absolute)
	LogLevel             string
	Port                 int
	DevMode              bool
	PaperMode            bool   // Trade against the paper ledger instead of a live broker
	StorageBackend       string // "file" or "sqlite"
	StartingCash         float64
	MonitorInterval      time.Duration
	MonitorAutostart     bool
	StopTimeout          time.Duration // Bounded wait for an in-flight monitoring cycle on stop
	DefaultCashBufferPct float64
	DustThreshold        float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRACKER_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Port:                 getEnvAsInt("GO_PORT", 8001),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		PaperMode:            getEnvAsBool("TRACKER_PAPER", true),
		StorageBackend:       strings.ToLower(getEnv("TRACKER_STORAGE", StorageFile)),
		StartingCash:         getEnvAsFloat64("PAPER_STARTING_CASH", 100000),
		MonitorInterval:      time.Duration(getEnvAsInt("MONITOR_INTERVAL_MINUTES", 5)) * time.Minute,
		MonitorAutostart:     getEnvAsBool("MONITOR_AUTOSTART", false),
		StopTimeout:          time.Duration(getEnvAsInt("MONITOR_STOP_TIMEOUT_SECONDS", 1)) * time.Second,
		DefaultCashBufferPct: getEnvAsFloat64("REBALANCE_CASH_BUFFER_PCT", 2.0),
		DustThreshold:        getEnvAsFloat64("REBALANCE_DUST_THRESHOLD", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration values for consistency
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("unsupported storage backend %q (expected %q or %q)", c.StorageBackend, StorageFile, StorageSQLite)
	}

	if c.MonitorInterval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %s", c.MonitorInterval)
	}
	if c.StopTimeout < 0 {
		return fmt.Errorf("stop timeout must not be negative, got %s", c.StopTimeout)
	}
	if c.StartingCash < 0 {
		return fmt.Errorf("starting cash must not be negative, got %.2f", c.StartingCash)
	}
	if c.DefaultCashBufferPct < 0 || c.DefaultCashBufferPct > 100 {
		return fmt.Errorf("cash buffer must be within [0, 100], got %.2f", c.DefaultCashBufferPct)
	}
	if c.DustThreshold < 0 {
		return fmt.Errorf("dust threshold must not be negative, got %.2f", c.DustThreshold)
	}

	return nil
}

// LedgerPath is the paper ledger state file
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "paper_state.json")
}

// RegistryPath is the monitor registry file
func (c *Config) RegistryPath() string {
	return filepath.Join(c.DataDir, "bot_config.json")
}

// DatabasePath is the SQLite database used by the sqlite storage backend
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "tracker.db")
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
