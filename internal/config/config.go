package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the dashboard.
type Config struct {
	// HTTP server
	Addr string

	// Market refresh
	RefreshInterval time.Duration
	RefreshTimeout  time.Duration

	// Data source: "mock" or "http"
	DataSource      string
	MockAssetCount  int
	MockDelay       time.Duration
	MockSeed        uint64
	MarketAPIURL    string
	MarketAPIKey    string
	MarketHistory   string
	MarketItemsPath string
	HistoryTTL      time.Duration

	// Portfolio storage: "kv", "csv", "memory" or "postgres"
	RepoKind    string
	DataDir     string
	DatabaseURL string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		Addr:            getEnvOrDefault("DASHBOARD_ADDR", ":8080"),
		RefreshInterval: getEnvDurationOrDefault("REFRESH_INTERVAL", 60*time.Second),
		RefreshTimeout:  getEnvDurationOrDefault("REFRESH_TIMEOUT", 10*time.Second),
		DataSource:      strings.ToLower(getEnvOrDefault("DATA_SOURCE", "mock")),
		MockAssetCount:  getEnvIntOrDefault("MOCK_ASSET_COUNT", 100),
		MockDelay:       getEnvDurationOrDefault("MOCK_DELAY", time.Second),
		MockSeed:        uint64(getEnvIntOrDefault("MOCK_SEED", 0)),
		MarketAPIURL:    os.Getenv("MARKET_API_URL"),
		MarketAPIKey:    os.Getenv("MARKET_API_KEY"),
		MarketHistory:   os.Getenv("MARKET_HISTORY_URL"),
		MarketItemsPath: getEnvOrDefault("MARKET_ITEMS_PATH", "$.data"),
		HistoryTTL:      getEnvDurationOrDefault("HISTORY_TTL", 60*time.Second),
		RepoKind:        strings.ToLower(getEnvOrDefault("REPO_KIND", "kv")),
		DataDir:         getEnvOrDefault("DATA_DIR", "./data"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:         getEnvOrDefault("LOG_FILE", filepath.Join("logs", "dashboard.log")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DataSource {
	case "mock", "http":
	default:
		return fmt.Errorf("config: unknown DATA_SOURCE %q (want mock or http)", c.DataSource)
	}
	switch c.RepoKind {
	case "kv", "csv", "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: REPO_KIND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown REPO_KIND %q (want kv, csv, memory or postgres)", c.RepoKind)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("config: REFRESH_INTERVAL must be positive")
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("config: REFRESH_TIMEOUT must be positive")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// KVPath is the file backing the kv repository.
func (c *Config) KVPath() string {
	return filepath.Join(c.DataDir, "storage.db")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDurationOrDefault accepts Go durations ("90s") or plain seconds ("90").
func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if s, err := strconv.Atoi(val); err == nil {
		return time.Duration(s) * time.Second
	}
	return defaultVal
}
