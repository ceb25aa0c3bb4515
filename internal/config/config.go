// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration sourced from the environment.
// Portfolio policy (targets, scenarios, projections) lives in the policy
// file, not here; see LoadPolicy.
type Config struct {
	DataDir    string // Base directory for databases and rendered reports (always absolute)
	PolicyPath string // Path to the household policy YAML
	LogLevel   string
	LogPretty  bool
	Port       int
	DevMode    bool

	GitHubToken string // GitHub personal access token for filing data quality issues
	GitHubRepo  string // Repository in "owner/repo" form

	// RetentionDays bounds how long run records and archive bundles are kept.
	// Zero keeps everything.
	RetentionDays int

	Alpaca  AlpacaConfig
	Archive ArchiveConfig

	Schedules ScheduleConfig
}

// AlpacaConfig holds brokerage API credentials for the live holdings provider.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// ArchiveConfig holds S3-compatible storage settings for report bundles.
// Endpoint is non-empty for R2 and other non-AWS providers.
type ArchiveConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Enabled reports whether archive uploads are configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != "" && a.AccessKeyID != "" && a.SecretAccessKey != ""
}

// ScheduleConfig holds cron expressions (with seconds field) per pipeline.
type ScheduleConfig struct {
	Daily   string
	Weekly  string
	Monthly string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory, resolve to absolute, ensure it exists
	dataDir := getEnv("VIGIL_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		PolicyPath:    getEnv("VIGIL_POLICY_PATH", "policy.yaml"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", false),
		Port:          getEnvAsInt("VIGIL_PORT", 8090),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		GitHubToken:   getEnv("GITHUB_TOKEN", ""),
		GitHubRepo:    getEnv("GITHUB_REPO", ""),
		RetentionDays: getEnvAsInt("VIGIL_RETENTION_DAYS", 365),
		Alpaca: AlpacaConfig{
			APIKey:    getEnv("ALPACA_API_KEY", ""),
			APISecret: getEnv("ALPACA_API_SECRET", ""),
			BaseURL:   getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		},
		Archive: ArchiveConfig{
			Bucket:          getEnv("ARCHIVE_BUCKET", ""),
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			Region:          getEnv("ARCHIVE_REGION", "auto"),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("ARCHIVE_PREFIX", "vigil"),
		},
		Schedules: ScheduleConfig{
			Daily:   getEnv("SCHEDULE_DAILY", "0 30 17 * * MON-FRI"),
			Weekly:  getEnv("SCHEDULE_WEEKLY", "0 0 18 * * FRI"),
			Monthly: getEnv("SCHEDULE_MONTHLY", "0 0 19 1 * *"),
		},
	}

	return cfg, nil
}

// ReportsDir returns the directory rendered reports are written to.
func (c *Config) ReportsDir() string {
	return filepath.Join(c.DataDir, "reports")
}

// DatabasePath returns the path of the runs registry database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "vigil.db")
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
