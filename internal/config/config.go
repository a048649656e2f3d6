// Package config loads the service configuration from YAML with
// environment-variable overrides. Environment always wins, so container
// deployments can skip the file entirely.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"spinlog/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Backup   BackupConfig   `yaml:"backup"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  logging.Config `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
	// RateLimit is mutating-request tokens per second; Burst is the
	// bucket size. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig holds broadcast log import settings.
type IngestConfig struct {
	// DropDir, when set, is watched for station CSV exports; files are
	// imported and removed.
	DropDir string `yaml:"drop_dir"`
	// DefaultStation is used for CSV rows with no station column value.
	DefaultStation string `yaml:"default_station"`
}

// BackupConfig holds database snapshot settings. An empty Dir disables
// scheduled snapshots; the manual API endpoint stays available when Dir
// is set.
type BackupConfig struct {
	Dir           string `yaml:"dir"`
	Retention     int    `yaml:"retention"`
	MaxAgeDays    int    `yaml:"max_age_days"`
	IntervalHours int    `yaml:"interval_hours"`
}

// NotifyConfig holds event notification settings. An empty WebhookURL
// disables delivery.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Default returns the configuration used when both the file and the
// environment are silent.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8080,
			RateLimit: 10,
			Burst:     20,
		},
		Database: DatabaseConfig{
			Path: "/data/spinlog.db",
		},
		Ingest: IngestConfig{
			DefaultStation: "UNKNOWN",
		},
		Backup: BackupConfig{
			Retention:     7,
			MaxAgeDays:    30,
			IntervalHours: 24,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads config from a YAML file (if it exists) and applies environment
// variable overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("SPINLOG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SPINLOG_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SPINLOG_DROP_DIR"); v != "" {
		c.Ingest.DropDir = v
	}
	if v := os.Getenv("SPINLOG_DEFAULT_STATION"); v != "" {
		c.Ingest.DefaultStation = v
	}
	if v := os.Getenv("SPINLOG_BACKUP_DIR"); v != "" {
		c.Backup.Dir = v
	}
	if v := os.Getenv("SPINLOG_WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}
	if v := os.Getenv("SPINLOG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SPINLOG_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SPINLOG_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Backup.Dir != "" && c.Backup.Retention < 1 {
		return fmt.Errorf("backup retention must be at least 1, got %d", c.Backup.Retention)
	}
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if c.Logging.Format != "" && !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}
