// Package config loads the curator configuration from TOML files and
// CURATOR_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/curator/internal/auth"
	"github.com/JaimeStill/curator/internal/catalog"
	"github.com/JaimeStill/curator/internal/dataset"
	"github.com/JaimeStill/curator/internal/scheduler"
	"github.com/JaimeStill/curator/pkg/database"
	"github.com/JaimeStill/curator/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvCuratorEnv             = "CURATOR_ENV"
	EnvCuratorShutdownTimeout = "CURATOR_SHUTDOWN_TIMEOUT"
	EnvCuratorVersion         = "CURATOR_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "CURATOR_DB_HOST",
	Port:            "CURATOR_DB_PORT",
	Name:            "CURATOR_DB_NAME",
	User:            "CURATOR_DB_USER",
	Password:        "CURATOR_DB_PASSWORD",
	SSLMode:         "CURATOR_DB_SSL_MODE",
	MaxOpenConns:    "CURATOR_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CURATOR_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CURATOR_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CURATOR_DB_CONN_TIMEOUT",
	ApplicationName: "CURATOR_DB_APPLICATION_NAME",
}

var storageEnv = &storage.Env{
	ContainerName:    "CURATOR_STORAGE_CONTAINER_NAME",
	ConnectionString: "CURATOR_STORAGE_CONNECTION_STRING",
	AccountURL:       "CURATOR_STORAGE_ACCOUNT_URL",
}

var catalogEnv = &catalog.Env{
	BaseURL:      "CURATOR_CATALOG_BASE_URL",
	ServerDomain: "CURATOR_CATALOG_SERVER_DOMAIN",
	UserAgent:    "CURATOR_CATALOG_USER_AGENT",
	User:         "CURATOR_CATALOG_USER",
	Password:     "CURATOR_CATALOG_PASSWORD",
	Timeout:      "CURATOR_CATALOG_TIMEOUT",
	RateLimit:    "CURATOR_CATALOG_RATE_LIMIT",
	Burst:        "CURATOR_CATALOG_BURST",
}

var schedulerEnv = &scheduler.Env{
	Disabled:        "CURATOR_SCHEDULER_DISABLED",
	Interval:        "CURATOR_SCHEDULER_INTERVAL",
	Jitter:          "CURATOR_SCHEDULER_JITTER",
	Workers:         "CURATOR_SCHEDULER_WORKERS",
	DatasetSchedule: "CURATOR_SCHEDULER_DATASET_SCHEDULE",
	MemoSize:        "CURATOR_SCHEDULER_MEMO_SIZE",
	Policy:          "CURATOR_SCHEDULER_POLICY",
}

var authEnv = &auth.Env{
	Issuer:        "CURATOR_AUTH_ISSUER",
	ClientID:      "CURATOR_AUTH_CLIENT_ID",
	UsernameClaim: "CURATOR_AUTH_USERNAME_CLAIM",
	Required:      "CURATOR_AUTH_REQUIRED",
}

var datasetEnv = &dataset.Env{
	URL:     "CURATOR_DATASET_URL",
	Key:     "CURATOR_DATASET_KEY",
	MaxSize: "CURATOR_DATASET_MAX_SIZE",
	Timeout: "CURATOR_DATASET_TIMEOUT",
}

// Config is the root configuration for the curator service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Catalog         catalog.Config   `toml:"catalog"`
	Scheduler       scheduler.Config `toml:"scheduler"`
	Auth            auth.Config      `toml:"auth"`
	Dataset         dataset.Config   `toml:"dataset"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the CURATOR_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvCuratorEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Catalog.Merge(&overlay.Catalog)
	c.Scheduler.Merge(&overlay.Scheduler)
	c.Auth.Merge(&overlay.Auth)
	c.Dataset.Merge(&overlay.Dataset)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Catalog.Finalize(catalogEnv); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.Scheduler.Finalize(schedulerEnv); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Dataset.Finalize(datasetEnv); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	// Blob storage only holds dataset snapshots.
	if c.Dataset.Enabled() {
		if err := c.Storage.Finalize(storageEnv); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvCuratorShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvCuratorVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvCuratorEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
