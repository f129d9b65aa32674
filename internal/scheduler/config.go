package scheduler

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds scheduler cadence and pool parameters.
type Config struct {
	Disabled        bool   `toml:"disabled"`
	Interval        string `toml:"interval"`
	Jitter          string `toml:"jitter"`
	Workers         int    `toml:"workers"`
	DatasetSchedule string `toml:"dataset_schedule"`
	MemoSize        int    `toml:"memo_size"`
	Policy          string `toml:"policy"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Disabled        string
	Interval        string
	Jitter          string
	Workers         string
	DatasetSchedule string
	MemoSize        string
	Policy          string
}

// IntervalDuration returns Interval as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// JitterDuration returns Jitter as a time.Duration.
func (c *Config) JitterDuration() time.Duration {
	d, _ := time.ParseDuration(c.Jitter)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Disabled {
		c.Disabled = true
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.Jitter != "" {
		c.Jitter = overlay.Jitter
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.DatasetSchedule != "" {
		c.DatasetSchedule = overlay.DatasetSchedule
	}
	if overlay.MemoSize != 0 {
		c.MemoSize = overlay.MemoSize
	}
	if overlay.Policy != "" {
		c.Policy = overlay.Policy
	}
}

func (c *Config) loadDefaults() {
	if c.Interval == "" {
		c.Interval = "2m"
	}
	if c.Jitter == "" {
		c.Jitter = "20s"
	}
	if c.Workers <= 0 {
		c.Workers = 20
	}
	if c.DatasetSchedule == "" {
		c.DatasetSchedule = "0 3 * * *"
	}
	if c.MemoSize <= 0 {
		c.MemoSize = 100_000
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Disabled != "" {
		if v := os.Getenv(env.Disabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Disabled = b
			}
		}
	}
	if env.Interval != "" {
		if v := os.Getenv(env.Interval); v != "" {
			c.Interval = v
		}
	}
	if env.Jitter != "" {
		if v := os.Getenv(env.Jitter); v != "" {
			c.Jitter = v
		}
	}
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Workers = n
			}
		}
	}
	if env.DatasetSchedule != "" {
		if v := os.Getenv(env.DatasetSchedule); v != "" {
			c.DatasetSchedule = v
		}
	}
	if env.MemoSize != "" {
		if v := os.Getenv(env.MemoSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MemoSize = n
			}
		}
	}
	if env.Policy != "" {
		if v := os.Getenv(env.Policy); v != "" {
			c.Policy = v
		}
	}
}

func (c *Config) validate() error {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("interval must be positive: %s", c.Interval)
	}
	j, err := time.ParseDuration(c.Jitter)
	if err != nil {
		return fmt.Errorf("invalid jitter: %w", err)
	}
	if j < 0 {
		return fmt.Errorf("jitter must not be negative: %s", c.Jitter)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", c.Workers)
	}
	if _, err := cron.ParseStandard(c.DatasetSchedule); err != nil {
		return fmt.Errorf("invalid dataset_schedule: %w", err)
	}
	if c.MemoSize < 1 {
		return fmt.Errorf("memo_size must be positive: %d", c.MemoSize)
	}
	return nil
}
