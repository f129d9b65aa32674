package dataset

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/JaimeStill/curator/pkg/formatting"
)

// Config locates the product dataset dump and bounds its download.
// An empty URL disables the refresh job.
type Config struct {
	URL     string `toml:"url"`
	Key     string `toml:"key"`
	MaxSize string `toml:"max_size"`
	Timeout string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL     string
	Key     string
	MaxSize string
	Timeout string
}

// Enabled reports whether a dataset URL is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// MaxSizeBytes returns MaxSize in bytes.
func (c *Config) MaxSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxSize)
	return n
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
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
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Key != "" {
		c.Key = overlay.Key
	}
	if overlay.MaxSize != "" {
		c.MaxSize = overlay.MaxSize
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Key == "" {
		c.Key = "products/openfoodfacts-products.jsonl.gz"
	}
	if c.MaxSize == "" {
		c.MaxSize = "16GB"
	}
	if c.Timeout == "" {
		c.Timeout = "2h"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.Key != "" {
		if v := os.Getenv(env.Key); v != "" {
			c.Key = v
		}
	}
	if env.MaxSize != "" {
		if v := os.Getenv(env.MaxSize); v != "" {
			c.MaxSize = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid url: %q", c.URL)
		}
	}
	if n, err := formatting.ParseBytes(c.MaxSize); err != nil || n <= 0 {
		return fmt.Errorf("invalid max_size: %q", c.MaxSize)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
