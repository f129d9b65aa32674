package auth

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config controls how API callers are identified. With an Issuer set,
// bearer tokens are verified against it; basic credentials and catalog
// session cookies are always passed through to the catalog.
type Config struct {
	Issuer        string `toml:"issuer"`
	ClientID      string `toml:"client_id"`
	UsernameClaim string `toml:"username_claim"`
	Required      bool   `toml:"required"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Issuer        string
	ClientID      string
	UsernameClaim string
	Required      string
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
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.UsernameClaim != "" {
		c.UsernameClaim = overlay.UsernameClaim
	}
	if overlay.Required {
		c.Required = true
	}
}

func (c *Config) loadDefaults() {
	if c.UsernameClaim == "" {
		c.UsernameClaim = "preferred_username"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Issuer != "" {
		if v := os.Getenv(env.Issuer); v != "" {
			c.Issuer = v
		}
	}
	if env.ClientID != "" {
		if v := os.Getenv(env.ClientID); v != "" {
			c.ClientID = v
		}
	}
	if env.UsernameClaim != "" {
		if v := os.Getenv(env.UsernameClaim); v != "" {
			c.UsernameClaim = v
		}
	}
	if env.Required != "" {
		if v := os.Getenv(env.Required); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Required = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Issuer == "" {
		return nil
	}
	u, err := url.Parse(c.Issuer)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("issuer must be an https url: %q", c.Issuer)
	}
	return nil
}
