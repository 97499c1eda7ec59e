// Package config loads client configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the client needs to talk to the remote service and
// to keep its local state.
type Config struct {
	APIURL         string `env:"SITECHAT_API_URL" envDefault:"https://webchat-p2tp.onrender.com"`
	TimeoutSeconds int    `env:"SITECHAT_TIMEOUT_SECONDS" envDefault:"30"`
	DataDir        string `env:"SITECHAT_DATA_DIR"`
	ToastTTLMS     int    `env:"SITECHAT_TOAST_TTL_MS" envDefault:"5000"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and fills in the data directory default
// (~/.config/sitechat).
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".config", "sitechat")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SITECHAT_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("SITECHAT_TIMEOUT_SECONDS must be positive, got %d", c.TimeoutSeconds)
	}
	if c.ToastTTLMS <= 0 {
		return fmt.Errorf("SITECHAT_TOAST_TTL_MS must be positive, got %d", c.ToastTTLMS)
	}
	return nil
}

// Timeout is the transport-level timeout for one request.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ToastTTL is how long a notification stays on screen.
func (c *Config) ToastTTL() time.Duration {
	return time.Duration(c.ToastTTLMS) * time.Millisecond
}

// DBPath is the location of the credential database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "sitechat.db")
}

// LogPath is where the TUI writes its log, keeping stderr clean for the
// alternate screen.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "sitechat.log")
}
