// Package config assembles runtime settings from defaults, an optional YAML
// file and TASKTIMER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alexanderramin/tasktimer/internal/api"
)

// Config holds all application settings.
type Config struct {
	API         api.Config `yaml:"api"`
	DB          string     `yaml:"db"`
	Locale      string     `yaml:"locale"`
	TickMs      int        `yaml:"tick_ms"`
	CacheMaxAge int        `yaml:"cache_max_age_ms"`
}

// Default returns the built-in settings: a local backend, an in-memory
// cache and a one second tick.
func Default() Config {
	return Config{
		API:         api.DefaultConfig(),
		DB:          ":memory:",
		Locale:      "en",
		TickMs:      1000,
		CacheMaxAge: 30000,
	}
}

// Path returns the config file location: $TASKTIMER_CONFIG if set,
// otherwise ~/.tasktimer/config.yaml.
func Path() string {
	if p := os.Getenv("TASKTIMER_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tasktimer", "config.yaml")
}

// Load layers the config file and environment over Default. A missing
// file is not an error.
func Load() (Config, error) {
	cfg := Default()
	if err := loadFile(Path(), &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg from the environment. Unparseable numbers and
// booleans are ignored.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TASKTIMER_API_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}
	if v := os.Getenv("TASKTIMER_API_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("TASKTIMER_API_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.API.TimeoutMs = n
		}
	}
	if v := os.Getenv("TASKTIMER_API_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.API.MaxRetries = n
		}
	}
	if v := os.Getenv("TASKTIMER_LOG_CALLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.API.LogCalls = b
		}
	}
	if v := os.Getenv("TASKTIMER_DB"); v != "" {
		cfg.DB = v
	}
	if v := os.Getenv("TASKTIMER_LOCALE"); v != "" {
		cfg.Locale = v
	}
	if v := os.Getenv("TASKTIMER_TICK_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TickMs = n
		}
	}
}

// TickInterval returns the ticker period.
func (c Config) TickInterval() time.Duration {
	if c.TickMs <= 0 {
		return time.Second
	}
	return time.Duration(c.TickMs) * time.Millisecond
}

// CacheMaxAgeDuration returns how long cached task snapshots are served.
func (c Config) CacheMaxAgeDuration() time.Duration {
	if c.CacheMaxAge < 0 {
		return 0
	}
	return time.Duration(c.CacheMaxAge) * time.Millisecond
}
