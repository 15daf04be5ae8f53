// Package config loads server configuration from an optional YAML file with
// environment-variable overrides on top. Env wins over file, file wins over
// defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/courtside-ai/backstop/internal/ratelimit"
)

// Config is the full server configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	RateLimits   ratelimit.Limits `yaml:"rate_limits"`
	AgentTimeout time.Duration    `yaml:"agent_timeout"`

	// AdminTokenHash is the bcrypt hash accepted for admin resets when no
	// Postgres token table is configured. Empty disables admin operations.
	AdminTokenHash string `yaml:"admin_token_hash"`

	ClickHouseDSN string        `yaml:"clickhouse_dsn"`
	PostgresDSN   string        `yaml:"postgres_dsn"`
	AuthCacheTTL  time.Duration `yaml:"auth_cache_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		LogLevel:      "info",
		RateLimits:    ratelimit.DefaultLimits(),
		AgentTimeout:  30 * time.Second,
		AuthCacheTTL:  30 * time.Second,
		SweepInterval: 10 * time.Minute,
	}
}

// Load reads the YAML file at path (skipped when path is empty) and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config.Load: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config.Load: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.ListenAddr, "BACKSTOP_LISTEN_ADDR")
	setString(&c.LogLevel, "BACKSTOP_LOG_LEVEL")
	setString(&c.AdminTokenHash, "BACKSTOP_ADMIN_TOKEN_HASH")
	setString(&c.ClickHouseDSN, "CLICKHOUSE_DSN")
	setString(&c.PostgresDSN, "POSTGRES_DSN")
	setInt(&c.RateLimits.PerMinute, "BACKSTOP_LIMIT_PER_MINUTE")
	setInt(&c.RateLimits.PerHour, "BACKSTOP_LIMIT_PER_HOUR")
	setInt(&c.RateLimits.PerDay, "BACKSTOP_LIMIT_PER_DAY")
	setDuration(&c.AgentTimeout, "BACKSTOP_AGENT_TIMEOUT")
	setDuration(&c.AuthCacheTTL, "BACKSTOP_AUTH_CACHE_TTL")
	setDuration(&c.SweepInterval, "BACKSTOP_SWEEP_INTERVAL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
