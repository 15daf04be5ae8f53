package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen addr = %s, want :8080", cfg.ListenAddr)
	}
	if cfg.RateLimits.PerMinute != 20 || cfg.RateLimits.PerHour != 200 || cfg.RateLimits.PerDay != 1000 {
		t.Errorf("rate limits = %+v, want defaults", cfg.RateLimits)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backstop.yaml")
	body := []byte(`
listen_addr: ":9090"
log_level: debug
rate_limits:
  per_minute: 5
agent_timeout: 10s
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BACKSTOP_LIMIT_PER_MINUTE", "7")
	t.Setenv("BACKSTOP_AGENT_TIMEOUT", "2s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("listen addr = %s, want file value", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %s, want debug", cfg.LogLevel)
	}
	// Env beats file.
	if cfg.RateLimits.PerMinute != 7 {
		t.Errorf("per-minute = %d, want env override 7", cfg.RateLimits.PerMinute)
	}
	if cfg.AgentTimeout != 2*time.Second {
		t.Errorf("agent timeout = %s, want env override 2s", cfg.AgentTimeout)
	}
	// Untouched fields keep defaults.
	if cfg.RateLimits.PerHour != 200 {
		t.Errorf("per-hour = %d, want default 200", cfg.RateLimits.PerHour)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("missing file should error")
	}
}
