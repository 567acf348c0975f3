package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
backend:
  url: https://cases.example.com
  api_key: anon-key
  timeout: 10s
auth:
  email: agent@example.com
  password: secret
  token_file: /var/lib/docketd/session.json
retry:
  max_retries: 5
  initial_delay: 500ms
  max_delay: 20s
  multiplier: 2.0
sync:
  interval: 1m
  page_size: 100
  retention: 720h
summarize:
  poll_interval: 10s
  lock_ttl: 5m
  max_attempts: 2
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Backend.URL != "https://cases.example.com" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Errorf("Backend.Timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Auth.Email != "agent@example.com" || cfg.Auth.TokenFile != "/var/lib/docketd/session.json" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Retry.MaxRetries != 5 || cfg.Retry.InitialDelay != 500*time.Millisecond {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Sync.Interval != time.Minute || cfg.Sync.PageSize != 100 {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Summarize.MaxAttempts != 2 {
		t.Errorf("Summarize = %+v", cfg.Summarize)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: https://cases.example.com
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.TokenFile != ".docketd/session.json" {
		t.Errorf("Auth.TokenFile = %q", cfg.Auth.TokenFile)
	}
	if cfg.Sync.Interval != 30*time.Second {
		t.Errorf("Sync.Interval = %v", cfg.Sync.Interval)
	}
	if cfg.Sync.PageSize != 200 {
		t.Errorf("Sync.PageSize = %d", cfg.Sync.PageSize)
	}
	if cfg.Summarize.PollInterval != 5*time.Second {
		t.Errorf("Summarize.PollInterval = %v", cfg.Summarize.PollInterval)
	}
	if cfg.Summarize.LockTTL != 2*time.Minute {
		t.Errorf("Summarize.LockTTL = %v", cfg.Summarize.LockTTL)
	}
	if cfg.Summarize.MaxAttempts != 3 {
		t.Errorf("Summarize.MaxAttempts = %d", cfg.Summarize.MaxAttempts)
	}
	// The probe target defaults to the backend's REST root.
	if cfg.Probe.ProbeURL != "https://cases.example.com/rest/v1/" {
		t.Errorf("Probe.ProbeURL = %q", cfg.Probe.ProbeURL)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCKETD_BACKEND_URL", "https://env.example.com")
	t.Setenv("DOCKETD_API_KEY", "env-key")

	path := writeConfig(t, `
backend:
  url: ${DOCKETD_BACKEND_URL}
  api_key: ${DOCKETD_API_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend.URL != "https://env.example.com" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Backend.APIKey != "env-key" {
		t.Errorf("Backend.APIKey = %q", cfg.Backend.APIKey)
	}
}

func TestLoadRequiresBackendURL(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)
	if _, err := Load(path); err == nil {
		t.Error("Load() = nil, want error for missing backend.url")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() = nil, want error for missing file")
	}
}
