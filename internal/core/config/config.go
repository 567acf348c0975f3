package config

import (
	"time"

	"github.com/docketry/docketd/internal/infra/backend"
	redisclient "github.com/docketry/docketd/internal/infra/redis"
	"github.com/docketry/docketd/internal/infra/storage/postgres"
	"github.com/docketry/docketd/internal/resilience"
	"github.com/docketry/docketd/internal/resilience/netwatch"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Backend   backend.Config     `yaml:"backend"`
	Auth      AuthConfig         `yaml:"auth"`
	Retry     resilience.Config  `yaml:"retry"`
	Probe     netwatch.Config    `yaml:"probe"`
	Sync      SyncConfig         `yaml:"sync"`
	Summarize SummarizeConfig    `yaml:"summarize"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// AuthConfig holds agent credentials and session persistence settings.
// Email/Password are used for the initial headless sign-in when no persisted
// session exists; usually injected via environment variables.
type AuthConfig struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	TokenFile string `yaml:"token_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SyncConfig holds settings for the mirror sync worker.
type SyncConfig struct {
	Interval  time.Duration `yaml:"interval"`
	PageSize  int           `yaml:"page_size"`
	Retention time.Duration `yaml:"retention"` // 0 = infinite
}

// SummarizeConfig holds settings for the summarization worker.
type SummarizeConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	LockTTL      time.Duration `yaml:"lock_ttl"`
	MaxAttempts  int           `yaml:"max_attempts"`
}
