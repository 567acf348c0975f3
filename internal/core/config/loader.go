package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("backend.url is required")
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Auth.TokenFile == "" {
		cfg.Auth.TokenFile = ".docketd/session.json"
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 30 * time.Second
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 200
	}
	if cfg.Summarize.PollInterval == 0 {
		cfg.Summarize.PollInterval = 5 * time.Second
	}
	if cfg.Summarize.LockTTL == 0 {
		cfg.Summarize.LockTTL = 2 * time.Minute
	}
	if cfg.Summarize.MaxAttempts == 0 {
		cfg.Summarize.MaxAttempts = 3
	}
	if cfg.Probe.ProbeURL == "" {
		cfg.Probe.ProbeURL = cfg.Backend.URL + "/rest/v1/"
	}

	return &cfg, nil
}
