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

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:5000"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 10 * time.Second
	}
	if cfg.Monitor.PollInterval == 0 {
		cfg.Monitor.PollInterval = 30 * time.Second
	}
	if cfg.Monitor.StartupDelay == 0 {
		cfg.Monitor.StartupDelay = 5 * time.Second
	}
	if cfg.Monitor.PollTimeout == 0 {
		cfg.Monitor.PollTimeout = 10 * time.Second
	}
	if cfg.Monitor.MaxFailures == 0 {
		cfg.Monitor.MaxFailures = 3
	}
	if cfg.Monitor.RecoveryDelay == 0 {
		cfg.Monitor.RecoveryDelay = time.Second
	}
	if cfg.Monitor.SettleDelay == 0 {
		cfg.Monitor.SettleDelay = 2 * time.Second
	}
	if cfg.Responder.Provider == "" {
		cfg.Responder.Provider = "backend"
	}
	if cfg.Responder.MinInterval == 0 {
		cfg.Responder.MinInterval = time.Second
	}
	if cfg.Camera.FrameInterval == 0 {
		cfg.Camera.FrameInterval = time.Second
	}
	if cfg.Camera.LiveWindow == 0 {
		cfg.Camera.LiveWindow = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
