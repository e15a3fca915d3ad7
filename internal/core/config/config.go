package config

import (
	"time"

	"github.com/sahayak-ai/sahayak/internal/infra/backend"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   backend.Config  `yaml:"backend"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Responder ResponderConfig `yaml:"responder"`
	Camera    CameraConfig    `yaml:"camera"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// MonitorConfig holds health monitoring timings and thresholds.
type MonitorConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`  // between status polls
	StartupDelay  time.Duration `yaml:"startup_delay"`  // before the first poll
	PollTimeout   time.Duration `yaml:"poll_timeout"`   // per status request
	MaxFailures   int           `yaml:"max_failures"`   // streak that escalates
	RecoveryDelay time.Duration `yaml:"recovery_delay"` // before a scheduled recovery
	SettleDelay   time.Duration `yaml:"settle_delay"`   // face-detection restart settle
}

// ResponderConfig holds response generation settings.
type ResponderConfig struct {
	Provider    string        `yaml:"provider"` // "backend" or "openai"
	OpenAIKey   string        `yaml:"openai_api_key"`
	MinInterval time.Duration `yaml:"min_interval"` // rate limit between remote calls
}

// CameraConfig holds webcam polling settings.
type CameraConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"` // between detection checks
	LiveWindow    time.Duration `yaml:"live_window"`    // stream considered live within
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
