package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main daemon configuration
type Config struct {
	// Watched directory containing the session-log files
	WatchDir string `json:"watch_dir" mapstructure:"watch_dir"`

	// Canonical session identifier (UUID)
	CanonicalID string `json:"canonical_id" mapstructure:"canonical_id"`

	// Watch-loop tick in milliseconds
	PollIntervalMs int `json:"poll_interval_ms" mapstructure:"poll_interval_ms"`

	// Enable filesystem-event wakeups on top of polling
	WatchEvents bool `json:"watch_events" mapstructure:"watch_events"`

	// Journal configuration
	Journal JournalConfig `json:"journal" mapstructure:"journal"`

	// Gateway configuration
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Maintenance configuration
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// JournalConfig holds migration-journal configuration
type JournalConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// GatewayConfig holds viewer gateway configuration
type GatewayConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	Port    int  `json:"port" mapstructure:"port"`
}

// MaintenanceConfig holds scheduled deep-sweep configuration
type MaintenanceConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"` // five-field cron expression
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PollIntervalMs: 100,
		WatchEvents:    true,
		Journal: JournalConfig{
			Enabled: true,
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Port:    8505,
		},
		Maintenance: MaintenanceConfig{
			Enabled:  true,
			Schedule: "0 3 * * *",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  false,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
