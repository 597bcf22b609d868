package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the whole configuration
func (v *Validator) Validate(cfg *Config) error {
	if err := v.ValidateWatchDir(cfg.WatchDir); err != nil {
		return err
	}
	if err := v.ValidateCanonicalID(cfg.CanonicalID); err != nil {
		return err
	}
	if err := v.ValidatePollInterval(cfg.PollIntervalMs); err != nil {
		return err
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if cfg.Gateway.Enabled {
		if err := v.ValidatePort(cfg.Gateway.Port); err != nil {
			return err
		}
	}
	if cfg.Maintenance.Enabled {
		if err := v.ValidateSchedule(cfg.Maintenance.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// ValidateWatchDir checks that the watched directory exists
func (v *Validator) ValidateWatchDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("watch_dir cannot be empty")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch_dir unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch_dir is not a directory: %s", dir)
	}

	return nil
}

// ValidateCanonicalID checks the canonical session identifier
func (v *Validator) ValidateCanonicalID(id string) error {
	if id == "" {
		return fmt.Errorf("canonical_id cannot be empty")
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("canonical_id is not a valid UUID: %w", err)
	}
	if parsed == uuid.Nil {
		return fmt.Errorf("canonical_id cannot be the nil UUID")
	}

	return nil
}

// ValidatePollInterval checks the watch-loop tick
func (v *Validator) ValidatePollInterval(ms int) error {
	if ms <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", ms)
	}
	if ms > 60000 {
		return fmt.Errorf("poll_interval_ms too large (max 60000), got %d", ms)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", level)
}

// ValidatePort validates a TCP port
func (v *Validator) ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}

// ValidateSchedule validates a five-field cron expression
func (v *Validator) ValidateSchedule(expr string) error {
	if expr == "" {
		return fmt.Errorf("maintenance schedule cannot be empty")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}
