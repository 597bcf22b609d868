package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WatchDir = t.TempDir()
	cfg.CanonicalID = uuid.New().String()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(validTestConfig(t)))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config, t *testing.T)
	}{
		{
			name:   "empty watch dir",
			mutate: func(cfg *Config, _ *testing.T) { cfg.WatchDir = "" },
		},
		{
			name:   "missing watch dir",
			mutate: func(cfg *Config, _ *testing.T) { cfg.WatchDir = "/no/such/dir" },
		},
		{
			name: "watch dir is a file",
			mutate: func(cfg *Config, t *testing.T) {
				path := filepath.Join(t.TempDir(), "file")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				cfg.WatchDir = path
			},
		},
		{
			name:   "empty canonical id",
			mutate: func(cfg *Config, _ *testing.T) { cfg.CanonicalID = "" },
		},
		{
			name:   "malformed canonical id",
			mutate: func(cfg *Config, _ *testing.T) { cfg.CanonicalID = "not-a-uuid" },
		},
		{
			name:   "nil canonical id",
			mutate: func(cfg *Config, _ *testing.T) { cfg.CanonicalID = uuid.Nil.String() },
		},
		{
			name:   "zero poll interval",
			mutate: func(cfg *Config, _ *testing.T) { cfg.PollIntervalMs = 0 },
		},
		{
			name:   "huge poll interval",
			mutate: func(cfg *Config, _ *testing.T) { cfg.PollIntervalMs = 120000 },
		},
		{
			name:   "bad log level",
			mutate: func(cfg *Config, _ *testing.T) { cfg.Logging.Level = "verbose" },
		},
		{
			name:   "bad gateway port",
			mutate: func(cfg *Config, _ *testing.T) { cfg.Gateway.Port = 0 },
		},
		{
			name:   "bad maintenance schedule",
			mutate: func(cfg *Config, _ *testing.T) { cfg.Maintenance.Schedule = "every day at 3" },
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tt.mutate(cfg, t)
			assert.Error(t, v.Validate(cfg))
		})
	}
}

func TestValidate_DisabledSubsystemsSkipped(t *testing.T) {
	v := NewValidator()

	cfg := validTestConfig(t)
	cfg.Gateway.Enabled = false
	cfg.Gateway.Port = 0
	cfg.Maintenance.Enabled = false
	cfg.Maintenance.Schedule = ""

	assert.NoError(t, v.Validate(cfg))
}
