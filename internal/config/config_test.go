package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 100, cfg.PollIntervalMs)
	assert.True(t, cfg.WatchEvents)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 8505, cfg.Gateway.Port)
	assert.Equal(t, "0 3 * * *", cfg.Maintenance.Schedule)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.PollIntervalMs)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.Logging.File)
	assert.NotEmpty(t, cfg.Journal.Path)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "unilog.json")

	content := `{
		"watch_dir": "/var/sessions",
		"canonical_id": "0f47ac10-58cc-4372-a567-0e02b2c3d479",
		"poll_interval_ms": 250,
		"watch_events": false,
		"gateway": {"enabled": false, "port": 9000},
		"logging": {"level": "debug"},
		"data_dir": "/var/lib/unilog"
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/var/sessions", cfg.WatchDir)
	assert.Equal(t, "0f47ac10-58cc-4372-a567-0e02b2c3d479", cfg.CanonicalID)
	assert.Equal(t, 250, cfg.PollIntervalMs)
	assert.False(t, cfg.WatchEvents)
	assert.False(t, cfg.Gateway.Enabled)
	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join("/var/lib/unilog", "unilog.log"), cfg.Logging.File)
	assert.Equal(t, filepath.Join("/var/lib/unilog", "journal.db"), cfg.Journal.Path)
}

func TestLoad_InvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "unilog.json")
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "unilog.json")

	cfg := DefaultConfig()
	cfg.WatchDir = "/tmp/sessions"
	cfg.CanonicalID = uuid.New().String()
	cfg.DataDir = "/tmp/unilog-data"

	loader := NewLoader(configPath)
	require.NoError(t, loader.Save(cfg))

	reloaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.WatchDir, reloaded.WatchDir)
	assert.Equal(t, cfg.CanonicalID, reloaded.CanonicalID)
	assert.Equal(t, cfg.PollIntervalMs, reloaded.PollIntervalMs)
}

func TestConfig_String(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()
	assert.Contains(t, s, "poll_interval_ms")
}
