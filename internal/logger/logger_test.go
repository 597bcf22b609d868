package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "unilog.log")

	l, err := New(Config{Level: "debug", File: logPath})
	require.NoError(t, err)
	defer l.Close()

	zl := l.GetZerolog()
	zl.Info().Str("component", "test").Msg("hello")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), "hello")
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "unilog.log")

	l, err := New(Config{Level: "nonsense", File: logPath})
	require.NoError(t, err)
	defer l.Close()

	zl := l.GetZerolog()
	zl.Debug().Msg("dropped")
	zl.Info().Msg("kept")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNew_LevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "unilog.log")

	l, err := New(Config{Level: "error", File: logPath})
	require.NoError(t, err)
	defer l.Close()

	zl := l.GetZerolog()
	zl.Warn().Msg("warn message")
	zl.Error().Msg("error message")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "warn message")
	assert.Contains(t, string(data), "error message")
}

func TestWith_ChildContext(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "unilog.log")

	l, err := New(Config{Level: "info", File: logPath})
	require.NoError(t, err)
	defer l.Close()

	child := l.With().Str("stray", "x.jsonl").Logger()
	child.Info().Msg("tagged")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"stray":"x.jsonl"`))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
}
