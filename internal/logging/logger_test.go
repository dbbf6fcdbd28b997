package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Format: "CONSOLE"}
	cfg.Normalize()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stderr", cfg.OutputPath)

	cfg = Config{Format: "xml"}
	cfg.Normalize()
	assert.Equal(t, "json", cfg.Format)
}

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "athas.log")
	logger, err := NewLogger(Config{
		Level:      "debug",
		OutputPath: path,
		Fields:     map[string]string{"service": "test"},
	})
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `"msg":"hello"`), out)
	assert.Contains(t, out, `"service":"test"`)
}

func TestNewLoggerBadLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "athas.log")
	logger, err := NewLogger(Config{Level: "loud", OutputPath: path})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestComponentNilLogger(t *testing.T) {
	assert.NotNil(t, Component(nil, "store"))
}
