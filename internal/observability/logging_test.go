package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/dungeon/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel), "debug must be enabled")
}

func TestNewLogger_LevelFilters(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel), "info must be filtered at warn")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_ConsoleColourOnlyForTerminal(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "console"}

	var plain bytes.Buffer
	logger, err := newLogger(cfg, zapcore.AddSync(&plain), false)
	require.NoError(t, err)
	logger.Warn("flood: life ended")
	assert.Contains(t, plain.String(), "WARN\tflood: life ended")
	assert.NotContains(t, plain.String(), "\x1b[")

	var tty bytes.Buffer
	logger, err = newLogger(cfg, zapcore.AddSync(&tty), true)
	require.NoError(t, err)
	logger.Warn("flood: life ended")
	assert.Contains(t, tty.String(), "\x1b[")
}

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf), true)
	require.NoError(t, err)
	logger.Info("run finished", zap.String("state", "won"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "won", entry["state"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T`, entry["ts"])
	assert.NotContains(t, buf.String(), "\x1b[", "json never colours")
}

func TestNewLogger_CallerOnlyAtDebug(t *testing.T) {
	var debug, info bytes.Buffer
	l, err := newLogger(config.LoggingConfig{Level: "debug", Format: "json"}, zapcore.AddSync(&debug), false)
	require.NoError(t, err)
	l.Info("x")
	l, err = newLogger(config.LoggingConfig{Level: "info", Format: "json"}, zapcore.AddSync(&info), false)
	require.NoError(t, err)
	l.Info("x")

	assert.Contains(t, debug.String(), `"caller"`)
	assert.NotContains(t, info.String(), `"caller"`)
}
