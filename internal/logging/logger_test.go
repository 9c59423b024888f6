package logging

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teledb/internal/config"
)

func testLoggingConfig(t *testing.T) config.LoggingConfig {
	cfg := config.DefaultLoggingConfig()
	cfg.Dir = filepath.Join(t.TempDir(), "logs")
	return cfg
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	cfg := testLoggingConfig(t)
	cfg.File.Enabled = false

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLoggerWithFiles(t *testing.T) {
	cfg := testLoggingConfig(t)
	cfg.File.Enabled = true

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	logger.Info("hello")

	require.NoError(t, Shutdown())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	filtered := NewLevelFilter(inner, slog.LevelWarn)

	logger := slog.New(filtered)
	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
	assert.False(t, filtered.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, filtered.Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)

	logger := slog.New(multi)
	logger.Info("fan out")

	assert.Contains(t, a.String(), "fan out")
	assert.Empty(t, b.String())
}
