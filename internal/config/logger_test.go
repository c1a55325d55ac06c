package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Stdout(t *testing.T) {
	logger, closer, err := NewLogger("production", "")
	require.NoError(t, err)
	defer closer.Close()

	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewLogger_DevelopmentIsVerbose(t *testing.T) {
	logger, closer, err := NewLogger("development", "")
	require.NoError(t, err)
	defer closer.Close()

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewLogger_RotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facebridge.log")

	logger, closer, err := NewLogger("production", path)
	require.NoError(t, err)

	logger.Info("engine initialized", "handle", 1)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"engine initialized"`)
}
