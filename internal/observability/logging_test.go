package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/ticket-engine/internal/config"
)

func TestLoggerConfigFollowsEnvironment(t *testing.T) {
	dev := loggerConfig(config.AppConfig{Env: "development"}, config.LoggerConfig{Level: "debug"})
	assert.True(t, dev.Development)
	assert.Nil(t, dev.Sampling)
	assert.Equal(t, zapcore.DebugLevel, dev.Level.Level())

	prod := loggerConfig(config.AppConfig{Env: "production"}, config.LoggerConfig{Level: "nonsense"})
	assert.False(t, prod.Development)
	assert.NotNil(t, prod.Sampling)
	assert.Equal(t, zapcore.InfoLevel, prod.Level.Level())
}

func TestLoggerEntriesCarryServiceFields(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	cfg := loggerConfig(
		config.AppConfig{Name: "ticket-engine", Version: "1.4.2", Env: "production"},
		config.LoggerConfig{Level: "info"},
	)
	cfg.OutputPaths = []string{out}

	logger, err := cfg.Build()
	require.NoError(t, err)
	logger.Info("ticket opened")
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "ticket opened", entry["message"])
	assert.Equal(t, "ticket-engine", entry["service"])
	assert.Equal(t, "1.4.2", entry["version"])
	assert.Equal(t, "production", entry["env"])
	assert.Equal(t, "info", entry["level"])
}
