package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "reporting.log")
	cfg := Default()
	cfg.LogFile = logFile
	cfg.LogLevel = "warn"

	require.NoError(t, InitLogger(cfg, false))
	defer CloseLogFile()

	assert.Equal(t, zerolog.WarnLevel, log.Logger.GetLevel())

	log.Warn().Str("component", "logging_test").Msg("log file smoke test")
	CloseLogFile()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "log file smoke test")
}

func TestInitLogger_VerboseOverridesLevel(t *testing.T) {
	cfg := Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "reporting.log")
	cfg.LogLevel = "error"

	require.NoError(t, InitLogger(cfg, true))
	defer CloseLogFile()

	assert.Equal(t, zerolog.DebugLevel, log.Logger.GetLevel())
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "noisy"

	err := InitLogger(cfg, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log_level")
}
