// =============================================================================
// Downstream Reporting - Logging Setup
// =============================================================================
//
// Configures the global zerolog logger. Logs go to the console in a
// human-readable format and, once the configuration is loaded, to the
// configured log file as structured JSON. All packages log through
// the zerolog global logger.
//
// =============================================================================

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logFileHandle tracks the open log file so CloseLogFile can release it.
var logFileHandle *os.File

// InitLogger configures the global logger from the loaded configuration.
// The verbose flag forces debug level regardless of the configured one.
//
// PARAMETERS:
//   - cfg: The loaded configuration. May be nil for console-only logging.
//   - verbose: Force debug level.
//
// RETURNS:
//   - An error if the log file cannot be opened.
func InitLogger(cfg *Config, verbose bool) error {
	level := zerolog.InfoLevel
	if cfg != nil {
		parsed, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
		}
		level = parsed
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		},
	}

	CloseLogFile()

	if cfg != nil && cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFileHandle = file
		writers = append(writers, file)
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return nil
}

// CloseLogFile closes the log file, if one is open, and resets the
// global logger to console-only so later writes do not hit a closed
// file.
func CloseLogFile() {
	if logFileHandle == nil {
		return
	}
	_ = logFileHandle.Close()
	logFileHandle = nil

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).
		Level(log.Logger.GetLevel()).
		With().
		Timestamp().
		Logger()
}
