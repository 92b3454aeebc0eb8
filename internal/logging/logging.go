package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"file-reaper/internal/config"
)

// New creates a logger with default settings (info level, JSON to stdout)
func New() zerolog.Logger {
	logger, _ := NewWithConfig(nil)
	return logger
}

// NewWithConfig creates a logger writing to stdout and, when configured, to a
// size-rotated log file. The returned closer releases the file handle.
func NewWithConfig(cfg *config.LoggingCfg) (zerolog.Logger, io.Closer) {
	if cfg == nil {
		cfg = &config.LoggingCfg{Level: "info"}
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if cfg.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, os.Stdout)
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to ensure log directory for %s: %v\n", cfg.File, err)
		} else {
			rotator := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			}
			writers = append(writers, rotator)
			closer = rotator
		}
	}

	return build(io.MultiWriter(writers...), cfg.Level), closer
}

// NewWriter creates a JSON logger on an arbitrary writer
func NewWriter(w io.Writer, level string) zerolog.Logger {
	return build(w, level)
}

func build(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
