// Package logging builds the process logger. The terminal belongs to the
// UI, so log output goes to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nhle/pgportal/internal/model"
)

// New opens the configured log file and returns a JSON logger writing to
// it. The returned closer releases the file. An empty path logs nothing.
func New(cfg model.LogConfig) (zerolog.Logger, io.Closer, error) {
	zerolog.ErrorFieldName = "err"

	if strings.TrimSpace(cfg.File) == "" {
		return zerolog.Nop(), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
	}

	logger := zerolog.New(zerolog.SyncWriter(f)).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	return logger, f, nil
}

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
