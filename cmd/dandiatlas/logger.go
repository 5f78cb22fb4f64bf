package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/npratt/dandiatlas/internal/config"
)

// debugLog is the rotating file logger that replaces stderr while the
// browser owns the terminal.
type debugLog struct {
	*slog.Logger
	w    *lumberjack.Logger
	path string
}

// openDebugLog opens cfg.Paths.DebugLog for a browse session. Every
// record carries the version and data source so lines from different
// sessions in the same file can be told apart.
func openDebugLog(cfg *config.Config, level slog.Leveler) (*debugLog, error) {
	path := cfg.Paths.DebugLog
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	rot := cfg.LogRotation
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}

	logger := newJSONLogger(w, level).With(
		"version", version,
		"data", cfg.Data.Source,
	)
	return &debugLog{Logger: logger, w: w, path: path}, nil
}

// Writer returns the rotating file for callers that report errors as
// plain text.
func (d *debugLog) Writer() io.Writer { return d.w }

// Path returns the file the log writes to.
func (d *debugLog) Path() string { return d.path }

// Close flushes and closes the underlying file.
func (d *debugLog) Close() error {
	if d == nil || d.w == nil {
		return nil
	}
	return d.w.Close()
}

// newJSONLogger builds the JSON logger used on stderr and in the debug
// log. Durations are written as text ("1.5s") rather than nanoseconds.
func newJSONLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindDuration {
				return slog.String(a.Key, a.Value.Duration().Round(time.Millisecond).String())
			}
			return a
		},
	}))
}
