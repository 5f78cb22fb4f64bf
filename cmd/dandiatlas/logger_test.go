package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npratt/dandiatlas/internal/config"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func debugConfig(t *testing.T, path string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DebugLog = path
	cfg.Data.Source = "/srv/atlas"
	return cfg
}

func TestOpenDebugLog_WritesSessionFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")

	debug, err := openDebugLog(debugConfig(t, path), slog.LevelInfo)
	require.NoError(t, err)
	assert.Equal(t, path, debug.Path())

	debug.Info("mesh chunk", "elapsed", 1500*time.Millisecond)
	require.NoError(t, debug.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "mesh chunk")
	assert.Contains(t, string(content), `"data":"/srv/atlas"`)
	assert.Contains(t, string(content), `"version":"dev"`)
	assert.Contains(t, string(content), `"elapsed":"1.5s"`)
}

func TestOpenDebugLog_RespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)

	debug, err := openDebugLog(debugConfig(t, path), level)
	require.NoError(t, err)

	debug.Info("quiet")
	debug.Warn("loud")
	require.NoError(t, debug.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "quiet")
	assert.Contains(t, string(content), "loud")
}

func TestOpenDebugLog_BadDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := openDebugLog(debugConfig(t, filepath.Join(file, "debug.log")), slog.LevelInfo)
	require.Error(t, err)
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelDebug)

	logger.Debug("debug line", "n", 1, "took", 20*time.Millisecond)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), "expected JSON output, got %q", out)
	assert.Contains(t, out, "debug line")
	assert.Contains(t, out, `"took":"20ms"`)
}

func TestDebugLog_CloseNil(t *testing.T) {
	var d *debugLog
	assert.NoError(t, d.Close())
}
