package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultLoggerIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("before initialize", zap.String("k", "v"))
	})
}

func TestInitializeWriter(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, zapcore.InfoLevel)
	t.Cleanup(func() { set(zap.NewNop()) })

	Debug("hidden")
	Info("work completed", zap.String("tier", "basic"), zap.Int64("reward", 120))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "work completed", entry["message"])
	assert.Equal(t, "basic", entry["tier"])
	assert.Equal(t, float64(120), entry["reward"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestInitialize_ErrorFileOnlyGetsErrors(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "bot.log")
	errPath := filepath.Join(dir, "error.log")

	require.NoError(t, Initialize(Configuration{LogFile: logPath, ErrorFile: errPath, Level: "debug"}))
	t.Cleanup(func() { set(zap.NewNop()) })

	Info("ready")
	Error("store failed")
	Sync()

	all, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(all), "ready")
	assert.Contains(t, string(all), "store failed")

	errs, err := os.ReadFile(errPath)
	require.NoError(t, err)
	assert.NotContains(t, string(errs), "ready")
	assert.Contains(t, string(errs), "store failed")
}

func TestInitialize_BadPath(t *testing.T) {
	err := Initialize(Configuration{LogFile: filepath.Join(t.TempDir(), "missing", "bot.log")})
	assert.Error(t, err)
}
