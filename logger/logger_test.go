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

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"INFO":    zap.InfoLevel,
		" warn ":  zap.WarnLevel,
		"warning": zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"verbose": zap.DebugLevel,
		"":        zap.DebugLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestBuildWritesFilesAndConsole(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Dir = dir
	cfg.File = "test.log"

	var console bytes.Buffer
	log, level, err := build(cfg, &console)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("inference complete", zap.Int("detections", 3))
	log.Error("inference failed")
	require.NoError(t, log.Sync())

	main, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(main)), "\n")
	require.Len(t, lines, 2, "debug is below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "inference complete", entry["msg"])
	assert.EqualValues(t, 3, entry["detections"])

	errs, err := os.ReadFile(filepath.Join(dir, "error_test.log"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(errs), "\n"))
	assert.Contains(t, string(errs), "inference failed")

	assert.Contains(t, console.String(), "inference complete")
	assert.NotContains(t, console.String(), "hidden")

	level.SetLevel(zap.DebugLevel)
	log.Debug("now visible")
	assert.Contains(t, console.String(), "now visible")
}

func TestBuildWithoutOutputs(t *testing.T) {
	log, _, err := build(Config{Level: "info"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, log)
	log.Info("discarded")
}

func TestBuildBadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, _, err := build(Config{Dir: filepath.Join(file, "sub")}, nil)
	assert.Error(t, err)
}
