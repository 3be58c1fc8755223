package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"CRITICAL": LevelCritical,
		"error":    slog.LevelError,
		"WARNING":  slog.LevelWarn,
		"warn":     slog.LevelWarn,
		" Info ":   slog.LevelInfo,
		"DEBUG":    slog.LevelDebug,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("TRACE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRITICAL, ERROR, WARNING, INFO, DEBUG")
}

func TestNew_TextFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, slog.LevelError, FormatText)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Error("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "k=v")
}

func TestNew_JSONRenamesLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, slog.LevelDebug, FormatJSON)
	require.NoError(t, err)

	logger.Warn("careful")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARNING", rec["level"])
	assert.Equal(t, "careful", rec["msg"])
}

func TestNew_CriticalLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, LevelCritical, FormatText)
	require.NoError(t, err)

	logger.Error("suppressed")
	logger.Log(context.Background(), LevelCritical, "fatal")

	assert.NotContains(t, buf.String(), "suppressed")
	assert.Contains(t, buf.String(), "level=CRITICAL")
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, slog.LevelInfo, "xml")
	require.Error(t, err)
}
