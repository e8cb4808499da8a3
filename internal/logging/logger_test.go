package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_StandardizesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, FormatJSON, slog.LevelInfo)

	logger.Warn("side effect failed", "error", errors.New("boom"), "bytes", []byte("secret"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["err"])
	assert.NotContains(t, entry, "error")
	assert.Equal(t, "[redacted]", entry["bytes"])
}

func TestNewWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, FormatText, slog.LevelWarn)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
