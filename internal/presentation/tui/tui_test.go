package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")

	out := buf.String()
	assert.Contains(t, out, `\___/`)
	assert.Contains(t, out, "assistant v0.1.0")
	assert.NotContains(t, out, "\x1b[")
}

func TestPrintBanner_NoVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "")
	assert.NotContains(t, buf.String(), "assistant v")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)

	out, err := render("**Account**: animeutopia")
	require.NoError(t, err)
	assert.Contains(t, out, "animeutopia")
}

func TestIsInteractive(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsInteractive(f))
}
