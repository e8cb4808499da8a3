package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler used by NewWriter.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New creates a configured application logger.
// It writes to Stderr (to separate from the chat transcript on Stdout).
func New(level slog.Level) *slog.Logger {
	return NewWriter(os.Stderr, FormatText, level)
}

// NewWriter creates a logger on w. Keys are standardized (e.g., "error" -> "err")
// and attachment payloads are never written.
func NewWriter(w io.Writer, format Format, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case "error":
		a.Key = "err"
	case "file_data", "bytes":
		if _, ok := a.Value.Any().([]byte); ok {
			return slog.String(a.Key, "[redacted]")
		}
	}
	return a
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
