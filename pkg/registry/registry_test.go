package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/pkg/domain"
)

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", func(_ context.Context, args map[string]any) (string, error) {
		s, _ := args["text"].(string)
		return s, nil
	})

	out, err := r.Execute(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, err = r.Execute(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownTool)
	assert.EqualError(t, err, "unknown tool: missing")
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register("b", func(context.Context, map[string]any) (string, error) { return "", boom })
	r.Register("a", func(context.Context, map[string]any) (string, error) { return "first", nil })
	r.Register("a", func(context.Context, map[string]any) (string, error) { return "second", nil })

	out, err := r.Execute(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	_, err = r.Execute(context.Background(), "b", nil)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"a", "b"}, r.Names())
}
