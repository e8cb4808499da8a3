package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/pkg/domain"
)

func TestTextHandler_Output(t *testing.T) {
	out := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	err := handler.Output(context.Background(), []domain.Message{
		domain.BotMessage("Hello World", "yes", "no"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Rendered: Hello World\n  [1] yes\n  [2] no\n", out.String())
}

func TestTextHandler_InputMapsNumbers(t *testing.T) {
	out := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader("2\n7\n  typed  \n"), out)
	ctx := context.Background()

	require.NoError(t, handler.Output(ctx, []domain.Message{domain.BotMessage("Pick", "a", "b")}))

	val, err := handler.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", val)

	val, err = handler.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", val, "out of range numbers are plain text")

	val, err = handler.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "typed", val)

	_, err = handler.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_RepliesFollowLastMessage(t *testing.T) {
	handler := NewTextHandler(strings.NewReader("1\n"), io.Discard)
	ctx := context.Background()

	require.NoError(t, handler.Output(ctx, []domain.Message{
		domain.BotMessage("Pick", "a"),
		domain.BotMessage("Describe it."),
	}))

	val, err := handler.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestTextHandler_PickFile(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.png")
	good := filepath.Join(dir, "bg.jpg")
	require.NoError(t, os.WriteFile(good, []byte("jpeg"), 0644))

	out := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(missing+"\n"+good+"\n"), out)

	att, err := handler.PickFile(context.Background(), domain.FileRequest{Accept: []string{"image/*"}})
	require.NoError(t, err)
	assert.Equal(t, "bg.jpg", att.Name)
	assert.Equal(t, "image/jpeg", att.ContentType)
	assert.Equal(t, []byte("jpeg"), att.Data)
	assert.Contains(t, out.String(), "Please try again.")
}

func TestTextHandler_PickFileDeclined(t *testing.T) {
	handler := NewTextHandler(strings.NewReader("\nexit\n"), io.Discard)
	ctx := context.Background()

	_, err := handler.PickFile(ctx, domain.FileRequest{})
	assert.ErrorIs(t, err, domain.ErrNoFileSelected)

	_, err = handler.PickFile(ctx, domain.FileRequest{})
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_InputCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	handler := NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := handler.Input(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONHandler_Output(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := NewJSONHandler(nil, buf)

	err := handler.Output(context.Background(), []domain.Message{
		domain.BotMessage("Hello", "x"),
		domain.BotMessage("World"),
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &frame))
	assert.Equal(t, FrameMessages, frame.Type)
	require.Len(t, frame.Messages, 2)
	assert.Equal(t, []string{"x"}, frame.Messages[0].QuickReplies)

	buf.Reset()
	require.NoError(t, handler.Output(context.Background(), nil))
	assert.Empty(t, buf.String())
}

func TestJSONHandler_Input(t *testing.T) {
	handler := NewJSONHandler(strings.NewReader("\"Hello World\"\njust plain text"), nil)

	val, err := handler.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello World", val)

	val, err = handler.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "just plain text", val)

	_, err = handler.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONHandler_PickFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ref.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0644))
	quoted, err := json.Marshal(path)
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"name":"a.png","content_type":"image/png","data":"cG5n"}`,
		string(quoted),
		"null",
		`{"content_type":"image/png"}`,
	}, "\n")
	out := &bytes.Buffer{}
	handler := NewJSONHandler(strings.NewReader(input), out)
	ctx := context.Background()
	req := domain.FileRequest{Purpose: domain.PurposeReference, Accept: []string{"image/*"}}

	att, err := handler.PickFile(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "a.png", att.Name)
	assert.Equal(t, []byte("png"), att.Data)

	att, err = handler.PickFile(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ref.png", att.Name)

	_, err = handler.PickFile(ctx, req)
	assert.ErrorIs(t, err, domain.ErrNoFileSelected)

	_, err = handler.PickFile(ctx, req)
	assert.ErrorContains(t, err, "name is required")

	assert.Equal(t, 4, strings.Count(out.String(), `"type":"request_file"`))
}

func TestAccepts(t *testing.T) {
	assert.True(t, Accepts(nil, "application/pdf"))
	assert.True(t, Accepts([]string{"image/*", "video/*"}, "video/mp4"))
	assert.True(t, Accepts([]string{"image/png"}, "IMAGE/PNG"))
	assert.False(t, Accepts([]string{"image/*"}, "video/mp4"))
}

func TestLoadAttachment_SniffsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noext")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0644))

	att, err := LoadAttachment(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.ContentType)
	assert.Equal(t, "noext", att.Name)
}
