package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/utopium/chatflow/pkg/domain"
)

// Frame types written by JSONHandler.
const (
	FrameMessages    = "messages"
	FrameRequestFile = "request_file"
	FrameSystem      = "system"
)

// Frame is one line of JSONHandler output.
type Frame struct {
	Type     string              `json:"type"`
	Messages []domain.Message    `json:"messages,omitempty"`
	File     *domain.FileRequest `json:"file,omitempty"`
	Text     string              `json:"text,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Output emits the bubbles as a single frame.
func (h *JSONHandler) Output(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return h.Encoder.Encode(Frame{Type: FrameMessages, Messages: messages})
}

// Input accepts either a JSON string or a raw line of text.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	text, err := h.readLine()
	if err != nil {
		return "", err
	}

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return val, nil
	}
	return text, nil
}

// PickFile emits a request_file frame and reads the answer: an attachment object
// (data is base64), a JSON string holding a local path, or null to decline.
func (h *JSONHandler) PickFile(ctx context.Context, req domain.FileRequest) (*domain.Attachment, error) {
	if err := h.Encoder.Encode(Frame{Type: FrameRequestFile, File: &req}); err != nil {
		return nil, err
	}

	text, err := h.readLine()
	if err != nil {
		return nil, err
	}
	if text == "" || text == "null" {
		return nil, domain.ErrNoFileSelected
	}

	var path string
	if err := json.Unmarshal([]byte(text), &path); err == nil {
		if path == "" {
			return nil, domain.ErrNoFileSelected
		}
		return LoadAttachment(path)
	}

	var att domain.Attachment
	if err := json.Unmarshal([]byte(text), &att); err != nil {
		return nil, fmt.Errorf("failed to decode attachment: %w", err)
	}
	if att.Name == "" {
		return nil, fmt.Errorf("failed to decode attachment: name is required")
	}
	return &att, nil
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(Frame{Type: FrameSystem, Text: msg})
}

func (h *JSONHandler) readLine() (string, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
