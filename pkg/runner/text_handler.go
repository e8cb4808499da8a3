package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/utopium/chatflow/pkg/domain"
)

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// TextHandler implements the standard text-based interface.
// Quick replies are listed with a number; typing the number is the same as typing
// the label.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	mu      sync.Mutex
	replies []string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can give up on context cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff for non-fatal errors to prevent CPU spikes on persistent failure
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Output prints each bubble and numbers its quick replies.
func (h *TextHandler) Output(ctx context.Context, messages []domain.Message) error {
	for _, msg := range messages {
		output := msg.Content
		if h.Renderer != nil {
			if rendered, err := h.Renderer(msg.Content); err == nil {
				output = rendered
			}
		}
		if _, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output)); err != nil {
			return err
		}
		for i, reply := range msg.QuickReplies {
			fmt.Fprintf(h.Writer, "  [%d] %s\n", i+1, reply)
		}

		h.mu.Lock()
		h.replies = msg.QuickReplies
		h.mu.Unlock()
	}
	return nil
}

// Input reads one line. A number matching a listed quick reply is replaced by
// the reply's label.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	text, err := h.prompt(ctx, "> ")
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(h.replies) {
		return h.replies[n-1], nil
	}
	return text, nil
}

// PickFile asks for a local path. An empty line declines.
func (h *TextHandler) PickFile(ctx context.Context, req domain.FileRequest) (*domain.Attachment, error) {
	hint := "any file"
	if len(req.Accept) > 0 {
		hint = strings.Join(req.Accept, ", ")
	}
	fmt.Fprintf(h.Writer, "Path to a file (%s), or leave empty to answer in text:\n", hint)

	for {
		path, err := h.prompt(ctx, "file> ")
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(path) {
		case "":
			return nil, domain.ErrNoFileSelected
		case CommandExit, CommandQuit:
			return nil, io.EOF
		}

		att, err := LoadAttachment(path)
		if err != nil {
			fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
			continue
		}
		if !Accepts(req.Accept, att.ContentType) {
			fmt.Fprintf(h.Writer, "Error: %s is %s, expected %s. Please try again.\n", att.Name, att.ContentType, hint)
			continue
		}
		return att, nil
	}
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}

func (h *TextHandler) prompt(ctx context.Context, prefix string) (string, error) {
	h.initPump()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		fmt.Fprint(h.Writer, prefix)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}

