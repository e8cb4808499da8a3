package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/utopium/chatflow"
	"github.com/utopium/chatflow/internal/presentation/graph"
	"github.com/utopium/chatflow/internal/runtime"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/runner"
)

// ChatResponse mirrors the reply body of the HTTP adapter.
type ChatResponse struct {
	SessionID  string              `json:"session_id" jsonschema_description:"The session the reply belongs to"`
	Flow       string              `json:"flow" jsonschema_description:"Active flow (idle, post, caption, image)"`
	Step       string              `json:"step" jsonschema_description:"Position inside the active flow"`
	Messages   []domain.Message    `json:"messages" jsonschema_description:"Messages produced by this turn"`
	Transcript []domain.Message    `json:"transcript,omitempty" jsonschema_description:"Full transcript (chat_transcript only)"`
	Pending    *domain.FileRequest `json:"pending,omitempty" jsonschema_description:"File the session is waiting for, if any"`
}

// Engine is the part of the chat engine the MCP server drives.
type Engine interface {
	Open(ctx context.Context, sessionID string) (*chatflow.Reply, error)
	Inspect(ctx context.Context, sessionID string) (*chatflow.Reply, error)
	Submit(ctx context.Context, sessionID string, text string) (*chatflow.Reply, error)
	AttachFile(ctx context.Context, sessionID string, file *domain.Attachment) (*chatflow.Reply, error)
	Reset(ctx context.Context, sessionID string) (*chatflow.Reply, error)
}

// Server wraps the chat engine and exposes it as an MCP Server.
type Server struct {
	engine       Engine
	logger       *slog.Logger
	maxInputSize int
	mcpServer    *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMaxInputSize limits the text accepted by chat_send.
func WithMaxInputSize(limit int) Option {
	return func(s *Server) { s.maxInputSize = limit }
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    slog.Default(),
		mcpServer: server.NewMCPServer("utopium-mcp", strings.TrimSpace(chatflow.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("chat_open",
		mcp.WithDescription("Open a chat session. The greeting and main menu are shown the first time only."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[ChatResponse](),
	), mcp.NewStructuredToolHandler(s.handleOpen))

	s.mcpServer.AddTool(mcp.NewTool("chat_send",
		mcp.WithDescription("Send a message (typed text or a quick reply label) to the assistant."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
		mcp.WithOutputSchema[ChatResponse](),
	), mcp.NewStructuredToolHandler(s.handleSend))

	s.mcpServer.AddTool(mcp.NewTool("chat_attach",
		mcp.WithDescription("Attach a local file when the session is waiting for one."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to attach")),
		mcp.WithOutputSchema[ChatResponse](),
	), mcp.NewStructuredToolHandler(s.handleAttach))

	s.mcpServer.AddTool(mcp.NewTool("chat_reset",
		mcp.WithDescription("Clear the transcript and state of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[ChatResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("chat_transcript",
		mcp.WithDescription("Read the full transcript and current position of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[ChatResponse](),
	), mcp.NewStructuredToolHandler(s.handleTranscript))
}

type sessionArgs struct {
	SessionID string `mapstructure:"session_id"`
	Text      string `mapstructure:"text"`
	Path      string `mapstructure:"path"`
}

func decodeArgs(args map[string]interface{}) (sessionArgs, error) {
	var out sessionArgs
	if err := mapstructure.Decode(args, &out); err != nil {
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return out, errors.New("session_id is required")
	}
	return out, nil
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ChatResponse, error) {
	in, err := decodeArgs(args)
	if err != nil {
		return ChatResponse{}, err
	}
	reply, err := s.engine.Open(ctx, in.SessionID)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("open failed: %w", err)
	}
	return newChatResponse(reply, false), nil
}

func (s *Server) handleSend(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ChatResponse, error) {
	in, err := decodeArgs(args)
	if err != nil {
		return ChatResponse{}, err
	}

	clean, err := runner.SanitizeInput(in.Text, s.maxInputSize)
	if err != nil {
		s.logger.Warn("MCP chat_send: input rejected", "error", err, "size", len(in.Text))
		return ChatResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	if strings.TrimSpace(clean) == "" {
		return ChatResponse{}, errors.New("text is required")
	}

	reply, err := s.engine.Submit(ctx, in.SessionID, clean)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("send failed: %w", err)
	}
	return newChatResponse(reply, false), nil
}

func (s *Server) handleAttach(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ChatResponse, error) {
	in, err := decodeArgs(args)
	if err != nil {
		return ChatResponse{}, err
	}
	if in.Path == "" {
		return ChatResponse{}, errors.New("path is required")
	}

	current, err := s.engine.Inspect(ctx, in.SessionID)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("attach failed: %w", err)
	}
	if current.Pending == nil {
		return ChatResponse{}, domain.ErrUnexpectedFile
	}

	file, err := runner.LoadAttachment(in.Path)
	if err != nil {
		return ChatResponse{}, err
	}
	if !runner.Accepts(current.Pending.Accept, file.ContentType) {
		return ChatResponse{}, fmt.Errorf("%s is %s, expected %s", file.Name, file.ContentType, strings.Join(current.Pending.Accept, ", "))
	}

	reply, err := s.engine.AttachFile(ctx, in.SessionID, file)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("attach failed: %w", err)
	}
	return newChatResponse(reply, false), nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ChatResponse, error) {
	in, err := decodeArgs(args)
	if err != nil {
		return ChatResponse{}, err
	}
	reply, err := s.engine.Reset(ctx, in.SessionID)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return newChatResponse(reply, false), nil
}

func (s *Server) handleTranscript(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ChatResponse, error) {
	in, err := decodeArgs(args)
	if err != nil {
		return ChatResponse{}, err
	}
	reply, err := s.engine.Inspect(ctx, in.SessionID)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("inspect failed: %w", err)
	}
	return newChatResponse(reply, true), nil
}

func newChatResponse(reply *chatflow.Reply, withTranscript bool) ChatResponse {
	resp := ChatResponse{
		SessionID: reply.SessionID,
		Messages:  reply.Messages,
		Pending:   reply.Pending,
	}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	if snap := reply.Snapshot; snap != nil {
		resp.Flow = string(snap.State.ActiveFlow())
		resp.Step = snap.State.Position()
		if withTranscript {
			resp.Transcript = snap.Transcript
		}
	}
	return resp
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("utopium://graph", "Post creation flow",
		mcp.WithMIMEType("text/vnd.mermaid"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "utopium://graph",
			MIMEType: "text/vnd.mermaid",
			Text:     graph.GenerateMermaid(runtime.Transitions(), nil),
		},
	}, nil
}
