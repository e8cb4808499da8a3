package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/utopium/chatflow"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/runner"
)

// DefaultMaxFileSize bounds multipart uploads (64MB, enough for a short video).
const DefaultMaxFileSize int64 = 64 << 20

// Engine is the part of chatflow.Engine the server drives.
type Engine interface {
	Open(ctx context.Context, sessionID string) (*chatflow.Reply, error)
	Inspect(ctx context.Context, sessionID string) (*chatflow.Reply, error)
	Submit(ctx context.Context, sessionID string, text string) (*chatflow.Reply, error)
	AttachFile(ctx context.Context, sessionID string, file *domain.Attachment) (*chatflow.Reply, error)
	Reset(ctx context.Context, sessionID string) (*chatflow.Reply, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// Server exposes the chat engine to the widget over HTTP.
type Server struct {
	Engine  Engine
	Streams *StreamManager
	Logger  *slog.Logger

	MaxInputSize int
	MaxFileSize  int64

	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager. Register its Listen method on the engine
// with chatflow.WithChangeListener so SSE clients see every persist.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithLogger sets the request logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMaxInputSize caps the size of a message in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.MaxInputSize = n
	}
}

// WithMaxFileSize caps the size of an uploaded file in bytes.
func WithMaxFileSize(n int64) Option {
	return func(s *Server) {
		s.MaxFileSize = n
	}
}

// WithMetrics mounts a Prometheus handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	s := &Server{
		Engine:       engine,
		MaxInputSize: runner.DefaultMaxInputSize,
		MaxFileSize:  DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	validator, err := newRequestValidator(s)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(validator.Middleware)

		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo)
		r.Get("/sessions", s.ListSessions)
		r.Post("/sessions", s.OpenSession)

		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Get("/", s.withSession(s.GetSession))
			r.Delete("/", s.withSession(s.DeleteSession))
			r.Post("/messages", s.withSession(s.SubmitMessage))
			r.Post("/files", s.withSession(s.AttachFile))
			r.Post("/reset", s.withSession(s.ResetSession))
			r.Get("/events", s.withSession(s.SubscribeEvents))
		})
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Utopium Chat API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// withSession binds the sessionId path parameter.
func (s *Server) withSession(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		err := runtime.BindStyledParameterWithOptions("simple", "sessionId", chi.URLParam(r, "sessionId"), &sessionID, runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid format for parameter sessionId: %w", err))
			return
		}
		fn(w, r, sessionID)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"app":         "utopium-http",
		"version":     strings.TrimSpace(chatflow.Version),
		"api_version": apiVersion,
	})
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.List(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string][]string{"sessions": ids})
}

// OpenSession handles the POST /sessions request.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.SessionID == "" {
		body.SessionID = uuid.NewString()
	}

	reply, err := s.Engine.Open(r.Context(), body.SessionID)
	s.respond(w, r, reply, err, true)
}

// GetSession handles the GET /sessions/{sessionId} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	reply, err := s.Engine.Inspect(r.Context(), sessionID)
	s.respond(w, r, reply, err, true)
}

// DeleteSession handles the DELETE /sessions/{sessionId} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.Engine.Delete(r.Context(), sessionID); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitMessage handles the POST /sessions/{sessionId}/messages request.
func (s *Server) SubmitMessage(w http.ResponseWriter, r *http.Request, sessionID string) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	text, err := runner.SanitizeInput(strings.TrimSpace(body.Text), s.MaxInputSize)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if text == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("text is required"))
		return
	}

	reply, err := s.Engine.Submit(r.Context(), sessionID, text)
	s.respond(w, r, reply, err, false)
}

// AttachFile handles the POST /sessions/{sessionId}/files request.
func (s *Server) AttachFile(w http.ResponseWriter, r *http.Request, sessionID string) {
	file, status, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, status, err)
		return
	}

	current, err := s.Engine.Inspect(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if current.Pending == nil {
		s.writeError(w, r, http.StatusConflict, domain.ErrUnexpectedFile)
		return
	}
	if !runner.Accepts(current.Pending.Accept, file.ContentType) {
		s.writeError(w, r, http.StatusUnsupportedMediaType,
			fmt.Errorf("%s is not one of %s", file.ContentType, strings.Join(current.Pending.Accept, ", ")))
		return
	}

	reply, err := s.Engine.AttachFile(r.Context(), sessionID, file)
	s.respond(w, r, reply, err, false)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*domain.Attachment, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxFileSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", maxErr.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("invalid multipart body: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("missing file part: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read file part: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	return &domain.Attachment{Name: header.Filename, ContentType: contentType, Data: data}, http.StatusOK, nil
}

// ResetSession handles the POST /sessions/{sessionId}/reset request.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	reply, err := s.Engine.Reset(r.Context(), sessionID)
	s.respond(w, r, reply, err, false)
}

// SubscribeEvents handles the GET /sessions/{sessionId}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, sessionID string) {
	var watch *string
	if err := runtime.BindQueryParameter("form", true, false, "watch", r.URL.Query(), &watch); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid format for parameter watch: %w", err))
		return
	}
	filter := parseWatch(watch)

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()
	s.Logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !filter.keep(msg) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// replyBody is the wire form of chatflow.Reply. File bytes never leave the server.
type replyBody struct {
	SessionID  string              `json:"session_id"`
	Flow       domain.Flow         `json:"flow"`
	Step       string              `json:"step"`
	Version    int                 `json:"version"`
	Data       map[string]string   `json:"data,omitempty"`
	Messages   []domain.Message    `json:"messages"`
	Transcript []domain.Message    `json:"transcript,omitempty"`
	Pending    *domain.FileRequest `json:"pending,omitempty"`
}

func newReplyBody(reply *chatflow.Reply, withTranscript bool) replyBody {
	state := reply.Snapshot.State
	body := replyBody{
		SessionID: reply.SessionID,
		Flow:      state.ActiveFlow(),
		Step:      state.Position(),
		Version:   state.Version,
		Data:      state.Data,
		Messages:  reply.Messages,
		Pending:   reply.Pending,
	}
	if body.Messages == nil {
		body.Messages = []domain.Message{}
	}
	if withTranscript {
		body.Transcript = reply.Snapshot.Transcript
	}
	return body
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, reply *chatflow.Reply, err error, withTranscript bool) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrUnexpectedFile) {
			status = http.StatusConflict
		}
		s.writeError(w, r, status, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newReplyBody(reply, withTranscript))
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "path", r.URL.Path, "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.Logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, r, status, map[string]string{"error": err.Error()})
}
