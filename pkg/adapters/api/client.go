// Package api is the HTTP client of the Utopium widget REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/utopium/chatflow/internal/logging"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
)

// Endpoint paths, relative to the API origin.
const (
	PathCaption   = "/gpt/ig-caption"
	PathUploadURL = "/upload-url"
	PathImageGen  = "/gpt/image-gen"
	PathPosts     = "/posts"
)

// maxErrorBody caps how much of an error response ends up in the message.
const maxErrorBody = 512

// ErrNotConfigured is returned when no API origin was given.
var ErrNotConfigured = errors.New("api url is not configured")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s failed with status %d", e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client implements ports.Backend over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.Backend = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithToken sends a bearer token on API calls. Uploads to pre-signed URLs never
// carry it.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger configures a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type captionRequest struct {
	Context string `json:"context"`
}

type captionResponse struct {
	Text string `json:"text"`
}

// GenerateCaption calls POST /gpt/ig-caption.
func (c *Client) GenerateCaption(ctx context.Context, topic string) (string, error) {
	var resp captionResponse
	if err := c.postJSON(ctx, PathCaption, captionRequest{Context: topic}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

type uploadURLRequest struct {
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
}

// RequestUploadURL calls POST /upload-url.
func (c *Client) RequestUploadURL(ctx context.Context, filename string, purpose domain.FilePurpose) (ports.UploadTarget, error) {
	var target ports.UploadTarget
	err := c.postJSON(ctx, PathUploadURL, uploadURLRequest{Filename: filename, Purpose: string(purpose)}, &target)
	if err != nil {
		return ports.UploadTarget{}, err
	}
	if target.UploadURL == "" {
		return ports.UploadTarget{}, fmt.Errorf("POST %s: response has no uploadUrl", PathUploadURL)
	}
	return target, nil
}

// Upload PUTs the raw bytes to the pre-signed URL without auth headers.
func (c *Client) Upload(ctx context.Context, uploadURL string, file *domain.Attachment) error {
	if file == nil {
		return domain.ErrNoFileSelected
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(file.Data))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	if file.ContentType != "" {
		req.Header.Set("Content-Type", file.ContentType)
	}

	return c.do(req, redact(uploadURL), nil)
}

type imageResponse struct {
	URL string `json:"url"`
}

// GenerateImage calls POST /gpt/image-gen.
func (c *Client) GenerateImage(ctx context.Context, in ports.ImageRequest) (string, error) {
	var resp imageResponse
	if err := c.postJSON(ctx, PathImageGen, in, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

type postResponse struct {
	ID string `json:"id"`
}

// PublishPost calls POST /posts.
func (c *Client) PublishPost(ctx context.Context, in ports.PostRequest) (string, error) {
	var resp postResponse
	if err := c.postJSON(ctx, PathPosts, in, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api call",
		"method", req.Method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: req.Method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", req.Method, path, err)
	}
	return nil
}

// redact drops the query string of a pre-signed URL, which holds its credentials.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "upload"
	}
	u.RawQuery = ""
	return u.String()
}
