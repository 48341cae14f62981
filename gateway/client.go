// Package gateway is a thin HTTP client for the LLM gateway's admin API.
//
// Every call carries the bearer token of the current session when there is
// one. Failures are returned as *Error (the server answered) or wrap
// ErrUnreachable (it did not); the client never retries.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmcleod/switchboard/internal/uuid"
)

const maxResponseSize = 4 << 20

// TokenSource supplies the bearer token to attach to outgoing requests.
// An empty token means the request is sent without Authorization.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// Client calls the gateway HTTP API.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func(token string)
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The default has no
// timeout; a hung request is bounded only by the caller's context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithUnauthorizedHandler registers fn to run when a request that carried a
// bearer token is rejected with 401. fn receives the token that was sent,
// which may no longer be current. Public auth endpoints never trigger it.
func WithUnauthorizedHandler(fn func(token string)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a Client for the gateway rooted at baseURL
// (for example "http://localhost:8000/api/v1").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "gateway")
	return c
}

// BaseURL returns the gateway root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends body (JSON-encoded when non-nil) to path and decodes a successful
// response into out (when non-nil and the response has a body).
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, body, out, false)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, public bool) error {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case rawJSON:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	requestID := uuid.New()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var token string
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("gateway request failed",
			"method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrUnreachable, err)
	}

	c.logger.Debug("gateway request",
		"method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, data)
		if resp.StatusCode == http.StatusUnauthorized && token != "" && !public && c.onUnauthorized != nil {
			c.logger.Info("gateway rejected bearer token", "method", method, "path", path)
			c.onUnauthorized(token)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
