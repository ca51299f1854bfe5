// Package client provides a REST client for the support backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raphaelgruber/supportdesk/internal/metrics"
)

// TokenStore holds the admin bearer token between runs.
type TokenStore interface {
	Token() string
	ClearToken() error
}

// Options configures a Client. Only BaseURL is required.
type Options struct {
	BaseURL string
	// Timeout for a whole request; 0 means 30s.
	Timeout time.Duration
	// Tokens supplies the bearer token. May be nil for anonymous use (chat).
	Tokens  TokenStore
	Metrics *metrics.Collector
	Logger  *slog.Logger
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to the support backend over JSON/HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// New creates a new client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     opts.Tokens,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// BaseURL returns the backend address this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes a single call to the backend.
type request struct {
	op          string // metrics operation name
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string

	// size of body when it is not a type net/http can measure
	contentLength int64
}

// doJSON marshals in (when non-nil) as the request body and decodes the
// response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	req := request{op: op, method: method, path: path}
	if in != nil {
		reqBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.body = bytes.NewReader(reqBody)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

// do sends the request, attaching the bearer token if one is stored.
// Any 401 clears the stored token.
func (c *Client) do(ctx context.Context, r request, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordCall(r.op, time.Since(start), err)
	}()

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, r.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if r.contentLength > 0 {
		req.ContentLength = r.contentLength
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: r.op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.clearToken()
		}
		return newServiceError(r.op, resp.StatusCode, body)
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unmarshal %s response: %w", r.op, err)
		}
	}

	c.logger.Debug("request completed",
		"op", r.op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (c *Client) clearToken() {
	c.metrics.Inc(metrics.EventUnauthorized)
	if c.tokens == nil || c.tokens.Token() == "" {
		return
	}
	if err := c.tokens.ClearToken(); err != nil {
		c.logger.Warn("failed to clear stored token", "error", err)
		return
	}
	c.logger.Info("stored token cleared after 401")
}
