package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/blackmichael/karma-feed/internal/domain"
	"github.com/google/uuid"
)

const (
	defaultBaseURL = "http://localhost:8000/api"
	defaultTimeout = 30 * time.Second
)

// Client is the REST client for the feed backend. Every authenticated call
// reads the access credential from the credential store and sends it as a
// bearer token. A 401 on any authenticated call clears the store and runs
// the registered unauthorized handlers before the error is returned.
//
// The client never retries; a failed call fails exactly once.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	creds      domain.CredentialStore
	logger     *slog.Logger

	mu             sync.Mutex
	onUnauthorized []func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is used
// as given; WithTimeout does not change it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the HTTP client created by
// NewClient. It has no effect when WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new API client. If baseURL is empty, it defaults to
// http://localhost:8000/api.
func NewClient(baseURL string, creds domain.CredentialStore, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		creds:   creds,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}
	return c
}

// OnUnauthorized registers fn to run after a 401 response has cleared the
// stored credentials.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

// request describes one backend call.
type request struct {
	method string
	path   string
	body   any
	result any

	// anonymous calls carry no bearer token and never trigger the
	// unauthorized side effect. Used for login and registration so that a
	// failed attempt leaves an existing session alone.
	anonymous bool
}

// do sends the request and returns the HTTP status. Non-2xx responses come
// back as *StatusError together with their status.
func (c *Client) do(ctx context.Context, r request) (int, error) {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	if !r.anonymous {
		creds, err := c.creds.Load(ctx)
		if err != nil {
			return 0, fmt.Errorf("load credentials: %w", err)
		}
		if creds.Access != "" {
			req.Header.Set("Authorization", "Bearer "+creds.Access)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			"method", r.method,
			"path", r.path,
			"request_id", requestID,
			"error", err,
		)
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("api request",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{
			Method: r.method,
			Path:   r.path,
			Status: resp.StatusCode,
			Body:   respBody,
		}
		if resp.StatusCode == http.StatusUnauthorized && !r.anonymous {
			c.handleUnauthorized(ctx, requestID)
		}
		return resp.StatusCode, statusErr
	}

	if r.result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, r.result); err != nil {
			return resp.StatusCode, fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// handleUnauthorized clears both stored credentials and notifies the
// registered handlers. It runs even if the request context is already
// cancelled.
func (c *Client) handleUnauthorized(ctx context.Context, requestID string) {
	c.logger.Warn("backend rejected credentials, signing out", "request_id", requestID)

	if err := c.creds.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("failed to clear credentials", "error", err)
	}

	c.mu.Lock()
	handlers := make([]func(), len(c.onUnauthorized))
	copy(handlers, c.onUnauthorized)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}
