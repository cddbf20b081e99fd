package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobtrack/cli/internal/logging"
	"github.com/jobtrack/cli/internal/models"
	"github.com/jobtrack/cli/internal/utils"
)

// TokenSource returns the bearer token to attach, or "" for none
type TokenSource func(ctx context.Context) string

// UnauthorizedHandler is called when an authenticated request is rejected
// with 401. It runs before the error is returned to the caller.
type UnauthorizedHandler func(ctx context.Context)

// Client represents the API client
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	tokenSource    TokenSource
	onUnauthorized UnauthorizedHandler
	log            logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokenSource = ts }
}

// WithUnauthorizedHandler sets the session-invalidation callback
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Client) { c.onUnauthorized = h }
}

// WithLogger sets the request logger
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one call to the backend
type request struct {
	method string
	path   string
	body   interface{}
	authed bool
}

// do executes the request and returns the raw 2xx body.
// Non-2xx responses are returned as *utils.APIError.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var payload io.Reader
	if r.body != nil {
		jsonData, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.BaseURL+r.path, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	sentToken := false
	if r.authed && c.tokenSource != nil {
		if token := c.tokenSource(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			sentToken = true
		}
	}

	c.log.Debug(ctx, "api request", "method", r.method, "path", r.path, "request_id", requestID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug(ctx, "api response", "path", r.path, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseError(resp.StatusCode, body)
		if resp.StatusCode == http.StatusUnauthorized && sentToken && c.onUnauthorized != nil {
			c.log.Info(ctx, "session rejected by server", "path", r.path)
			c.onUnauthorized(ctx)
		}
		return nil, apiErr
	}

	return body, nil
}

// parseError normalizes a non-2xx body into an APIError carrying the
// backend's message, code and data unchanged
func parseError(status int, body []byte) *utils.APIError {
	var eb models.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return utils.NewAPIError(status, http.StatusText(status), "")
	}
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	apiErr := utils.NewAPIError(status, msg, eb.Code)
	apiErr.Data = eb.Data
	return apiErr
}

// decode unmarshals a 2xx body into out
func decode(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
