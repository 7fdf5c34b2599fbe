// Package remote is the HTTP client for the worksite REST API. Resource
// implements types.Service for the worker and project collections, and
// Client covers authentication and health checks.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/worksite/pkg/types"
)

// HeaderRequestID carries the per-request trace ID.
const HeaderRequestID = "X-Request-ID"

// Client performs JSON requests against one worksite server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the timeout of the underlying *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse server url: %w", types.ErrServerInvalid)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: types.DefaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("remote")
	return c, nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetToken replaces the bearer token, e.g. after a login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// Login exchanges credentials for a token. The client keeps using the
// returned token for subsequent requests.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (types.AuthResult, error) {
	var res types.AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, creds, &res); err != nil {
		return types.AuthResult{}, err
	}
	c.SetToken(res.Token)
	return res, nil
}

// Register creates an account and logs in as it.
func (c *Client) Register(ctx context.Context, reg types.Registration) (types.AuthResult, error) {
	var res types.AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, reg, &res); err != nil {
		return types.AuthResult{}, err
	}
	c.SetToken(res.Token)
	return res, nil
}

// errorBody is the error payload returned by the server.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do sends one request. body, when non-nil, is encoded as JSON; out, when
// non-nil, receives the decoded JSON response. Failures are *types.RemoteError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestID := newRequestID()
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", u.Path),
			zap.Error(err),
		)
		return &types.RemoteError{RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", u.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, requestID)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &types.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("decode response: %v", err),
			RequestID:  requestID,
		}
	}
	return nil
}

// decodeError turns a non-2xx response into a *types.RemoteError.
func decodeError(resp *http.Response, requestID string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := ""
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		msg = eb.Error
		if msg == "" {
			msg = eb.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}

	if rid := resp.Header.Get(HeaderRequestID); rid != "" {
		requestID = rid
	}
	return &types.RemoteError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		RequestID:  requestID,
	}
}

// newRequestID returns a time-ordered UUID, falling back to a random one.
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
