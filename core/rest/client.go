package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/chatkit/core/ratelimit"
	"github.com/dmitrymomot/chatkit/pkg/logger"
)

// Client is the HTTP client for the platform's REST API. Every request is
// serialized through the embedded rate limiter, so callers may fire from any
// goroutine without tracking quota themselves.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
	token      string
	userAgent  string
	logger     *slog.Logger
}

type clientOptions struct {
	httpClient  *http.Client
	logger      *slog.Logger
	limiterOpts []ratelimit.Option
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithLogger sets the logger for client and limiter events.
func WithLogger(l *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLimiterOptions forwards options to the embedded rate limiter.
func WithLimiterOptions(opts ...ratelimit.Option) ClientOption {
	return func(o *clientOptions) {
		o.limiterOpts = append(o.limiterOpts, opts...)
	}
}

// New creates a REST client from configuration.
func New(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	options := &clientOptions{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(options)
	}

	c := &Client{
		httpClient: options.httpClient,
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		userAgent:  cfg.UserAgent,
		logger:     options.logger,
	}

	limiterOpts := append([]ratelimit.Option{ratelimit.WithLogger(options.logger)}, options.limiterOpts...)
	lim, err := ratelimit.NewFromConfig(
		ratelimit.Config{MaxDelay: cfg.MaxDelay},
		ratelimit.ExecutorFunc(c.execute),
		limiterOpts...,
	)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}
	c.limiter = lim
	return c, nil
}

// Do submits one API call through the rate limiter and returns the raw
// response. body, when non-nil, is JSON-encoded.
func (c *Client) Do(ctx context.Context, route ratelimit.Route, path string, body any, opts ...RequestOption) (*ratelimit.Response, error) {
	req := &ratelimit.Request{
		ID:     uuid.New(),
		Route:  route,
		Path:   path,
		Header: http.Header{},
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		req.Body = payload
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.limiter.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("api request completed",
		logger.RequestID(req.ID.String()),
		logger.Method(route.Method),
		logger.Path(path),
		logger.StatusCode(resp.StatusCode),
		logger.Elapsed(start))
	return resp, nil
}

// DoJSON submits an API call and decodes the response body into out, which
// may be nil when the caller only cares about success. Non-2xx responses are
// returned as *APIError.
func (c *Client) DoJSON(ctx context.Context, route ratelimit.Route, path string, body, out any, opts ...RequestOption) error {
	resp, err := c.Do(ctx, route, path, body, opts...)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(resp.Body) > 0 {
			if uerr := json.Unmarshal(resp.Body, apiErr); uerr != nil {
				apiErr.Message = string(resp.Body)
			}
		}
		return apiErr
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// execute performs the raw HTTP round trip. The limiter is the only caller.
func (c *Client) execute(ctx context.Context, req *ratelimit.Request) (*ratelimit.Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Route.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.token)
	httpReq.Header.Set("User-Agent", c.userAgent)
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &ratelimit.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// Limiter exposes the embedded rate limiter for probes and stats.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Close shuts down the rate limiter, failing anything still queued.
func (c *Client) Close(ctx context.Context) error {
	return c.limiter.Shutdown(ctx)
}
