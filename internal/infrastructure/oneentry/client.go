package oneentry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oneentry/currency-sync/internal/domain"
	"github.com/oneentry/currency-sync/internal/infrastructure/metrics"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	apiPrefix    = "/api/developer/"
	refreshPath  = "/auth/refresh"
	loginPath    = "auth/login"
	maxErrorBody = 512
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=oneentry_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials are the developer account used for the initial login
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Client talks to the OneEntry developer API with bearer-token auth.
// A 401 triggers a single refresh and replay of the failed request.
type Client struct {
	host       string
	baseURL    string
	httpClient HTTPClient
	tokens     *TokenStore
	limiter    *rate.Limiter
	refreshes  singleflight.Group
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit throttles outgoing requests. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records every request on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for host without logging in
func NewClient(host string, opts ...Option) *Client {
	host = strings.TrimRight(host, "/")
	c := &Client{
		host:       host,
		baseURL:    host + apiPrefix,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     &TokenStore{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect creates a client and logs in with creds
func Connect(ctx context.Context, host string, creds Credentials, opts ...Option) (*Client, error) {
	c := NewClient(host, opts...)
	if err := c.Login(ctx, creds); err != nil {
		return nil, err
	}
	return c, nil
}

// Login exchanges credentials for a token pair
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	var pair TokenPair
	resp, err := c.send(ctx, http.MethodPost, c.baseURL+loginPath, mustJSON(creds), "")
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := decodeResponse(resp, http.MethodPost, loginPath, &pair); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if pair.AccessToken == "" {
		return fmt.Errorf("login: %w: empty access token", domain.ErrUnauthorized)
	}
	c.tokens.Set(pair)
	c.logger.Info("logged in to developer API", "host", c.host)
	return nil
}

// Tokens exposes the token store
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// Get issues a GET against path relative to the developer API base
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with body encoded as JSON
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with body encoded as JSON
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	reqURL := c.baseURL + strings.TrimLeft(path, "/")
	token := c.tokens.Get().AccessToken

	resp, err := c.send(ctx, method, reqURL, payload, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp)
		c.logger.Debug("access token rejected, refreshing", "method", method, "path", path)

		token, err = c.refresh(ctx, token)
		if err != nil {
			return err
		}
		if resp, err = c.send(ctx, method, reqURL, payload, token); err != nil {
			return err
		}
	}

	return decodeResponse(resp, method, path, out)
}

// refresh obtains a new pair unless another caller already replaced stale.
// Concurrent refreshes share a single request.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	if current := c.tokens.Get().AccessToken; current != stale {
		return current, nil
	}

	v, err, _ := c.refreshes.Do("refresh", func() (any, error) {
		if current := c.tokens.Get(); current.AccessToken != stale {
			return current.AccessToken, nil
		}

		body := mustJSON(map[string]string{"refreshToken": c.tokens.Get().RefreshToken})
		resp, err := c.send(ctx, http.MethodPost, c.host+refreshPath, body, "")
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrTokenRefresh, err)
		}

		var pair TokenPair
		if err := decodeResponse(resp, http.MethodPost, refreshPath, &pair); err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrTokenRefresh, err)
		}
		if pair.AccessToken == "" {
			return "", fmt.Errorf("%w: empty access token", domain.ErrTokenRefresh)
		}

		c.tokens.Set(pair)
		c.logger.Info("access token refreshed")
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// send performs one HTTP round trip. The caller owns the response body.
func (c *Client) send(ctx context.Context, method, reqURL string, payload []byte, token string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRequest("catalog", method, 0, time.Since(start))
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogAPIFailure, err)
	}
	c.metrics.RecordRequest("catalog", method, resp.StatusCode, time.Since(start))

	return resp, nil
}

// decodeResponse closes resp and decodes a 2xx body into out (if non-nil)
func decodeResponse(resp *http.Response, method, path string, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
