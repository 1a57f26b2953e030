package currencyfreaks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oneentry/currency-sync/internal/domain"
	"github.com/oneentry/currency-sync/internal/infrastructure/metrics"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the latest-rates endpoint
const DefaultBaseURL = "https://api.currencyfreaks.com/v2.0/rates/latest"

// Client fetches rate tables from CurrencyFreaks
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	symbols     []string
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSymbols restricts the rate table to the given currency codes
func WithSymbols(symbols ...string) Option {
	return func(c *Client) {
		c.symbols = symbols
	}
}

// WithRateLimit throttles requests; rps <= 0 leaves them unthrottled
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records requests on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new CurrencyFreaks client
func NewClient(apiKey, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:  apiKey,
		baseURL: baseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRates returns the latest rate table. Rates are relative to the
// provider's pivot currency and may arrive as numbers or numeric strings.
func (c *Client) LatestRates(ctx context.Context) (*domain.RatesResponse, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	if len(c.symbols) > 0 {
		params.Set("symbols", strings.Join(c.symbols, ","))
	}
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting latest rates", "endpoint", c.baseURL)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRequest("rates", http.MethodGet, 0, time.Since(start))
		return nil, fmt.Errorf("%w: %w", domain.ErrRateProviderFailure, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordRequest("rates", http.MethodGet, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrRateProviderFailure, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rates domain.RatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", domain.ErrRateProviderFailure, err)
	}

	return &rates, nil
}

var _ domain.RateProvider = (*Client)(nil)
