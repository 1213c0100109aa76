// Package yahoo fetches daily price history from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// Config tunes the chart requests.
type Config struct {
	BaseURL   string
	Range     string
	Interval  string
	Timeout   time.Duration
	UserAgent string
}

// Client is the REST client for the chart endpoint.
type Client struct {
	baseURL    string
	rng        string
	interval   string
	userAgent  string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a chart API client.
//
// BaseURL is the API root, e.g. "https://query1.finance.yahoo.com".
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.Range == "" {
		cfg.Range = "5y"
	}
	if cfg.Interval == "" {
		cfg.Interval = "1d"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		rng:       cfg.Range,
		interval:  cfg.Interval,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

// History returns the daily bars of symbol over the configured range.
func (c *Client) History(ctx context.Context, symbol string) (domain.InstrumentHistory, error) {
	params := url.Values{}
	params.Set("range", c.rng)
	params.Set("interval", c.interval)
	params.Set("events", "div")
	path := fmt.Sprintf("/v8/finance/chart/%s?%s", url.PathEscape(symbol), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.InstrumentHistory{}, fmt.Errorf("yahoo: get chart %s: %w", symbol, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.InstrumentHistory{}, fmt.Errorf("yahoo: decode chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		return domain.InstrumentHistory{}, fmt.Errorf("yahoo: chart %s: %w: %s: %s", symbol, domain.ErrNoHistory, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Timestamp) == 0 {
		return domain.InstrumentHistory{}, fmt.Errorf("yahoo: chart %s: %w", symbol, domain.ErrNoHistory)
	}

	return resp.Chart.Result[0].toHistory(symbol, c.now().UTC()), nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	if len(bodyStr) > 256 {
		bodyStr = bodyStr[:256]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// Compile-time interface check.
var _ domain.HistoryProvider = (*Client)(nil)
