// Package yahoo provides a PriceSource backed by the public Yahoo Finance
// endpoints
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/lucarosati/folio-backend/internal/domain"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second

	sourceName = "yahoo"

	// Yahoo rejects requests without a browser-like user agent
	userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
)

// Client implements domain.PriceSource against the Yahoo chart and search
// endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL, used by tests to point at a local server
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRateLimit sets the outbound request rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// chartResponse mirrors the subset of the v8 chart payload we read
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// searchResponse mirrors the subset of the v1 search payload we read
type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		Exchange  string `json:"exchange"`
		QuoteType string `json:"quoteType"`
		Currency  string `json:"currency"`
	} `json:"quotes"`
}

// FetchQuote returns the latest regular market price for a symbol
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	path := "/v8/finance/chart/" + url.PathEscape(symbol)
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	var payload chartResponse
	if err := c.get(ctx, path, params, &payload); err != nil {
		return nil, domain.NewExternalSourceError(sourceName, err)
	}

	if payload.Chart.Error != nil {
		err := fmt.Errorf("%s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description)
		return nil, domain.NewExternalSourceError(sourceName, err)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, domain.NewExternalSourceError(sourceName, fmt.Errorf("no result for symbol %q", symbol))
	}

	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, domain.NewExternalSourceError(sourceName, fmt.Errorf("no usable price for symbol %q", symbol))
	}

	return &domain.Quote{
		Symbol:   meta.Symbol,
		Price:    decimal.NewFromFloat(meta.RegularMarketPrice),
		Currency: meta.Currency,
	}, nil
}

// Search looks up instruments by name or ticker
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.TickerMatch, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", strconv.Itoa(limit))
	params.Set("newsCount", "0")

	var payload searchResponse
	if err := c.get(ctx, "/v1/finance/search", params, &payload); err != nil {
		return nil, domain.NewExternalSourceError(sourceName, err)
	}

	matches := make([]domain.TickerMatch, 0, len(payload.Quotes))
	for _, quote := range payload.Quotes {
		if quote.Symbol == "" {
			continue
		}
		name := quote.LongName
		if name == "" {
			name = quote.ShortName
		}
		matches = append(matches, domain.TickerMatch{
			Symbol:   quote.Symbol,
			Name:     name,
			Exchange: quote.Exchange,
			Type:     quote.QuoteType,
			Currency: quote.Currency,
		})
		if len(matches) == limit {
			break
		}
	}

	return matches, nil
}

// get performs a rate-limited GET request and decodes the JSON response
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
