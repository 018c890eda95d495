// Package binance provides the exchange price source backed by the Binance spot REST API
package binance

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/simaogato/coinfolio-bot/internal/domain"
	"github.com/simaogato/coinfolio-bot/internal/logging"
)

const (
	DefaultBaseURL    = "https://api.binance.com/api/v3"
	DefaultQuoteAsset = "USDT"
	DefaultTimeout    = 10 * time.Second
	DefaultRateLimit  = 10 // requests per second

	statusTrading = "TRADING"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,20}$`)

// Client implements domain.PriceSource
type Client struct {
	http       *resty.Client
	quoteAsset string
	limiter    *rate.Limiter
	logger     *logging.Logger
}

var _ domain.PriceSource = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the API base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
}

// WithQuoteAsset sets the suffix appended to bare tickers
func WithQuoteAsset(asset string) ClientOption {
	return func(c *Client) {
		c.quoteAsset = strings.ToUpper(asset)
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithRateLimit sets the client-side request rate
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Binance client
func NewClient(opts ...ClientOption) *Client {
	httpClient := resty.New()
	httpClient.SetBaseURL(DefaultBaseURL)
	httpClient.SetTimeout(DefaultTimeout)
	httpClient.SetHeader("Accept", "application/json")

	c := &Client{
		http:       httpClient,
		quoteAsset: DefaultQuoteAsset,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     logging.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is the error body Binance returns on 4xx/5xx responses
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Msg)
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol string `json:"symbol"`
		Status string `json:"status"`
	} `json:"symbols"`
}

type tickerPriceResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// ResolveSymbol turns user-typed text into a valid trading pair
// Logic:
//  1. Uppercase the input; if it is a valid pair, return it
//  2. Otherwise append the quote asset and test again
//  3. Otherwise return ErrSymbolNotFound
//
// An exchange error response for a candidate means "not valid".
// Failing to reach the exchange at all is reported as ErrPriceUnavailable.
func (c *Client) ResolveSymbol(ctx context.Context, raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: %q", domain.ErrSymbolNotFound, raw)
	}

	candidates := []string{symbol}
	// XUSDT+USDT is never listed, skip the extra round trip
	if !strings.HasSuffix(symbol, c.quoteAsset) {
		candidates = append(candidates, symbol+c.quoteAsset)
	}

	for _, candidate := range candidates {
		ok, err := c.isPairValid(ctx, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, symbol)
}

// isPairValid reports whether symbol is listed and trading
func (c *Client) isPairValid(ctx context.Context, symbol string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("%w: rate limit wait: %v", domain.ErrPriceUnavailable, err)
	}

	var info exchangeInfoResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&info).
		SetError(&APIError{}).
		Get("/exchangeInfo")
	if err != nil {
		if resp != nil && resp.IsError() {
			// body could not be decoded, still an error response
			return false, nil
		}
		return false, fmt.Errorf("%w: exchange unreachable: %v", domain.ErrPriceUnavailable, err)
	}

	if resp.IsError() {
		c.logger.Debug().
			Str("symbol", symbol).
			Int("status", resp.StatusCode()).
			Msg("Pair rejected by exchange")
		return false, nil
	}

	for _, s := range info.Symbols {
		if s.Symbol == symbol {
			return s.Status == statusTrading, nil
		}
	}
	return false, nil
}

// CurrentPrice returns the live price of a validated symbol
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("%w: rate limit wait: %v", domain.ErrPriceUnavailable, err)
	}

	var ticker tickerPriceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&ticker).
		SetError(&APIError{}).
		Get("/ticker/price")
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price request failed")
		return decimal.Zero, fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, symbol, err)
	}

	if resp.IsError() {
		apiErr, _ := resp.Error().(*APIError)
		c.logger.Warn().
			Str("symbol", symbol).
			Int("status", resp.StatusCode()).
			Msg("Price rejected by exchange")
		if apiErr != nil && apiErr.Msg != "" {
			return decimal.Zero, fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, symbol, apiErr)
		}
		return decimal.Zero, fmt.Errorf("%w: %s: %s", domain.ErrPriceUnavailable, symbol, http.StatusText(resp.StatusCode()))
	}

	if ticker.Price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %s: missing or non-positive price", domain.ErrPriceUnavailable, symbol)
	}

	return ticker.Price, nil
}
