// Package quote looks up the latest stock price from Alpha Vantage's
// GLOBAL_QUOTE endpoint.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co"
	pricePath      = `$["Global Quote"]["05. price"]`
	cacheTTL       = time.Minute
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("quote API key is not configured")

type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *cache.LRUCache[Quote]
	logger  *log.Logger
}

func NewClient(baseURL, apiKey string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache.NewLRUCache[Quote](128, cacheTTL),
		logger:  logger.WithComponent(log.ComponentQuote),
	}
}

// Cache exposes the quote cache so a cache.Manager can sweep it.
func (c *Client) Cache() cache.Cleaner {
	return c.cache
}

// Lookup returns the latest price for symbol. The symbol is upper-cased.
func (c *Client) Lookup(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, core.Invalid("symbol", errors.New("symbol is required"))
	}
	if c.apiKey == "" {
		return Quote{}, ErrMissingAPIKey
	}
	if q, ok := c.cache.Get(symbol); ok {
		return q, nil
	}

	q := url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
		"apikey":   {c.apiKey},
	}
	var body any
	if err := c.get(ctx, c.baseURL+"/query?"+q.Encode(), &body); err != nil {
		c.logger.WarnContext(ctx, "Quote lookup failed", log.FieldSymbol, symbol, log.FieldError, err)
		return Quote{}, &core.UpstreamError{Service: "quote", Err: err}
	}
	price, err := extractPrice(body)
	if err != nil {
		c.logger.WarnContext(ctx, "Quote response unusable", log.FieldSymbol, symbol, log.FieldError, err)
		return Quote{}, &core.UpstreamError{Service: "quote", Err: err}
	}
	out := Quote{Symbol: symbol, Price: price}
	c.cache.Set(symbol, out)
	return out, nil
}

// extractPrice pulls the "05. price" string out of a GLOBAL_QUOTE body.
func extractPrice(body any) (decimal.Decimal, error) {
	v, err := jsonpath.Get(pricePath, body)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price not found: %w", err)
	}
	if list, ok := v.([]any); ok && len(list) > 0 {
		v = list[0]
	}
	var s string
	switch p := v.(type) {
	case string:
		s = p
	case float64:
		return decimal.NewFromFloat(p), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("price has unexpected type %T", v)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price %q is not a number", s)
	}
	return price, nil
}

func (c *Client) get(ctx context.Context, addr string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}
