// Package fx looks up currency exchange rates from a Frankfurter-compatible
// API (GET /latest?from=BASE).
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
)

const (
	DefaultBaseURL  = "https://api.frankfurter.app"
	DefaultCacheTTL = time.Hour
	cacheSize       = 64
	fetchTimeout    = 15 * time.Second
)

// Client fetches rate tables. Tables are cached per base currency and
// concurrent lookups of the same base share one request.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.LRUCache[core.Rates]
	group   singleflight.Group
	logger  *log.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client against baseURL. A non-positive ttl uses
// DefaultCacheTTL.
func NewClient(baseURL string, ttl time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache.NewLRUCache[core.Rates](cacheSize, ttl),
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentFX)
	return c
}

// Cache exposes the rate cache so a cache.Manager can sweep it.
func (c *Client) Cache() cache.Cleaner {
	return c.cache
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Rates returns units of each currency per one unit of base. The table
// always contains base itself at 1.
func (c *Client) Rates(ctx context.Context, base string) (core.Rates, error) {
	base, err := core.NormalizeCurrency(base)
	if err != nil {
		return nil, err
	}
	if r, ok := c.cache.Get(base); ok {
		return r, nil
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own ctx is done.
	ch := c.group.DoChan(base, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		r, err := c.fetch(fetchCtx, base)
		if err != nil {
			return nil, err
		}
		c.cache.Set(base, r)
		return r, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.logger.WarnContext(ctx, "Rate lookup failed", log.FieldCurrency, base, log.FieldError, res.Err)
			return nil, res.Err
		}
		c.logger.DebugContext(ctx, "Rates fetched", log.FieldCurrency, base, "shared", res.Shared)
		return res.Val.(core.Rates), nil
	}
}

func (c *Client) fetch(ctx context.Context, base string) (core.Rates, error) {
	addr := c.baseURL + "/latest?" + url.Values{"from": {base}}.Encode()
	var body latestResponse
	if err := getJSON(ctx, c.http, addr, &body); err != nil {
		return nil, &core.UpstreamError{Service: "fx", Err: err}
	}
	if len(body.Rates) == 0 {
		return nil, &core.UpstreamError{Service: "fx", Err: fmt.Errorf("no rates for %s", base)}
	}
	rates := make(core.Rates, len(body.Rates)+1)
	for cur, r := range body.Rates {
		rates[strings.ToUpper(cur)] = r
	}
	rates[base] = decimal.NewFromInt(1)
	return rates, nil
}

func getJSON(ctx context.Context, client *http.Client, addr string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}
