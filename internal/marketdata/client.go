package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/metrics"
)

// Client fetches spot prices from a quote HTTP API. Lookups are rate limited,
// deduplicated across concurrent callers, and served from cache when one is
// configured.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	group   singleflight.Group
	cache   *QuoteCache
}

// ClientConfig contains configuration for the quote client
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
}

// NewClient creates a quote client. cache may be nil.
func NewClient(config ClientConfig, cache *QuoteCache) *Client {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 60
	}

	httpClient := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond)
	if config.APIKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+config.APIKey)
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute),
		cache:   cache,
	}
}

type quoteResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// GetSpot returns the current spot price for a symbol. Concurrent requests
// for the same symbol share one upstream call.
func (c *Client) GetSpot(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, fmt.Errorf("%w: empty symbol", ErrUnavailable)
	}

	if spot, ok := c.cache.Get(ctx, symbol); ok {
		metrics.QuoteLookups.WithLabelValues("hit").Inc()
		return Quote{Symbol: symbol, Spot: spot}, nil
	}

	result, err, shared := c.group.Do(symbol, func() (interface{}, error) {
		return c.fetch(ctx, symbol)
	})
	if err != nil {
		metrics.QuoteLookups.WithLabelValues("error").Inc()
		return Quote{}, err
	}
	metrics.QuoteLookups.WithLabelValues("miss").Inc()

	quote := result.(Quote)
	if shared {
		log.Debug().Str("symbol", symbol).Msg("Quote request coalesced with in-flight fetch")
	}
	return quote, nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Quote{}, fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	var payload quoteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&payload).
		Get("/v1/quote")
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return Quote{}, fmt.Errorf("%w: quote API status %d", ErrUnavailable, resp.StatusCode())
	}
	if payload.Price <= 0 {
		return Quote{}, fmt.Errorf("%w: non-positive price %.4f for %s", ErrUnavailable, payload.Price, symbol)
	}

	spot := decimal.NewFromFloat(payload.Price)

	log.Debug().
		Str("symbol", symbol).
		Str("spot", spot.String()).
		Msg("Spot price fetched")

	if err := c.cache.Set(ctx, symbol, spot); err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("Quote cache write failed")
	}

	return Quote{Symbol: symbol, Spot: spot}, nil
}
