package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// QuoteCache provides Redis-based caching for spot prices
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// cacheEntry represents a cached quote with metadata
type cacheEntry struct {
	Symbol    string    `json:"symbol"`
	Spot      string    `json:"spot"`
	Timestamp time.Time `json:"timestamp"`
}

// NewQuoteCache creates a new Redis-based quote cache.
// If client is nil, returns nil (optional Redis support).
func NewQuoteCache(client *redis.Client, ttl time.Duration) *QuoteCache {
	if client == nil {
		return nil
	}
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &QuoteCache{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a spot price from cache.
// Returns the price and true if found, or zero and false on miss or error.
func (c *QuoteCache) Get(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	if c == nil || c.client == nil {
		return decimal.Zero, false
	}

	key := c.buildKey(symbol)

	// Use a short timeout for cache operations to prevent blocking
	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	cached, err := c.client.Get(cacheCtx, key).Result()
	if err != nil {
		if err != redis.Nil {
			// Cache miss is acceptable; log and move on
			log.Debug().
				Err(err).
				Str("key", key).
				Msg("Redis get error - treating as cache miss")
		}
		return decimal.Zero, false
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("Failed to unmarshal cached quote")
		return decimal.Zero, false
	}

	spot, err := decimal.NewFromString(entry.Spot)
	if err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("Cached quote has unparseable price")
		return decimal.Zero, false
	}

	log.Debug().
		Str("symbol", symbol).
		Str("spot", entry.Spot).
		Time("cached_at", entry.Timestamp).
		Msg("Cache hit for quote")

	return spot, true
}

// Set stores a spot price in cache with the configured TTL
func (c *QuoteCache) Set(ctx context.Context, symbol string, spot decimal.Decimal) error {
	if c == nil || c.client == nil {
		return nil
	}

	key := c.buildKey(symbol)

	entry := cacheEntry{
		Symbol:    symbol,
		Spot:      spot.String(),
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal quote entry: %w", err)
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if err := c.client.Set(cacheCtx, key, data, c.ttl).Err(); err != nil {
		// Cache failure must not fail the lookup
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("Failed to cache quote")
		return err
	}

	return nil
}

func (c *QuoteCache) buildKey(symbol string) string {
	return "quote:" + symbol
}
