package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/audit"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/config"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/marketdata"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/portfolio"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/staging"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/synth"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/view"
)

// FromConfig assembles the full pipeline and its staging store from
// application configuration. The returned cleanup func closes the redis
// and postgres connections it opened.
func FromConfig(ctx context.Context, cfg *config.Config, snapshots portfolio.SnapshotProvider) (*Pipeline, *staging.Store, func(), error) {
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	// Classifier: remote provider only when an endpoint is configured.
	var remote view.Provider
	if cfg.Provider.Endpoint != "" {
		remote = view.NewRemoteProvider(view.RemoteConfig{
			Endpoint:    cfg.Provider.Endpoint,
			APIKey:      cfg.Provider.APIKey,
			Model:       cfg.Provider.Model,
			Temperature: cfg.Provider.Temperature,
			MaxTokens:   cfg.Provider.MaxTokens,
			Timeout:     time.Duration(cfg.Provider.TimeoutMS) * time.Millisecond,
		})
	}
	classifier := view.NewClassifier(remote, view.ClassifierConfig{
		Timeout:       time.Duration(cfg.Provider.TimeoutMS) * time.Millisecond,
		MinConfidence: cfg.Provider.MinConfidence,
	})

	// Quote cache is optional; the client works without one.
	var cache *marketdata.QuoteCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { rdb.Close() })
		cache = marketdata.NewQuoteCache(rdb, time.Duration(cfg.MarketData.CacheTTLSeconds)*time.Second)
	}
	quotes := marketdata.NewClient(marketdata.ClientConfig{
		BaseURL:           cfg.MarketData.BaseURL,
		APIKey:            cfg.MarketData.APIKey,
		Timeout:           time.Duration(cfg.MarketData.TimeoutMS) * time.Millisecond,
		RequestsPerMinute: cfg.MarketData.RequestsPerMinute,
	}, cache)

	synthesizer := synth.NewSynthesizer(synth.Config{
		WingWidth:            decimal.NewFromFloat(cfg.Synth.WingWidth),
		DeltaTarget:          cfg.Synth.DeltaTarget,
		MinDaysToExpiry:      cfg.Synth.MinDaysToExpiry,
		Quantity:             cfg.Synth.Quantity,
		CreditRatio:          decimal.NewFromFloat(cfg.Synth.CreditRatio),
		StraddlePremiumRatio: decimal.NewFromFloat(cfg.Synth.StraddlePremiumRatio),
	})

	store, err := staging.NewStore(cfg.Staging)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("staging store: %w", err)
	}

	recorder, closeAudit, err := audit.FromConfig(ctx, cfg.Audit.Enabled, cfg.Audit.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	closers = append(closers, closeAudit)

	p, err := New(Options{
		Classifier:  classifier,
		Quotes:      quotes,
		Snapshots:   snapshots,
		Synthesizer: synthesizer,
		Store:       store,
		Recorder:    recorder,
		Constraints: cfg.Risk.Constraints(),
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return p, store, cleanup, nil
}
