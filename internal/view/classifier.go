package view

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/metrics"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

// Provider circuit breaker settings (longer timeouts for AI calls)
const (
	providerMinRequests     = 3
	providerFailureRatio    = 0.6
	providerOpenTimeout     = 60 * time.Second
	providerHalfOpenMaxReqs = 2
	providerCountInterval   = 10 * time.Second
)

// Classifier produces a MarketView for every well-formed request. The remote
// provider sits behind a circuit breaker and a bounded timeout; any failure,
// open circuit, or low-confidence answer degrades to the deterministic
// heuristic instead of propagating.
type Classifier struct {
	remote        Provider
	fallback      Provider
	breaker       *gobreaker.CircuitBreaker
	timeout       time.Duration
	minConfidence float64
}

// ClassifierConfig configures the classifier
type ClassifierConfig struct {
	Timeout       time.Duration // bound on the remote provider call
	MinConfidence float64       // provider answers below this use the fallback
}

// NewClassifier wires a remote provider with the heuristic fallback.
// Passing a nil remote yields a heuristic-only classifier, which is how
// deployments without a language-understanding gateway run.
func NewClassifier(remote Provider, config ClassifierConfig) *Classifier {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MinConfidence == 0 {
		config.MinConfidence = 0.6
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "view_provider",
		MaxRequests: providerHalfOpenMaxReqs,
		Interval:    providerCountInterval,
		Timeout:     providerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= providerMinRequests && failureRatio >= providerFailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Provider circuit breaker state change")
		},
	})

	return &Classifier{
		remote:        remote,
		fallback:      NewHeuristicProvider(),
		breaker:       breaker,
		timeout:       config.Timeout,
		minConfidence: config.MinConfidence,
	}
}

// Classify turns free text plus an optional hint into a MarketView. It
// returns an error only for malformed input (blank text); provider failures
// are absorbed by the fallback path.
func (c *Classifier) Classify(ctx context.Context, text string, hint Hint) (*model.MarketView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	if c.remote != nil {
		view, err := c.classifyRemote(ctx, text, hint)
		if err == nil && view.Confidence >= c.minConfidence {
			metrics.RecordClassification(metrics.SourceProvider)
			return view, nil
		}
		if err != nil {
			log.Warn().
				Err(err).
				Str("symbol", hint.Symbol).
				Msg("Provider classification failed, using heuristic fallback")
		} else {
			log.Info().
				Float64("confidence", view.Confidence).
				Float64("min_confidence", c.minConfidence).
				Msg("Provider confidence below floor, using heuristic fallback")
		}
	}

	view, err := c.fallback.Classify(ctx, text, hint)
	if err != nil {
		return nil, err
	}
	metrics.RecordClassification(metrics.SourceFallback)
	return view, nil
}

func (c *Classifier) classifyRemote(ctx context.Context, text string, hint Hint) (*model.MarketView, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.remote.Classify(callCtx, text, hint)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.MarketView), nil
}
