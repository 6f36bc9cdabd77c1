package view

import (
	"context"
	"errors"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

// Hint carries optional caller context for classification.
type Hint struct {
	Symbol  string
	Horizon string // e.g. "2w", "1m"; free-form, passed through to the provider
}

// ErrEmptyText is returned when the request text is blank. This is a caller
// error and is rejected before any provider is consulted.
var ErrEmptyText = errors.New("request text must not be empty")

// ErrFallbackRequired signals that the provider produced output the
// classifier should not trust (ambiguous or below the confidence floor).
var ErrFallbackRequired = errors.New("provider output requires fallback")

// Provider turns free text into a market view. Implementations may call a
// remote language-understanding service or run a local heuristic.
// This allows the classifier to use either transparently.
type Provider interface {
	Classify(ctx context.Context, text string, hint Hint) (*model.MarketView, error)
}

// Ensure both implementations satisfy the Provider interface
var _ Provider = (*RemoteProvider)(nil)
var _ Provider = (*HeuristicProvider)(nil)
