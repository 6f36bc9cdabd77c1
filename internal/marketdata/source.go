package marketdata

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when no spot price can be produced for a
// symbol. The pipeline treats this as a hard failure: synthesis cannot
// proceed without a price.
var ErrUnavailable = errors.New("market data unavailable")

// Quote is a point-in-time spot price for one symbol.
type Quote struct {
	Symbol string
	Spot   decimal.Decimal
}

// QuoteSource supplies current spot prices.
type QuoteSource interface {
	GetSpot(ctx context.Context, symbol string) (Quote, error)
}
