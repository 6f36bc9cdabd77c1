package synth

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

// Config controls strike selection and sizing for synthesized trades.
type Config struct {
	WingWidth            decimal.Decimal // strike grid increment and spread width
	DeltaTarget          float64         // advisory target for the short strikes
	MinDaysToExpiry      int             // expiration must be at least this far out
	Quantity             int             // contracts per leg
	CreditRatio          decimal.Decimal // estimated credit as a fraction of spread width
	StraddlePremiumRatio decimal.Decimal // estimated straddle premium as a fraction of spot
}

// DefaultConfig returns the standard synthesis settings
func DefaultConfig() Config {
	return Config{
		WingWidth:            decimal.NewFromInt(5),
		DeltaTarget:          0.16,
		MinDaysToExpiry:      30,
		Quantity:             1,
		CreditRatio:          decimal.NewFromFloat(0.30),
		StraddlePremiumRatio: decimal.NewFromFloat(0.04),
	}
}

// Synthesizer maps a structured market view to a concrete options structure.
// The outlook-to-strategy mapping is fixed, not learned, and synthesis is a
// pure function of (view, spot, config, current date).
type Synthesizer struct {
	config Config
	now    func() time.Time
}

// NewSynthesizer creates a synthesizer with the given configuration
func NewSynthesizer(config Config) *Synthesizer {
	if config.Quantity <= 0 {
		config.Quantity = 1
	}
	if config.WingWidth.IsZero() {
		config.WingWidth = decimal.NewFromInt(5)
	}
	if config.CreditRatio.IsZero() {
		config.CreditRatio = decimal.NewFromFloat(0.30)
	}
	if config.StraddlePremiumRatio.IsZero() {
		config.StraddlePremiumRatio = decimal.NewFromFloat(0.04)
	}
	if config.MinDaysToExpiry <= 0 {
		config.MinDaysToExpiry = 30
	}
	return &Synthesizer{
		config: config,
		now:    time.Now,
	}
}

// Synthesize builds a trade plan from a market view and the current spot
// price. The outlook enum is handled exhaustively; a zero or negative spot
// is rejected before any structure is built.
func (s *Synthesizer) Synthesize(view model.MarketView, spot decimal.Decimal) (model.TradePlan, error) {
	if !spot.IsPositive() {
		return model.TradePlan{}, fmt.Errorf("spot price must be positive, got %s", spot)
	}
	if view.Symbol == "" {
		return model.TradePlan{}, fmt.Errorf("market view has no symbol")
	}

	expiration := NextStandardExpiration(s.now().UTC(), s.config.MinDaysToExpiry)
	anchor := roundToIncrement(spot, s.config.WingWidth)

	var plan model.TradePlan
	switch view.Outlook {
	case model.OutlookNeutral, model.OutlookRange:
		plan = s.ironCondor(view, anchor, expiration)
	case model.OutlookBullish:
		plan = s.putCreditSpread(view, anchor, expiration)
	case model.OutlookBearish:
		plan = s.callCreditSpread(view, anchor, expiration)
	case model.OutlookVolatile:
		plan = s.longStraddle(view, spot, anchor, expiration)
	default:
		// Outlook is a closed enum; an unknown value here is a programming
		// error upstream, not a user input problem.
		return model.TradePlan{}, fmt.Errorf("unsupported outlook %q", view.Outlook)
	}

	if err := plan.Validate(); err != nil {
		return model.TradePlan{}, fmt.Errorf("synthesized plan failed shape validation: %w", err)
	}

	log.Debug().
		Str("symbol", plan.Symbol).
		Str("strategy", string(plan.StrategyType)).
		Str("max_risk", plan.MaxRisk.String()).
		Time("expiration", plan.Expiration).
		Msg("Trade plan synthesized")

	return plan, nil
}

// ironCondor sells a put vertical and a call vertical symmetric around the
// anchor strike.
func (s *Synthesizer) ironCondor(view model.MarketView, anchor decimal.Decimal, expiration time.Time) model.TradePlan {
	wing := s.config.WingWidth
	qty := s.config.Quantity

	shortPut := anchor.Sub(wing)
	longPut := anchor.Sub(wing.Mul(two))
	shortCall := anchor.Add(wing)
	longCall := anchor.Add(wing.Mul(two))

	legs := []model.TradeLeg{
		{Action: model.ActionSell, Instrument: model.InstrumentPut, Strike: shortPut, Quantity: qty, Expiration: expiration},
		{Action: model.ActionBuy, Instrument: model.InstrumentPut, Strike: longPut, Quantity: qty, Expiration: expiration},
		{Action: model.ActionSell, Instrument: model.InstrumentCall, Strike: shortCall, Quantity: qty, Expiration: expiration},
		{Action: model.ActionBuy, Instrument: model.InstrumentCall, Strike: longCall, Quantity: qty, Expiration: expiration},
	}

	// Both spreads are one wing wide; credit accrues from each side.
	creditPerSpread := wing.Mul(s.config.CreditRatio)
	netCredit := creditPerSpread.Mul(two)
	maxRisk := contractValue(wing, qty).Sub(contractValue(netCredit, qty))

	return model.TradePlan{
		StrategyType: model.StrategyIronCondor,
		Symbol:       view.Symbol,
		Legs:         legs,
		Expiration:   expiration,
		MaxRisk:      maxRisk,
		TargetCredit: netCredit,
		Rationale: fmt.Sprintf("Range-bound thesis on %s: short %s/%s put spread and %s/%s call spread collect premium while the underlying stays between the short strikes.",
			view.Symbol, shortPut, longPut, shortCall, longCall),
		CreatedAt: s.now().UTC(),
	}
}

// putCreditSpread sells a put near spot and buys one wing lower.
func (s *Synthesizer) putCreditSpread(view model.MarketView, anchor decimal.Decimal, expiration time.Time) model.TradePlan {
	wing := s.config.WingWidth
	qty := s.config.Quantity

	shortStrike := anchor.Sub(wing)
	longStrike := anchor.Sub(wing.Mul(two))

	legs := []model.TradeLeg{
		{Action: model.ActionSell, Instrument: model.InstrumentPut, Strike: shortStrike, Quantity: qty, Expiration: expiration},
		{Action: model.ActionBuy, Instrument: model.InstrumentPut, Strike: longStrike, Quantity: qty, Expiration: expiration},
	}

	netCredit := wing.Mul(s.config.CreditRatio)
	maxRisk := contractValue(wing.Sub(netCredit), qty)

	return model.TradePlan{
		StrategyType: model.StrategyPutCreditSpread,
		Symbol:       view.Symbol,
		Legs:         legs,
		Expiration:   expiration,
		MaxRisk:      maxRisk,
		TargetCredit: netCredit,
		Rationale: fmt.Sprintf("Bullish thesis on %s: sell the %s put against the %s put, profiting as long as the underlying holds above the short strike.",
			view.Symbol, shortStrike, longStrike),
		CreatedAt: s.now().UTC(),
	}
}

// callCreditSpread sells a call near spot and buys one wing higher.
func (s *Synthesizer) callCreditSpread(view model.MarketView, anchor decimal.Decimal, expiration time.Time) model.TradePlan {
	wing := s.config.WingWidth
	qty := s.config.Quantity

	shortStrike := anchor.Add(wing)
	longStrike := anchor.Add(wing.Mul(two))

	legs := []model.TradeLeg{
		{Action: model.ActionSell, Instrument: model.InstrumentCall, Strike: shortStrike, Quantity: qty, Expiration: expiration},
		{Action: model.ActionBuy, Instrument: model.InstrumentCall, Strike: longStrike, Quantity: qty, Expiration: expiration},
	}

	netCredit := wing.Mul(s.config.CreditRatio)
	maxRisk := contractValue(wing.Sub(netCredit), qty)

	return model.TradePlan{
		StrategyType: model.StrategyCallCreditSpread,
		Symbol:       view.Symbol,
		Legs:         legs,
		Expiration:   expiration,
		MaxRisk:      maxRisk,
		TargetCredit: netCredit,
		Rationale: fmt.Sprintf("Bearish thesis on %s: sell the %s call against the %s call, profiting as long as the underlying stays below the short strike.",
			view.Symbol, shortStrike, longStrike),
		CreatedAt: s.now().UTC(),
	}
}

// longStraddle buys a call and a put at the anchor strike. The premium paid
// is the max risk; target credit is negative to record the debit.
func (s *Synthesizer) longStraddle(view model.MarketView, spot, anchor decimal.Decimal, expiration time.Time) model.TradePlan {
	qty := s.config.Quantity

	legs := []model.TradeLeg{
		{Action: model.ActionBuy, Instrument: model.InstrumentCall, Strike: anchor, Quantity: qty, Expiration: expiration},
		{Action: model.ActionBuy, Instrument: model.InstrumentPut, Strike: anchor, Quantity: qty, Expiration: expiration},
	}

	premium := spot.Mul(s.config.StraddlePremiumRatio)
	maxRisk := contractValue(premium, qty)

	return model.TradePlan{
		StrategyType: model.StrategyLongStraddle,
		Symbol:       view.Symbol,
		Legs:         legs,
		Expiration:   expiration,
		MaxRisk:      maxRisk,
		TargetCredit: premium.Neg(),
		Rationale: fmt.Sprintf("Volatility thesis on %s: long the %s straddle, profiting from a large move in either direction beyond the premium paid.",
			view.Symbol, anchor),
		CreatedAt: s.now().UTC(),
	}
}

var two = decimal.NewFromInt(2)
var multiplier = decimal.NewFromInt(model.ContractMultiplier)

// contractValue converts a per-share amount into dollars across qty
// standard contracts.
func contractValue(perShare decimal.Decimal, qty int) decimal.Decimal {
	return perShare.Mul(decimal.NewFromInt(int64(qty))).Mul(multiplier)
}

// roundToIncrement snaps a price to the nearest multiple of the strike
// increment.
func roundToIncrement(price, increment decimal.Decimal) decimal.Decimal {
	if !increment.IsPositive() {
		return price
	}
	return price.Div(increment).Round(0).Mul(increment)
}

// NextStandardExpiration returns the nearest standard monthly expiration
// (third Friday of a month) at least minDays after from. Pure function of
// its inputs, so synthesis stays deterministic within a day.
func NextStandardExpiration(from time.Time, minDays int) time.Time {
	earliest := from.AddDate(0, 0, minDays)

	year, month := earliest.Year(), earliest.Month()
	candidate := thirdFriday(year, month)
	for candidate.Before(earliest) {
		month++
		if month > time.December {
			month = time.January
			year++
		}
		candidate = thirdFriday(year, month)
	}
	return candidate
}

func thirdFriday(year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+14)
}
