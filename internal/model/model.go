package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractMultiplier is the share count behind one standard equity option contract.
const ContractMultiplier = 100

// Outlook is the classified directional/volatility opinion about a symbol.
type Outlook string

const (
	OutlookBullish  Outlook = "bullish"
	OutlookBearish  Outlook = "bearish"
	OutlookNeutral  Outlook = "neutral"
	OutlookVolatile Outlook = "volatile"
	OutlookRange    Outlook = "range"
)

// Valid reports whether the outlook is one of the closed set of values.
func (o Outlook) Valid() bool {
	switch o {
	case OutlookBullish, OutlookBearish, OutlookNeutral, OutlookVolatile, OutlookRange:
		return true
	}
	return false
}

// ViewSource identifies which classification path produced a MarketView.
type ViewSource string

const (
	SourceProvider ViewSource = "provider"
	SourceFallback ViewSource = "fallback"
)

// MarketView is a structured opinion about one symbol. Immutable once produced.
type MarketView struct {
	Symbol     string     `json:"symbol" yaml:"symbol"`
	Outlook    Outlook    `json:"outlook" yaml:"outlook"`
	Confidence float64    `json:"confidence" yaml:"confidence"` // 0.0 to 1.0
	Notes      string     `json:"notes" yaml:"notes"`
	Source     ViewSource `json:"source" yaml:"source"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
}

// LegAction is the side of a single option leg.
type LegAction string

const (
	ActionBuy  LegAction = "buy"
	ActionSell LegAction = "sell"
)

// Instrument is the option contract type of a leg.
type Instrument string

const (
	InstrumentCall Instrument = "call"
	InstrumentPut  Instrument = "put"
)

// TradeLeg is one option contract position within a multi-leg strategy.
// OpenInterest is zero when no liquidity data was available at synthesis time.
type TradeLeg struct {
	Action       LegAction       `json:"action" yaml:"action"`
	Instrument   Instrument      `json:"instrument" yaml:"instrument"`
	Strike       decimal.Decimal `json:"strike" yaml:"strike"`
	Quantity     int             `json:"quantity" yaml:"quantity"`
	Expiration   time.Time       `json:"expiration" yaml:"expiration"`
	OpenInterest int             `json:"open_interest,omitempty" yaml:"open_interest,omitempty"`
}

// StrategyType is the closed set of supported options structures.
type StrategyType string

const (
	StrategyIronCondor       StrategyType = "iron_condor"
	StrategyPutCreditSpread  StrategyType = "put_credit_spread"
	StrategyCallCreditSpread StrategyType = "call_credit_spread"
	StrategyLongStraddle     StrategyType = "long_straddle"
	StrategyCustom           StrategyType = "custom"
)

// TradePlan is a concrete, synthesized options structure awaiting risk review.
// Created fresh per request and never mutated.
type TradePlan struct {
	StrategyType StrategyType    `json:"strategy_type" yaml:"strategy_type"`
	Symbol       string          `json:"symbol" yaml:"symbol"`
	Legs         []TradeLeg      `json:"legs" yaml:"legs"`
	Expiration   time.Time       `json:"expiration" yaml:"expiration"`
	MaxRisk      decimal.Decimal `json:"max_risk" yaml:"max_risk"`
	TargetCredit decimal.Decimal `json:"target_credit" yaml:"target_credit"`
	Rationale    string          `json:"rationale" yaml:"rationale"`
	CreatedAt    time.Time       `json:"created_at" yaml:"created_at"`
}

// RiskConstraints are the static, externally configured gate limits.
type RiskConstraints struct {
	MaxRiskPerTradePct  float64         `json:"max_risk_per_trade_pct" yaml:"max_risk_per_trade_pct" mapstructure:"max_risk_per_trade_pct"`
	MaxPortfolioRiskPct float64         `json:"max_portfolio_risk_pct" yaml:"max_portfolio_risk_pct" mapstructure:"max_portfolio_risk_pct"`
	MaxPositions        int             `json:"max_positions" yaml:"max_positions" mapstructure:"max_positions"`
	MinOpenInterest     int             `json:"min_open_interest" yaml:"min_open_interest" mapstructure:"min_open_interest"`
	MaxSpreadWidth      decimal.Decimal `json:"max_spread_width" yaml:"max_spread_width" mapstructure:"max_spread_width"`
	MaxDrawdownPct      float64         `json:"max_drawdown_pct" yaml:"max_drawdown_pct" mapstructure:"max_drawdown_pct"`
	MaxBetaExposure     float64         `json:"max_beta_exposure" yaml:"max_beta_exposure" mapstructure:"max_beta_exposure"`
	MaxCorrelation      float64         `json:"max_correlation" yaml:"max_correlation" mapstructure:"max_correlation"`
}

// Severity classifies how a risk violation affects the verdict.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// Rule codes emitted by the risk gate evaluator. Bounded set, safe as a
// metric label.
const (
	RuleDrawdownBreach        = "drawdown_breach"
	RuleMaxRiskTrade          = "max_risk_trade"
	RuleMaxPortfolioRisk      = "max_portfolio_risk"
	RuleMaxPositions          = "max_positions"
	RuleBetaExposureHigh      = "beta_exposure_high"
	RuleSpreadTooWide         = "spread_too_wide"
	RuleInsufficientLiquidity = "insufficient_liquidity"
	RuleCorrelationHigh       = "correlation_high"

	// Emitted by the pipeline, not the evaluator, when a caller-supplied
	// per-request risk cap is tighter than the static constraints.
	RuleMaxRiskRequest = "max_risk_request"
)

// RiskViolation is a single gate finding. Violations are data, not errors.
type RiskViolation struct {
	RuleCode string   `json:"rule_code" yaml:"rule_code"`
	Detail   string   `json:"detail" yaml:"detail"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// ValidationResult is the itemized verdict of the risk gate evaluator.
type ValidationResult struct {
	OK         bool            `json:"ok" yaml:"ok"`
	Violations []RiskViolation `json:"violations" yaml:"violations"`
}

// Blocks returns the block-severity violations only.
func (r ValidationResult) Blocks() []RiskViolation {
	var blocks []RiskViolation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			blocks = append(blocks, v)
		}
	}
	return blocks
}

// Position is one open holding inside a portfolio snapshot.
type Position struct {
	Symbol          string          `json:"symbol" yaml:"symbol"`
	Quantity        decimal.Decimal `json:"quantity" yaml:"quantity"`
	MarkPrice       decimal.Decimal `json:"mark_price" yaml:"mark_price"`
	MarketValue     decimal.Decimal `json:"market_value" yaml:"market_value"`
	MaxLoss         decimal.Decimal `json:"max_loss" yaml:"max_loss"`
	Beta            float64         `json:"beta" yaml:"beta"`
	Sector          string          `json:"sector" yaml:"sector"`
	CorrelationHint float64         `json:"correlation_hint" yaml:"correlation_hint"` // -1.0 to 1.0
}

// EquityPoint is one sample of the historical equity curve.
type EquityPoint struct {
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Equity    decimal.Decimal `json:"equity" yaml:"equity"`
}

// PortfolioSnapshot is a point-in-time, read-only view of portfolio state.
// The core never mutates it; evaluations always use the snapshot they were
// handed, not a live reference.
type PortfolioSnapshot struct {
	Equity      decimal.Decimal `json:"equity" yaml:"equity"`
	Cash        decimal.Decimal `json:"cash" yaml:"cash"`
	Positions   []Position      `json:"positions" yaml:"positions"`
	EquityCurve []EquityPoint   `json:"equity_curve" yaml:"equity_curve"`
}

// OrderStatus is the lifecycle state of a staged draft. The core only ever
// writes DRAFT; later transitions belong to the human-review process.
type OrderStatus string

const (
	StatusDraft     OrderStatus = "DRAFT"
	StatusApproved  OrderStatus = "APPROVED"
	StatusSubmitted OrderStatus = "SUBMITTED"
	StatusFilled    OrderStatus = "FILLED"
	StatusRejected  OrderStatus = "REJECTED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// OrderMetadata is the caller context recorded alongside a staged draft.
type OrderMetadata struct {
	User       string  `json:"user" yaml:"user"`
	Source     string  `json:"source" yaml:"source"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Note       string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// StagedOrder is an immutable, signed, disk-persisted trade proposal
// awaiting human review. Never auto-executed.
type StagedOrder struct {
	ID                 string        `json:"id" yaml:"id"`
	TradePlan          TradePlan     `json:"trade_plan" yaml:"trade_plan"`
	Status             OrderStatus   `json:"status" yaml:"status"`
	CreatedAt          time.Time     `json:"created_at" yaml:"created_at"`
	Metadata           OrderMetadata `json:"metadata" yaml:"metadata"`
	IntegritySignature string        `json:"integrity_signature" yaml:"integrity_signature"`
	StoragePath        string        `json:"storage_path,omitempty" yaml:"-"`
}
