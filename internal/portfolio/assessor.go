package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/metrics"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

// Assessment summarizes the risk posture of a portfolio snapshot.
type Assessment struct {
	RiskUsed      decimal.Decimal `json:"risk_used"`      // sum of position max losses
	RiskUtilPct   float64         `json:"risk_util_pct"`  // risk_used / equity
	BetaExposure  float64         `json:"beta_exposure"`  // value-weighted, signed
	DrawdownPct   float64         `json:"drawdown_pct"`   // (peak - current) / peak
	PositionCount int             `json:"position_count"` // open positions
}

// Assess computes current risk utilization, beta exposure and drawdown from
// a snapshot. Pure: no I/O, no mutation of the snapshot. An empty position
// list yields zero metrics; a single-point equity curve yields zero drawdown.
func Assess(snapshot model.PortfolioSnapshot) Assessment {
	a := Assessment{
		RiskUsed:      decimal.Zero,
		PositionCount: len(snapshot.Positions),
	}

	equity, _ := snapshot.Equity.Float64()
	for _, pos := range snapshot.Positions {
		a.RiskUsed = a.RiskUsed.Add(pos.MaxLoss)
		if equity > 0 {
			value, _ := pos.MarketValue.Float64()
			a.BetaExposure += pos.Beta * (value / equity)
		}
	}

	if snapshot.Equity.IsPositive() {
		util, _ := a.RiskUsed.Div(snapshot.Equity).Float64()
		a.RiskUtilPct = util
	}

	a.DrawdownPct = drawdown(snapshot.EquityCurve)

	metrics.CurrentDrawdown.Set(a.DrawdownPct)
	metrics.RiskUtilization.Set(a.RiskUtilPct)

	return a
}

// drawdown computes (peak - current) / peak over the running maximum of the
// equity curve, up to and including the latest point.
func drawdown(curve []model.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}

	peak := curve[0].Equity
	for _, point := range curve {
		if point.Equity.GreaterThan(peak) {
			peak = point.Equity
		}
	}

	current := curve[len(curve)-1].Equity
	if !peak.IsPositive() || current.GreaterThanOrEqual(peak) {
		return 0
	}

	dd, _ := peak.Sub(current).Div(peak).Float64()
	return dd
}
