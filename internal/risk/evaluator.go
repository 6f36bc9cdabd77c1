package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/metrics"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/portfolio"
)

// Evaluate applies the ordered, fail-closed gate rules to a proposed trade
// against a portfolio snapshot and the static constraints. All applicable
// rules run and accumulate violations; the function never short-circuits, so
// callers always see the complete list. Pure and deterministic for identical
// inputs.
func Evaluate(plan model.TradePlan, assessment portfolio.Assessment, snapshot model.PortfolioSnapshot, constraints model.RiskConstraints) model.ValidationResult {
	var violations []model.RiskViolation

	// 1. Drawdown circuit breaker. A breach alone fails the evaluation
	// regardless of the trade's individual merits.
	if assessment.DrawdownPct >= constraints.MaxDrawdownPct {
		violations = append(violations, model.RiskViolation{
			RuleCode: model.RuleDrawdownBreach,
			Severity: model.SeverityBlock,
			Detail: fmt.Sprintf("portfolio drawdown %.2f%% at or above limit %.2f%%, all new trades halted",
				assessment.DrawdownPct*100, constraints.MaxDrawdownPct*100),
		})
	}

	// 2. Per-trade risk cap
	perTradeCap := snapshot.Equity.Mul(decimal.NewFromFloat(constraints.MaxRiskPerTradePct))
	if plan.MaxRisk.GreaterThan(perTradeCap) {
		violations = append(violations, model.RiskViolation{
			RuleCode: model.RuleMaxRiskTrade,
			Severity: model.SeverityBlock,
			Detail: fmt.Sprintf("trade max risk %s exceeds per-trade cap %s (%.2f%% of equity)",
				plan.MaxRisk, perTradeCap, constraints.MaxRiskPerTradePct*100),
		})
	}

	// 3. Portfolio aggregate cap
	portfolioCap := snapshot.Equity.Mul(decimal.NewFromFloat(constraints.MaxPortfolioRiskPct))
	projected := assessment.RiskUsed.Add(plan.MaxRisk)
	if projected.GreaterThan(portfolioCap) {
		violations = append(violations, model.RiskViolation{
			RuleCode: model.RuleMaxPortfolioRisk,
			Severity: model.SeverityBlock,
			Detail: fmt.Sprintf("projected portfolio risk %s (used %s + new %s) exceeds cap %s",
				projected, assessment.RiskUsed, plan.MaxRisk, portfolioCap),
		})
	}

	// 4. Position count cap
	if assessment.PositionCount >= constraints.MaxPositions {
		violations = append(violations, model.RiskViolation{
			RuleCode: model.RuleMaxPositions,
			Severity: model.SeverityBlock,
			Detail: fmt.Sprintf("already at %d open positions, limit %d",
				assessment.PositionCount, constraints.MaxPositions),
		})
	}

	// 5. Beta exposure ceiling. Warn only: beta is an estimate.
	if assessment.BetaExposure > constraints.MaxBetaExposure {
		violations = append(violations, model.RiskViolation{
			RuleCode: model.RuleBetaExposureHigh,
			Severity: model.SeverityWarn,
			Detail: fmt.Sprintf("portfolio beta exposure %.2f exceeds ceiling %.2f",
				assessment.BetaExposure, constraints.MaxBetaExposure),
		})
	}

	// 6. Liquidity and spread-width sanity
	violations = append(violations, checkSpreadWidths(plan, constraints)...)
	if v, ok := checkOpenInterest(plan, constraints); ok {
		violations = append(violations, v)
	}

	// 7. Correlation guardrail against existing positions
	if v, ok := checkCorrelation(plan, snapshot, constraints); ok {
		violations = append(violations, v)
	}

	ok := true
	for _, v := range violations {
		metrics.RecordViolation(v.RuleCode, string(v.Severity))
		if v.Severity == model.SeverityBlock {
			ok = false
		}
	}

	return model.ValidationResult{OK: ok, Violations: violations}
}

// checkSpreadWidths emits a block violation when any vertical in the plan is
// wider than the configured maximum. Straddle legs share a strike and are
// not verticals.
func checkSpreadWidths(plan model.TradePlan, constraints model.RiskConstraints) []model.RiskViolation {
	var violations []model.RiskViolation

	for _, instrument := range []model.Instrument{model.InstrumentPut, model.InstrumentCall} {
		legs := legsOf(plan.Legs, instrument)
		if len(legs) != 2 {
			continue
		}
		width := legs[0].Strike.Sub(legs[1].Strike).Abs()
		if width.IsZero() {
			continue
		}
		if width.GreaterThan(constraints.MaxSpreadWidth) {
			violations = append(violations, model.RiskViolation{
				RuleCode: model.RuleSpreadTooWide,
				Severity: model.SeverityBlock,
				Detail: fmt.Sprintf("%s vertical width %s exceeds limit %s",
					instrument, width, constraints.MaxSpreadWidth),
			})
		}
	}

	return violations
}

// checkOpenInterest warns when liquidity data is present on any leg and the
// thinnest contract sits below the configured floor. Legs without data
// (open interest zero) are skipped rather than treated as illiquid.
func checkOpenInterest(plan model.TradePlan, constraints model.RiskConstraints) (model.RiskViolation, bool) {
	thinnest := 0
	seen := false
	for _, leg := range plan.Legs {
		if leg.OpenInterest <= 0 {
			continue
		}
		if !seen || leg.OpenInterest < thinnest {
			thinnest = leg.OpenInterest
			seen = true
		}
	}

	if !seen || thinnest >= constraints.MinOpenInterest {
		return model.RiskViolation{}, false
	}

	return model.RiskViolation{
		RuleCode: model.RuleInsufficientLiquidity,
		Severity: model.SeverityWarn,
		Detail: fmt.Sprintf("open interest %d below minimum %d",
			thinnest, constraints.MinOpenInterest),
	}, true
}

// checkCorrelation warns when the strongest correlation hint among existing
// positions in the same symbol universe exceeds the configured maximum.
func checkCorrelation(plan model.TradePlan, snapshot model.PortfolioSnapshot, constraints model.RiskConstraints) (model.RiskViolation, bool) {
	highest := 0.0
	against := ""
	for _, pos := range snapshot.Positions {
		if pos.Symbol == plan.Symbol {
			// Same underlying is concentration, not correlation.
			continue
		}
		if pos.CorrelationHint > highest {
			highest = pos.CorrelationHint
			against = pos.Symbol
		}
	}

	if against == "" || highest <= constraints.MaxCorrelation {
		return model.RiskViolation{}, false
	}

	return model.RiskViolation{
		RuleCode: model.RuleCorrelationHigh,
		Severity: model.SeverityWarn,
		Detail: fmt.Sprintf("correlation hint %.2f against %s exceeds limit %.2f",
			highest, against, constraints.MaxCorrelation),
	}, true
}

func legsOf(legs []model.TradeLeg, instrument model.Instrument) []model.TradeLeg {
	var out []model.TradeLeg
	for _, leg := range legs {
		if leg.Instrument == instrument {
			out = append(out, leg)
		}
	}
	return out
}
