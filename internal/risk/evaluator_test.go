package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/portfolio"
)

func defaultConstraints() model.RiskConstraints {
	return model.RiskConstraints{
		MaxRiskPerTradePct:  0.02,
		MaxPortfolioRiskPct: 0.10,
		MaxPositions:        10,
		MinOpenInterest:     100,
		MaxSpreadWidth:      decimal.NewFromInt(10),
		MaxDrawdownPct:      0.10,
		MaxBetaExposure:     1.5,
		MaxCorrelation:      0.8,
	}
}

func flatSnapshot(equity int64) model.PortfolioSnapshot {
	now := time.Now().UTC()
	return model.PortfolioSnapshot{
		Equity: decimal.NewFromInt(equity),
		Cash:   decimal.NewFromInt(equity),
		EquityCurve: []model.EquityPoint{
			{Timestamp: now.Add(-24 * time.Hour), Equity: decimal.NewFromInt(equity)},
			{Timestamp: now, Equity: decimal.NewFromInt(equity)},
		},
	}
}

func condorPlan(maxRisk int64) model.TradePlan {
	exp := time.Now().UTC().AddDate(0, 2, 0)
	return model.TradePlan{
		StrategyType: model.StrategyIronCondor,
		Symbol:       "SPY",
		Legs: []model.TradeLeg{
			{Action: model.ActionSell, Instrument: model.InstrumentPut, Strike: decimal.NewFromInt(445), Quantity: 1, Expiration: exp},
			{Action: model.ActionBuy, Instrument: model.InstrumentPut, Strike: decimal.NewFromInt(440), Quantity: 1, Expiration: exp},
			{Action: model.ActionSell, Instrument: model.InstrumentCall, Strike: decimal.NewFromInt(455), Quantity: 1, Expiration: exp},
			{Action: model.ActionBuy, Instrument: model.InstrumentCall, Strike: decimal.NewFromInt(460), Quantity: 1, Expiration: exp},
		},
		Expiration: exp,
		MaxRisk:    decimal.NewFromInt(maxRisk),
	}
}

func ruleCodes(result model.ValidationResult) []string {
	codes := make([]string, 0, len(result.Violations))
	for _, v := range result.Violations {
		codes = append(codes, v.RuleCode)
	}
	return codes
}

func TestEvaluatePasses(t *testing.T) {
	snapshot := flatSnapshot(100_000)
	result := Evaluate(condorPlan(200), portfolio.Assess(snapshot), snapshot, defaultConstraints())

	assert.True(t, result.OK)
	assert.Empty(t, result.Violations)
}

func TestEvaluateDrawdownHaltsNewTrades(t *testing.T) {
	now := time.Now().UTC()
	snapshot := model.PortfolioSnapshot{
		Equity: decimal.NewFromInt(85_000),
		EquityCurve: []model.EquityPoint{
			{Timestamp: now.Add(-48 * time.Hour), Equity: decimal.NewFromInt(100_000)},
			{Timestamp: now, Equity: decimal.NewFromInt(85_000)},
		},
	}

	// Even a tiny, otherwise clean trade is halted at 15% drawdown.
	result := Evaluate(condorPlan(200), portfolio.Assess(snapshot), snapshot, defaultConstraints())

	assert.False(t, result.OK)
	assert.Contains(t, ruleCodes(result), model.RuleDrawdownBreach)
}

func TestEvaluatePerTradeCap(t *testing.T) {
	snapshot := flatSnapshot(100_000)

	// cap is 2% of 100k = 2000
	result := Evaluate(condorPlan(2_500), portfolio.Assess(snapshot), snapshot, defaultConstraints())

	assert.False(t, result.OK)
	assert.Contains(t, ruleCodes(result), model.RuleMaxRiskTrade)
}

func TestEvaluatePortfolioCap(t *testing.T) {
	snapshot := flatSnapshot(100_000)
	snapshot.Positions = []model.Position{
		{Symbol: "IWM", MaxLoss: decimal.NewFromInt(5_000)},
		{Symbol: "DIA", MaxLoss: decimal.NewFromInt(3_000)},
	}

	// used 8000 + new 3000 > 10% of 100k, even though 3000 alone would
	// also trip the per-trade cap; both rules must appear.
	result := Evaluate(condorPlan(3_000), portfolio.Assess(snapshot), snapshot, defaultConstraints())

	assert.False(t, result.OK)
	codes := ruleCodes(result)
	assert.Contains(t, codes, model.RuleMaxPortfolioRisk)
	assert.Contains(t, codes, model.RuleMaxRiskTrade)
}

func TestEvaluatePositionCountCap(t *testing.T) {
	snapshot := flatSnapshot(1_000_000)
	for i := 0; i < 10; i++ {
		snapshot.Positions = append(snapshot.Positions, model.Position{
			Symbol: "XLF", MaxLoss: decimal.NewFromInt(10),
		})
	}

	result := Evaluate(condorPlan(200), portfolio.Assess(snapshot), snapshot, defaultConstraints())

	assert.False(t, result.OK)
	assert.Contains(t, ruleCodes(result), model.RuleMaxPositions)
}

func TestEvaluateWarningsDoNotBlock(t *testing.T) {
	snapshot := flatSnapshot(100_000)
	snapshot.Positions = []model.Position{
		{
			Symbol:          "QQQ",
			MarketValue:     decimal.NewFromInt(120_000),
			MaxLoss:         decimal.NewFromInt(1_000),
			Beta:            1.4,
			CorrelationHint: 0.92,
		},
	}

	result := Evaluate(condorPlan(200), portfolio.Assess(snapshot), snapshot, defaultConstraints())

	require.True(t, result.OK, "warnings alone must not block")
	codes := ruleCodes(result)
	assert.Contains(t, codes, model.RuleBetaExposureHigh)
	assert.Contains(t, codes, model.RuleCorrelationHigh)
	assert.Empty(t, result.Blocks())
}

func TestEvaluateSpreadTooWide(t *testing.T) {
	exp := time.Now().UTC().AddDate(0, 2, 0)
	plan := model.TradePlan{
		StrategyType: model.StrategyPutCreditSpread,
		Symbol:       "SPY",
		Legs: []model.TradeLeg{
			{Action: model.ActionSell, Instrument: model.InstrumentPut, Strike: decimal.NewFromInt(450), Quantity: 1, Expiration: exp},
			{Action: model.ActionBuy, Instrument: model.InstrumentPut, Strike: decimal.NewFromInt(425), Quantity: 1, Expiration: exp},
		},
		Expiration: exp,
		MaxRisk:    decimal.NewFromInt(1_750),
	}

	snapshot := flatSnapshot(100_000)
	result := Evaluate(plan, portfolio.Assess(snapshot), snapshot, defaultConstraints())

	assert.False(t, result.OK)
	assert.Contains(t, ruleCodes(result), model.RuleSpreadTooWide)
}

func TestEvaluateOpenInterest(t *testing.T) {
	snapshot := flatSnapshot(100_000)

	t.Run("thin contract warns", func(t *testing.T) {
		plan := condorPlan(200)
		plan.Legs[0].OpenInterest = 40
		plan.Legs[1].OpenInterest = 500

		result := Evaluate(plan, portfolio.Assess(snapshot), snapshot, defaultConstraints())
		assert.True(t, result.OK)
		assert.Contains(t, ruleCodes(result), model.RuleInsufficientLiquidity)
	})

	t.Run("missing data is skipped", func(t *testing.T) {
		result := Evaluate(condorPlan(200), portfolio.Assess(snapshot), snapshot, defaultConstraints())
		assert.NotContains(t, ruleCodes(result), model.RuleInsufficientLiquidity)
	})
}

func TestEvaluateCorrelationSkipsSameSymbol(t *testing.T) {
	snapshot := flatSnapshot(100_000)
	snapshot.Positions = []model.Position{
		{Symbol: "SPY", MaxLoss: decimal.NewFromInt(500), CorrelationHint: 0.99},
	}

	result := Evaluate(condorPlan(200), portfolio.Assess(snapshot), snapshot, defaultConstraints())

	assert.NotContains(t, ruleCodes(result), model.RuleCorrelationHigh)
}

func TestEvaluateAccumulatesAllViolations(t *testing.T) {
	now := time.Now().UTC()
	snapshot := model.PortfolioSnapshot{
		Equity: decimal.NewFromInt(85_000),
		EquityCurve: []model.EquityPoint{
			{Timestamp: now.Add(-48 * time.Hour), Equity: decimal.NewFromInt(100_000)},
			{Timestamp: now, Equity: decimal.NewFromInt(85_000)},
		},
		Positions: []model.Position{
			{Symbol: "IWM", MaxLoss: decimal.NewFromInt(8_000)},
		},
	}

	result := Evaluate(condorPlan(5_000), portfolio.Assess(snapshot), snapshot, defaultConstraints())

	assert.False(t, result.OK)
	codes := ruleCodes(result)
	assert.Contains(t, codes, model.RuleDrawdownBreach)
	assert.Contains(t, codes, model.RuleMaxRiskTrade)
	assert.Contains(t, codes, model.RuleMaxPortfolioRisk)
}
