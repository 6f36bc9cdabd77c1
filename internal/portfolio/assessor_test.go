package portfolio

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

func TestAssessEmptyPortfolio(t *testing.T) {
	a := Assess(model.PortfolioSnapshot{Equity: decimal.NewFromInt(50_000)})

	assert.True(t, a.RiskUsed.IsZero())
	assert.Zero(t, a.RiskUtilPct)
	assert.Zero(t, a.BetaExposure)
	assert.Zero(t, a.DrawdownPct)
	assert.Zero(t, a.PositionCount)
}

func TestAssessRiskAndBeta(t *testing.T) {
	snapshot := model.PortfolioSnapshot{
		Equity: decimal.NewFromInt(100_000),
		Positions: []model.Position{
			{Symbol: "SPY", MarketValue: decimal.NewFromInt(50_000), MaxLoss: decimal.NewFromInt(2_000), Beta: 1.0},
			{Symbol: "TLT", MarketValue: decimal.NewFromInt(25_000), MaxLoss: decimal.NewFromInt(1_000), Beta: -0.4},
		},
	}

	a := Assess(snapshot)

	assert.True(t, a.RiskUsed.Equal(decimal.NewFromInt(3_000)))
	assert.InDelta(t, 0.03, a.RiskUtilPct, 1e-9)
	// 1.0*0.5 + (-0.4)*0.25 = 0.4
	assert.InDelta(t, 0.4, a.BetaExposure, 1e-9)
	assert.Equal(t, 2, a.PositionCount)
}

func TestAssessDrawdown(t *testing.T) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	point := func(days int, equity int64) model.EquityPoint {
		return model.EquityPoint{
			Timestamp: base.AddDate(0, 0, days),
			Equity:    decimal.NewFromInt(equity),
		}
	}

	tests := []struct {
		name     string
		curve    []model.EquityPoint
		expected float64
	}{
		{
			name:     "fifteen percent off the peak",
			curve:    []model.EquityPoint{point(0, 100_000), point(1, 85_000)},
			expected: 0.15,
		},
		{
			name:     "peak mid-curve counts",
			curve:    []model.EquityPoint{point(0, 90_000), point(1, 110_000), point(2, 99_000)},
			expected: 0.10,
		},
		{
			name:     "at the high there is no drawdown",
			curve:    []model.EquityPoint{point(0, 90_000), point(1, 100_000)},
			expected: 0,
		},
		{
			name:     "single point yields zero",
			curve:    []model.EquityPoint{point(0, 100_000)},
			expected: 0,
		},
		{
			name:     "empty curve yields zero",
			curve:    nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := model.PortfolioSnapshot{
				Equity:      decimal.NewFromInt(100_000),
				EquityCurve: tt.curve,
			}
			a := Assess(snapshot)
			assert.InDelta(t, tt.expected, a.DrawdownPct, 1e-9)
		})
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio.yaml")

	content := `
equity: "100000"
cash: "40000"
positions:
  - symbol: SPY
    quantity: "10"
    market_value: "45000"
    max_loss: "2000"
    beta: 1.0
    sector: broad
    correlation_hint: 0.0
equity_curve:
  - timestamp: 2026-01-01T00:00:00Z
    equity: "98000"
  - timestamp: 2026-01-02T00:00:00Z
    equity: "100000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	snapshot, err := FileProvider{Path: path}.Snapshot(context.Background())
	require.NoError(t, err)

	assert.True(t, snapshot.Equity.Equal(decimal.NewFromInt(100_000)))
	require.Len(t, snapshot.Positions, 1)
	assert.Equal(t, "SPY", snapshot.Positions[0].Symbol)
	assert.Len(t, snapshot.EquityCurve, 2)
}

func TestFileProviderErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := FileProvider{Path: "/nonexistent/portfolio.yaml"}.Snapshot(context.Background())
		assert.Error(t, err)
	})

	t.Run("non-positive equity rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "portfolio.yaml")
		require.NoError(t, os.WriteFile(path, []byte("equity: \"0\"\n"), 0o644))
		_, err := FileProvider{Path: path}.Snapshot(context.Background())
		assert.Error(t, err)
	})
}
