package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "emo-options-bot", cfg.App.Name)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 5.0, cfg.Synth.WingWidth)
	assert.Equal(t, 30, cfg.Synth.MinDaysToExpiry)
	assert.Equal(t, 0.30, cfg.Synth.CreditRatio)
	assert.Equal(t, 0.02, cfg.Risk.MaxRiskPerTradePct)
	assert.Equal(t, 0.10, cfg.Risk.MaxDrawdownPct)
	assert.Equal(t, "return_existing", cfg.Staging.ConflictPolicy)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 8081, cfg.API.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  environment: production
  log_level: warn
synth:
  wing_width: 2.5
  quantity: 3
risk:
  max_positions: 4
staging:
  conflict_policy: reject
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, 2.5, cfg.Synth.WingWidth)
	assert.Equal(t, 3, cfg.Synth.Quantity)
	assert.Equal(t, 4, cfg.Risk.MaxPositions)
	assert.Equal(t, "reject", cfg.Staging.ConflictPolicy)

	// untouched sections keep defaults
	assert.Equal(t, 0.30, cfg.Synth.CreditRatio)
	assert.Equal(t, 60, cfg.MarketData.RequestsPerMinute)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad environment", "app:\n  environment: prod\n"},
		{"bad conflict policy", "staging:\n  conflict_policy: overwrite\n"},
		{"negative wing width", "synth:\n  wing_width: -5\n"},
		{"per-trade above portfolio cap", "risk:\n  max_risk_per_trade_pct: 0.5\n  max_portfolio_risk_pct: 0.1\n"},
		{"credit ratio out of range", "synth:\n  credit_ratio: 1.5\n"},
		{"bad port", "api:\n  port: 99999\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestRiskConstraintsConversion(t *testing.T) {
	rc := RiskConfig{
		MaxRiskPerTradePct:  0.02,
		MaxPortfolioRiskPct: 0.10,
		MaxPositions:        10,
		MinOpenInterest:     100,
		MaxSpreadWidth:      7.5,
		MaxDrawdownPct:      0.10,
		MaxBetaExposure:     1.5,
		MaxCorrelation:      0.8,
	}

	constraints := rc.Constraints()
	assert.Equal(t, 0.02, constraints.MaxRiskPerTradePct)
	assert.Equal(t, 10, constraints.MaxPositions)
	assert.True(t, constraints.MaxSpreadWidth.Equal(decimal.NewFromFloat(7.5)))
}

func TestValidationErrorsFormat(t *testing.T) {
	errs := ValidationErrors{
		{Field: "api.port", Message: "must be a valid TCP port"},
	}
	assert.Contains(t, errs.Error(), "api.port")
	assert.Empty(t, ValidationErrors{}.Error())
}
