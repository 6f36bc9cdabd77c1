package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of configuration validation failures
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "config validation failed: " + strings.Join(msgs, "; ")
}

// Validate performs comprehensive validation on the loaded configuration.
// Returns nil if valid, or ValidationErrors with all issues found.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateApp()...)
	errs = append(errs, c.validateProvider()...)
	errs = append(errs, c.validateMarketData()...)
	errs = append(errs, c.validateSynth()...)
	errs = append(errs, c.validateRisk()...)
	errs = append(errs, c.validateStaging()...)
	errs = append(errs, c.validateAPI()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errs ValidationErrors
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		errs = append(errs, ValidationError{
			Field:   "app.environment",
			Message: fmt.Sprintf("must be development, staging or production, got %q", c.App.Environment),
		})
	}
	switch c.App.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, ValidationError{
			Field:   "app.log_format",
			Message: fmt.Sprintf("must be json or console, got %q", c.App.LogFormat),
		})
	}
	return errs
}

func (c *Config) validateProvider() ValidationErrors {
	var errs ValidationErrors
	if c.Provider.Endpoint == "" {
		errs = append(errs, ValidationError{Field: "provider.endpoint", Message: "must not be empty"})
	}
	if c.Provider.TimeoutMS <= 0 {
		errs = append(errs, ValidationError{Field: "provider.timeout_ms", Message: "must be positive"})
	}
	if c.Provider.MinConfidence < 0 || c.Provider.MinConfidence > 1 {
		errs = append(errs, ValidationError{Field: "provider.min_confidence", Message: "must be in [0,1]"})
	}
	return errs
}

func (c *Config) validateMarketData() ValidationErrors {
	var errs ValidationErrors
	if c.MarketData.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "market_data.base_url", Message: "must not be empty"})
	}
	if c.MarketData.TimeoutMS <= 0 {
		errs = append(errs, ValidationError{Field: "market_data.timeout_ms", Message: "must be positive"})
	}
	if c.MarketData.RequestsPerMinute <= 0 {
		errs = append(errs, ValidationError{Field: "market_data.requests_per_minute", Message: "must be positive"})
	}
	return errs
}

func (c *Config) validateSynth() ValidationErrors {
	var errs ValidationErrors
	if c.Synth.WingWidth <= 0 {
		errs = append(errs, ValidationError{Field: "synth.wing_width", Message: "must be positive"})
	}
	if c.Synth.MinDaysToExpiry <= 0 {
		errs = append(errs, ValidationError{Field: "synth.min_days_to_expiry", Message: "must be positive"})
	}
	if c.Synth.Quantity <= 0 {
		errs = append(errs, ValidationError{Field: "synth.quantity", Message: "must be positive"})
	}
	if c.Synth.CreditRatio <= 0 || c.Synth.CreditRatio >= 1 {
		errs = append(errs, ValidationError{Field: "synth.credit_ratio", Message: "must be in (0,1)"})
	}
	if c.Synth.StraddlePremiumRatio <= 0 || c.Synth.StraddlePremiumRatio >= 1 {
		errs = append(errs, ValidationError{Field: "synth.straddle_premium_ratio", Message: "must be in (0,1)"})
	}
	return errs
}

func (c *Config) validateRisk() ValidationErrors {
	var errs ValidationErrors
	if c.Risk.MaxRiskPerTradePct <= 0 || c.Risk.MaxRiskPerTradePct > 1 {
		errs = append(errs, ValidationError{Field: "risk.max_risk_per_trade_pct", Message: "must be in (0,1]"})
	}
	if c.Risk.MaxPortfolioRiskPct <= 0 || c.Risk.MaxPortfolioRiskPct > 1 {
		errs = append(errs, ValidationError{Field: "risk.max_portfolio_risk_pct", Message: "must be in (0,1]"})
	}
	if c.Risk.MaxRiskPerTradePct > c.Risk.MaxPortfolioRiskPct {
		errs = append(errs, ValidationError{
			Field:   "risk.max_risk_per_trade_pct",
			Message: "must not exceed risk.max_portfolio_risk_pct",
		})
	}
	if c.Risk.MaxPositions <= 0 {
		errs = append(errs, ValidationError{Field: "risk.max_positions", Message: "must be positive"})
	}
	if c.Risk.MaxSpreadWidth <= 0 {
		errs = append(errs, ValidationError{Field: "risk.max_spread_width", Message: "must be positive"})
	}
	if c.Risk.MaxDrawdownPct <= 0 || c.Risk.MaxDrawdownPct > 1 {
		errs = append(errs, ValidationError{Field: "risk.max_drawdown_pct", Message: "must be in (0,1]"})
	}
	if c.Risk.MaxCorrelation < -1 || c.Risk.MaxCorrelation > 1 {
		errs = append(errs, ValidationError{Field: "risk.max_correlation", Message: "must be in [-1,1]"})
	}
	return errs
}

func (c *Config) validateStaging() ValidationErrors {
	var errs ValidationErrors
	if c.Staging.Directory == "" {
		errs = append(errs, ValidationError{Field: "staging.directory", Message: "must not be empty"})
	}
	switch c.Staging.ConflictPolicy {
	case "return_existing", "reject":
	default:
		errs = append(errs, ValidationError{
			Field:   "staging.conflict_policy",
			Message: fmt.Sprintf("must be return_existing or reject, got %q", c.Staging.ConflictPolicy),
		})
	}
	if c.Staging.RetentionDays < 0 {
		errs = append(errs, ValidationError{Field: "staging.retention_days", Message: "must not be negative"})
	}
	return errs
}

func (c *Config) validateAPI() ValidationErrors {
	var errs ValidationErrors
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, ValidationError{Field: "api.port", Message: "must be a valid TCP port"})
	}
	return errs
}
