package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Synth      SynthConfig      `mapstructure:"synth"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Staging    StagingConfig    `mapstructure:"staging"`
	Audit      AuditConfig      `mapstructure:"audit"`
	API        APIConfig        `mapstructure:"api"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// ProviderConfig contains language-understanding provider settings
type ProviderConfig struct {
	Endpoint      string  `mapstructure:"endpoint"`       // "http://localhost:8080/v1/chat/completions"
	APIKey        string  `mapstructure:"api_key"`        // bearer token, usually from env
	Model         string  `mapstructure:"model"`          // chat model name
	Temperature   float64 `mapstructure:"temperature"`    // 0.2 for classification
	MaxTokens     int     `mapstructure:"max_tokens"`     // 500
	TimeoutMS     int     `mapstructure:"timeout_ms"`     // 10000
	MinConfidence float64 `mapstructure:"min_confidence"` // below this, fall back to heuristic
}

// MarketDataConfig contains spot-price source settings
type MarketDataConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	APIKey            string `mapstructure:"api_key"`
	TimeoutMS         int    `mapstructure:"timeout_ms"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	CacheTTLSeconds   int    `mapstructure:"cache_ttl_seconds"`
}

// RedisConfig contains Redis settings for the quote cache
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SynthConfig contains trade synthesis settings
type SynthConfig struct {
	WingWidth            float64 `mapstructure:"wing_width"`             // strike increment, e.g. 5.0
	DeltaTarget          float64 `mapstructure:"delta_target"`           // 0.16 (advisory, strikes remain grid-based)
	MinDaysToExpiry      int     `mapstructure:"min_days_to_expiry"`     // 30
	Quantity             int     `mapstructure:"quantity"`               // contracts per leg
	CreditRatio          float64 `mapstructure:"credit_ratio"`           // estimated credit as fraction of width
	StraddlePremiumRatio float64 `mapstructure:"straddle_premium_ratio"` // estimated premium as fraction of spot
}

// RiskConfig contains the static risk gate constraints
type RiskConfig struct {
	MaxRiskPerTradePct  float64 `mapstructure:"max_risk_per_trade_pct"` // 0.02 (2% of equity)
	MaxPortfolioRiskPct float64 `mapstructure:"max_portfolio_risk_pct"` // 0.10
	MaxPositions        int     `mapstructure:"max_positions"`          // 10
	MinOpenInterest     int     `mapstructure:"min_open_interest"`      // 100
	MaxSpreadWidth      float64 `mapstructure:"max_spread_width"`       // 10.0
	MaxDrawdownPct      float64 `mapstructure:"max_drawdown_pct"`       // 0.10
	MaxBetaExposure     float64 `mapstructure:"max_beta_exposure"`      // 1.5
	MaxCorrelation      float64 `mapstructure:"max_correlation"`        // 0.8
}

// StagingConfig contains draft storage settings
type StagingConfig struct {
	Directory      string `mapstructure:"directory"`       // where drafts are written
	ConflictPolicy string `mapstructure:"conflict_policy"` // "return_existing" or "reject"
	RetentionDays  int    `mapstructure:"retention_days"`  // cleanup threshold for admin sweeps
}

// AuditConfig contains audit trail settings
type AuditConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DatabaseURL string `mapstructure:"database_url"` // optional postgres DSN; empty = log-only
}

// APIConfig contains REST API settings
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	EnableMetrics bool `mapstructure:"enable_metrics"`
}

// Constraints converts the configured risk limits into the domain value
// consumed by the gate evaluator.
func (c *RiskConfig) Constraints() model.RiskConstraints {
	return model.RiskConstraints{
		MaxRiskPerTradePct:  c.MaxRiskPerTradePct,
		MaxPortfolioRiskPct: c.MaxPortfolioRiskPct,
		MaxPositions:        c.MaxPositions,
		MinOpenInterest:     c.MinOpenInterest,
		MaxSpreadWidth:      decimal.NewFromFloat(c.MaxSpreadWidth),
		MaxDrawdownPct:      c.MaxDrawdownPct,
		MaxBetaExposure:     c.MaxBetaExposure,
		MaxCorrelation:      c.MaxCorrelation,
	}
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("EMO")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "emo-options-bot")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Provider defaults
	v.SetDefault("provider.endpoint", "http://localhost:8080/v1/chat/completions")
	v.SetDefault("provider.model", "claude-sonnet-4-20250514")
	v.SetDefault("provider.temperature", 0.2)
	v.SetDefault("provider.max_tokens", 500)
	v.SetDefault("provider.timeout_ms", 10000)
	v.SetDefault("provider.min_confidence", 0.6)

	// Market data defaults
	v.SetDefault("market_data.base_url", "http://localhost:8090")
	v.SetDefault("market_data.timeout_ms", 5000)
	v.SetDefault("market_data.requests_per_minute", 60)
	v.SetDefault("market_data.cache_ttl_seconds", 30)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Synthesis defaults
	v.SetDefault("synth.wing_width", 5.0)
	v.SetDefault("synth.delta_target", 0.16)
	v.SetDefault("synth.min_days_to_expiry", 30)
	v.SetDefault("synth.quantity", 1)
	v.SetDefault("synth.credit_ratio", 0.30)
	v.SetDefault("synth.straddle_premium_ratio", 0.04)

	// Risk defaults
	v.SetDefault("risk.max_risk_per_trade_pct", 0.02)
	v.SetDefault("risk.max_portfolio_risk_pct", 0.10)
	v.SetDefault("risk.max_positions", 10)
	v.SetDefault("risk.min_open_interest", 100)
	v.SetDefault("risk.max_spread_width", 10.0)
	v.SetDefault("risk.max_drawdown_pct", 0.10)
	v.SetDefault("risk.max_beta_exposure", 1.5)
	v.SetDefault("risk.max_correlation", 0.8)

	// Staging defaults
	v.SetDefault("staging.directory", "./staged_orders")
	v.SetDefault("staging.conflict_policy", "return_existing")
	v.SetDefault("staging.retention_days", 30)

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.database_url", "")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8081)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
}
