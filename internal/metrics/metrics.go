package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded cardinality constants for metric labels.
// These ensure metrics don't have unbounded label values which can cause memory issues.
const (
	// Proposal outcomes (bounded set)
	OutcomeStaged  = "staged"
	OutcomeBlocked = "blocked"
	OutcomeDryRun  = "dry_run"
	OutcomeError   = "error"

	// Classification sources (bounded set)
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

// Pipeline metrics
var (
	// Proposals processed by outcome
	ProposalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emo_proposals_total",
		Help: "Trade proposals processed, by final outcome",
	}, []string{"outcome"})

	// Block violations by rule code (rule codes are a bounded set)
	GateViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emo_gate_violations_total",
		Help: "Risk gate violations emitted, by rule code and severity",
	}, []string{"rule_code", "severity"})

	// Classification source (provider vs deterministic fallback)
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emo_classifications_total",
		Help: "Market view classifications, by source",
	}, []string{"source"})

	// Current drawdown as last observed by the assessor
	CurrentDrawdown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emo_current_drawdown",
		Help: "Portfolio drawdown from peak equity as a ratio (0.0 to 1.0)",
	})

	// Portfolio risk utilization as last observed by the assessor
	RiskUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emo_risk_utilization",
		Help: "Sum of position max losses over equity as a ratio",
	})

	// Staged draft count on disk (updated by staging stats sweeps)
	StagedDrafts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emo_staged_drafts",
		Help: "Number of draft artifacts currently in the staging directory",
	})

	// Staging write latency
	StagingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "emo_staging_duration_seconds",
		Help:    "Time spent writing a draft artifact to durable storage",
		Buckets: prometheus.DefBuckets,
	})

	// Spot price lookups by cache result
	QuoteLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emo_quote_lookups_total",
		Help: "Spot price lookups, by result (hit, miss, error)",
	}, []string{"result"})
)

// RecordOutcome increments the proposal counter for a pipeline outcome.
func RecordOutcome(outcome string) {
	ProposalsTotal.WithLabelValues(outcome).Inc()
}

// RecordViolation increments the gate violation counter.
func RecordViolation(ruleCode, severity string) {
	GateViolations.WithLabelValues(ruleCode, severity).Inc()
}

// RecordClassification increments the classification counter.
func RecordClassification(source string) {
	Classifications.WithLabelValues(source).Inc()
}
