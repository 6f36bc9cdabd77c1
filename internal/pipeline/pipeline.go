package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/audit"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/config"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/marketdata"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/metrics"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/portfolio"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/risk"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/staging"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/synth"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/view"
)

// Outcome of one proposal run.
const (
	OutcomeStaged  = "staged"
	OutcomeBlocked = "blocked"
	OutcomeDryRun  = "dry_run"
	OutcomeError   = "error"
)

// Request is one natural-language trade proposal. MaxRisk, when positive,
// caps the plan's max risk for this request on top of the static
// constraints; it can only tighten the gates, never loosen them.
type Request struct {
	RequestID  string          `json:"request_id,omitempty"`
	Text       string          `json:"text"`
	SymbolHint string          `json:"symbol,omitempty"`
	Horizon    string          `json:"horizon,omitempty"`
	User       string          `json:"user,omitempty"`
	MaxRisk    decimal.Decimal `json:"max_risk,omitempty"`
	DryRun     bool            `json:"dry_run,omitempty"`
}

// Result carries everything the pipeline produced for a request,
// whichever outcome it reached. Reasons is always populated for
// non-staged outcomes.
type Result struct {
	RequestID  string                 `json:"request_id"`
	Outcome    string                 `json:"outcome"`
	View       *model.MarketView      `json:"view,omitempty"`
	Plan       *model.TradePlan       `json:"plan,omitempty"`
	Validation model.ValidationResult `json:"validation"`
	Draft      *model.StagedOrder     `json:"draft,omitempty"`
	Reasons    []string               `json:"reasons,omitempty"`
}

// Pipeline runs classify, synthesize, assess, gate, and stage in order.
// Risk gating is fail-closed: any error after classification produces an
// error outcome, never a staged draft.
type Pipeline struct {
	classifier  *view.Classifier
	quotes      marketdata.QuoteSource
	snapshots   portfolio.SnapshotProvider
	synthesizer *synth.Synthesizer
	store       *staging.Store
	recorder    *audit.Recorder
	constraints model.RiskConstraints
	timeout     time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// Options bundles the pipeline's collaborators.
type Options struct {
	Classifier  *view.Classifier
	Quotes      marketdata.QuoteSource
	Snapshots   portfolio.SnapshotProvider
	Synthesizer *synth.Synthesizer
	Store       *staging.Store
	Recorder    *audit.Recorder
	Constraints model.RiskConstraints
	Timeout     time.Duration
}

// New assembles a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Classifier == nil {
		return nil, errors.New("pipeline requires a classifier")
	}
	if opts.Quotes == nil {
		return nil, errors.New("pipeline requires a quote source")
	}
	if opts.Snapshots == nil {
		return nil, errors.New("pipeline requires a portfolio snapshot provider")
	}
	if opts.Synthesizer == nil {
		return nil, errors.New("pipeline requires a synthesizer")
	}
	if opts.Store == nil {
		return nil, errors.New("pipeline requires a staging store")
	}
	if opts.Recorder == nil {
		opts.Recorder = audit.NewRecorder(nil, false)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Pipeline{
		classifier:  opts.Classifier,
		quotes:      opts.Quotes,
		snapshots:   opts.Snapshots,
		synthesizer: opts.Synthesizer,
		store:       opts.Store,
		recorder:    opts.Recorder,
		constraints: opts.Constraints,
		timeout:     opts.Timeout,
		logger:      config.NewLogger("pipeline"),
		now:         time.Now,
	}, nil
}

// Propose runs the full flow for one request. The returned Result is
// populated as far as the run got; err is non-nil only for outcome error.
func (p *Pipeline) Propose(ctx context.Context, req Request) (*Result, error) {
	start := p.now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	result := &Result{RequestID: req.RequestID}

	fail := func(stage string, err error) (*Result, error) {
		reason := fmt.Sprintf("%s: %v", stage, err)
		result.Outcome = OutcomeError
		result.Reasons = append(result.Reasons, reason)
		metrics.RecordOutcome(metrics.OutcomeError)
		p.audit(ctx, audit.EventTypeProposalError, req, result, start)
		return result, fmt.Errorf("%s: %w", stage, err)
	}

	// 1. Classify the free-text request into a structured view.
	mv, err := p.classifier.Classify(ctx, req.Text, view.Hint{
		Symbol:  req.SymbolHint,
		Horizon: req.Horizon,
	})
	if err != nil {
		return fail("classify", err)
	}
	result.View = mv
	if mv.Source == model.SourceFallback {
		event := &audit.Event{
			EventType: audit.EventTypeClassifierFallback,
			Severity:  audit.SeverityWarning,
			RequestID: req.RequestID,
			User:      req.User,
			Symbol:    mv.Symbol,
			Outcome:   "fallback",
		}
		if mv.Notes != "" {
			event.Reasons = []string{mv.Notes}
		}
		if err := p.recorder.Record(ctx, event); err != nil {
			p.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("Audit write failed")
		}
	}

	// 2. Spot price. Market data is a hard dependency; no synthetic
	// fallback price exists.
	quote, err := p.quotes.GetSpot(ctx, mv.Symbol)
	if err != nil {
		return fail("market data", err)
	}

	// 3. Synthesize the options structure.
	plan, err := p.synthesizer.Synthesize(*mv, quote.Spot)
	if err != nil {
		return fail("synthesize", err)
	}
	result.Plan = &plan

	// 4. Portfolio state and risk gates.
	snapshot, err := p.snapshots.Snapshot(ctx)
	if err != nil {
		return fail("portfolio", err)
	}
	assessment := portfolio.Assess(snapshot)
	validation := risk.Evaluate(plan, assessment, snapshot, p.constraints)
	if req.MaxRisk.IsPositive() && plan.MaxRisk.GreaterThan(req.MaxRisk) {
		validation.Violations = append(validation.Violations, model.RiskViolation{
			RuleCode: model.RuleMaxRiskRequest,
			Detail:   fmt.Sprintf("plan max risk %s exceeds requested cap %s", plan.MaxRisk, req.MaxRisk),
			Severity: model.SeverityBlock,
		})
		validation.OK = false
		metrics.RecordViolation(model.RuleMaxRiskRequest, string(model.SeverityBlock))
	}
	result.Validation = validation

	if !validation.OK {
		for _, v := range validation.Blocks() {
			result.Reasons = append(result.Reasons, fmt.Sprintf("%s: %s", v.RuleCode, v.Detail))
		}
		result.Outcome = OutcomeBlocked
		metrics.RecordOutcome(metrics.OutcomeBlocked)
		p.audit(ctx, audit.EventTypeProposalBlocked, req, result, start)
		p.logger.Warn().
			Str("request_id", req.RequestID).
			Str("symbol", plan.Symbol).
			Strs("reasons", result.Reasons).
			Msg("Proposal blocked by risk gates")
		return result, nil
	}

	// 5. Dry run stops before disk.
	if req.DryRun {
		result.Outcome = OutcomeDryRun
		result.Reasons = append(result.Reasons, "dry run requested, draft not persisted")
		metrics.RecordOutcome(metrics.OutcomeDryRun)
		p.audit(ctx, audit.EventTypeProposalDryRun, req, result, start)
		return result, nil
	}

	// 6. Stage the signed draft. A deadline that expired during the pure
	// assess and evaluate phase must abort here, before anything touches
	// disk; collaborator calls honor ctx only incidentally.
	if err := ctx.Err(); err != nil {
		return fail("deadline", err)
	}
	draft, err := p.store.Stage(req.RequestID, plan, validation, model.OrderMetadata{
		User:       req.User,
		Source:     string(mv.Source),
		Confidence: mv.Confidence,
		Note:       req.Text,
	})
	if err != nil {
		return fail("stage", err)
	}
	result.Draft = draft
	result.Outcome = OutcomeStaged
	metrics.RecordOutcome(metrics.OutcomeStaged)
	p.audit(ctx, audit.EventTypeProposalStaged, req, result, start)

	p.logger.Info().
		Str("request_id", req.RequestID).
		Str("symbol", plan.Symbol).
		Str("strategy", string(plan.StrategyType)).
		Str("draft_id", draft.ID).
		Msg("Proposal staged for review")
	return result, nil
}

func (p *Pipeline) audit(ctx context.Context, eventType audit.EventType, req Request, result *Result, start time.Time) {
	symbol, strategy := "", ""
	if result.View != nil {
		symbol = result.View.Symbol
	}
	if result.Plan != nil {
		symbol = result.Plan.Symbol
		strategy = string(result.Plan.StrategyType)
	}
	if err := p.recorder.RecordProposal(ctx, eventType, req.RequestID, req.User, symbol, strategy,
		result.Outcome, result.Reasons, p.now().Sub(start).Milliseconds()); err != nil {
		p.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("Audit write failed")
	}
}
