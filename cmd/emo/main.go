// Trade proposal CLI
// Turns a natural-language market request into a risk-gated, staged order draft
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/audit"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/config"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/pipeline"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/portfolio"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/staging"
)

var (
	// Proposal input
	text    = flag.String("text", "", "Natural-language market request, e.g. \"I think SPY stays flat through June\"")
	symbol  = flag.String("symbol", "", "Symbol hint when the text is ambiguous")
	horizon = flag.String("horizon", "", "Horizon hint, e.g. 2w or 1m")
	user    = flag.String("user", "", "User recorded in the draft metadata")
	maxRisk = flag.String("max-risk", "", "Per-request cap on plan max risk in dollars, tightens the static gates")
	dryRun  = flag.Bool("dry-run", false, "Run the full pipeline but do not persist a draft")

	// Portfolio state
	portfolioPath = flag.String("portfolio", "", "Path to a YAML portfolio snapshot (required for proposals)")

	// Draft administration
	listDrafts  = flag.Bool("list-drafts", false, "List staged drafts and exit")
	draftSymbol = flag.String("draft-symbol", "", "Filter -list-drafts by symbol")
	stats       = flag.Bool("stats", false, "Print draft store statistics and exit")
	cleanupDays = flag.Int("cleanup-days", 0, "Delete drafts older than N days and exit")

	// General
	configPath = flag.String("config", "", "Path to config file (default: ./configs/config.yaml)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	adminOnly := *listDrafts || *stats || *cleanupDays > 0
	if adminOnly {
		store, err := staging.NewStore(cfg.Staging)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open draft store")
		}
		if err := runAdmin(ctx, cfg, store); err != nil {
			log.Fatal().Err(err).Msg("Draft administration failed")
		}
		return
	}

	if *text == "" {
		fmt.Fprintln(os.Stderr, "Error: -text is required")
		flag.Usage()
		os.Exit(1)
	}

	snapshots := snapshotProvider()
	pipe, _, cleanup, err := pipeline.FromConfig(ctx, cfg, snapshots)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble pipeline")
	}
	defer cleanup()

	var riskCap decimal.Decimal
	if *maxRisk != "" {
		riskCap, err = decimal.NewFromString(*maxRisk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -max-risk %q: %v\n", *maxRisk, err)
			os.Exit(1)
		}
	}

	result, err := pipe.Propose(ctx, pipeline.Request{
		Text:       *text,
		SymbolHint: *symbol,
		Horizon:    *horizon,
		User:       *user,
		MaxRisk:    riskCap,
		DryRun:     *dryRun,
	})
	if err != nil {
		log.Error().Err(err).Msg("Proposal failed")
	}
	if result != nil {
		printYAML(result)
	}
	if result == nil || result.Outcome == pipeline.OutcomeError {
		os.Exit(1)
	}
	if result.Outcome == pipeline.OutcomeBlocked {
		os.Exit(2)
	}
}

// snapshotProvider reads the portfolio file when given, otherwise falls
// back to a flat all-cash book so dry runs work out of the box.
func snapshotProvider() portfolio.SnapshotProvider {
	if *portfolioPath != "" {
		return portfolio.FileProvider{Path: *portfolioPath}
	}
	log.Warn().Msg("No -portfolio given, using an empty 100k snapshot")
	now := time.Now().UTC()
	return portfolio.StaticProvider{Value: model.PortfolioSnapshot{
		Equity: decimal.NewFromInt(100_000),
		EquityCurve: []model.EquityPoint{
			{Timestamp: now, Equity: decimal.NewFromInt(100_000)},
		},
	}}
}

func runAdmin(ctx context.Context, cfg *config.Config, store *staging.Store) error {
	switch {
	case *cleanupDays > 0:
		recorder, closeAudit, err := audit.FromConfig(ctx, cfg.Audit.Enabled, cfg.Audit.DatabaseURL)
		if err != nil {
			return err
		}
		defer closeAudit()

		removed, err := store.Cleanup(*cleanupDays)
		if err != nil {
			return err
		}
		if err := recorder.RecordCleanup(ctx, removed, *cleanupDays); err != nil {
			log.Warn().Err(err).Msg("Audit write failed")
		}
		fmt.Printf("removed %d draft(s) older than %d days\n", removed, *cleanupDays)
	case *stats:
		s, err := store.Stats()
		if err != nil {
			return err
		}
		printYAML(s)
	default:
		drafts, err := store.List(staging.Filter{Symbol: *draftSymbol})
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			fmt.Println("no drafts staged")
			return nil
		}
		for _, d := range drafts {
			fmt.Printf("%s  %-8s %-20s %s  max_risk=%s\n",
				d.CreatedAt.Format(time.RFC3339),
				d.TradePlan.Symbol,
				d.TradePlan.StrategyType,
				d.ID,
				d.TradePlan.MaxRisk)
		}
	}
	return nil
}

func printYAML(v interface{}) {
	out, err := yaml.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render output")
		return
	}
	fmt.Print(string(out))
}
