package view

import (
	"context"
	"strings"
	"time"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

// FallbackConfidence is the fixed, conservative confidence assigned to
// heuristic classifications.
const FallbackConfidence = 0.55

// HeuristicProvider is a deterministic keyword classifier used when the
// remote provider is unavailable or untrustworthy. Classification depends
// only on the input text, so identical requests always yield identical views.
type HeuristicProvider struct{}

// NewHeuristicProvider creates the deterministic fallback classifier
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{}
}

// Keyword groups checked in priority order. Volatility phrasing wins over
// directional words ("big move either way" is volatile, not bullish).
var (
	volatileWords = []string{"volatile", "volatility", "big move", "either way", "earnings play", "whipsaw", "explosive"}
	rangeWords    = []string{"range-bound", "rangebound", "range bound", "trading range", "stuck in a range"}
	neutralWords  = []string{"sideways", "flat", "calm", "quiet", "drift", "stall", "consolidat", "go nowhere", "theta"}
	bullishWords  = []string{"bullish", "rally", "upside", "moon", "breakout", "climb", "grind higher", "going up", "calls", "strong"}
	bearishWords  = []string{"bearish", "selloff", "sell-off", "downside", "crash", "dump", "rollover", "going down", "puts", "weak", "drop", "decline"}
)

// Classify maps lexical cues in the text to an outlook. It never fails for
// non-empty text; unrecognized text defaults to a neutral view.
func (p *HeuristicProvider) Classify(_ context.Context, text string, hint Hint) (*model.MarketView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	lower := strings.ToLower(text)

	outlook := model.OutlookNeutral
	switch {
	case containsAny(lower, volatileWords):
		outlook = model.OutlookVolatile
	case containsAny(lower, rangeWords):
		outlook = model.OutlookRange
	case containsAny(lower, neutralWords):
		outlook = model.OutlookNeutral
	case containsAny(lower, bullishWords) && !containsAny(lower, bearishWords):
		outlook = model.OutlookBullish
	case containsAny(lower, bearishWords) && !containsAny(lower, bullishWords):
		outlook = model.OutlookBearish
	}

	symbol := strings.ToUpper(strings.TrimSpace(hint.Symbol))
	if symbol == "" {
		symbol = extractSymbol(text)
	}

	return &model.MarketView{
		Symbol:     symbol,
		Outlook:    outlook,
		Confidence: FallbackConfidence,
		Notes:      "keyword heuristic classification",
		Source:     model.SourceFallback,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// extractSymbol picks the first all-caps token that looks like a ticker.
func extractSymbol(text string) string {
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,;:!?()$")
		if len(tok) < 1 || len(tok) > 5 {
			continue
		}
		allUpper := true
		for _, r := range tok {
			if r < 'A' || r > 'Z' {
				allUpper = false
				break
			}
		}
		// Single capitalized letters ("I", "A") are English, not tickers.
		if allUpper && len(tok) >= 2 {
			return tok
		}
	}
	return ""
}
