package view

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

func TestHeuristicOutlooks(t *testing.T) {
	p := NewHeuristicProvider()
	ctx := context.Background()

	tests := []struct {
		name    string
		text    string
		outlook model.Outlook
	}{
		{"bullish rally", "I think SPY will rally into the summer", model.OutlookBullish},
		{"bearish selloff", "expecting a nasty selloff in QQQ", model.OutlookBearish},
		{"neutral drift", "market just drifts sideways from here", model.OutlookNeutral},
		{"range bound", "SPY looks stuck in a range until September", model.OutlookRange},
		{"volatile earnings", "NVDA earnings play, big move either way", model.OutlookVolatile},
		{"volatility beats direction", "explosive rally or crash, who knows", model.OutlookVolatile},
		{"conflicting directions default neutral", "could rally or could crash and drop hard", model.OutlookNeutral},
		{"unrecognized defaults neutral", "I had lunch today", model.OutlookNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := p.Classify(ctx, tt.text, Hint{})
			require.NoError(t, err)
			assert.Equal(t, tt.outlook, view.Outlook)
			assert.Equal(t, model.SourceFallback, view.Source)
			assert.Equal(t, FallbackConfidence, view.Confidence)
		})
	}
}

func TestHeuristicSymbol(t *testing.T) {
	p := NewHeuristicProvider()
	ctx := context.Background()

	t.Run("hint wins over text", func(t *testing.T) {
		view, err := p.Classify(ctx, "SPY looks strong", Hint{Symbol: "qqq"})
		require.NoError(t, err)
		assert.Equal(t, "QQQ", view.Symbol)
	})

	t.Run("extracted from text", func(t *testing.T) {
		view, err := p.Classify(ctx, "I think TSLA dumps after the print.", Hint{})
		require.NoError(t, err)
		assert.Equal(t, "TSLA", view.Symbol)
	})

	t.Run("single letters are not tickers", func(t *testing.T) {
		view, err := p.Classify(ctx, "I think A calm drift continues", Hint{})
		require.NoError(t, err)
		assert.Empty(t, view.Symbol)
	})

	t.Run("dollar prefix stripped", func(t *testing.T) {
		view, err := p.Classify(ctx, "$AMD going up all week", Hint{})
		require.NoError(t, err)
		assert.Equal(t, "AMD", view.Symbol)
	})
}

func TestHeuristicEmptyText(t *testing.T) {
	p := NewHeuristicProvider()
	_, err := p.Classify(context.Background(), "   ", Hint{})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestHeuristicDeterministic(t *testing.T) {
	p := NewHeuristicProvider()
	ctx := context.Background()

	a, err := p.Classify(ctx, "SPY grinds higher on strong breadth", Hint{})
	require.NoError(t, err)
	b, err := p.Classify(ctx, "SPY grinds higher on strong breadth", Hint{})
	require.NoError(t, err)

	assert.Equal(t, a.Outlook, b.Outlook)
	assert.Equal(t, a.Symbol, b.Symbol)
	assert.Equal(t, a.Confidence, b.Confidence)
}
