package view

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

// chatServer fakes the chat-completions gateway, replying with the given
// classification payload.
func chatServer(t *testing.T, status int, payload viewPayload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"upstream unavailable","type":"server_error"}}`)
			return
		}
		content, err := json.Marshal(payload)
		require.NoError(t, err)
		resp := map[string]interface{}{
			"model": "test",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": string(content)}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClassifierUsesProvider(t *testing.T) {
	server := chatServer(t, http.StatusOK, viewPayload{
		Symbol:     "SPY",
		Outlook:    "neutral",
		Confidence: 0.85,
		Notes:      "low realized vol into opex",
	})
	defer server.Close()

	remote := NewRemoteProvider(RemoteConfig{Endpoint: server.URL, Timeout: 2 * time.Second})
	c := NewClassifier(remote, ClassifierConfig{})

	view, err := c.Classify(context.Background(), "SPY stays flat through June", Hint{})
	require.NoError(t, err)

	assert.Equal(t, model.SourceProvider, view.Source)
	assert.Equal(t, model.OutlookNeutral, view.Outlook)
	assert.Equal(t, "SPY", view.Symbol)
	assert.InDelta(t, 0.85, view.Confidence, 1e-9)
}

func TestClassifierFallsBackOnLowConfidence(t *testing.T) {
	server := chatServer(t, http.StatusOK, viewPayload{
		Symbol:     "SPY",
		Outlook:    "bullish",
		Confidence: 0.3,
	})
	defer server.Close()

	remote := NewRemoteProvider(RemoteConfig{Endpoint: server.URL, Timeout: 2 * time.Second})
	c := NewClassifier(remote, ClassifierConfig{MinConfidence: 0.6})

	view, err := c.Classify(context.Background(), "SPY drifts sideways", Hint{})
	require.NoError(t, err)

	assert.Equal(t, model.SourceFallback, view.Source)
	assert.Equal(t, model.OutlookNeutral, view.Outlook)
	assert.Equal(t, FallbackConfidence, view.Confidence)
}

func TestClassifierFallsBackOnProviderError(t *testing.T) {
	server := chatServer(t, http.StatusBadGateway, viewPayload{})
	defer server.Close()

	remote := NewRemoteProvider(RemoteConfig{Endpoint: server.URL, Timeout: 2 * time.Second})
	c := NewClassifier(remote, ClassifierConfig{})

	view, err := c.Classify(context.Background(), "QQQ looks bearish, expecting a drop", Hint{})
	require.NoError(t, err)

	assert.Equal(t, model.SourceFallback, view.Source)
	assert.Equal(t, model.OutlookBearish, view.Outlook)
}

func TestClassifierFallsBackOnGarbagePayload(t *testing.T) {
	server := chatServer(t, http.StatusOK, viewPayload{
		Symbol:     "SPY",
		Outlook:    "to-the-moon",
		Confidence: 0.95,
	})
	defer server.Close()

	remote := NewRemoteProvider(RemoteConfig{Endpoint: server.URL, Timeout: 2 * time.Second})
	c := NewClassifier(remote, ClassifierConfig{})

	view, err := c.Classify(context.Background(), "SPY rally continues", Hint{})
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, view.Source)
}

func TestClassifierHeuristicOnly(t *testing.T) {
	c := NewClassifier(nil, ClassifierConfig{})

	view, err := c.Classify(context.Background(), "IWM stuck in a range", Hint{})
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, view.Source)
	assert.Equal(t, model.OutlookRange, view.Outlook)
}

func TestClassifierRejectsBlankText(t *testing.T) {
	c := NewClassifier(nil, ClassifierConfig{})
	_, err := c.Classify(context.Background(), "", Hint{})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClassifierSurvivesOpenBreaker(t *testing.T) {
	server := chatServer(t, http.StatusInternalServerError, viewPayload{})
	defer server.Close()

	remote := NewRemoteProvider(RemoteConfig{Endpoint: server.URL, Timeout: 2 * time.Second})
	c := NewClassifier(remote, ClassifierConfig{})

	// Enough consecutive failures to trip the breaker; every call must
	// still produce a usable view.
	for i := 0; i < 6; i++ {
		view, err := c.Classify(context.Background(), "SPY looks weak, going down", Hint{})
		require.NoError(t, err)
		assert.Equal(t, model.SourceFallback, view.Source)
		assert.Equal(t, model.OutlookBearish, view.Outlook)
	}
}
