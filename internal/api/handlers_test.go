package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/config"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/marketdata"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/pipeline"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/portfolio"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/staging"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/synth"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/view"
)

type stubQuotes map[string]decimal.Decimal

func (q stubQuotes) GetSpot(_ context.Context, symbol string) (marketdata.Quote, error) {
	spot, ok := q[symbol]
	if !ok {
		return marketdata.Quote{}, marketdata.ErrUnavailable
	}
	return marketdata.Quote{Symbol: symbol, Spot: spot}, nil
}

func testServer(t *testing.T) (*Server, *staging.Store) {
	t.Helper()

	store, err := staging.NewStore(config.StagingConfig{Directory: t.TempDir()})
	require.NoError(t, err)

	now := time.Now().UTC()
	snapshot := model.PortfolioSnapshot{
		Equity: decimal.NewFromInt(100_000),
		EquityCurve: []model.EquityPoint{
			{Timestamp: now.Add(-24 * time.Hour), Equity: decimal.NewFromInt(100_000)},
			{Timestamp: now, Equity: decimal.NewFromInt(100_000)},
		},
	}

	pipe, err := pipeline.New(pipeline.Options{
		Classifier:  view.NewClassifier(nil, view.ClassifierConfig{}),
		Quotes:      stubQuotes{"SPY": decimal.NewFromInt(450)},
		Snapshots:   portfolio.StaticProvider{Value: snapshot},
		Synthesizer: synth.NewSynthesizer(synth.DefaultConfig()),
		Store:       store,
		Constraints: model.RiskConstraints{
			MaxRiskPerTradePct:  0.02,
			MaxPortfolioRiskPct: 0.10,
			MaxPositions:        10,
			MinOpenInterest:     100,
			MaxSpreadWidth:      decimal.NewFromInt(10),
			MaxDrawdownPct:      0.10,
			MaxBetaExposure:     1.5,
			MaxCorrelation:      0.8,
		},
	})
	require.NoError(t, err)

	server := NewServer(Config{
		Host:          "127.0.0.1",
		Port:          0,
		Pipeline:      pipe,
		Store:         store,
		EnableMetrics: true,
	})
	return server, store
}

func doRequest(server *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	server, _ := testServer(t)
	w := doRequest(server, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := testServer(t)
	w := doRequest(server, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "emo_")
}

func TestPostProposalStaged(t *testing.T) {
	server, _ := testServer(t)

	w := doRequest(server, http.MethodPost, "/api/v1/proposals",
		`{"text":"SPY drifts sideways into June","user":"alex"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, pipeline.OutcomeStaged, result.Outcome)
	require.NotNil(t, result.Draft)
	assert.Equal(t, model.StatusDraft, result.Draft.Status)
}

func TestPostProposalDryRun(t *testing.T) {
	server, store := testServer(t)

	w := doRequest(server, http.MethodPost, "/api/v1/proposals",
		`{"text":"SPY stays flat","dry_run":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	drafts, err := store.List(staging.Filter{})
	require.NoError(t, err)
	assert.Empty(t, drafts, "dry run must not persist")
}

func TestPostProposalValidationFailures(t *testing.T) {
	server, _ := testServer(t)

	t.Run("empty body", func(t *testing.T) {
		w := doRequest(server, http.MethodPost, "/api/v1/proposals", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("blank text", func(t *testing.T) {
		w := doRequest(server, http.MethodPost, "/api/v1/proposals", `{"text":"  "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPostProposalMarketDataFailure(t *testing.T) {
	server, _ := testServer(t)

	// QQQ is not in the stub price table
	w := doRequest(server, http.MethodPost, "/api/v1/proposals",
		`{"text":"QQQ looks bearish, expecting a drop"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListAndGetDrafts(t *testing.T) {
	server, _ := testServer(t)

	w := doRequest(server, http.MethodPost, "/api/v1/proposals",
		`{"request_id":"req-list-1","text":"SPY stays flat"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("list", func(t *testing.T) {
		w := doRequest(server, http.MethodGet, "/api/v1/drafts", "")
		require.Equal(t, http.StatusOK, w.Code)

		var payload struct {
			Drafts []model.StagedOrder `json:"drafts"`
			Count  int                 `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		assert.Equal(t, 1, payload.Count)
	})

	t.Run("list filtered by symbol", func(t *testing.T) {
		w := doRequest(server, http.MethodGet, "/api/v1/drafts?symbol=TSLA", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":0`)
	})

	t.Run("list filtered by since", func(t *testing.T) {
		past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
		w := doRequest(server, http.MethodGet, "/api/v1/drafts?since="+past, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":1`)

		future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
		w = doRequest(server, http.MethodGet, "/api/v1/drafts?since="+future, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":0`)
	})

	t.Run("list rejects malformed since", func(t *testing.T) {
		w := doRequest(server, http.MethodGet, "/api/v1/drafts?since=yesterday", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get by id", func(t *testing.T) {
		w := doRequest(server, http.MethodGet, "/api/v1/drafts/req-list-1", "")
		require.Equal(t, http.StatusOK, w.Code)

		var draft model.StagedOrder
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &draft))
		assert.Equal(t, "req-list-1", draft.ID)
	})

	t.Run("get unknown id", func(t *testing.T) {
		w := doRequest(server, http.MethodGet, "/api/v1/drafts/missing", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("stats", func(t *testing.T) {
		w := doRequest(server, http.MethodGet, "/api/v1/drafts/stats", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":1`)
	})
}
