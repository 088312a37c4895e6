package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	"github.com/Harry166/stro/internal/service/ratelimit"
)

type stubRanking struct {
	snap     *models.RankingSnapshot
	ranked   []string
	refreshs int
}

func (s *stubRanking) Snapshot() *models.RankingSnapshot { return s.snap }

func (s *stubRanking) Refresh(context.Context) (*models.RankingSnapshot, error) {
	s.refreshs++
	s.snap = &models.RankingSnapshot{Version: s.snap.Version + 1, GeneratedAt: time.Now()}
	return s.snap, nil
}

func (s *stubRanking) Rank(_ context.Context, symbols []string) ([]models.RankedInstrument, error) {
	s.ranked = symbols
	return []models.RankedInstrument{{Symbol: symbols[0], Score: 0.8}}, nil
}

type stubStocks struct{}

func (stubStocks) Outlook(_ context.Context, symbol string) (*models.Outlook, error) {
	return &models.Outlook{Symbol: symbol, Sentiment: 0.8, Trend: 0.9, Prediction: 0.85}, nil
}

func (stubStocks) Analyze(_ context.Context, symbol string) (*models.StockAnalysis, error) {
	if symbol == "NOPE" {
		return nil, domrepo.ErrUnknownSymbol
	}
	return &models.StockAnalysis{Info: &models.InstrumentInfo{Symbol: symbol}}, nil
}

func (stubStocks) Trend(_ context.Context, _ string, p domrepo.Period) models.TrendSignal {
	if p == domrepo.Period1Y {
		return models.TrendSignal{Score: 0.7}
	}
	return models.TrendSignal{Score: 0.5}
}

func (stubStocks) Sentiment(context.Context, string) models.SentimentSignal {
	return models.SentimentSignal{Score: 0.5, Source: models.SourceDefault}
}

type stubNews struct{}

func (stubNews) MarketNews(context.Context) ([]models.Article, string) {
	return []models.Article{{Title: "Markets rally"}}, models.SourceCache
}

type stubWatchlist struct{ items map[string]bool }

func (w *stubWatchlist) Add(_ context.Context, _ int64, symbol string) (models.WatchlistResult, error) {
	if w.items[symbol] {
		return models.WatchlistResult{Success: false, Message: "Stock already in watchlist"}, nil
	}
	w.items[symbol] = true
	return models.WatchlistResult{Success: true, Message: symbol + " added to watchlist"}, nil
}

func (w *stubWatchlist) Remove(_ context.Context, _ int64, symbol string) (models.WatchlistResult, error) {
	if !w.items[symbol] {
		return models.WatchlistResult{Success: false, Message: "Stock not in watchlist"}, nil
	}
	delete(w.items, symbol)
	return models.WatchlistResult{Success: true, Message: symbol + " removed from watchlist"}, nil
}

func (w *stubWatchlist) List(context.Context, int64) ([]models.WatchlistEntry, error) {
	var out []models.WatchlistEntry
	for s := range w.items {
		out = append(out, models.WatchlistEntry{Symbol: s})
	}
	return out, nil
}

type stubAlerts struct{ hours int }

func (a *stubAlerts) LiveAlerts(_ context.Context, userID int64) ([]models.AlertEvent, error) {
	return []models.AlertEvent{{ID: "1", UserID: userID, Symbol: "NVDA", Type: models.AlertHighGain}}, nil
}

func (a *stubAlerts) History(_ context.Context, _ int64, hours int) ([]models.AlertEvent, error) {
	a.hours = hours
	return nil, nil
}

type testAPI struct {
	e       *echo.Echo
	ranking *stubRanking
	wl      *stubWatchlist
	alerts  *stubAlerts
	budget  *ratelimit.Window
}

func newTestAPI(rl *ratelimit.Limiter) *testAPI {
	t := &testAPI{
		e:       echo.New(),
		ranking: &stubRanking{snap: &models.RankingSnapshot{}},
		wl:      &stubWatchlist{items: map[string]bool{}},
		alerts:  &stubAlerts{},
		budget:  ratelimit.NewWindow(45, 12*time.Hour),
	}
	if rl == nil {
		rl = ratelimit.New(1000, 1000)
	}
	h := NewHandler(nil, t.ranking, stubStocks{}, stubNews{}, t.budget, t.wl, t.alerts, rl)
	h.RegisterRoutes(t.e)
	return t
}

func (t *testAPI) do(method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	t.e.ServeHTTP(rec, req)
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestTrendingAndRefresh(t *testing.T) {
	a := newTestAPI(nil)

	rec, body := a.do(http.MethodGet, "/api/trending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["data"].(map[string]interface{})["version"])

	rec, body = a.do(http.MethodPost, "/api/trending/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["version"])
	assert.Equal(t, 1, a.ranking.refreshs)

	rec, _ = a.do(http.MethodPost, "/api/trending/refresh", `{"symbols":["AAPL"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL"}, a.ranking.ranked)
	assert.Equal(t, 1, a.ranking.refreshs)

	rec, _ = a.do(http.MethodPost, "/api/trending/refresh", `{"symbols":["$$$"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewsBudgetEndpoint(t *testing.T) {
	a := newTestAPI(nil)
	require.True(t, a.budget.TryAcquire())
	require.True(t, a.budget.TryAcquire())

	rec, body := a.do(http.MethodGet, "/api/news/budget", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(45), data["budget"])
	assert.Equal(t, float64(2), data["calls"])
	assert.Equal(t, float64(43), data["remaining"])
	assert.Equal(t, float64(720), data["window_minutes"])
}

func TestStockEndpoints(t *testing.T) {
	a := newTestAPI(nil)

	rec, body := a.do(http.MethodGet, "/api/stocks/AAPL/outlook", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.85, body["data"].(map[string]interface{})["prediction"])

	rec, _ = a.do(http.MethodGet, "/api/stocks/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = a.do(http.MethodGet, "/api/stocks/AAPL/trend?period=1y", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.7, body["data"].(map[string]interface{})["score"])

	rec, _ = a.do(http.MethodGet, "/api/stocks/AAPL/trend?period=5y", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = a.do(http.MethodGet, "/api/stocks/AAPL/sentiment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "default", body["data"].(map[string]interface{})["source"])

	rec, body = a.do(http.MethodGet, "/api/news", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cache", body["data"].(map[string]interface{})["source"])
}

func TestWatchlistEndpoints(t *testing.T) {
	a := newTestAPI(nil)

	rec, body := a.do(http.MethodPost, "/api/users/1/watchlist", `{"symbol":"AAPL"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "AAPL added to watchlist", body["message"])

	rec, body = a.do(http.MethodPost, "/api/users/1/watchlist", `{"symbol":"AAPL"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Stock already in watchlist", body["message"])

	rec, body = a.do(http.MethodGet, "/api/users/1/watchlist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["total"])

	rec, _ = a.do(http.MethodDelete, "/api/users/1/watchlist/AAPL", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, body = a.do(http.MethodDelete, "/api/users/1/watchlist/AAPL", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Stock not in watchlist", body["message"])

	rec, _ = a.do(http.MethodGet, "/api/users/0/watchlist", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertEndpoints(t *testing.T) {
	a := newTestAPI(nil)

	rec, body := a.do(http.MethodGet, "/api/users/3/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := body["data"].(map[string]interface{})["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "high_gain", rows[0].(map[string]interface{})["alert_type"])

	rec, _ = a.do(http.MethodGet, "/api/users/3/alerts/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 24, a.alerts.hours)

	rec, _ = a.do(http.MethodGet, "/api/users/3/alerts/history?hours=72", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 72, a.alerts.hours)
}

func TestScoringEndpointsThrottled(t *testing.T) {
	a := newTestAPI(ratelimit.New(2, 0))

	for i := 0; i < 2; i++ {
		rec, _ := a.do(http.MethodGet, "/api/stocks/AAPL/outlook", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := a.do(http.MethodGet, "/api/stocks/AAPL/outlook", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// unthrottled routes are unaffected
	rec, _ = a.do(http.MethodGet, "/api/trending", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
