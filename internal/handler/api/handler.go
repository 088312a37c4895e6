package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	"github.com/Harry166/stro/internal/service/metrics"
	"github.com/Harry166/stro/internal/service/ratelimit"
	xhttp "github.com/Harry166/stro/pkg/http"
	xlogger "github.com/Harry166/stro/pkg/logger"
)

type RankingService interface {
	Snapshot() *models.RankingSnapshot
	Refresh(ctx context.Context) (*models.RankingSnapshot, error)
	Rank(ctx context.Context, symbols []string) ([]models.RankedInstrument, error)
}

type StockService interface {
	Outlook(ctx context.Context, symbol string) (*models.Outlook, error)
	Analyze(ctx context.Context, symbol string) (*models.StockAnalysis, error)
	Trend(ctx context.Context, symbol string, period domrepo.Period) models.TrendSignal
	Sentiment(ctx context.Context, symbol string) models.SentimentSignal
}

type NewsService interface {
	MarketNews(ctx context.Context) ([]models.Article, string)
}

// NewsBudget reports the provider call window.
type NewsBudget interface {
	Snapshot() ratelimit.State
}

type WatchlistService interface {
	Add(ctx context.Context, userID int64, symbol string) (models.WatchlistResult, error)
	Remove(ctx context.Context, userID int64, symbol string) (models.WatchlistResult, error)
	List(ctx context.Context, userID int64) ([]models.WatchlistEntry, error)
}

type AlertService interface {
	LiveAlerts(ctx context.Context, userID int64) ([]models.AlertEvent, error)
	History(ctx context.Context, userID int64, hours int) ([]models.AlertEvent, error)
}

// Handler serves the JSON API. Scoring endpoints are throttled per client IP.
type Handler struct {
	logger    *xlogger.Logger
	ranking   RankingService
	stocks    StockService
	news      NewsService
	budget    NewsBudget
	watchlist WatchlistService
	alerts    AlertService
	rl        *ratelimit.Limiter
}

func NewHandler(
	logger *xlogger.Logger,
	ranking RankingService,
	stocks StockService,
	news NewsService,
	budget NewsBudget,
	watchlist WatchlistService,
	alerts AlertService,
	rl *ratelimit.Limiter,
) *Handler {
	metrics.Register()
	if rl == nil {
		rl = ratelimit.New(10, 2)
	}
	return &Handler{
		logger:    xlogger.Or(logger),
		ranking:   ranking,
		stocks:    stocks,
		news:      news,
		budget:    budget,
		watchlist: watchlist,
		alerts:    alerts,
		rl:        rl,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/trending", h.Trending)
	g.POST("/trending/refresh", h.RefreshTrending, h.throttle("refresh"))
	g.GET("/news", h.MarketNews)
	g.GET("/news/budget", h.NewsBudget)

	s := g.Group("/stocks/:symbol")
	s.GET("", h.Stock, h.throttle("stock"))
	s.GET("/outlook", h.Outlook, h.throttle("outlook"))
	s.GET("/trend", h.Trend, h.throttle("trend"))
	s.GET("/sentiment", h.Sentiment, h.throttle("sentiment"))

	u := g.Group("/users/:user_id")
	u.GET("/watchlist", h.Watchlist)
	u.POST("/watchlist", h.AddWatchlist)
	u.DELETE("/watchlist/:symbol", h.RemoveWatchlist)
	u.GET("/alerts", h.Alerts)
	u.GET("/alerts/history", h.AlertHistory)
}

// throttle refuses clients that exhausted their token bucket and records
// endpoint latency and errors.
func (h *Handler) throttle(endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !h.rl.Allow(c.RealIP()) {
				metrics.Throttled.WithLabelValues(endpoint).Inc()
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many requests, slow down"))
			}
			start := time.Now()
			err := next(c)
			metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			if err != nil || c.Response().Status >= 500 {
				metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
			}
			return err
		}
	}
}

func (h *Handler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, domrepo.ErrUnknownSymbol):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("Unknown stock symbol").WithError(err))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("request timed out", xlogger.String("op", op), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("Upstream data provider timed out").WithError(err))
	default:
		h.logger.Error("request failed", xlogger.String("op", op), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}
