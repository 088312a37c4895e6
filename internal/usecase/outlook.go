package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	domsvc "github.com/Harry166/stro/internal/domain/service"
	"github.com/Harry166/stro/internal/services/analytics"
	applogger "github.com/Harry166/stro/pkg/logger"
	"github.com/Harry166/stro/pkg/util"
)

// NewsSource exposes the article list behind a sentiment score.
type NewsSource interface {
	RecentNews(ctx context.Context, symbol string) []models.Article
}

// StockService serves the single-instrument views.
type StockService struct {
	market    domrepo.MarketData
	sentiment domsvc.SentimentScorer
	news      NewsSource
	trend     domsvc.TrendScorer
	l         *applogger.Logger
	timeout   time.Duration
}

func NewStockService(
	market domrepo.MarketData,
	sentiment domsvc.SentimentScorer,
	news NewsSource,
	trend domsvc.TrendScorer,
	l *applogger.Logger,
	timeout time.Duration,
) *StockService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StockService{
		market:    market,
		sentiment: sentiment,
		news:      news,
		trend:     trend,
		l:         applogger.Or(l),
		timeout:   timeout,
	}
}

// Trend scores the symbol's history over period.
func (s *StockService) Trend(ctx context.Context, symbol string, period domrepo.Period) models.TrendSignal {
	series, err := s.market.GetHistory(ctx, util.NormalizeSymbol(symbol), period)
	if err != nil {
		s.l.Warn("trend history unavailable", applogger.Symbol(symbol), applogger.Error(err))
		return models.TrendSignal{Score: models.NeutralScore}
	}
	return s.trend.Score(series)
}

// Sentiment returns the news sentiment signal.
func (s *StockService) Sentiment(ctx context.Context, symbol string) models.SentimentSignal {
	return s.sentiment.Sentiment(ctx, util.NormalizeSymbol(symbol))
}

// Outlook fetches sentiment and trend concurrently and blends them 50/50.
func (s *StockService) Outlook(ctx context.Context, symbol string) (*models.Outlook, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		wg        sync.WaitGroup
		sentiment float64
		trend     models.TrendSignal
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		sentiment = s.sentiment.Sentiment(ctx, symbol).Score
	}()
	go func() {
		defer wg.Done()
		trend = s.Trend(ctx, symbol, domrepo.Period3Mo)
	}()
	wg.Wait()

	return &models.Outlook{
		Symbol:     symbol,
		Sentiment:  sentiment,
		Trend:      trend.Score,
		Prediction: analytics.OutlookScore(sentiment, trend.Score),
		Analysis:   analytics.Advise(symbol, sentiment, trend.Score),
	}, nil
}

// Analyze builds the stock detail view. Unknown symbols return ErrUnknownSymbol.
func (s *StockService) Analyze(ctx context.Context, symbol string) (*models.StockAnalysis, error) {
	symbol = util.NormalizeSymbol(symbol)
	info, err := s.market.GetInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := &models.StockAnalysis{Info: info, News: []models.Article{}}
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		series, err := s.market.GetHistory(ctx, symbol, domrepo.Period3Mo)
		if err != nil {
			s.l.Warn("stock history unavailable", applogger.Symbol(symbol), applogger.Error(err))
			res.Trend = models.TrendSignal{Score: models.NeutralScore}
			return
		}
		res.Chart = series
		res.Trend = s.trend.Score(series)
		res.PriceChange = monthlyChange(series, info.CurrentPrice)
	}()
	go func() {
		defer wg.Done()
		res.Sentiment = s.sentiment.Sentiment(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		if s.news != nil {
			res.News = s.news.RecentNews(ctx, symbol)
		}
	}()
	wg.Wait()

	if info.CurrentPrice == 0 {
		if last, ok := res.Chart.Last(); ok {
			info.CurrentPrice = last.Close
		}
	}
	return res, nil
}

// monthlyChange compares current against the first close of the last month of series.
func monthlyChange(series models.PriceSeries, current float64) *float64 {
	last, ok := series.Last()
	if !ok {
		return nil
	}
	if current == 0 {
		current = last.Close
	}
	cutoff := last.Date.AddDate(0, -1, 0)
	first := series[0].Close
	for _, p := range series {
		if !p.Date.Before(cutoff) {
			first = p.Close
			break
		}
	}
	change, ok := PercentChange(first, current)
	if !ok {
		return nil
	}
	pct := change.InexactFloat64()
	return &pct
}
