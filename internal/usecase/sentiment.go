package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	domsvc "github.com/Harry166/stro/internal/domain/service"
	"github.com/Harry166/stro/internal/service/cache"
	applogger "github.com/Harry166/stro/pkg/logger"
	"github.com/Harry166/stro/pkg/util"
)

const (
	maxArticlesScanned = 10
	maxTextsClassified = 5
	newsPageSize       = 20
	marketNewsKey      = "market_news"
)

// CallBudget guards the news provider quota.
type CallBudget interface {
	// TryAcquire reports whether a call may be issued and, if so, counts it.
	TryAcquire() bool
}

// SentimentConfig holds cache ages and provider limits.
type SentimentConfig struct {
	Fresh           time.Duration
	Stale           time.Duration
	MarketNewsFresh time.Duration
	Lookback        time.Duration
	Timeout         time.Duration
}

// SentimentAggregator turns recent news into a [0,1] score while staying inside the provider quota.
type SentimentAggregator struct {
	cache      cache.Store
	budget     CallBudget
	news       domrepo.NewsProvider
	headlines  domrepo.HeadlineProvider
	classifier domrepo.SentimentClassifier
	market     domrepo.MarketData
	metrics    domrepo.Metrics
	l          *applogger.Logger
	cfg        SentimentConfig
	now        func() time.Time
}

var _ domsvc.SentimentScorer = (*SentimentAggregator)(nil)

func NewSentimentAggregator(
	store cache.Store,
	budget CallBudget,
	news domrepo.NewsProvider,
	headlines domrepo.HeadlineProvider,
	classifier domrepo.SentimentClassifier,
	market domrepo.MarketData,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg SentimentConfig,
) *SentimentAggregator {
	if cfg.Fresh <= 0 {
		cfg.Fresh = 120 * time.Minute
	}
	if cfg.Stale <= 0 {
		cfg.Stale = 720 * time.Minute
	}
	if cfg.MarketNewsFresh <= 0 {
		cfg.MarketNewsFresh = 60 * time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 7 * 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &SentimentAggregator{
		cache:      store,
		budget:     budget,
		news:       news,
		headlines:  headlines,
		classifier: classifier,
		market:     market,
		metrics:    metrics,
		l:          applogger.Or(l),
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetClock overrides the time source.
func (a *SentimentAggregator) SetClock(now func() time.Time) { a.now = now }

func scoreKey(symbol string) string { return "sentiment:" + symbol }

func newsKey(symbol string) string { return "news:" + symbol }

// Sentiment never fails. Every degraded path ends in NeutralScore.
func (a *SentimentAggregator) Sentiment(ctx context.Context, symbol string) models.SentimentSignal {
	symbol = util.NormalizeSymbol(symbol)
	neutral := models.SentimentSignal{Score: models.NeutralScore, Source: models.SourceDefault}
	if symbol == "" {
		return neutral
	}

	if sig, ok := cache.GetJSON[models.SentimentSignal](ctx, a.cache, scoreKey(symbol), a.cfg.Fresh); ok {
		sig.Source = models.SourceCache
		return sig
	}

	articles, source, ok := a.articles(ctx, symbol)
	if !ok {
		return neutral
	}

	sig, err := a.classify(ctx, articles)
	if err != nil {
		a.l.Warn("sentiment classification failed",
			applogger.Symbol(symbol),
			applogger.Error(err),
		)
		a.metrics.RecordError("classify")
		return neutral
	}
	sig.Source = source

	// only a score built from freshly fetched articles may outlive them by a full window
	if source == models.SourceProvider {
		if err := a.cache.Set(ctx, scoreKey(symbol), sig); err != nil {
			a.l.Warn("sentiment cache write failed", applogger.Symbol(symbol), applogger.Error(err))
		}
	}
	return sig
}

// articles resolves the article list: fresh cache, then provider within budget, then stale cache.
func (a *SentimentAggregator) articles(ctx context.Context, symbol string) ([]models.Article, string, bool) {
	key := newsKey(symbol)
	if arts, ok := cache.GetJSON[[]models.Article](ctx, a.cache, key, a.cfg.Fresh); ok {
		return arts, models.SourceCache, true
	}

	if !a.budget.TryAcquire() {
		a.metrics.RecordLimiterDenied()
		a.l.Info("news budget exhausted, using stale cache", applogger.Symbol(symbol))
		return a.stale(ctx, key)
	}

	arts, outcome, err := a.search(ctx, symbol)
	a.metrics.RecordProviderCall("news", outcome)
	if err != nil {
		a.l.Warn("news search failed",
			applogger.Symbol(symbol),
			applogger.String("outcome", string(outcome)),
			applogger.Error(err),
		)
		return a.stale(ctx, key)
	}

	if err := a.cache.Set(ctx, key, arts); err != nil {
		a.l.Warn("news cache write failed", applogger.Symbol(symbol), applogger.Error(err))
	}
	return arts, models.SourceProvider, true
}

// RecentNews returns the article list behind the score, empty when nothing is available.
func (a *SentimentAggregator) RecentNews(ctx context.Context, symbol string) []models.Article {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return []models.Article{}
	}
	arts, _, ok := a.articles(ctx, symbol)
	if !ok || arts == nil {
		return []models.Article{}
	}
	return arts
}

func (a *SentimentAggregator) stale(ctx context.Context, key string) ([]models.Article, string, bool) {
	arts, ok := cache.GetJSON[[]models.Article](ctx, a.cache, key, a.cfg.Stale)
	if !ok {
		return nil, "", false
	}
	return arts, models.SourceStale, true
}

func (a *SentimentAggregator) search(ctx context.Context, symbol string) ([]models.Article, models.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	name := symbol
	if a.market != nil {
		if info, err := a.market.GetInfo(ctx, symbol); err == nil && info.DisplayName != "" {
			name = info.DisplayName
		}
	}

	arts, err := a.news.Search(ctx, models.NewsQuery{
		Query:    fmt.Sprintf("%s OR %s stock", name, symbol),
		From:     a.now().Add(-a.cfg.Lookback),
		Language: "en",
		SortBy:   "relevancy",
		PageSize: newsPageSize,
	})
	return arts, models.ClassifyOutcome(err, isRateLimited), err
}

func isRateLimited(err error) bool { return errors.Is(err, domrepo.ErrRateLimited) }

// classify scores the first articles. Any classifier error fails the whole batch.
func (a *SentimentAggregator) classify(ctx context.Context, articles []models.Article) (models.SentimentSignal, error) {
	texts := ArticleTexts(articles)
	sig := models.SentimentSignal{Score: models.NeutralScore, Articles: len(articles)}
	if len(texts) > maxTextsClassified {
		texts = texts[:maxTextsClassified]
	}
	if len(texts) == 0 {
		return sig, nil
	}

	var sum float64
	for _, text := range texts {
		c, err := a.classifier.Classify(ctx, text)
		if err != nil {
			return models.SentimentSignal{}, err
		}
		sum += LabelScore(c)
	}
	sig.Score = sum / float64(len(texts))
	sig.Classified = len(texts)
	return sig, nil
}

// ArticleTexts joins title and description of the first articles and drops empty results.
func ArticleTexts(articles []models.Article) []string {
	if len(articles) > maxArticlesScanned {
		articles = articles[:maxArticlesScanned]
	}
	texts := make([]string, 0, len(articles))
	for _, art := range articles {
		text := strings.TrimSpace(art.Title + " " + art.Description)
		if text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

// LabelScore maps a classification onto [0,1].
func LabelScore(c models.Classification) float64 {
	switch c.Label {
	case models.LabelPositive:
		return c.Confidence
	case models.LabelNegative:
		return 1 - c.Confidence
	default:
		return models.NeutralScore
	}
}

// MarketNews returns general business headlines under the same budget and cache discipline.
func (a *SentimentAggregator) MarketNews(ctx context.Context) ([]models.Article, string) {
	if arts, ok := cache.GetJSON[[]models.Article](ctx, a.cache, marketNewsKey, a.cfg.MarketNewsFresh); ok {
		return arts, models.SourceCache
	}
	if a.headlines == nil {
		return a.staleOrEmpty(ctx)
	}
	if !a.budget.TryAcquire() {
		a.metrics.RecordLimiterDenied()
		return a.staleOrEmpty(ctx)
	}

	cctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	arts, err := a.headlines.TopHeadlines(cctx, "business", newsPageSize)
	cancel()
	outcome := models.ClassifyOutcome(err, isRateLimited)
	a.metrics.RecordProviderCall("headlines", outcome)
	if err != nil {
		a.l.Warn("market news failed", applogger.String("outcome", string(outcome)), applogger.Error(err))
		return a.staleOrEmpty(ctx)
	}

	if err := a.cache.Set(ctx, marketNewsKey, arts); err != nil {
		a.l.Warn("market news cache write failed", applogger.Error(err))
	}
	return arts, models.SourceProvider
}

func (a *SentimentAggregator) staleOrEmpty(ctx context.Context) ([]models.Article, string) {
	if arts, ok := cache.GetJSON[[]models.Article](ctx, a.cache, marketNewsKey, a.cfg.Stale); ok {
		return arts, models.SourceStale
	}
	return []models.Article{}, models.SourceDefault
}
