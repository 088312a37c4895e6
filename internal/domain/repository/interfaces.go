package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Harry166/stro/internal/domain/models"
)

var (
	ErrDuplicate     = errors.New("duplicate entry")
	ErrNotFound      = errors.New("not found")
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrRateLimited   = errors.New("provider rate limited")
)

// MarketData supplies price history and instrument metadata.
// Unknown symbols yield ErrUnknownSymbol or an empty series, never a panic.
type MarketData interface {
	GetHistory(ctx context.Context, symbol string, period Period) (models.PriceSeries, error)
	GetInfo(ctx context.Context, symbol string) (*models.InstrumentInfo, error)
}

// NewsProvider returns articles in provider relevance order.
type NewsProvider interface {
	Search(ctx context.Context, q models.NewsQuery) ([]models.Article, error)
}

// HeadlineProvider returns general business headlines.
type HeadlineProvider interface {
	TopHeadlines(ctx context.Context, category string, pageSize int) ([]models.Article, error)
}

// SentimentClassifier labels a text of at most 512 characters.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (models.Classification, error)
}

// AlertStore is append-only alert history.
type AlertStore interface {
	Append(ctx context.Context, ev *models.AlertEvent) error
	// Query returns events for a user newest first. Zero since means no lower bound.
	Query(ctx context.Context, userID int64, since time.Time, limit int) ([]models.AlertEvent, error)
}

// WatchlistStore owns the (user, symbol) pairs.
type WatchlistStore interface {
	List(ctx context.Context, userID int64) ([]models.WatchlistItem, error)
	// Add returns ErrDuplicate when the pair already exists.
	Add(ctx context.Context, userID int64, symbol string) error
	// Remove reports whether a row was deleted.
	Remove(ctx context.Context, userID int64, symbol string) (bool, error)
	Users(ctx context.Context) ([]int64, error)
}

// AlertPublisher pushes persisted alerts to the notification stream.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, ev *models.AlertEvent) error
}

// RankingPublisher announces new ranking snapshots.
type RankingPublisher interface {
	PublishRanking(ctx context.Context, snap *models.RankingSnapshot) error
}

type Metrics interface {
	RecordCacheLookup(result string)
	RecordProviderCall(provider string, outcome models.Outcome)
	RecordLimiterDenied()
	RecordAlert(alertType models.AlertType, result string)
	RecordRankingSize(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordCacheLookup(string)                  {}
func (NopMetrics) RecordProviderCall(string, models.Outcome) {}
func (NopMetrics) RecordLimiterDenied()                      {}
func (NopMetrics) RecordAlert(models.AlertType, string)      {}
func (NopMetrics) RecordRankingSize(int)                     {}
func (NopMetrics) RecordError(string)                        {}
func (NopMetrics) RecordLatency(string, float64)             {}
