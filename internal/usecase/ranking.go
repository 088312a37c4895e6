package usecase

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	domsvc "github.com/Harry166/stro/internal/domain/service"
	"github.com/Harry166/stro/internal/services/analytics"
	applogger "github.com/Harry166/stro/pkg/logger"
	"github.com/Harry166/stro/pkg/util"
)

type RankingConfig struct {
	BatchSize  int
	BatchPause time.Duration
	MinScore   float64
	TopN       int
}

// RankingService scores the tracked universe and publishes immutable snapshots.
type RankingService struct {
	symbols   []string
	market    domrepo.MarketData
	sentiment domsvc.SentimentScorer
	trend     domsvc.TrendScorer
	publisher domrepo.RankingPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	cfg       RankingConfig
	now       func() time.Time

	snap      atomic.Pointer[models.RankingSnapshot]
	refreshMu sync.Mutex
}

func NewRankingService(
	symbols []string,
	market domrepo.MarketData,
	sentiment domsvc.SentimentScorer,
	trend domsvc.TrendScorer,
	publisher domrepo.RankingPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg RankingConfig,
) *RankingService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 0.6
	}
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	s := &RankingService{
		symbols:   append([]string(nil), symbols...),
		market:    market,
		sentiment: sentiment,
		trend:     trend,
		publisher: publisher,
		metrics:   metrics,
		l:         applogger.Or(l),
		cfg:       cfg,
		now:       time.Now,
	}
	s.snap.Store(&models.RankingSnapshot{Items: []models.RankedInstrument{}})
	return s
}

func (s *RankingService) SetClock(now func() time.Time) { s.now = now }

// Snapshot returns the last published ranking. It is never nil and never partial.
func (s *RankingService) Snapshot() *models.RankingSnapshot {
	return s.snap.Load()
}

// Refresh ranks the configured symbols and swaps in a new snapshot.
// Concurrent refreshes are serialized so versions stay monotonic.
func (s *RankingService) Refresh(ctx context.Context) (*models.RankingSnapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := s.now()
	items, err := s.Rank(ctx, s.symbols)
	if err != nil {
		return s.Snapshot(), err
	}

	next := &models.RankingSnapshot{
		Version:     s.Snapshot().Version + 1,
		GeneratedAt: s.now(),
		Items:       items,
	}
	s.snap.Store(next)
	s.metrics.RecordRankingSize(len(items))
	s.metrics.RecordLatency("ranking_refresh", s.now().Sub(start).Seconds())
	s.l.Info("trending list refreshed",
		applogger.Int64("version", int64(next.Version)),
		applogger.Int("items", len(items)),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishRanking(ctx, next); err != nil {
			s.l.Warn("ranking publish failed", applogger.Error(err))
		}
	}
	return next, nil
}

// Rank scores symbols in batches, concurrently within a batch, pausing between batches.
// Only a cancelled context returns an error; per-symbol failures degrade to neutral signals.
func (s *RankingService) Rank(ctx context.Context, symbols []string) ([]models.RankedInstrument, error) {
	symbols = uniqueSymbols(symbols)
	var (
		mu     sync.Mutex
		ranked []models.RankedInstrument
	)

	for i := 0; i < len(symbols); i += s.cfg.BatchSize {
		if i > 0 && s.cfg.BatchPause > 0 {
			select {
			case <-time.After(s.cfg.BatchPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := i + s.cfg.BatchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		var g errgroup.Group
		for _, sym := range symbols[i:end] {
			sym := sym
			g.Go(func() error {
				item := s.score(ctx, sym)
				if item.Score > s.cfg.MinScore {
					mu.Lock()
					ranked = append(ranked, item)
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Score == ranked[b].Score {
			return ranked[a].Symbol < ranked[b].Symbol
		}
		return ranked[a].Score > ranked[b].Score
	})
	if len(ranked) > s.cfg.TopN {
		ranked = ranked[:s.cfg.TopN]
	}
	if ranked == nil {
		ranked = []models.RankedInstrument{}
	}
	return ranked, nil
}

func (s *RankingService) score(ctx context.Context, symbol string) models.RankedInstrument {
	sentiment := s.sentiment.Sentiment(ctx, symbol).Score

	trend := models.NeutralScore
	series, err := s.market.GetHistory(ctx, symbol, domrepo.Period3Mo)
	if err != nil {
		s.metrics.RecordProviderCall("market", models.ClassifyOutcome(err, isRateLimited))
		s.l.Warn("trend history unavailable", applogger.Symbol(symbol), applogger.Error(err))
	} else {
		trend = s.trend.Score(series).Score
	}

	item := models.RankedInstrument{
		Symbol:    symbol,
		Name:      symbol,
		Score:     analytics.RankScore(sentiment, trend),
		Sentiment: sentiment,
		Trend:     trend,
	}
	if item.Score > s.cfg.MinScore {
		if info, err := s.market.GetInfo(ctx, symbol); err == nil {
			item.Name = info.Name()
			item.CurrentPrice = info.CurrentPrice
		}
		if item.CurrentPrice == 0 {
			if last, ok := series.Last(); ok {
				item.CurrentPrice = last.Close
			}
		}
	}
	return item
}

// uniqueSymbols normalizes symbols and drops blanks and repeats, keeping first-seen order.
func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = util.NormalizeSymbol(sym)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
