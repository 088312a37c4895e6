package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	applogger "github.com/Harry166/stro/pkg/logger"
	"github.com/Harry166/stro/pkg/util"
)

// WatchlistService manages per-user watchlists.
type WatchlistService struct {
	store  domrepo.WatchlistStore
	market domrepo.MarketData
	alerts *AlertEngine
	l      *applogger.Logger
}

func NewWatchlistService(store domrepo.WatchlistStore, market domrepo.MarketData, alerts *AlertEngine, l *applogger.Logger) *WatchlistService {
	return &WatchlistService{store: store, market: market, alerts: alerts, l: applogger.Or(l)}
}

// Add validates the symbol against the market data gateway before storing it.
// Expected rejections come back as an unsuccessful result, not an error.
func (s *WatchlistService) Add(ctx context.Context, userID int64, symbol string) (models.WatchlistResult, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.WatchlistResult{Success: false, Message: "Stock symbol required"}, nil
	}

	if _, err := s.market.GetInfo(ctx, symbol); err != nil {
		if errors.Is(err, domrepo.ErrUnknownSymbol) {
			return models.WatchlistResult{Success: false, Message: "Invalid stock symbol"}, nil
		}
		s.l.Warn("watchlist symbol check failed", applogger.Symbol(symbol), applogger.Error(err))
		return models.WatchlistResult{Success: false, Message: "Error verifying stock"}, nil
	}

	if err := s.store.Add(ctx, userID, symbol); err != nil {
		if errors.Is(err, domrepo.ErrDuplicate) {
			return models.WatchlistResult{Success: false, Message: "Stock already in watchlist"}, nil
		}
		return models.WatchlistResult{}, fmt.Errorf("add to watchlist: %w", err)
	}
	return models.WatchlistResult{Success: true, Message: fmt.Sprintf("%s added to watchlist", symbol)}, nil
}

// Remove succeeds only when a row was actually deleted.
func (s *WatchlistService) Remove(ctx context.Context, userID int64, symbol string) (models.WatchlistResult, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.WatchlistResult{Success: false, Message: "Stock symbol required"}, nil
	}
	removed, err := s.store.Remove(ctx, userID, symbol)
	if err != nil {
		return models.WatchlistResult{}, fmt.Errorf("remove from watchlist: %w", err)
	}
	if !removed {
		return models.WatchlistResult{Success: false, Message: "Stock not in watchlist"}, nil
	}
	return models.WatchlistResult{Success: true, Message: fmt.Sprintf("%s removed from watchlist", symbol)}, nil
}

// List enriches each item with price, monthly change and triggered alerts. Enrichment is best effort.
func (s *WatchlistService) List(ctx context.Context, userID int64) ([]models.WatchlistEntry, error) {
	items, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}

	out := make([]models.WatchlistEntry, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, it := range items {
		g.Go(func() error {
			out[i] = s.entry(gctx, it)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (s *WatchlistService) entry(ctx context.Context, it models.WatchlistItem) models.WatchlistEntry {
	e := models.WatchlistEntry{
		Symbol:  it.Symbol,
		Name:    it.Symbol,
		AddedAt: it.AddedAt.UTC().Format(time.RFC3339),
		Alerts:  []models.AlertCondition{},
	}
	if info, err := s.market.GetInfo(ctx, it.Symbol); err == nil {
		e.Name = info.Name()
		e.CurrentPrice = info.CurrentPrice
	}

	series, err := s.market.GetHistory(ctx, it.Symbol, domrepo.Period1Mo)
	if err != nil || len(series) == 0 {
		return e
	}
	if e.CurrentPrice == 0 {
		last, _ := series.Last()
		e.CurrentPrice = last.Close
	}
	if change, ok := PercentChange(series[0].Close, e.CurrentPrice); ok {
		pct := change.InexactFloat64()
		e.PriceChange = &pct
		if s.alerts != nil {
			if conds := s.alerts.Conditions(it.Symbol, pct); conds != nil {
				e.Alerts = conds
			}
		}
	}
	return e
}
