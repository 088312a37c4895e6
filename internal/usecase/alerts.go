package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	applogger "github.com/Harry166/stro/pkg/logger"
	"github.com/Harry166/stro/pkg/util"
)

// Record result reasons.
const (
	ReasonPersisted = "persisted"
	ReasonDuplicate = "duplicate"
)

type AlertConfig struct {
	GainPct      float64
	LossPct      float64
	DedupWindow  time.Duration
	HistoryLimit int
}

// AlertEngine evaluates watchlists against the monthly thresholds and keeps alert history deduplicated.
type AlertEngine struct {
	market    domrepo.MarketData
	watchlist domrepo.WatchlistStore
	store     domrepo.AlertStore
	publisher domrepo.AlertPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	cfg       AlertConfig
	gain      decimal.Decimal
	loss      decimal.Decimal
	now       func() time.Time

	// serializes the check-then-append in Record
	mu sync.Mutex
}

func NewAlertEngine(
	market domrepo.MarketData,
	watchlist domrepo.WatchlistStore,
	store domrepo.AlertStore,
	publisher domrepo.AlertPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg AlertConfig,
) *AlertEngine {
	if cfg.GainPct == 0 {
		cfg.GainPct = 25
	}
	if cfg.LossPct == 0 {
		cfg.LossPct = -15
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 24 * time.Hour
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &AlertEngine{
		market:    market,
		watchlist: watchlist,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		l:         applogger.Or(l),
		cfg:       cfg,
		gain:      decimal.NewFromFloat(cfg.GainPct),
		loss:      decimal.NewFromFloat(cfg.LossPct),
		now:       time.Now,
	}
}

func (e *AlertEngine) SetClock(now func() time.Time) { e.now = now }

// PriceChange returns the percentage move from the first to the last close.
// It is false for series shorter than one point or starting at zero.
func PriceChange(series models.PriceSeries) (decimal.Decimal, bool) {
	if len(series) == 0 {
		return decimal.Zero, false
	}
	last, _ := series.Last()
	return PercentChange(series[0].Close, last.Close)
}

// PercentChange is (to - from) / from * 100 in decimal arithmetic.
func PercentChange(from, to float64) (decimal.Decimal, bool) {
	first := decimal.NewFromFloat(from)
	if first.IsZero() {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(to).Sub(first).Div(first).Mul(decimal.NewFromInt(100)), true
}

// Evaluate computes the monthly change of series and the conditions it triggers.
func (e *AlertEngine) Evaluate(symbol string, series models.PriceSeries) (float64, []models.AlertCondition) {
	change, ok := PriceChange(series)
	if !ok {
		return 0, nil
	}
	return change.InexactFloat64(), e.conditions(symbol, change)
}

// Conditions returns the alerts a given percentage move triggers.
func (e *AlertEngine) Conditions(symbol string, changePct float64) []models.AlertCondition {
	return e.conditions(symbol, decimal.NewFromFloat(changePct))
}

func (e *AlertEngine) conditions(symbol string, change decimal.Decimal) []models.AlertCondition {
	pct := change.InexactFloat64()
	switch {
	case change.GreaterThanOrEqual(e.gain):
		return []models.AlertCondition{{
			Symbol:      symbol,
			Type:        models.AlertHighGain,
			Message:     fmt.Sprintf("%s is up %.1f%% in the past month!", symbol, pct),
			PriceChange: pct,
		}}
	case change.LessThanOrEqual(e.loss):
		return []models.AlertCondition{{
			Symbol:      symbol,
			Type:        models.AlertHighLoss,
			Message:     fmt.Sprintf("%s is down %.1f%% in the past month.", symbol, change.Abs().InexactFloat64()),
			PriceChange: pct,
		}}
	}
	return nil
}

// Record appends cond for user unless the same (user, symbol, type) was recorded inside the dedup window.
func (e *AlertEngine) Record(ctx context.Context, userID int64, cond models.AlertCondition) (models.RecordResult, error) {
	e.mu.Lock()
	now := e.now()
	existing, err := e.store.Query(ctx, userID, now.Add(-e.cfg.DedupWindow), 0)
	if err != nil {
		e.mu.Unlock()
		e.metrics.RecordAlert(cond.Type, "error")
		return models.RecordResult{}, fmt.Errorf("query alert history: %w", err)
	}
	for _, ev := range existing {
		if ev.Symbol == cond.Symbol && ev.Type == cond.Type {
			e.mu.Unlock()
			e.metrics.RecordAlert(cond.Type, ReasonDuplicate)
			return models.RecordResult{Persisted: false, Reason: ReasonDuplicate}, nil
		}
	}

	ev := &models.AlertEvent{
		ID:          uuid.NewString(),
		UserID:      userID,
		Symbol:      cond.Symbol,
		Type:        cond.Type,
		Message:     cond.Message,
		PriceChange: cond.PriceChange,
		CreatedAt:   now.UTC(),
	}
	if err := e.store.Append(ctx, ev); err != nil {
		e.mu.Unlock()
		e.metrics.RecordAlert(cond.Type, "error")
		return models.RecordResult{}, fmt.Errorf("append alert: %w", err)
	}
	e.mu.Unlock()

	e.metrics.RecordAlert(cond.Type, ReasonPersisted)
	if e.publisher != nil {
		if err := e.publisher.PublishAlert(ctx, ev); err != nil {
			e.l.Warn("alert publish failed", applogger.Symbol(ev.Symbol), applogger.Error(err))
		}
	}
	return models.RecordResult{Persisted: true, Reason: ReasonPersisted, Event: ev}, nil
}

func (e *AlertEngine) evaluateSymbol(ctx context.Context, symbol string) ([]models.AlertCondition, error) {
	series, err := e.market.GetHistory(ctx, symbol, domrepo.Period1Mo)
	if err != nil {
		return nil, err
	}
	_, conds := e.Evaluate(symbol, series)
	return conds, nil
}

// LiveAlerts merges stored history with conditions evaluated now. Live conditions are also
// offered to Record. One alert per (symbol, type), most recent wins, newest first.
func (e *AlertEngine) LiveAlerts(ctx context.Context, userID int64) ([]models.AlertEvent, error) {
	history, err := e.store.Query(ctx, userID, time.Time{}, e.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("query alert history: %w", err)
	}
	items, err := e.watchlist.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}

	all := append([]models.AlertEvent(nil), history...)
	for _, it := range items {
		conds, err := e.evaluateSymbol(ctx, it.Symbol)
		if err != nil {
			e.l.Warn("alert evaluation failed", applogger.Symbol(it.Symbol), applogger.Error(err))
			continue
		}
		for _, c := range conds {
			res, err := e.Record(ctx, userID, c)
			if err != nil {
				e.l.Warn("alert record failed", applogger.Symbol(c.Symbol), applogger.Error(err))
			}
			if res.Event != nil {
				all = append(all, *res.Event)
				continue
			}
			all = append(all, models.AlertEvent{
				UserID:      userID,
				Symbol:      c.Symbol,
				Type:        c.Type,
				Message:     c.Message,
				PriceChange: c.PriceChange,
				CreatedAt:   e.now().UTC(),
			})
		}
	}
	return dedupAlerts(all), nil
}

func dedupAlerts(events []models.AlertEvent) []models.AlertEvent {
	type key struct {
		symbol string
		typ    models.AlertType
	}
	latest := make(map[key]models.AlertEvent, len(events))
	for _, ev := range events {
		k := key{ev.Symbol, ev.Type}
		if cur, ok := latest[k]; !ok || ev.CreatedAt.After(cur.CreatedAt) {
			latest[k] = ev
		}
	}
	out := make([]models.AlertEvent, 0, len(latest))
	for _, ev := range latest {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// History returns stored alerts of the last hours, newest first.
func (e *AlertEngine) History(ctx context.Context, userID int64, hours int) ([]models.AlertEvent, error) {
	var since time.Time
	if hours > 0 {
		since = e.now().Add(-time.Duration(hours) * time.Hour)
	}
	return e.store.Query(ctx, userID, since, e.cfg.HistoryLimit)
}

// Sweep evaluates every user's watchlist. Per-symbol failures are counted, never fatal.
func (e *AlertEngine) Sweep(ctx context.Context) (models.SweepReport, error) {
	start := e.now()
	users, err := e.watchlist.Users(ctx)
	if err != nil {
		return models.SweepReport{}, fmt.Errorf("list users: %w", err)
	}

	var report models.SweepReport
	memo := map[string]symbolEval{}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r, err := e.sweepUser(ctx, u, memo)
		if err != nil {
			e.l.Warn("alert sweep failed for user", applogger.UserID(u), applogger.Error(err))
			r.Failed++
		}
		report.Add(r)
	}

	e.metrics.RecordLatency("alert_sweep", e.now().Sub(start).Seconds())
	e.l.Info("alert sweep finished",
		applogger.Int("users", report.Users),
		applogger.Int("symbols", report.Symbols),
		applogger.Int("persisted", report.Persisted),
		applogger.Int("duplicates", report.Duplicates),
		applogger.Int("failed", report.Failed),
	)
	return report, nil
}

// SweepUser evaluates one user's watchlist.
func (e *AlertEngine) SweepUser(ctx context.Context, userID int64) (models.SweepReport, error) {
	return e.sweepUser(ctx, userID, map[string]symbolEval{})
}

type symbolEval struct {
	conds []models.AlertCondition
	err   error
}

func (e *AlertEngine) sweepUser(ctx context.Context, userID int64, memo map[string]symbolEval) (models.SweepReport, error) {
	report := models.SweepReport{Users: 1}
	items, err := e.watchlist.List(ctx, userID)
	if err != nil {
		return report, fmt.Errorf("list watchlist: %w", err)
	}

	for _, it := range items {
		symbol := util.NormalizeSymbol(it.Symbol)
		report.Symbols++

		res, ok := memo[symbol]
		if !ok {
			res.conds, res.err = e.evaluateSymbol(ctx, symbol)
			memo[symbol] = res
		}
		if res.err != nil {
			report.Failed++
			e.l.Warn("alert evaluation failed",
				applogger.UserID(userID),
				applogger.Symbol(symbol),
				applogger.Error(res.err),
			)
			continue
		}

		for _, c := range res.conds {
			rec, err := e.Record(ctx, userID, c)
			switch {
			case err != nil:
				report.Failed++
				e.l.Warn("alert record failed", applogger.Symbol(symbol), applogger.Error(err))
			case rec.Persisted:
				report.Persisted++
			default:
				report.Duplicates++
			}
		}
	}
	return report, nil
}
