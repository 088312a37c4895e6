package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harry166/stro/internal/domain/models"
)

type alertFixture struct {
	clk       *testClock
	market    *fakeMarket
	watchlist *fakeWatchlist
	store     *fakeAlertStore
	pub       *fakePublisher
	engine    *AlertEngine
}

func newAlertFixture() *alertFixture {
	f := &alertFixture{
		clk:    newTestClock(),
		market: newFakeMarket(),
		store:  &fakeAlertStore{},
		pub:    &fakePublisher{},
	}
	f.watchlist = newFakeWatchlist(f.clk)
	f.engine = NewAlertEngine(f.market, f.watchlist, f.store, f.pub, nil, nil, AlertConfig{})
	f.engine.SetClock(f.clk.Now)
	return f
}

func (f *alertFixture) monthly(symbol string, first, last float64) {
	f.market.history[symbol] = linearSeries(f.clk.Now().AddDate(0, -1, 0), 21, first, last)
}

func TestEvaluateThresholds(t *testing.T) {
	f := newAlertFixture()
	start := f.clk.Now()

	change, conds := f.engine.Evaluate("UP", linearSeries(start, 20, 100, 125))
	assert.InDelta(t, 25.0, change, 1e-9)
	require.Len(t, conds, 1)
	assert.Equal(t, models.AlertHighGain, conds[0].Type)
	assert.Equal(t, "UP is up 25.0% in the past month!", conds[0].Message)

	change, conds = f.engine.Evaluate("ALMOST", linearSeries(start, 20, 100, 124.9))
	assert.InDelta(t, 24.9, change, 1e-9)
	assert.Empty(t, conds)

	_, conds = f.engine.Evaluate("DOWN", linearSeries(start, 20, 100, 85))
	require.Len(t, conds, 1)
	assert.Equal(t, models.AlertHighLoss, conds[0].Type)
	assert.Equal(t, "DOWN is down 15.0% in the past month.", conds[0].Message)
	assert.InDelta(t, -15.0, conds[0].PriceChange, 1e-9)

	_, conds = f.engine.Evaluate("FLAT", linearSeries(start, 20, 100, 86))
	assert.Empty(t, conds)

	change, conds = f.engine.Evaluate("EMPTY", nil)
	assert.Zero(t, change)
	assert.Empty(t, conds)

	_, conds = f.engine.Evaluate("ZERO", linearSeries(start, 5, 0, 10))
	assert.Empty(t, conds)
}

func TestRecordDedupWithinWindow(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()
	cond := models.AlertCondition{Symbol: "X", Type: models.AlertHighGain, Message: "X is up 30.0% in the past month!", PriceChange: 30}

	res, err := f.engine.Record(ctx, 1, cond)
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	require.NotNil(t, res.Event)
	assert.NotEmpty(t, res.Event.ID)

	f.clk.Advance(23 * time.Hour)
	res, err = f.engine.Record(ctx, 1, cond)
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.Equal(t, ReasonDuplicate, res.Reason)

	// other users and other types are independent
	res, _ = f.engine.Record(ctx, 2, cond)
	assert.True(t, res.Persisted)
	loss := cond
	loss.Type = models.AlertHighLoss
	res, _ = f.engine.Record(ctx, 1, loss)
	assert.True(t, res.Persisted)

	f.clk.Advance(2 * time.Hour)
	res, _ = f.engine.Record(ctx, 1, cond)
	assert.True(t, res.Persisted)

	assert.Equal(t, 4, f.store.count())
	assert.Len(t, f.pub.alerts, 4)
}

func TestRecordConcurrentIsIdempotent(t *testing.T) {
	f := newAlertFixture()
	cond := models.AlertCondition{Symbol: "X", Type: models.AlertHighGain}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.engine.Record(context.Background(), 7, cond)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.store.count())
}

func TestRecordStoreError(t *testing.T) {
	f := newAlertFixture()
	f.store.err = errors.New("disk full")
	_, err := f.engine.Record(context.Background(), 1, models.AlertCondition{Symbol: "X", Type: models.AlertHighGain})
	assert.Error(t, err)
	assert.Empty(t, f.pub.alerts)
}

func TestSweepIsFaultTolerantAndIdempotent(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()
	f.monthly("UP", 100, 130)
	f.monthly("DOWN", 100, 80)
	f.monthly("FLAT", 100, 101)
	f.market.histErr["BROKEN"] = errors.New("upstream down")

	for _, s := range []string{"UP", "BROKEN", "FLAT"} {
		require.NoError(t, f.watchlist.Add(ctx, 1, s))
	}
	for _, s := range []string{"UP", "DOWN"} {
		require.NoError(t, f.watchlist.Add(ctx, 2, s))
	}

	report, err := f.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SweepReport{Users: 2, Symbols: 5, Persisted: 3, Duplicates: 0, Failed: 1}, report)

	report, err = f.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Duplicates)
	assert.Zero(t, report.Persisted)
	assert.Equal(t, 3, f.store.count())
}

func TestLiveAlertsMergesAndDedups(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()
	f.monthly("UP", 100, 130)
	f.monthly("FLAT", 100, 100)
	require.NoError(t, f.watchlist.Add(ctx, 1, "UP"))
	require.NoError(t, f.watchlist.Add(ctx, 1, "FLAT"))

	// an older stored alert for a symbol that is no longer moving
	require.NoError(t, f.store.Append(ctx, &models.AlertEvent{
		ID: "old", UserID: 1, Symbol: "GONE", Type: models.AlertHighLoss, CreatedAt: f.clk.Now().Add(-48 * time.Hour),
	}))

	alerts, err := f.engine.LiveAlerts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "UP", alerts[0].Symbol)
	assert.Equal(t, "GONE", alerts[1].Symbol)
	assert.Equal(t, 2, f.store.count(), "live condition is persisted once")

	f.clk.Advance(time.Hour)
	alerts, err = f.engine.LiveAlerts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, f.clk.Now(), alerts[0].CreatedAt, "most recent evaluation wins")
	assert.Equal(t, 2, f.store.count(), "duplicate within the window is not persisted")
}

func TestHistoryHours(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()
	now := f.clk.Now()
	require.NoError(t, f.store.Append(ctx, &models.AlertEvent{ID: "a", UserID: 1, Symbol: "A", CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, f.store.Append(ctx, &models.AlertEvent{ID: "b", UserID: 1, Symbol: "B", CreatedAt: now.Add(-30 * time.Hour)}))

	recent, err := f.engine.History(ctx, 1, 24)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "a", recent[0].ID)

	all, err := f.engine.History(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
