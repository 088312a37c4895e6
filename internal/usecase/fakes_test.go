package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	"github.com/Harry166/stro/internal/service/cache"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, clk *testClock) *cache.FileStore {
	t.Helper()
	s, err := cache.NewFileStore(t.TempDir(), cache.WithClock(clk.Now))
	require.NoError(t, err)
	return s
}

type fakeBudget struct {
	mu        sync.Mutex
	remaining int
	acquired  int
}

func (b *fakeBudget) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	b.acquired++
	return true
}

type fakeNews struct {
	mu       sync.Mutex
	articles []models.Article
	err      error
	queries  []models.NewsQuery
}

func (f *fakeNews) Search(_ context.Context, q models.NewsQuery) ([]models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

func (f *fakeNews) TopHeadlines(_ context.Context, _ string, _ int) ([]models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, models.NewsQuery{Query: "headlines"})
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

func (f *fakeNews) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeClassifier struct {
	mu    sync.Mutex
	fn    func(text string) (models.Classification, error)
	texts []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (models.Classification, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return f.fn(text)
}

func constClassifier(label string, conf float64) *fakeClassifier {
	return &fakeClassifier{fn: func(string) (models.Classification, error) {
		return models.Classification{Label: label, Confidence: conf}, nil
	}}
}

type fakeMarket struct {
	mu      sync.Mutex
	history map[string]models.PriceSeries
	info    map[string]*models.InstrumentInfo
	histErr map[string]error
	delay   time.Duration
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		history: map[string]models.PriceSeries{},
		info:    map[string]*models.InstrumentInfo{},
		histErr: map[string]error{},
	}
}

func (m *fakeMarket) GetHistory(ctx context.Context, symbol string, _ domrepo.Period) (models.PriceSeries, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.histErr[symbol]; err != nil {
		return nil, err
	}
	return m.history[symbol], nil
}

func (m *fakeMarket) GetInfo(_ context.Context, symbol string) (*models.InstrumentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.info[symbol]
	if !ok {
		return nil, domrepo.ErrUnknownSymbol
	}
	cp := *info
	return &cp, nil
}

// linearSeries returns n daily points moving linearly from first to last.
func linearSeries(start time.Time, n int, first, last float64) models.PriceSeries {
	out := make(models.PriceSeries, n)
	for i := 0; i < n; i++ {
		v := first
		if n > 1 {
			v = first + (last-first)*float64(i)/float64(n-1)
		}
		out[i] = models.PricePoint{Date: start.AddDate(0, 0, i), Close: v, Volume: 1000}
	}
	return out
}

type fakeAlertStore struct {
	mu     sync.Mutex
	events []models.AlertEvent
	err    error
}

func (s *fakeAlertStore) Append(_ context.Context, ev *models.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, *ev)
	return nil
}

func (s *fakeAlertStore) Query(_ context.Context, userID int64, since time.Time, limit int) ([]models.AlertEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AlertEvent
	for _, e := range s.events {
		if e.UserID != userID {
			continue
		}
		if !since.IsZero() && e.CreatedAt.Before(since) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeAlertStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type fakeWatchlist struct {
	mu    sync.Mutex
	items map[int64][]models.WatchlistItem
	clk   *testClock
}

func newFakeWatchlist(clk *testClock) *fakeWatchlist {
	return &fakeWatchlist{items: map[int64][]models.WatchlistItem{}, clk: clk}
}

func (w *fakeWatchlist) List(_ context.Context, userID int64) ([]models.WatchlistItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.WatchlistItem(nil), w.items[userID]...), nil
}

func (w *fakeWatchlist) Add(_ context.Context, userID int64, symbol string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, it := range w.items[userID] {
		if it.Symbol == symbol {
			return domrepo.ErrDuplicate
		}
	}
	w.items[userID] = append(w.items[userID], models.WatchlistItem{UserID: userID, Symbol: symbol, AddedAt: w.clk.Now()})
	return nil
}

func (w *fakeWatchlist) Remove(_ context.Context, userID int64, symbol string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	items := w.items[userID]
	for i, it := range items {
		if it.Symbol == symbol {
			w.items[userID] = append(items[:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (w *fakeWatchlist) Users(_ context.Context) ([]int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []int64
	for u, items := range w.items {
		if len(items) > 0 {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	alerts []models.AlertEvent
	snaps  []*models.RankingSnapshot
}

func (p *fakePublisher) PublishAlert(_ context.Context, ev *models.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, *ev)
	return nil
}

func (p *fakePublisher) PublishRanking(_ context.Context, snap *models.RankingSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return nil
}
