package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(context.Background(), filepath.Join(t.TempDir(), "stro.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStoreWatchlist(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	require.NoError(t, s.Add(ctx, 1, "AAPL"))
	require.NoError(t, s.Add(ctx, 1, "MSFT"))
	require.NoError(t, s.Add(ctx, 2, "TSLA"))
	assert.ErrorIs(t, s.Add(ctx, 1, "AAPL"), domrepo.ErrDuplicate)

	items, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "AAPL", items[0].Symbol)
	assert.Equal(t, base.Add(time.Minute), items[0].AddedAt)
	assert.Equal(t, "MSFT", items[1].Symbol)

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, users)

	removed, err := s.Remove(ctx, 1, "AAPL")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Remove(ctx, 1, "AAPL")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSQLStoreAlerts(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)
	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	events := []models.AlertEvent{
		{ID: "a", UserID: 7, Symbol: "NVDA", Type: models.AlertHighGain, Message: "NVDA is up 30.0% in the past month!", PriceChange: 30, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "b", UserID: 7, Symbol: "TSLA", Type: models.AlertHighLoss, Message: "TSLA is down 20.0% in the past month.", PriceChange: -20, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "c", UserID: 7, Symbol: "NVDA", Type: models.AlertHighGain, Message: "NVDA is up 31.0% in the past month!", PriceChange: 31, CreatedAt: now.Add(-time.Hour)},
		{ID: "d", UserID: 8, Symbol: "AAPL", Type: models.AlertHighGain, Message: "x", PriceChange: 26, CreatedAt: now},
	}
	for i := range events {
		require.NoError(t, s.Append(ctx, &events[i]))
	}
	assert.ErrorIs(t, s.Append(ctx, &events[0]), domrepo.ErrDuplicate)

	all, err := s.Query(ctx, 7, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, models.AlertHighLoss, all[1].Type)
	assert.Equal(t, now.Add(-time.Hour), all[0].CreatedAt)

	recent, err := s.Query(ctx, 7, now.Add(-24*time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := s.Query(ctx, 7, time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].ID)
}
