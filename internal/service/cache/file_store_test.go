package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
}

type payload struct {
	Score float64 `json:"score"`
}

func TestFileStoreFreshnessBoundary(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	s, err := NewFileStore(t.TempDir(), WithClock(clock.Now))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "sentiment:AAPL", payload{Score: 0.7}))

	clock.Advance(120 * time.Minute)
	got, ok := GetJSON[payload](ctx, s, "sentiment:AAPL", 120*time.Minute)
	require.True(t, ok, "age equal to max_age is still fresh")
	assert.Equal(t, 0.7, got.Score)

	clock.Advance(time.Nanosecond)
	_, ok = s.Get(ctx, "sentiment:AAPL", 120*time.Minute)
	assert.False(t, ok)

	// a longer window still sees the stale value
	_, ok = s.Get(ctx, "sentiment:AAPL", 720*time.Minute)
	assert.True(t, ok)
}

func TestFileStoreMissingKey(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok := s.Get(context.Background(), "nope", time.Hour)
	assert.False(t, ok)
}

func TestFileStoreLastWriterWins(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "k", payload{Score: 0.1}))
	require.NoError(t, s.Set(ctx, "k", payload{Score: 0.9}))

	got, ok := GetJSON[payload](ctx, s, "k", time.Hour)
	require.True(t, ok)
	assert.Equal(t, 0.9, got.Score)
}

func TestFileStoreCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	cases := map[string]string{
		"not json":       "{{{",
		"bad timestamp":  `{"key":"k","timestamp":"soon","data":{"score":1}}`,
		"missing data":   `{"key":"k","timestamp":"2024-03-01T09:30:00Z"}`,
		"truncated file": `{"key":"k","timestamp":"2024-03-01T09:30:00Z","data":{"sc`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			p := s.path("k")
			require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

			_, ok := s.Get(ctx, "k", 100*365*24*time.Hour)
			assert.False(t, ok)

			_, statErr := os.Stat(p)
			assert.True(t, os.IsNotExist(statErr), "corrupt entry should be dropped")
		})
	}
}

func TestFileStoreDurableAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "news:MSFT", []string{"a", "b"}))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	got, ok := GetJSON[[]string](ctx, second, "news:MSFT", time.Hour)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "../escape/attempt:1", payload{Score: 1}))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(files[0].Name(), ".._escape_attempt_1~"), files[0].Name())

	_, ok := s.Get(ctx, "../escape/attempt:1", time.Hour)
	assert.True(t, ok)
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreSimilarKeysDoNotShareEntries(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "news:AAPL", "colon"))
	require.NoError(t, s.Set(ctx, "news_AAPL", "underscore"))

	got, ok := GetJSON[string](ctx, s, "news:AAPL", time.Hour)
	require.True(t, ok)
	assert.Equal(t, "colon", got)

	got, ok = GetJSON[string](ctx, s, "news_AAPL", time.Hour)
	require.True(t, ok)
	assert.Equal(t, "underscore", got)
}

func TestFileStoreEntryForOtherKeyIsMiss(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	body := `{"key":"someone-else","timestamp":"` + time.Now().UTC().Format(time.RFC3339Nano) + `","data":{"score":1}}`
	require.NoError(t, os.WriteFile(s.path("k"), []byte(body), 0o644))

	_, ok := s.Get(ctx, "k", time.Hour)
	assert.False(t, ok)
}

func TestFileStoreSweep(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	dir := t.TempDir()
	s, err := NewFileStore(dir, WithClock(clock.Now))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "old", payload{}))
	clock.Advance(10 * time.Hour)
	require.NoError(t, s.Set(ctx, "new", payload{}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("nope"), 0o644))

	removed, err := s.Sweep(ctx, 5*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok := s.Get(ctx, "new", 5*time.Hour)
	assert.True(t, ok)
	_, ok = s.Get(ctx, "old", 100*time.Hour)
	assert.False(t, ok)
}

func TestFileStoreMaxEntries(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, WithMaxEntries(2))
	require.NoError(t, err)

	for i, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(ctx, k, payload{}))
		// spread mod times so eviction order is deterministic
		mod := time.Now().Add(time.Duration(i-10) * time.Minute)
		require.NoError(t, os.Chtimes(s.path(k), mod, mod))
	}
	require.NoError(t, s.Set(ctx, "d", payload{}))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	_, ok := s.Get(ctx, "d", time.Hour)
	assert.True(t, ok)
}
