package cache

import (
	"context"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgcache "github.com/Harry166/stro/pkg/cache"
)

// memService is an in-memory pkgcache.Service.
type memService struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemService() *memService { return &memService{m: map[string][]byte{}} }

func (m *memService) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = append([]byte(nil), value...)
	return nil
}

func (m *memService) GetBytes(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.m[key]
	if !ok {
		return nil, pkgcache.ErrCacheMiss
	}
	return b, nil
}

func (m *memService) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.m, k)
	}
	return nil
}

func (m *memService) Scan(_ context.Context, pattern string, fn func(string) error) error {
	m.mu.Lock()
	var keys []string
	for k := range m.m {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	m.mu.Unlock()
	for _, k := range keys {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

func TestRedisStoreFreshnessAndSweep(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	svc := newMemService()
	s := NewRedisStore(svc, 0, nil, nil)
	s.SetClock(clock.Now)

	require.NoError(t, s.Set(ctx, "news:AAPL", payload{Score: 0.4}))
	clock.Advance(time.Hour)

	got, ok := GetJSON[payload](ctx, s, "news:AAPL", time.Hour)
	require.True(t, ok)
	assert.Equal(t, 0.4, got.Score)

	_, ok = s.Get(ctx, "news:AAPL", time.Hour-time.Second)
	assert.False(t, ok)

	svc.m["broken"] = []byte("not an envelope")
	removed, err := s.Sweep(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Empty(t, svc.m)
}

func TestRedisStoreCorruptIsMiss(t *testing.T) {
	ctx := context.Background()
	svc := newMemService()
	s := NewRedisStore(svc, time.Hour, nil, nil)

	svc.m["k"] = []byte(`{"key":"k","timestamp":"","data":1}`)
	_, ok := s.Get(ctx, "k", time.Hour)
	assert.False(t, ok)
	assert.NotContains(t, svc.m, "k")
}
