package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Harry166/stro/internal/domain/repository"
	pkgcache "github.com/Harry166/stro/pkg/cache"
	applogger "github.com/Harry166/stro/pkg/logger"
)

// RedisStore keeps the same envelope as FileStore in Redis, so freshness is still
// decided at read time. Retention only bounds how long Redis keeps a key at all.
type RedisStore struct {
	mu        sync.Mutex
	svc       pkgcache.Service
	retention time.Duration
	now       func() time.Time
	l         *applogger.Logger
	metrics   repository.Metrics
}

func NewRedisStore(svc pkgcache.Service, retention time.Duration, l *applogger.Logger, m repository.Metrics) *RedisStore {
	if m == nil {
		m = repository.NopMetrics{}
	}
	return &RedisStore{
		svc:       svc,
		retention: retention,
		now:       time.Now,
		l:         applogger.Or(l),
		metrics:   m,
	}
}

// SetClock replaces the time source. Tests only.
func (s *RedisStore) SetClock(now func() time.Time) { s.now = now }

func (s *RedisStore) Get(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.svc.GetBytes(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			s.l.Warn("redis cache read failed", applogger.String("key", key), applogger.Error(err))
		}
		s.metrics.RecordCacheLookup(ResultMiss)
		return nil, false
	}

	e, writtenAt, ok := decodeEntry(b)
	if !ok {
		s.l.Warn("cache entry corrupt, dropping", applogger.String("key", key))
		_ = s.svc.Delete(ctx, key)
		s.metrics.RecordCacheLookup(ResultCorrupt)
		return nil, false
	}
	if s.now().Sub(writtenAt) > maxAge {
		s.metrics.RecordCacheLookup(ResultExpired)
		return nil, false
	}
	s.metrics.RecordCacheLookup(ResultHit)
	return e.Data, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	b, err := newEntry(key, value, s.now())
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.svc.Set(ctx, key, b, s.retention); err != nil {
		return fmt.Errorf("cache write %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var stale []string
	err := s.svc.Scan(ctx, "*", func(key string) error {
		b, err := s.svc.GetBytes(ctx, key)
		if err != nil {
			return nil
		}
		if _, writtenAt, ok := decodeEntry(b); !ok || now.Sub(writtenAt) > maxAge {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	if err := s.svc.Delete(ctx, stale...); err != nil {
		return 0, fmt.Errorf("cache sweep delete: %w", err)
	}
	return len(stale), nil
}

var _ Store = (*RedisStore)(nil)
