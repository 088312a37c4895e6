package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Harry166/stro/internal/domain/repository"
	pkgcache "github.com/Harry166/stro/pkg/cache"
	applogger "github.com/Harry166/stro/pkg/logger"
)

const entryExt = ".json"

// FileStore keeps one JSON file per key under dir. It survives restarts.
// All operations are serialized by one lock; the cache is not a hot path.
type FileStore struct {
	mu         sync.Mutex
	dir        string
	maxEntries int
	now        func() time.Time
	l          *applogger.Logger
	metrics    repository.Metrics
}

type FileOption func(*FileStore)

// WithMaxEntries evicts the oldest files once more than n entries exist. 0 disables.
func WithMaxEntries(n int) FileOption {
	return func(s *FileStore) { s.maxEntries = n }
}

func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) { s.now = now }
}

func WithLogger(l *applogger.Logger) FileOption {
	return func(s *FileStore) { s.l = l }
}

func WithMetrics(m repository.Metrics) FileOption {
	return func(s *FileStore) { s.metrics = m }
}

func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	s := &FileStore{
		dir:     dir,
		now:     time.Now,
		l:       applogger.Nop(),
		metrics: repository.NopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, pkgcache.SanitizeKey(key)+entryExt)
}

func (s *FileStore) Get(_ context.Context, key string, maxAge time.Duration) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.path(key)
	b, err := os.ReadFile(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.l.Warn("cache read failed", applogger.String("key", key), applogger.Error(err))
		}
		s.metrics.RecordCacheLookup(ResultMiss)
		return nil, false
	}

	e, writtenAt, ok := decodeEntry(b)
	if !ok {
		s.l.Warn("cache entry corrupt, dropping", applogger.String("key", key))
		_ = os.Remove(p)
		s.metrics.RecordCacheLookup(ResultCorrupt)
		return nil, false
	}
	if e.Key != key {
		s.metrics.RecordCacheLookup(ResultMiss)
		return nil, false
	}
	if s.now().Sub(writtenAt) > maxAge {
		s.metrics.RecordCacheLookup(ResultExpired)
		return nil, false
	}
	s.metrics.RecordCacheLookup(ResultHit)
	return e.Data, true
}

func (s *FileStore) Set(_ context.Context, key string, value any) error {
	b, err := newEntry(key, value, s.now())
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// write-then-rename so readers never see a half-written file
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache write %q: %w", key, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache write %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache write %q: %w", key, err)
	}

	if s.maxEntries > 0 {
		s.evictLocked()
	}
	return nil
}

func (s *FileStore) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.entriesLocked()
	if err != nil {
		return 0, err
	}

	now := s.now()
	removed := 0
	for _, f := range files {
		p := filepath.Join(s.dir, f.Name())
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if _, writtenAt, ok := decodeEntry(b); ok && now.Sub(writtenAt) <= maxAge {
			continue
		}
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *FileStore) entriesLocked() ([]fs.DirEntry, error) {
	all, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}
	out := all[:0]
	for _, f := range all {
		if f.Type().IsRegular() && strings.HasSuffix(f.Name(), entryExt) {
			out = append(out, f)
		}
	}
	return out, nil
}

// evictLocked removes the least recently written files above maxEntries.
func (s *FileStore) evictLocked() {
	files, err := s.entriesLocked()
	if err != nil || len(files) <= s.maxEntries {
		return
	}

	type aged struct {
		name string
		mod  time.Time
	}
	list := make([]aged, 0, len(files))
	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			continue
		}
		list = append(list, aged{name: f.Name(), mod: info.ModTime()})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].mod.Before(list[j].mod) })

	excess := len(list) - s.maxEntries
	for i := 0; i < excess; i++ {
		_ = os.Remove(filepath.Join(s.dir, list[i].name))
	}
	s.l.Debug("cache evicted", applogger.Int("count", excess))
}

var _ Store = (*FileStore)(nil)
