package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Harry166/stro/pkg/util"
)

// Store is a key-value cache whose freshness is decided by the reader.
// An entry is returned only if now - written_at <= maxAge.
type Store interface {
	Get(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, bool)
	// Set overwrites any previous value (last writer wins).
	Set(ctx context.Context, key string, value any) error
	// Sweep drops every entry older than maxAge, plus unreadable ones.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

// Lookup results reported to metrics.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultExpired = "expired"
	ResultCorrupt = "corrupt"
)

// Entry is the persisted envelope of a cached value.
type Entry struct {
	Key       string          `json:"key"`
	WrittenAt string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func newEntry(key string, value any, now time.Time) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Entry{
		Key:       key,
		WrittenAt: now.UTC().Format(time.RFC3339Nano),
		Data:      data,
	})
}

// decodeEntry returns false for anything that is not a complete envelope.
func decodeEntry(b []byte) (Entry, time.Time, bool) {
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, time.Time{}, false
	}
	writtenAt, ok := util.ParseTime(e.WrittenAt)
	if !ok || len(e.Data) == 0 || !json.Valid(e.Data) {
		return Entry{}, time.Time{}, false
	}
	return e, writtenAt, true
}

// GetJSON reads key and decodes it into T. A value that does not decode is a miss.
func GetJSON[T any](ctx context.Context, s Store, key string, maxAge time.Duration) (T, bool) {
	var out T
	raw, ok := s.Get(ctx, key, maxAge)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}
