package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestWindowHardReset(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	w := NewWindow(45, 12*time.Hour, WithClock(c.now))

	for i := 0; i < 45; i++ {
		require.True(t, w.Allow(), "call %d", i)
		w.RecordCall()
	}
	assert.False(t, w.Allow())

	// no partial decay inside the window
	c.t = c.t.Add(11 * time.Hour)
	assert.False(t, w.Allow())

	// exactly the window length is not yet past it
	c.t = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.False(t, w.Allow())

	c.t = c.t.Add(time.Second)
	assert.True(t, w.Allow())
	st := w.Snapshot()
	assert.Equal(t, 0, st.CallCount)
	assert.Equal(t, c.t, st.WindowStart)
	assert.Equal(t, 45, st.Remaining())
}

func TestWindowFailedCallsCount(t *testing.T) {
	w := NewWindow(2, time.Hour)
	w.RecordCall()
	w.RecordCall()
	assert.False(t, w.Allow())
	assert.False(t, w.TryAcquire())
	assert.Equal(t, 0, w.Snapshot().Remaining())
}

func TestWindowRecordBeyondBudget(t *testing.T) {
	w := NewWindow(1, time.Hour)
	// calls already issued are still counted even past the budget
	w.RecordCall()
	w.RecordCall()
	assert.Equal(t, 2, w.Snapshot().CallCount)
}

func TestWindowConcurrentTryAcquire(t *testing.T) {
	w := NewWindow(10, time.Hour)
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.TryAcquire() {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, granted)
}

func TestLimiterRefill(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(2, 1)
	l.now = c.now

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"), "buckets are per key")

	c.t = c.t.Add(time.Second)
	assert.True(t, l.Allow("1.2.3.4"))

	c.t = c.t.Add(time.Hour)
	assert.Equal(t, 2, l.Prune(time.Minute))
}
