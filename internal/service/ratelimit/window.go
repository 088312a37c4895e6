package ratelimit

import (
	"sync"
	"time"
)

// Window is a fixed-window call budget with a hard reset.
// The count drops to zero only once now - start exceeds the window length;
// there is no gradual decay.
type Window struct {
	mu     sync.Mutex
	start  time.Time
	count  int
	budget int
	length time.Duration
	now    func() time.Time
}

// State is a copy of the window counters.
type State struct {
	WindowStart  time.Time     `json:"window_start"`
	CallCount    int           `json:"call_count"`
	Budget       int           `json:"budget"`
	WindowLength time.Duration `json:"window_length"`
}

// Remaining returns how many calls are left in the current window.
func (s State) Remaining() int {
	if s.CallCount >= s.Budget {
		return 0
	}
	return s.Budget - s.CallCount
}

type WindowOption func(*Window)

func WithClock(now func() time.Time) WindowOption {
	return func(w *Window) { w.now = now }
}

// NewWindow creates a limiter allowing budget calls per length.
func NewWindow(budget int, length time.Duration, opts ...WindowOption) *Window {
	w := &Window{budget: budget, length: length, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	w.start = w.now()
	return w
}

// Allow reports whether another call fits in the budget. It does not consume.
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	return w.count < w.budget
}

// RecordCall counts one issued call, successful or not.
func (w *Window) RecordCall() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	w.count++
}

// TryAcquire checks and records in one step. Returns false when over budget.
func (w *Window) TryAcquire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	if w.count >= w.budget {
		return false
	}
	w.count++
	return true
}

func (w *Window) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	return State{WindowStart: w.start, CallCount: w.count, Budget: w.budget, WindowLength: w.length}
}

func (w *Window) resetLocked() {
	now := w.now()
	if now.Sub(w.start) > w.length {
		w.start = now
		w.count = 0
	}
}
