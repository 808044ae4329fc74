package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a sliding window of investigation durations and
// answers percentile queries over it.
type LatencyTracker struct {
	mu      sync.RWMutex
	window  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker holding at most maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &LatencyTracker{maxSize: maxSize}
}

// Observe records one run duration, evicting the oldest sample when the
// window is full.
func (t *LatencyTracker) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.window = append(t.window, d)
	if len(t.window) > t.maxSize {
		copy(t.window[0:], t.window[1:])
		t.window = t.window[:t.maxSize]
	}
}

// Percentile returns the duration at percentile p in [0, 100], or zero when
// nothing has been observed yet.
func (t *LatencyTracker) Percentile(p float64) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.window) == 0 {
		return 0
	}

	sorted := append([]time.Duration(nil), t.window...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	index := int((p / 100.0) * float64(len(sorted)-1))
	return sorted[index]
}

// Count returns the number of samples currently in the window.
func (t *LatencyTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.window)
}
