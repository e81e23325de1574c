package normalize

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	duration time.Duration
	failed   bool
}

// StatsSnapshot aggregates the API calls seen within the window.
type StatsSnapshot struct {
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// LLMStats keeps a rolling window of normalizer API call latencies. It is
// safe for concurrent use.
type LLMStats struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

// NewLLMStats returns stats over the given window (one hour when <= 0).
func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{
		samples: make([]sample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Record adds one call. failed marks calls that did not return a usable
// response.
func (s *LLMStats) Record(d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, duration: max(d, 0), failed: failed})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	var snap StatsSnapshot
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		ms := sm.duration.Milliseconds()
		values = append(values, ms)
		sum += ms
		if sm.failed {
			snap.Failures++
		}
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
