package pipeline

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
	citations  int
	failed     bool
}

// StatsSnapshot is a point-in-time aggregate of recent exports.
type StatsSnapshot struct {
	Count        int     `json:"count"`
	Failed       int     `json:"failed"`
	Citations    int     `json:"citations"`
	AvgCitations float64 `json:"avg_citations"`
	MinMs        int64   `json:"min_ms"`
	MaxMs        int64   `json:"max_ms"`
	AvgMs        float64 `json:"avg_ms"`
	P50Ms        float64 `json:"p50_ms"`
	P95Ms        float64 `json:"p95_ms"`
	P99Ms        float64 `json:"p99_ms"`
}

// ExportStats tracks recent export runs within a rolling window.
type ExportStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewExportStats(maxAge time.Duration) *ExportStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &ExportStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// Record adds one successful export.
func (s *ExportStats) Record(durationMs int64, citations int) {
	s.add(sample{durationMs: durationMs, citations: citations})
}

// RecordFailure adds one failed export.
func (s *ExportStats) RecordFailure(durationMs int64) {
	s.add(sample{durationMs: durationMs, failed: true})
}

func (s *ExportStats) add(sm sample) {
	if sm.durationMs < 0 {
		sm.durationMs = 0
	}
	now := time.Now()
	sm.timestamp = now

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sm)
}

// Snapshot aggregates the samples still inside the window. Latency
// percentiles cover successful exports only.
func (s *ExportStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	var snap StatsSnapshot
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		if sm.failed {
			snap.Failed++
			continue
		}
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		snap.Citations += sm.citations
	}
	if len(values) == 0 {
		return snap
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Count = len(values)
	snap.AvgCitations = float64(snap.Citations) / float64(len(values))
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *ExportStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
