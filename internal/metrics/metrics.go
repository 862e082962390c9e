// Package metrics keeps process-wide counters for the monitoring endpoint
// and the per-cycle summary report.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsFetched     int64
	DuplicatesURL    int64
	DuplicatesText   int64
	RejectedByReason map[string]int64
	RewriteFailures  int64
	Published        int64
	CacheHits        int64
	CacheMisses      int64

	// Timings
	LastCycleTime    time.Duration
	TotalCycleTime   time.Duration
	AverageCycleTime time.Duration
	CycleCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true, RejectedByReason: make(map[string]int64)}

func (m *Metrics) AddItemsFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsFetched += int64(n)
}

func (m *Metrics) IncrementDuplicatesURL() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesURL++
}

func (m *Metrics) IncrementDuplicatesText() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesText++
}

func (m *Metrics) IncrementRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RejectedByReason[reason]++
}

func (m *Metrics) IncrementRewriteFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RewriteFailures++
}

func (m *Metrics) IncrementPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published++
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

// CacheHitRate returns the cache hit percentage since process start.
func (m *Metrics) CacheHitRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.CacheHits + m.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(total) * 100
}

func (m *Metrics) RecordCycleTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastCycleTime = duration
	m.TotalCycleTime += duration
	m.CycleCount++

	if m.CycleCount > 0 {
		m.AverageCycleTime = m.TotalCycleTime / time.Duration(m.CycleCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rejected := make(map[string]int64, len(m.RejectedByReason))
	for k, v := range m.RejectedByReason {
		rejected[k] = v
	}

	return map[string]interface{}{
		"items_fetched":       m.ItemsFetched,
		"duplicates_url":      m.DuplicatesURL,
		"duplicates_text":     m.DuplicatesText,
		"rejected_by_reason":  rejected,
		"rewrite_failures":    m.RewriteFailures,
		"published":           m.Published,
		"cache_hits":          m.CacheHits,
		"cache_misses":        m.CacheMisses,
		"last_cycle_time_ms":  m.LastCycleTime.Milliseconds(),
		"avg_cycle_time_ms":   m.AverageCycleTime.Milliseconds(),
		"last_run_time":       m.LastRunTime.Format(time.RFC3339),
		"last_error_time":     m.LastErrorTime.Format(time.RFC3339),
		"last_error":          m.LastError,
		"is_healthy":          m.IsHealthy,
	}
}
