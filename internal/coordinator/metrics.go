package coordinator

import (
	"sync"
)

type Metrics struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	TimedOutRequests   int64   `json:"timed_out_requests"`
	CacheHits          int64   `json:"cache_hits"`
	CacheHitRate       float64 `json:"cache_hit_rate"`
	AvgResponseMS      float64 `json:"avg_response_ms"`
}

// metricsTracker keeps running totals plus a smoothed average response time.
type metricsTracker struct {
	mu      sync.Mutex
	metrics Metrics
}

func newMetricsTracker() *metricsTracker {
	return &metricsTracker{}
}

func (t *metricsTracker) recordRequest(success, timedOut, cacheHit bool, elapsedMS int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalRequests++
	if success {
		t.metrics.SuccessfulRequests++
	} else {
		t.metrics.FailedRequests++
	}
	if timedOut {
		t.metrics.TimedOutRequests++
	}
	if cacheHit {
		t.metrics.CacheHits++
	}
	t.metrics.CacheHitRate = float64(t.metrics.CacheHits) / float64(t.metrics.TotalRequests)
	t.metrics.AvgResponseMS = ema(t.metrics.AvgResponseMS, float64(elapsedMS))
}

func (t *metricsTracker) snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}
