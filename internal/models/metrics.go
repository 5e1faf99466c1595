package models

import "time"

// SystemMetrics is a point-in-time snapshot of service instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	GenerationRuns           uint64    `json:"generation_runs"`
	GenerationFailures       uint64    `json:"generation_failures"`
	GenerationRejected       uint64    `json:"generation_rejected"`
	LastMatchedCount         int64     `json:"last_matched_count"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
