package types

import "time"

// HealthStatus represents the overall health state.
type HealthStatus int

const (
	// HealthStatusHealthy indicates all tiers operating normally.
	HealthStatusHealthy HealthStatus = iota + 1
	// HealthStatusDegraded indicates partial functionality (e.g., the disk tier failed to open).
	HealthStatusDegraded
	// HealthStatusUnhealthy indicates critical failure.
	HealthStatusUnhealthy
)

// String returns the string representation of health status.
func (s HealthStatus) String() string {
	switch s {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthMetrics contains overall cache health information.
type HealthMetrics struct {
	Timestamp time.Time
	Disk      DiskHealthMetrics
	Memory    MemoryHealthMetrics
	Status    HealthStatus
}

// MemoryHealthMetrics contains memory tier health details.
type MemoryHealthMetrics struct {
	Status          HealthStatus
	Available       bool
	EntryCount      int64
	TotalCost       int64
	CostLimit       int64
	CountLimit      int64
	UsagePercentage float64
	HitCount        int64
	MissCount       int64
	HitRatio        float64
	EvictionCount   int64
}

// DiskHealthMetrics contains disk tier health details.
//
//nolint:govet // Metrics struct - logical grouping prioritized for readability
type DiskHealthMetrics struct {
	LastSweep      time.Time
	LastSweepError string
	Path           string
	EntryCount     int64
	SizeBytes      int64
	SizeLimit      int64
	CountLimit     int64
	HitCount       int64
	MissCount      int64
	HitRatio       float64
	EvictionCount  int64
	Status         HealthStatus
	Available      bool
}

// MetricsSnapshot contains a point-in-time view of cache metrics.
//
//nolint:govet // Metrics struct with many counters - grouping by category improves readability
type MetricsSnapshot struct {
	Timestamp time.Time
	// Hit/miss counters
	MemoryHits   int64
	MemoryMisses int64
	DiskHits     int64
	DiskMisses   int64
	Promotions   int64
	// Operation counters
	GetCount    int64
	SetCount    int64
	DeleteCount int64
	ErrorCount  int64

	// Latency metrics (milliseconds)
	AvgLatencyMs float64
	P50LatencyMs float64
	P95LatencyMs float64
	P99LatencyMs float64

	// Tier sizes as last reported
	MemoryEntries   int64
	MemoryCost      int64
	MemoryEvictions int64
	DiskEntries     int64
	DiskSizeBytes   int64
	DiskEvictions   int64
	BytesWritten    int64
}

// MemoryHitRatio calculates the memory tier hit ratio.
func (s *MetricsSnapshot) MemoryHitRatio() float64 {
	return ratio(s.MemoryHits, s.MemoryMisses)
}

// DiskHitRatio calculates the disk tier hit ratio.
func (s *MetricsSnapshot) DiskHitRatio() float64 {
	return ratio(s.DiskHits, s.DiskMisses)
}

// TotalHitRatio treats a memory miss followed by a disk hit as a hit.
func (s *MetricsSnapshot) TotalHitRatio() float64 {
	misses := s.MemoryMisses
	if s.DiskHits+s.DiskMisses > 0 {
		misses = s.DiskMisses
	}
	return ratio(s.MemoryHits+s.DiskHits, misses)
}

func ratio(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
