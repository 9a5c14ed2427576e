package larder

import (
	"github.com/LavishGent/larder/internal/types"
)

// Re-export health types from internal/types.
type (
	// HealthStatus represents the overall health state.
	HealthStatus = types.HealthStatus

	// HealthMetrics contains overall cache health information.
	HealthMetrics = types.HealthMetrics

	// MemoryHealthMetrics contains memory tier health details.
	MemoryHealthMetrics = types.MemoryHealthMetrics

	// DiskHealthMetrics contains disk tier health details.
	DiskHealthMetrics = types.DiskHealthMetrics

	// MetricsSnapshot contains a point-in-time view of cache metrics.
	MetricsSnapshot = types.MetricsSnapshot

	// PublisherHealthMetrics is the batch sent to a Publisher.
	PublisherHealthMetrics = types.PublisherHealthMetrics
)

// Re-export health status constants.
const (
	HealthStatusHealthy   = types.HealthStatusHealthy
	HealthStatusDegraded  = types.HealthStatusDegraded
	HealthStatusUnhealthy = types.HealthStatusUnhealthy
)
