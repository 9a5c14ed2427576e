package types

import "time"

// CacheAware is the contract shared by the memory, disk and multi tiers.
// Failures never surface as errors here: a failed Set reports false and a
// failed Get reports absence.
type CacheAware[V any] interface {
	Set(key string, value V, cost int64) bool
	Get(key string) (V, bool)
	Exists(key string) bool
	RemoveObject(key string)
	RemoveAll()

	SetAsync(key string, value V, cost int64, done func(key string, ok bool))
	GetAsync(key string, done func(key string, value V, ok bool))
	ExistsAsync(key string, done func(key string, ok bool))
	RemoveObjectAsync(key string, done func())
	RemoveAllAsync(done func())
}

// LifecycleAware is implemented by tiers that react to host lifecycle events.
type LifecycleAware interface {
	OnMemoryWarning()
	OnEnterBackground()
}

type CacheInfo interface {
	Name() string
	IsAvailable() bool
}

type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
}

type MetricsRecorder interface {
	RecordHit(layer string, key string, latency time.Duration)
	RecordMiss(layer string, key string, latency time.Duration)
	RecordSet(layer string, key string, size int, latency time.Duration)
	RecordDelete(layer string, key string, latency time.Duration)
	RecordEviction(layer string, reason EvictReason, count int)
	RecordPromotion(key string)
	RecordSize(layer string, entries int64, cost int64)
	RecordError(layer string, operation string, err error)
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Publisher ships gauges, counters and periodic health batches to a
// metrics backend.
type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	Event(title, text string, alertType string, tags ...string)
	PublishHealthMetrics(metrics *PublisherHealthMetrics)
	Close() error
}

type PublisherHealthMetrics struct {
	MemoryEntries    int64
	MemoryCost       int64
	MemoryCostLimit  int64
	DiskEntries      int64
	DiskSizeBytes    int64
	DiskSizeLimit    int64
	HitRatio         float64
	AverageLatencyMs float64
	DiskAvailable    bool
}
