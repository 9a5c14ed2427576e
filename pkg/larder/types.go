package larder

import (
	"github.com/LavishGent/larder/internal/cache"
	"github.com/LavishGent/larder/internal/types"
)

type (
	// MemoryCache is the in-process LRU tier.
	MemoryCache[V any] = cache.MemoryCache[V]
	// DiskCache is the SQLite catalog plus blob file tier.
	DiskCache[V any] = cache.DiskCache[V]
	// MultiCache composes a memory tier in front of a disk tier.
	MultiCache[V any] = cache.MultiCache[V]
	// Iterator walks a key snapshot of a tier.
	Iterator[V any] = cache.Iterator[V]
	// SweepResult reports what one disk sweep removed.
	SweepResult = cache.SweepResult

	// CacheAware is the contract shared by all tiers.
	CacheAware[V any] = types.CacheAware[V]
	// LifecycleAware receives host lifecycle events.
	LifecycleAware = types.LifecycleAware
	// Serializer encodes values for the disk tier.
	Serializer = types.Serializer
	// MetricsRecorder provides operations for recording cache metrics.
	MetricsRecorder = types.MetricsRecorder
	// Publisher ships metrics to a backend.
	Publisher = types.Publisher
	// Logger provides logging operations.
	Logger = types.Logger
	// EvictReason says why entries left a tier.
	EvictReason = types.EvictReason
	// MemoryCacheStats contains counters for the memory tier.
	MemoryCacheStats = types.MemoryCacheStats
	// DiskCacheStats contains counters for the disk tier.
	DiskCacheStats = types.DiskCacheStats
)

const (
	EvictCount         = types.EvictCount
	EvictCost          = types.EvictCost
	EvictExpired       = types.EvictExpired
	EvictMemoryWarning = types.EvictMemoryWarning
	EvictBackground    = types.EvictBackground
)

// NewJSONSerializer returns the default disk serializer.
func NewJSONSerializer() Serializer {
	return cache.NewJSONSerializer()
}

// NewZstdSerializer compresses the output of inner. A nil inner means JSON.
func NewZstdSerializer(inner Serializer) Serializer {
	return cache.NewZstdSerializer(inner)
}
