// Package types provides shared types for the larder cache library.
// This package breaks import cycles between pkg/larder and internal/cache.
package types

// Layer names used in logs, errors and metrics.
const (
	LayerMemory = "memory"
	LayerDisk   = "disk"
	LayerMulti  = "multi"
)

type EvictReason int

const (
	EvictCount EvictReason = iota + 1
	EvictCost
	EvictExpired
	EvictMemoryWarning
	EvictBackground
)

func (r EvictReason) String() string {
	switch r {
	case EvictCount:
		return "count"
	case EvictCost:
		return "cost"
	case EvictExpired:
		return "expired"
	case EvictMemoryWarning:
		return "memory-warning"
	case EvictBackground:
		return "background"
	default:
		return "unknown"
	}
}

type MemoryCacheStats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Deletes   int64
	Evictions int64
}

//nolint:govet // Stats struct - logical grouping prioritized for readability
type DiskCacheStats struct {
	Hits          int64
	Misses        int64
	Sets          int64
	Deletes       int64
	Evictions     int64
	Sweeps        int64
	FailedSweeps  int64
	InlineWrites  int64
	FileWrites    int64
}
