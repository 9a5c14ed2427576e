// Package metrics provides cache operation metrics collection and publishing.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavishGent/larder/internal/types"
)

const (
	defaultLatencyBufferSize = 10000
)

// Tracker is an in-process MetricsRecorder that keeps counters per tier
// and a ring of recent latencies for percentile reporting.
type Tracker struct {
	memoryHits   atomic.Int64
	memoryMisses atomic.Int64
	diskHits     atomic.Int64
	diskMisses   atomic.Int64
	promotions   atomic.Int64

	getCount    atomic.Int64
	setCount    atomic.Int64
	deleteCount atomic.Int64

	errorCount atomic.Int64

	memoryEvictions atomic.Int64
	diskEvictions   atomic.Int64

	memoryEntries atomic.Int64
	memoryCost    atomic.Int64
	diskEntries   atomic.Int64
	diskSize      atomic.Int64

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int

	totalBytesWritten atomic.Int64
}

func NewTracker() *Tracker {
	return &Tracker{
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
	}
}

func (t *Tracker) RecordHit(layer string, key string, latency time.Duration) {
	switch layer {
	case types.LayerMemory:
		t.memoryHits.Add(1)
	case types.LayerDisk:
		t.diskHits.Add(1)
	}
	t.getCount.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordMiss(layer string, key string, latency time.Duration) {
	switch layer {
	case types.LayerMemory:
		t.memoryMisses.Add(1)
	case types.LayerDisk:
		t.diskMisses.Add(1)
	}
	t.getCount.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordSet(layer string, key string, size int, latency time.Duration) {
	t.setCount.Add(1)
	if layer == types.LayerDisk {
		t.totalBytesWritten.Add(int64(size))
	}
	t.recordLatency(latency)
}

// RecordDelete records a delete operation.
func (t *Tracker) RecordDelete(layer string, key string, latency time.Duration) {
	t.deleteCount.Add(1)
	t.recordLatency(latency)
}

// RecordEviction adds count entries evicted from layer.
func (t *Tracker) RecordEviction(layer string, reason types.EvictReason, count int) {
	switch layer {
	case types.LayerMemory:
		t.memoryEvictions.Add(int64(count))
	case types.LayerDisk:
		t.diskEvictions.Add(int64(count))
	}
}

// RecordPromotion records a disk hit copied into memory.
func (t *Tracker) RecordPromotion(key string) {
	t.promotions.Add(1)
}

// RecordSize stores the last reported size of a tier.
func (t *Tracker) RecordSize(layer string, entries int64, cost int64) {
	switch layer {
	case types.LayerMemory:
		t.memoryEntries.Store(entries)
		t.memoryCost.Store(cost)
	case types.LayerDisk:
		t.diskEntries.Store(entries)
		t.diskSize.Store(cost)
	}
}

// RecordError records an error.
func (t *Tracker) RecordError(layer string, operation string, err error) {
	t.errorCount.Add(1)
}

// recordLatency adds a latency measurement using a circular buffer.
// This is O(1) time complexity with no memory allocations.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns current metrics snapshot.
func (t *Tracker) Snapshot() types.MetricsSnapshot {
	t.latencyMu.RLock()
	count := t.latencyCount
	latencyCopy := make([]time.Duration, count)
	if count > 0 {
		if count < len(t.latencyBuffer) {
			copy(latencyCopy, t.latencyBuffer[:count])
		} else {
			// Buffer is full - oldest data starts at latencyIndex
			firstPart := len(t.latencyBuffer) - t.latencyIndex
			copy(latencyCopy[:firstPart], t.latencyBuffer[t.latencyIndex:])
			copy(latencyCopy[firstPart:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	snapshot := types.MetricsSnapshot{
		Timestamp:       time.Now(),
		MemoryHits:      t.memoryHits.Load(),
		MemoryMisses:    t.memoryMisses.Load(),
		DiskHits:        t.diskHits.Load(),
		DiskMisses:      t.diskMisses.Load(),
		Promotions:      t.promotions.Load(),
		GetCount:        t.getCount.Load(),
		SetCount:        t.setCount.Load(),
		DeleteCount:     t.deleteCount.Load(),
		ErrorCount:      t.errorCount.Load(),
		MemoryEntries:   t.memoryEntries.Load(),
		MemoryCost:      t.memoryCost.Load(),
		MemoryEvictions: t.memoryEvictions.Load(),
		DiskEntries:     t.diskEntries.Load(),
		DiskSizeBytes:   t.diskSize.Load(),
		DiskEvictions:   t.diskEvictions.Load(),
		BytesWritten:    t.totalBytesWritten.Load(),
	}

	if len(latencyCopy) > 0 {
		snapshot.AvgLatencyMs = millis(avgDuration(latencyCopy))
		snapshot.P50LatencyMs = millis(percentile(latencyCopy, 50))
		snapshot.P95LatencyMs = millis(percentile(latencyCopy, 95))
		snapshot.P99LatencyMs = millis(percentile(latencyCopy, 99))
	}

	return snapshot
}

// Reset clears all metrics.
func (t *Tracker) Reset() {
	for _, c := range []*atomic.Int64{
		&t.memoryHits, &t.memoryMisses, &t.diskHits, &t.diskMisses, &t.promotions,
		&t.getCount, &t.setCount, &t.deleteCount, &t.errorCount,
		&t.memoryEvictions, &t.diskEvictions,
		&t.memoryEntries, &t.memoryCost, &t.diskEntries, &t.diskSize,
		&t.totalBytesWritten,
	} {
		c.Store(0)
	}

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

// Helper functions for latency calculations

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

var _ types.MetricsRecorder = (*Tracker)(nil)
