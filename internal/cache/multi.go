package cache

import (
	"errors"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/LavishGent/larder/internal/config"
	"github.com/LavishGent/larder/internal/dispatch"
	"github.com/LavishGent/larder/internal/types"
)

// memoryLayer is what MultiCache needs from its memory tier.
type memoryLayer[V any] interface {
	types.CacheAware[V]
	types.LifecycleAware
	types.CacheInfo
	TotalCount() int
	TotalCost() int64
	Stats() types.MemoryCacheStats
	Health() types.MemoryHealthMetrics
	Close() error
	keys() []string
	peek(key string) (V, bool)
}

// diskLayer is what MultiCache needs from its disk tier.
type diskLayer[V any] interface {
	types.CacheAware[V]
	types.CacheInfo
	Keys() []string
	TotalItemCount() int64
	TotalItemSize() int64
	RemoveAllExpired()
	Sweep() (SweepResult, error)
	Stats() types.DiskCacheStats
	Health() types.DiskHealthMetrics
	Close() error
	get(key string) (V, int, bool)
	set(key string, value V) (int, bool)
}

// MultiCache composes a memory tier and a disk tier. Writes go to both,
// reads try memory first and promote disk hits into memory. The tiers are
// not kept atomic with each other.
type MultiCache[V any] struct {
	memory  memoryLayer[V]
	disk    diskLayer[V]
	logger  *slog.Logger
	metrics types.MetricsRecorder
	pool    *dispatch.Pool
	sfGroup singleflight.Group
	create  singleflight.Group
	diskErr error

	promotions atomic.Int64
	closing    atomic.Bool
	closed     atomic.Bool
}

// NewMultiCache builds both tiers on one shared dispatch pool. A disk tier
// that fails to open is replaced by a disabled tier and the cache runs in
// memory-only mode.
func NewMultiCache[V any](cfg *config.Config, opts *types.Options) (*MultiCache[V], error) {
	logger := NewLogger(opts, "multi-cache")
	pool := dispatch.NewPool(cfg.Dispatch, baseLogger(opts))

	m := &MultiCache[V]{
		logger: logger,
		pool:   pool,
	}
	if opts != nil {
		m.metrics = opts.Metrics
	}

	if cfg.Memory.Enabled && (opts == nil || !opts.DisableMemory) {
		m.memory = newMemoryCache[V](cfg, opts, pool, NewLogger(opts, "memory-cache"))
	} else {
		m.memory = disabledMemory[V]{}
	}

	if cfg.Disk.Enabled && (opts == nil || !opts.DisableDisk) {
		disk, err := newDiskCache[V](cfg, opts, pool, NewLogger(opts, "disk-cache"))
		if err != nil {
			logger.Warn("Failed to open disk cache, using memory-only mode", "error", err)
			m.disk = disabledDisk[V]{reason: err.Error()}
			m.diskErr = err
		} else {
			m.disk = disk
		}
	} else {
		m.disk = disabledDisk[V]{}
	}

	return m, nil
}

// Name returns the cache layer name.
func (m *MultiCache[V]) Name() string {
	return types.LayerMulti
}

// IsAvailable returns true while either tier is available.
func (m *MultiCache[V]) IsAvailable() bool {
	return !m.closed.Load() && (m.memory.IsAvailable() || m.disk.IsAvailable())
}

// IsMemoryAvailable returns true if the memory tier is available.
func (m *MultiCache[V]) IsMemoryAvailable() bool {
	return m.memory.IsAvailable()
}

// IsDiskAvailable returns true if the disk tier is available.
func (m *MultiCache[V]) IsDiskAvailable() bool {
	return m.disk.IsAvailable()
}

// DiskError returns the error that disabled the disk tier at startup, if any.
func (m *MultiCache[V]) DiskError() error {
	return m.diskErr
}

// Set writes value to both tiers and reports true if either write succeeded.
func (m *MultiCache[V]) Set(key string, value V, cost int64) bool {
	if m.closed.Load() {
		return false
	}
	memOK := m.memory.Set(key, value, cost)
	_, diskOK := m.disk.set(key, value)

	if memOK != diskOK && m.disk.IsAvailable() && m.memory.IsAvailable() {
		m.logger.Debug("Set succeeded on one tier only", "key", key, "memory", memOK, "disk", diskOK)
	}
	return memOK || diskOK
}

type promoted[V any] struct {
	value V
}

// Get returns the memory value if resident. Otherwise it reads the disk
// tier and promotes a hit into memory, using the encoded size as cost.
// Concurrent misses for one key share a single disk read.
func (m *MultiCache[V]) Get(key string) (V, bool) {
	var zero V
	if m.closed.Load() {
		return zero, false
	}
	if v, ok := m.memory.Get(key); ok {
		return v, true
	}

	result, _, _ := m.sfGroup.Do(key, func() (any, error) {
		v, size, ok := m.disk.get(key)
		if !ok {
			return nil, nil
		}
		m.promote(key, v, size)
		return promoted[V]{value: v}, nil
	})

	p, ok := result.(promoted[V])
	if !ok {
		return zero, false
	}
	return p.value, true
}

func (m *MultiCache[V]) promote(key string, value V, size int) {
	if !m.memory.Set(key, value, int64(size)) {
		return
	}
	m.promotions.Add(1)
	if m.metrics != nil {
		m.metrics.RecordPromotion(key)
	}
}

// GetOrCreate returns the cached value or stores the result of factory
// with the given cost. Concurrent callers for one key share a single factory
// invocation. Factory errors are returned and nothing is cached.
func (m *MultiCache[V]) GetOrCreate(key string, cost int64, factory func() (V, error)) (V, error) {
	var zero V
	if m.closed.Load() {
		return zero, types.ErrClosed
	}
	if v, ok := m.Get(key); ok {
		return v, nil
	}

	result, err, _ := m.create.Do(key, func() (any, error) {
		if v, ok := m.Get(key); ok {
			return promoted[V]{value: v}, nil
		}
		v, err := factory()
		if err != nil {
			return nil, err
		}
		if !m.Set(key, v, cost) {
			m.logger.Debug("Failed to cache factory result", "key", key)
		}
		return promoted[V]{value: v}, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(promoted[V]).value, nil
}

// Exists reports whether either tier holds key. It never promotes.
func (m *MultiCache[V]) Exists(key string) bool {
	if m.closed.Load() {
		return false
	}
	return m.memory.Exists(key) || m.disk.Exists(key)
}

// RemoveObject removes key from both tiers. Failures are not rolled back.
func (m *MultiCache[V]) RemoveObject(key string) {
	if m.closed.Load() {
		return
	}
	m.memory.RemoveObject(key)
	m.disk.RemoveObject(key)
}

// RemoveAll empties both tiers.
func (m *MultiCache[V]) RemoveAll() {
	if m.closed.Load() {
		return
	}
	m.memory.RemoveAll()
	m.disk.RemoveAll()
}

// SetAsync runs Set on the dispatch pool and reports the result to done.
func (m *MultiCache[V]) SetAsync(key string, value V, cost int64, done func(key string, ok bool)) {
	m.pool.Go(func() {
		ok := m.Set(key, value, cost)
		if done != nil {
			done(key, ok)
		}
	})
}

// GetAsync runs Get on the dispatch pool and reports the result to done.
func (m *MultiCache[V]) GetAsync(key string, done func(key string, value V, ok bool)) {
	m.pool.Go(func() {
		value, ok := m.Get(key)
		if done != nil {
			done(key, value, ok)
		}
	})
}

// ExistsAsync runs Exists on the dispatch pool and reports the result to done.
func (m *MultiCache[V]) ExistsAsync(key string, done func(key string, ok bool)) {
	m.pool.Go(func() {
		ok := m.Exists(key)
		if done != nil {
			done(key, ok)
		}
	})
}

// RemoveObjectAsync runs RemoveObject on the dispatch pool.
func (m *MultiCache[V]) RemoveObjectAsync(key string, done func()) {
	m.pool.Go(func() {
		m.RemoveObject(key)
		if done != nil {
			done()
		}
	})
}

// RemoveAllAsync runs RemoveAll on the dispatch pool.
func (m *MultiCache[V]) RemoveAllAsync(done func()) {
	m.pool.Go(func() {
		m.RemoveAll()
		if done != nil {
			done()
		}
	})
}

// OnMemoryWarning forwards the event to the memory tier.
func (m *MultiCache[V]) OnMemoryWarning() {
	m.memory.OnMemoryWarning()
}

// OnEnterBackground forwards the event to the memory tier.
func (m *MultiCache[V]) OnEnterBackground() {
	m.memory.OnEnterBackground()
}

// Iterator returns a restartable iterator over the disk keys. Resident
// memory values are preferred; values read from disk are promoted.
func (m *MultiCache[V]) Iterator() *Iterator[V] {
	return newIterator(m.keys, m.resolve)
}

// All yields every entry over a key snapshot, promoting disk reads.
func (m *MultiCache[V]) All() iter.Seq2[string, V] {
	return seq(m.keys, m.resolve)
}

// keys lists the disk keys, or the memory keys when the disk tier is off.
func (m *MultiCache[V]) keys() []string {
	if m.closed.Load() {
		return nil
	}
	if !m.disk.IsAvailable() {
		return m.memory.keys()
	}
	return m.disk.Keys()
}

func (m *MultiCache[V]) resolve(key string) (V, bool) {
	if v, ok := m.memory.peek(key); ok {
		return v, true
	}
	v, size, ok := m.disk.get(key)
	if !ok {
		return v, false
	}
	m.promote(key, v, size)
	return v, true
}

// Memory returns the memory tier.
func (m *MultiCache[V]) Memory() types.CacheAware[V] {
	return m.memory
}

// Disk returns the disk tier.
func (m *MultiCache[V]) Disk() types.CacheAware[V] {
	return m.disk
}

// Sweep runs one disk sweep.
func (m *MultiCache[V]) Sweep() (SweepResult, error) {
	return m.disk.Sweep()
}

// RemoveAllExpired deletes expired disk records.
func (m *MultiCache[V]) RemoveAllExpired() {
	m.disk.RemoveAllExpired()
}

// Promotions returns how many disk hits were copied into memory.
func (m *MultiCache[V]) Promotions() int64 {
	return m.promotions.Load()
}

// HitRatio counts a memory miss followed by a disk hit as a hit.
func (m *MultiCache[V]) HitRatio() float64 {
	mem, disk := m.memory.Stats(), m.disk.Stats()
	snapshot := types.MetricsSnapshot{
		MemoryHits:   mem.Hits,
		MemoryMisses: mem.Misses,
		DiskHits:     disk.Hits,
		DiskMisses:   disk.Misses,
	}
	return snapshot.TotalHitRatio()
}

// Health returns health metrics for both tiers. Losing one tier degrades
// the cache; losing both makes it unhealthy.
func (m *MultiCache[V]) Health() *types.HealthMetrics {
	h := &types.HealthMetrics{
		Timestamp: time.Now(),
		Memory:    m.memory.Health(),
		Disk:      m.disk.Health(),
	}

	memOK := h.Memory.Status == types.HealthStatusHealthy
	diskOK := h.Disk.Status == types.HealthStatusHealthy
	switch {
	case m.closed.Load():
		h.Status = types.HealthStatusUnhealthy
	case memOK && diskOK:
		h.Status = types.HealthStatusHealthy
	case h.Memory.Available || h.Disk.Available:
		h.Status = types.HealthStatusDegraded
	default:
		h.Status = types.HealthStatusUnhealthy
	}
	return h
}

// PublisherHealth summarizes Health for a metrics publisher.
func (m *MultiCache[V]) PublisherHealth() *types.PublisherHealthMetrics {
	h := m.Health()
	return &types.PublisherHealthMetrics{
		MemoryEntries:   h.Memory.EntryCount,
		MemoryCost:      h.Memory.TotalCost,
		MemoryCostLimit: h.Memory.CostLimit,
		DiskEntries:     h.Disk.EntryCount,
		DiskSizeBytes:   h.Disk.SizeBytes,
		DiskSizeLimit:   h.Disk.SizeLimit,
		HitRatio:        m.HitRatio(),
		DiskAvailable:   h.Disk.Available,
	}
}

// Close waits for in-flight async operations using the configured shutdown
// timeout, then closes both tiers.
func (m *MultiCache[V]) Close() error {
	return m.CloseWithTimeout(m.pool.ShutdownTimeout())
}

// CloseWithTimeout is Close with an explicit wait bound. Async operations
// queued before the call still run against an open cache. On timeout it
// returns ErrShutdownTimeout but still closes both tiers.
func (m *MultiCache[V]) CloseWithTimeout(timeout time.Duration) error {
	if m.closing.Swap(true) {
		return nil
	}
	m.logger.Info("Closing multi cache, waiting for async operations", "timeout", timeout)

	var errs []error
	if err := m.pool.CloseWithTimeout(timeout); err != nil {
		m.logger.Warn("Shutdown timeout exceeded, proceeding with close", "timeout", timeout)
		errs = append(errs, err)
	}
	m.closed.Store(true)

	if err := m.memory.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.disk.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

var (
	_ types.CacheAware[any] = (*MultiCache[any])(nil)
	_ types.LifecycleAware  = (*MultiCache[any])(nil)
	_ types.CacheInfo       = (*MultiCache[any])(nil)
	_ memoryLayer[any]      = (*MemoryCache[any])(nil)
	_ diskLayer[any]        = (*DiskCache[any])(nil)
)
