package cache

import (
	"iter"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavishGent/larder/internal/config"
	"github.com/LavishGent/larder/internal/dispatch"
	"github.com/LavishGent/larder/internal/lru"
	"github.com/LavishGent/larder/internal/types"
)

// memoryStore owns the recency index and enforces the count and cost limits.
// Callers serialize access.
type memoryStore[V any] struct {
	index      *lru.Index[V]
	costLimit  int64
	countLimit int
}

func newMemoryStore[V any](costLimit int64, countLimit int) *memoryStore[V] {
	return &memoryStore[V]{
		index:      lru.New[V](),
		costLimit:  costLimit,
		countLimit: countLimit,
	}
}

// set inserts or updates key and then evicts. It reports how many entries
// each limit evicted.
func (s *memoryStore[V]) set(key string, value V, cost int64) (byCount, byCost int) {
	if cost < 0 {
		cost = 0
	}
	if h, ok := s.index.Lookup(key); ok {
		s.index.Update(h, value, cost)
		s.index.MoveToHead(h)
	} else {
		s.index.InsertAtHead(key, value, cost)
	}
	return s.evict()
}

// evict drops the tail once when over the count limit (a set adds at most
// one node), then drops tails until the cost limit holds.
func (s *memoryStore[V]) evict() (byCount, byCost int) {
	if s.countLimit > 0 && s.index.Len() > s.countLimit {
		if _, ok := s.index.RemoveTail(); ok {
			byCount++
		}
	}
	if s.costLimit > 0 {
		for s.index.TotalCost() > s.costLimit {
			if _, ok := s.index.RemoveTail(); !ok {
				break
			}
			byCost++
		}
	}
	return byCount, byCost
}

func (s *memoryStore[V]) get(key string) (V, bool) {
	h, ok := s.index.Lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	s.index.MoveToHead(h)
	return s.index.Value(h), true
}

// peek reads without touching recency.
func (s *memoryStore[V]) peek(key string) (V, bool) {
	h, ok := s.index.Lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return s.index.Value(h), true
}

func (s *memoryStore[V]) exists(key string) bool {
	_, ok := s.index.Lookup(key)
	return ok
}

func (s *memoryStore[V]) remove(key string) bool {
	h, ok := s.index.Lookup(key)
	if !ok {
		return false
	}
	s.index.RemoveNode(h)
	return true
}

// removeAll empties the store and returns the number of dropped entries.
func (s *memoryStore[V]) removeAll() int {
	n := s.index.Len()
	if n == 0 {
		return 0
	}
	s.index.RemoveAll()
	return n
}

// MemoryCache is the thread-safe memory tier. One mutex serializes every
// operation on the underlying store.
type MemoryCache[V any] struct {
	store     *memoryStore[V]
	config    config.MemoryConfig
	logger    *slog.Logger
	metrics   types.MetricsRecorder
	validator *types.KeyValidator
	pool      *dispatch.Pool
	ownsPool  bool

	mu sync.Mutex

	autoRemoveOnMemoryWarning atomic.Bool
	autoRemoveOnBackground    atomic.Bool

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64

	closed atomic.Bool
}

// NewMemoryCache creates a memory tier with its own dispatch pool.
func NewMemoryCache[V any](cfg *config.Config, opts *types.Options) *MemoryCache[V] {
	logger := NewLogger(opts, "memory-cache")
	pool := dispatch.NewPool(cfg.Dispatch, baseLogger(opts))
	c := newMemoryCache[V](cfg, opts, pool, logger)
	c.ownsPool = true
	return c
}

func newMemoryCache[V any](cfg *config.Config, opts *types.Options, pool *dispatch.Pool, logger *slog.Logger) *MemoryCache[V] {
	c := &MemoryCache[V]{
		store:  newMemoryStore[V](cfg.Memory.TotalCostLimit, cfg.Memory.TotalCountLimit),
		config: cfg.Memory,
		logger: logger,
		pool:   pool,
	}
	if opts != nil {
		c.metrics = opts.Metrics
	}
	if cfg.KeyValidation.Enabled {
		c.validator = types.NewKeyValidator(cfg.KeyValidation.ToTypesConfig())
	}
	c.autoRemoveOnMemoryWarning.Store(cfg.Memory.AutoRemoveOnMemoryWarning)
	c.autoRemoveOnBackground.Store(cfg.Memory.AutoRemoveOnBackground)
	return c
}

// Name returns the cache layer name.
func (c *MemoryCache[V]) Name() string {
	return types.LayerMemory
}

// IsAvailable returns true if the cache is not closed.
func (c *MemoryCache[V]) IsAvailable() bool {
	return !c.closed.Load()
}

// Set stores value under key with the given cost. Nil values, invalid keys
// and a closed cache all report false.
func (c *MemoryCache[V]) Set(key string, value V, cost int64) bool {
	if c.closed.Load() {
		return false
	}
	if isNil(value) {
		c.logger.Debug("Rejected nil value", "key", key)
		c.recordError("Set", types.NewCacheError("Set", key, types.LayerMemory, types.ErrNilValue))
		return false
	}
	if err := c.validateKey(key); err != nil {
		c.logger.Debug("Rejected invalid key", "key", key, "error", err)
		c.recordError("Set", err)
		return false
	}

	start := time.Now()
	c.mu.Lock()
	byCount, byCost := c.store.set(key, value, cost)
	entries, total := c.store.index.Len(), c.store.index.TotalCost()
	c.mu.Unlock()

	c.sets.Add(1)
	c.noteEvictions(types.EvictCount, byCount)
	c.noteEvictions(types.EvictCost, byCost)
	if c.metrics != nil {
		c.metrics.RecordSet(types.LayerMemory, key, int(cost), time.Since(start))
		c.metrics.RecordSize(types.LayerMemory, int64(entries), total)
	}
	return true
}

// Get returns the value for key and marks it most recently used.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	var zero V
	if c.closed.Load() || c.validateKey(key) != nil {
		return zero, false
	}

	start := time.Now()
	c.mu.Lock()
	value, ok := c.store.get(key)
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.RecordMiss(types.LayerMemory, key, time.Since(start))
		}
		return zero, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.RecordHit(types.LayerMemory, key, time.Since(start))
	}
	return value, true
}

// Exists reports whether key is resident without touching its recency.
func (c *MemoryCache[V]) Exists(key string) bool {
	if c.closed.Load() || c.validateKey(key) != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.exists(key)
}

// RemoveObject removes key if present.
func (c *MemoryCache[V]) RemoveObject(key string) {
	if c.closed.Load() || c.validateKey(key) != nil {
		return
	}

	start := time.Now()
	c.mu.Lock()
	removed := c.store.remove(key)
	entries, total := c.store.index.Len(), c.store.index.TotalCost()
	c.mu.Unlock()

	if !removed {
		return
	}
	c.deletes.Add(1)
	if c.metrics != nil {
		c.metrics.RecordDelete(types.LayerMemory, key, time.Since(start))
		c.metrics.RecordSize(types.LayerMemory, int64(entries), total)
	}
}

// RemoveAll empties the cache. Calling it on an empty cache does nothing.
func (c *MemoryCache[V]) RemoveAll() {
	c.removeAll(0)
}

func (c *MemoryCache[V]) removeAll(reason types.EvictReason) {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	n := c.store.removeAll()
	c.mu.Unlock()

	if n == 0 {
		return
	}
	if reason != 0 {
		c.noteEvictions(reason, n)
		c.logger.Info("Cleared memory tier", "reason", reason.String(), "entries", n)
	} else {
		c.deletes.Add(int64(n))
	}
	if c.metrics != nil {
		c.metrics.RecordSize(types.LayerMemory, 0, 0)
	}
}

// SetAsync runs Set on the dispatch pool and reports the result to done.
func (c *MemoryCache[V]) SetAsync(key string, value V, cost int64, done func(key string, ok bool)) {
	c.pool.Go(func() {
		ok := c.Set(key, value, cost)
		if done != nil {
			done(key, ok)
		}
	})
}

// GetAsync runs Get on the dispatch pool and reports the result to done.
func (c *MemoryCache[V]) GetAsync(key string, done func(key string, value V, ok bool)) {
	c.pool.Go(func() {
		value, ok := c.Get(key)
		if done != nil {
			done(key, value, ok)
		}
	})
}

// ExistsAsync runs Exists on the dispatch pool and reports the result to done.
func (c *MemoryCache[V]) ExistsAsync(key string, done func(key string, ok bool)) {
	c.pool.Go(func() {
		ok := c.Exists(key)
		if done != nil {
			done(key, ok)
		}
	})
}

// RemoveObjectAsync runs RemoveObject on the dispatch pool.
func (c *MemoryCache[V]) RemoveObjectAsync(key string, done func()) {
	c.pool.Go(func() {
		c.RemoveObject(key)
		if done != nil {
			done()
		}
	})
}

// RemoveAllAsync runs RemoveAll on the dispatch pool.
func (c *MemoryCache[V]) RemoveAllAsync(done func()) {
	c.pool.Go(func() {
		c.RemoveAll()
		if done != nil {
			done()
		}
	})
}

// OnMemoryWarning empties the cache when AutoRemoveOnMemoryWarning is set.
func (c *MemoryCache[V]) OnMemoryWarning() {
	if c.autoRemoveOnMemoryWarning.Load() {
		c.removeAll(types.EvictMemoryWarning)
	}
}

// OnEnterBackground empties the cache when AutoRemoveOnBackground is set.
func (c *MemoryCache[V]) OnEnterBackground() {
	if c.autoRemoveOnBackground.Load() {
		c.removeAll(types.EvictBackground)
	}
}

// SetAutoRemoveOnMemoryWarning toggles the memory warning hook.
func (c *MemoryCache[V]) SetAutoRemoveOnMemoryWarning(enabled bool) {
	c.autoRemoveOnMemoryWarning.Store(enabled)
}

// SetAutoRemoveOnBackground toggles the background hook.
func (c *MemoryCache[V]) SetAutoRemoveOnBackground(enabled bool) {
	c.autoRemoveOnBackground.Store(enabled)
}

// AutoRemoveOnMemoryWarning reports the memory warning hook setting.
func (c *MemoryCache[V]) AutoRemoveOnMemoryWarning() bool {
	return c.autoRemoveOnMemoryWarning.Load()
}

// AutoRemoveOnBackground reports the background hook setting.
func (c *MemoryCache[V]) AutoRemoveOnBackground() bool {
	return c.autoRemoveOnBackground.Load()
}

// Iterator returns a restartable iterator walking from most to least
// recently used. Iterating does not touch recency.
func (c *MemoryCache[V]) Iterator() *Iterator[V] {
	return newIterator(c.keys, c.peek)
}

// All yields resident entries from most to least recently used.
func (c *MemoryCache[V]) All() iter.Seq2[string, V] {
	return seq(c.keys, c.peek)
}

func (c *MemoryCache[V]) keys() []string {
	if c.closed.Load() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.index.Keys()
}

func (c *MemoryCache[V]) peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.peek(key)
}

// TotalCount returns the number of resident entries.
func (c *MemoryCache[V]) TotalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.index.Len()
}

// TotalCost returns the aggregate cost of resident entries.
func (c *MemoryCache[V]) TotalCost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.index.TotalCost()
}

// Stats returns memory cache statistics.
func (c *MemoryCache[V]) Stats() types.MemoryCacheStats {
	return types.MemoryCacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Deletes:   c.deletes.Load(),
		Evictions: c.evictions.Load(),
	}
}

// HitRatio returns the cache hit ratio.
func (c *MemoryCache[V]) HitRatio() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Health returns a point-in-time health view of the tier.
func (c *MemoryCache[V]) Health() types.MemoryHealthMetrics {
	c.mu.Lock()
	entries, total := int64(c.store.index.Len()), c.store.index.TotalCost()
	c.mu.Unlock()

	stats := c.Stats()
	h := types.MemoryHealthMetrics{
		Status:        types.HealthStatusHealthy,
		Available:     c.IsAvailable(),
		EntryCount:    entries,
		TotalCost:     total,
		CostLimit:     c.config.TotalCostLimit,
		CountLimit:    int64(c.config.TotalCountLimit),
		HitCount:      stats.Hits,
		MissCount:     stats.Misses,
		HitRatio:      c.HitRatio(),
		EvictionCount: stats.Evictions,
	}
	if h.CostLimit > 0 {
		h.UsagePercentage = float64(total) / float64(h.CostLimit) * 100
	}
	if !h.Available {
		h.Status = types.HealthStatusUnhealthy
	}
	return h
}

// Close drops all entries and waits for queued async operations when the
// cache owns its pool.
func (c *MemoryCache[V]) Close() error {
	var err error
	if c.ownsPool {
		err = c.pool.Close()
	}
	if c.closed.Swap(true) {
		return err
	}
	c.mu.Lock()
	c.store.removeAll()
	c.mu.Unlock()
	return err
}

func (c *MemoryCache[V]) validateKey(key string) error {
	if c.validator == nil {
		return nil
	}
	return c.validator.Validate(key)
}

func (c *MemoryCache[V]) noteEvictions(reason types.EvictReason, n int) {
	if n == 0 {
		return
	}
	c.evictions.Add(int64(n))
	if c.metrics != nil {
		c.metrics.RecordEviction(types.LayerMemory, reason, n)
	}
}

func (c *MemoryCache[V]) recordError(op string, err error) {
	if c.metrics != nil {
		c.metrics.RecordError(types.LayerMemory, op, err)
	}
}

// isNil reports whether v is a nil pointer, map, slice, interface, channel
// or function.
func isNil[V any](v V) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

var (
	_ types.CacheAware[any] = (*MemoryCache[any])(nil)
	_ types.LifecycleAware  = (*MemoryCache[any])(nil)
	_ types.CacheInfo       = (*MemoryCache[any])(nil)
)
