package cache

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/LavishGent/larder/internal/config"
	"github.com/LavishGent/larder/internal/dispatch"
	"github.com/LavishGent/larder/internal/types"
)

// SweepResult reports what one sweep removed.
type SweepResult struct {
	Expired   int
	ByCount   int
	ByCost    int
	Timestamp time.Time
}

// Total returns the number of removed records.
func (r SweepResult) Total() int {
	return r.Expired + r.ByCount + r.ByCost
}

// diskStore owns the catalog and the blob directory. Callers serialize access.
type diskStore struct {
	catalog         *Catalog
	blobs           *BlobStore
	logger          *slog.Logger
	inlineThreshold int
	batchSize       int
	costLimit       int64
	countLimit      int
	maxAge          time.Duration
}

// set writes data for key. Values larger than the inline threshold go to a
// blob file; smaller ones are stored in the row and any previous file for
// the key is deleted. A failed write leaves the previous value intact.
func (s *diskStore) set(key string, data []byte, now time.Time) (inline bool, err error) {
	oldFile, hadFile, err := s.catalog.Filename(key)
	if err != nil {
		return false, err
	}

	rec := Record{Key: key, Size: int64(len(data)), LastAccess: now.Unix()}

	if len(data) > s.inlineThreshold {
		// Stage under a temporary name: the row may still point at the
		// current file for this key until the upsert lands.
		name := FileName(key)
		tmpPath, err := s.blobs.Stage(name, data)
		if err != nil {
			return false, err
		}
		rec.Filename = name
		if err := s.catalog.Upsert(rec); err != nil {
			s.blobs.Discard(tmpPath)
			return false, err
		}
		if err := s.blobs.Commit(tmpPath, name); err != nil {
			s.blobs.Discard(tmpPath)
			if _, delErr := s.catalog.Delete(key); delErr != nil {
				s.logger.Warn("Failed to drop row after blob rename error", "key", key, "error", delErr)
			}
			s.removeBlobQuietly(key, name)
			return false, err
		}
		if hadFile && oldFile != name {
			s.removeBlobQuietly(key, oldFile)
		}
		return false, nil
	}

	rec.Inline = data
	if err := s.catalog.Upsert(rec); err != nil {
		return false, err
	}
	if hadFile {
		s.removeBlobQuietly(key, oldFile)
	}
	return true, nil
}

// removeBlobQuietly drops a file no row points at any more. A failure only
// leaves an orphan behind.
func (s *diskStore) removeBlobQuietly(key, name string) {
	if err := s.blobs.Remove(name); err != nil {
		s.logger.Warn("Failed to remove stale blob", "key", key, "file", name, "error", err)
	}
}

// get returns the stored bytes for key and refreshes its access time.
func (s *diskStore) get(key string, now time.Time) ([]byte, bool, error) {
	rec, ok, err := s.catalog.Lookup(key)
	if err != nil || !ok {
		return nil, false, err
	}

	data := rec.Inline
	if !rec.IsInline() {
		data, err = s.blobs.Read(rec.Filename)
		if errors.Is(err, os.ErrNotExist) {
			// The row outlived its file; drop it.
			if _, delErr := s.catalog.Delete(key); delErr != nil {
				return nil, false, errors.Join(err, delErr)
			}
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
	}

	if err := s.catalog.Touch(key, now.Unix()); err != nil {
		s.logger.Warn("Failed to update access time", "key", key, "error", err)
	}
	return data, true, nil
}

func (s *diskStore) exists(key string) (bool, error) {
	return s.catalog.Exists(key)
}

// remove deletes the file for key, then its row.
func (s *diskStore) remove(key string) (bool, error) {
	name, hasFile, err := s.catalog.Filename(key)
	if err != nil {
		return false, err
	}
	if hasFile {
		if err := s.blobs.Remove(name); err != nil {
			return false, err
		}
	}
	return s.catalog.Delete(key)
}

func (s *diskStore) removeRecord(r Record) error {
	if !r.IsInline() {
		if err := s.blobs.Remove(r.Filename); err != nil {
			return err
		}
	}
	_, err := s.catalog.Delete(r.Key)
	return err
}

// removeAll clears the catalog and the blob directory.
func (s *diskStore) removeAll() (int64, error) {
	n, err := s.catalog.DeleteAll()
	if err != nil {
		return 0, err
	}
	if err := s.blobs.Reset(); err != nil {
		return n, err
	}
	return n, s.catalog.Checkpoint()
}

// removeExpired deletes every record last accessed before now-maxAge, files
// first.
func (s *diskStore) removeExpired(now time.Time) (int, error) {
	if s.maxAge <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-s.maxAge).Unix()

	files, err := s.catalog.ExpiredFiles(cutoff)
	if err != nil {
		return 0, err
	}
	for _, name := range files {
		if err := s.blobs.Remove(name); err != nil {
			return 0, fmt.Errorf("%w: %w", types.ErrEvictionAborted, err)
		}
	}
	n, err := s.catalog.DeleteExpired(cutoff)
	return int(n), err
}

// trimCount deletes oldest records in batches until the count limit holds.
func (s *diskStore) trimCount() (int, error) {
	if s.countLimit <= 0 {
		return 0, nil
	}
	total, err := s.catalog.Count()
	if err != nil {
		return 0, err
	}
	limit := int64(s.countLimit)
	return s.trim(func() bool { return total > limit }, func(Record) { total-- })
}

// trimCost deletes oldest records in batches until the size limit holds.
func (s *diskStore) trimCost() (int, error) {
	if s.costLimit <= 0 {
		return 0, nil
	}
	total, err := s.catalog.TotalSize()
	if err != nil {
		return 0, err
	}
	return s.trim(func() bool { return total > s.costLimit }, func(r Record) { total -= r.Size })
}

// trim removes oldest-first while over() holds. Any failed deletion aborts
// the pass.
func (s *diskStore) trim(over func() bool, removed func(Record)) (int, error) {
	evicted := 0
	for over() {
		batch, err := s.catalog.Oldest(s.batchSize)
		if err != nil {
			return evicted, fmt.Errorf("%w: %w", types.ErrEvictionAborted, err)
		}
		if len(batch) == 0 {
			return evicted, nil
		}
		for _, r := range batch {
			if !over() {
				break
			}
			if err := s.removeRecord(r); err != nil {
				return evicted, fmt.Errorf("%w: %w", types.ErrEvictionAborted, err)
			}
			removed(r)
			evicted++
		}
	}
	return evicted, nil
}

// sweep runs expiry, the count trim and the cost trim in that order, then
// checkpoints the catalog. A failing step skips the rest.
func (s *diskStore) sweep(now time.Time) (SweepResult, error) {
	res := SweepResult{Timestamp: now}

	var err error
	if res.Expired, err = s.removeExpired(now); err == nil {
		if res.ByCount, err = s.trimCount(); err == nil {
			res.ByCost, err = s.trimCost()
		}
	}

	if cpErr := s.catalog.Checkpoint(); cpErr != nil {
		err = errors.Join(err, cpErr)
	}
	return res, err
}

func (s *diskStore) close() error {
	return s.catalog.Close()
}

// DiskCache is the thread-safe disk tier. One mutex serializes every
// operation, including the periodic sweep.
type DiskCache[V any] struct {
	store      *diskStore
	dir        string
	config     config.DiskConfig
	serializer types.Serializer
	logger     *slog.Logger
	metrics    types.MetricsRecorder
	validator  *types.KeyValidator
	clock      func() time.Time
	pool       *dispatch.Pool
	ownsPool   bool
	sweeper    *sweeper

	mu sync.Mutex

	hits         atomic.Int64
	misses       atomic.Int64
	sets         atomic.Int64
	deletes      atomic.Int64
	evictions    atomic.Int64
	sweeps       atomic.Int64
	failedSweeps atomic.Int64
	inlineWrites atomic.Int64
	fileWrites   atomic.Int64

	lastSweep atomic.Pointer[sweepStatus]
	closed    atomic.Bool
}

type sweepStatus struct {
	at  time.Time
	err string
}

// NewDiskCache opens the disk tier in cfg.Disk.Dir() with its own dispatch
// pool and starts the background sweeper.
func NewDiskCache[V any](cfg *config.Config, opts *types.Options) (*DiskCache[V], error) {
	logger := NewLogger(opts, "disk-cache")
	pool := dispatch.NewPool(cfg.Dispatch, baseLogger(opts))
	c, err := newDiskCache[V](cfg, opts, pool, logger)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	c.ownsPool = true
	return c, nil
}

func newDiskCache[V any](cfg *config.Config, opts *types.Options, pool *dispatch.Pool, logger *slog.Logger) (*DiskCache[V], error) {
	dir := cfg.Disk.Dir()
	if dir == "" {
		return nil, types.NewCacheError("Open", "", types.LayerDisk, errors.New("disk path is empty"))
	}

	blobs, err := NewBlobStore(osfs.New(dir))
	if err != nil {
		return nil, types.NewCacheError("Open", "", types.LayerDisk, err)
	}
	catalog, err := OpenCatalog(filepath.Join(dir, CatalogFile))
	if err != nil {
		return nil, types.NewCacheError("Open", "", types.LayerDisk, err)
	}

	inline := cfg.Disk.InlineThreshold
	if inline <= 0 {
		inline = config.DefaultInlineThreshold
	}
	batch := cfg.Disk.EvictionBatchSize
	if batch <= 0 {
		batch = config.DefaultEvictionBatchSize
	}

	c := &DiskCache[V]{
		store: &diskStore{
			catalog:         catalog,
			blobs:           blobs,
			logger:          logger,
			inlineThreshold: inline,
			batchSize:       batch,
			costLimit:       cfg.Disk.TotalCostLimit,
			countLimit:      cfg.Disk.TotalCountLimit,
			maxAge:          cfg.Disk.MaxCachePeriod.Duration,
		},
		dir:        dir,
		config:     cfg.Disk,
		serializer: NewJSONSerializer(),
		logger:     logger,
		pool:       pool,
		clock:      time.Now,
	}
	if opts != nil {
		if opts.Serializer != nil {
			c.serializer = opts.Serializer
		}
		c.metrics = opts.Metrics
		if opts.Clock != nil {
			c.clock = opts.Clock
		}
	}
	if cfg.Disk.Compress {
		c.serializer = NewZstdSerializer(c.serializer)
	}
	if cfg.KeyValidation.Enabled {
		c.validator = types.NewKeyValidator(cfg.KeyValidation.ToTypesConfig())
	}

	if interval := cfg.Disk.SweepInterval.Duration; interval > 0 {
		c.sweeper = newSweeper(interval, func() { _, _ = c.Sweep() }, NewLogger(opts, "disk-sweeper"))
		c.sweeper.start(context.Background())
	}

	logger.Info("Disk cache opened", "dir", dir, "inline_threshold", inline)
	return c, nil
}

// Name returns the cache layer name.
func (c *DiskCache[V]) Name() string {
	return types.LayerDisk
}

// IsAvailable returns true if the cache is not closed.
func (c *DiskCache[V]) IsAvailable() bool {
	return !c.closed.Load()
}

// Dir returns the directory holding the catalog and blob files.
func (c *DiskCache[V]) Dir() string {
	return c.dir
}

// Set encodes value and stores it. cost is ignored; the disk tier accounts
// by encoded size.
func (c *DiskCache[V]) Set(key string, value V, _ int64) bool {
	_, ok := c.set(key, value)
	return ok
}

// set returns the encoded size so the hybrid tier can reuse it as cost.
func (c *DiskCache[V]) set(key string, value V) (int, bool) {
	if c.closed.Load() {
		return 0, false
	}
	if isNil(value) {
		c.logger.Debug("Rejected nil value", "key", key)
		c.recordError("Set", types.NewCacheError("Set", key, types.LayerDisk, types.ErrNilValue))
		return 0, false
	}
	if err := c.validateKey(key); err != nil {
		c.logger.Debug("Rejected invalid key", "key", key, "error", err)
		c.recordError("Set", err)
		return 0, false
	}

	start := time.Now()
	data, err := c.serializer.Marshal(value)
	if err != nil {
		c.fail("Set", key, fmt.Errorf("%w: %w", types.ErrSerializationFailed, err))
		return 0, false
	}

	c.mu.Lock()
	inline, err := c.store.set(key, data, c.clock())
	c.mu.Unlock()

	if err != nil {
		c.fail("Set", key, err)
		return 0, false
	}

	c.sets.Add(1)
	if inline {
		c.inlineWrites.Add(1)
	} else {
		c.fileWrites.Add(1)
	}
	if c.metrics != nil {
		c.metrics.RecordSet(types.LayerDisk, key, len(data), time.Since(start))
	}
	return len(data), true
}

// Get reads and decodes the value for key and refreshes its access time.
func (c *DiskCache[V]) Get(key string) (V, bool) {
	v, _, ok := c.get(key)
	return v, ok
}

// get also returns the encoded size of the value.
func (c *DiskCache[V]) get(key string) (V, int, bool) {
	var zero V
	if c.closed.Load() || c.validateKey(key) != nil {
		return zero, 0, false
	}

	start := time.Now()
	c.mu.Lock()
	data, ok, err := c.store.get(key, c.clock())
	c.mu.Unlock()

	if err != nil {
		c.fail("Get", key, err)
		ok = false
	}
	if !ok {
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.RecordMiss(types.LayerDisk, key, time.Since(start))
		}
		return zero, 0, false
	}

	var value V
	if err := c.serializer.Unmarshal(data, &value); err != nil {
		c.fail("Get", key, fmt.Errorf("%w: %w", types.ErrSerializationFailed, err))
		c.misses.Add(1)
		return zero, 0, false
	}

	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.RecordHit(types.LayerDisk, key, time.Since(start))
	}
	return value, len(data), true
}

// Exists reports whether key has a catalog row. It does not refresh the
// access time.
func (c *DiskCache[V]) Exists(key string) bool {
	if c.closed.Load() || c.validateKey(key) != nil {
		return false
	}
	c.mu.Lock()
	ok, err := c.store.exists(key)
	c.mu.Unlock()

	if err != nil {
		c.fail("Exists", key, err)
		return false
	}
	return ok
}

// RemoveObject deletes key and its blob file.
func (c *DiskCache[V]) RemoveObject(key string) {
	if c.closed.Load() || c.validateKey(key) != nil {
		return
	}

	start := time.Now()
	c.mu.Lock()
	removed, err := c.store.remove(key)
	c.mu.Unlock()

	if err != nil {
		c.fail("RemoveObject", key, err)
		return
	}
	if removed {
		c.deletes.Add(1)
		if c.metrics != nil {
			c.metrics.RecordDelete(types.LayerDisk, key, time.Since(start))
		}
	}
}

// RemoveAll deletes every record and resets the blob directory.
func (c *DiskCache[V]) RemoveAll() {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	n, err := c.store.removeAll()
	c.mu.Unlock()

	if err != nil {
		c.fail("RemoveAll", "", err)
		return
	}
	c.deletes.Add(n)
	if c.metrics != nil {
		c.metrics.RecordSize(types.LayerDisk, 0, 0)
	}
}

// RemoveAllExpired deletes records older than the maximum cache period.
func (c *DiskCache[V]) RemoveAllExpired() {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	n, err := c.store.removeExpired(c.clock())
	if err == nil && n > 0 {
		err = c.store.catalog.Checkpoint()
	}
	c.mu.Unlock()

	c.noteEvictions(types.EvictExpired, n)
	if err != nil {
		c.fail("RemoveAllExpired", "", err)
	}
}

// Sweep runs expiry, count and cost eviction once. The background sweeper
// calls it on every tick.
func (c *DiskCache[V]) Sweep() (SweepResult, error) {
	if c.closed.Load() {
		return SweepResult{}, types.ErrClosed
	}

	c.mu.Lock()
	res, err := c.store.sweep(c.clock())
	entries, entriesErr := c.store.catalog.Count()
	size, sizeErr := c.store.catalog.TotalSize()
	c.mu.Unlock()

	c.sweeps.Add(1)
	c.noteEvictions(types.EvictExpired, res.Expired)
	c.noteEvictions(types.EvictCount, res.ByCount)
	c.noteEvictions(types.EvictCost, res.ByCost)

	status := &sweepStatus{at: res.Timestamp}
	if err != nil {
		c.failedSweeps.Add(1)
		status.err = err.Error()
		c.fail("Sweep", "", err)
	} else if res.Total() > 0 {
		c.logger.Debug("Disk sweep evicted entries",
			"expired", res.Expired,
			"by_count", res.ByCount,
			"by_cost", res.ByCost,
		)
	}
	c.lastSweep.Store(status)

	if c.metrics != nil && entriesErr == nil && sizeErr == nil {
		c.metrics.RecordSize(types.LayerDisk, entries, size)
	}
	return res, err
}

// TotalItemCount returns the number of catalog rows.
func (c *DiskCache[V]) TotalItemCount() int64 {
	if c.closed.Load() {
		return 0
	}
	c.mu.Lock()
	n, err := c.store.catalog.Count()
	c.mu.Unlock()

	if err != nil {
		c.fail("TotalItemCount", "", err)
		return 0
	}
	return n
}

// TotalItemSize returns the summed encoded size of all rows.
func (c *DiskCache[V]) TotalItemSize() int64 {
	if c.closed.Load() {
		return 0
	}
	c.mu.Lock()
	n, err := c.store.catalog.TotalSize()
	c.mu.Unlock()

	if err != nil {
		c.fail("TotalItemSize", "", err)
		return 0
	}
	return n
}

// SetAsync runs Set on the dispatch pool and reports the result to done.
func (c *DiskCache[V]) SetAsync(key string, value V, cost int64, done func(key string, ok bool)) {
	c.pool.Go(func() {
		ok := c.Set(key, value, cost)
		if done != nil {
			done(key, ok)
		}
	})
}

// GetAsync runs Get on the dispatch pool and reports the result to done.
func (c *DiskCache[V]) GetAsync(key string, done func(key string, value V, ok bool)) {
	c.pool.Go(func() {
		value, ok := c.Get(key)
		if done != nil {
			done(key, value, ok)
		}
	})
}

// ExistsAsync runs Exists on the dispatch pool and reports the result to done.
func (c *DiskCache[V]) ExistsAsync(key string, done func(key string, ok bool)) {
	c.pool.Go(func() {
		ok := c.Exists(key)
		if done != nil {
			done(key, ok)
		}
	})
}

// RemoveObjectAsync runs RemoveObject on the dispatch pool.
func (c *DiskCache[V]) RemoveObjectAsync(key string, done func()) {
	c.pool.Go(func() {
		c.RemoveObject(key)
		if done != nil {
			done()
		}
	})
}

// RemoveAllAsync runs RemoveAll on the dispatch pool.
func (c *DiskCache[V]) RemoveAllAsync(done func()) {
	c.pool.Go(func() {
		c.RemoveAll()
		if done != nil {
			done()
		}
	})
}

// TotalItemCountAsync runs TotalItemCount on the dispatch pool.
func (c *DiskCache[V]) TotalItemCountAsync(done func(count int64)) {
	c.pool.Go(func() {
		n := c.TotalItemCount()
		if done != nil {
			done(n)
		}
	})
}

// TotalItemSizeAsync runs TotalItemSize on the dispatch pool.
func (c *DiskCache[V]) TotalItemSizeAsync(done func(size int64)) {
	c.pool.Go(func() {
		n := c.TotalItemSize()
		if done != nil {
			done(n)
		}
	})
}

// Keys returns a snapshot of every key, most recently accessed first.
func (c *DiskCache[V]) Keys() []string {
	if c.closed.Load() {
		return nil
	}
	c.mu.Lock()
	keys, err := c.store.catalog.Keys()
	c.mu.Unlock()

	if err != nil {
		c.fail("Keys", "", err)
		return nil
	}
	return keys
}

// Iterator returns a restartable iterator over a key snapshot. Each value is
// read through Get, so iterating refreshes access times.
func (c *DiskCache[V]) Iterator() *Iterator[V] {
	return newIterator(c.Keys, c.Get)
}

// All yields every entry over a key snapshot taken when iteration starts.
func (c *DiskCache[V]) All() iter.Seq2[string, V] {
	return seq(c.Keys, c.Get)
}

// Stats returns disk cache statistics.
func (c *DiskCache[V]) Stats() types.DiskCacheStats {
	return types.DiskCacheStats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Sets:         c.sets.Load(),
		Deletes:      c.deletes.Load(),
		Evictions:    c.evictions.Load(),
		Sweeps:       c.sweeps.Load(),
		FailedSweeps: c.failedSweeps.Load(),
		InlineWrites: c.inlineWrites.Load(),
		FileWrites:   c.fileWrites.Load(),
	}
}

// HitRatio returns the cache hit ratio.
func (c *DiskCache[V]) HitRatio() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Health returns a point-in-time health view of the tier.
func (c *DiskCache[V]) Health() types.DiskHealthMetrics {
	stats := c.Stats()
	h := types.DiskHealthMetrics{
		Path:          c.dir,
		Available:     c.IsAvailable(),
		EntryCount:    c.TotalItemCount(),
		SizeBytes:     c.TotalItemSize(),
		SizeLimit:     c.config.TotalCostLimit,
		CountLimit:    int64(c.config.TotalCountLimit),
		HitCount:      stats.Hits,
		MissCount:     stats.Misses,
		HitRatio:      c.HitRatio(),
		EvictionCount: stats.Evictions,
		Status:        types.HealthStatusHealthy,
	}
	if last := c.lastSweep.Load(); last != nil {
		h.LastSweep = last.at
		h.LastSweepError = last.err
		if last.err != "" {
			h.Status = types.HealthStatusDegraded
		}
	}
	if !h.Available {
		h.Status = types.HealthStatusUnhealthy
	}
	return h
}

// Close stops the sweeper, drains owned async work and closes the catalog.
func (c *DiskCache[V]) Close() error {
	if c.sweeper != nil {
		c.sweeper.stop()
	}
	var errs []error
	if c.ownsPool {
		if err := c.pool.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.closed.Swap(true) {
		return errors.Join(errs...)
	}

	c.mu.Lock()
	err := c.store.close()
	c.mu.Unlock()
	if err != nil {
		errs = append(errs, types.NewCacheError("Close", "", types.LayerDisk, err))
	}
	c.logger.Info("Disk cache closed", "dir", c.dir)
	return errors.Join(errs...)
}

func (c *DiskCache[V]) validateKey(key string) error {
	if c.validator == nil {
		return nil
	}
	return c.validator.Validate(key)
}

func (c *DiskCache[V]) noteEvictions(reason types.EvictReason, n int) {
	if n == 0 {
		return
	}
	c.evictions.Add(int64(n))
	if c.metrics != nil {
		c.metrics.RecordEviction(types.LayerDisk, reason, n)
	}
}

// fail logs a storage or serialization failure and records it. Callers then
// report false or absence.
func (c *DiskCache[V]) fail(op, key string, err error) {
	cacheErr := types.NewCacheError(op, key, types.LayerDisk, err)
	c.logger.Warn("Disk operation failed", "op", op, "key", key, "error", err)
	c.recordError(op, cacheErr)
}

func (c *DiskCache[V]) recordError(op string, err error) {
	if c.metrics != nil {
		c.metrics.RecordError(types.LayerDisk, op, err)
	}
}

var (
	_ types.CacheAware[any] = (*DiskCache[any])(nil)
	_ types.CacheInfo       = (*DiskCache[any])(nil)
)
