package cache

import "github.com/LavishGent/larder/internal/types"

// disabledMemory stands in for a memory tier that is turned off.
type disabledMemory[V any] struct{}

// Name returns the cache layer name.
func (d disabledMemory[V]) Name() string {
	return "memory-disabled"
}

// IsAvailable returns false as this tier is disabled.
func (d disabledMemory[V]) IsAvailable() bool {
	return false
}

// Set reports false as this tier is disabled.
func (d disabledMemory[V]) Set(string, V, int64) bool {
	return false
}

// Get always misses.
func (d disabledMemory[V]) Get(key string) (V, bool) {
	return d.peek(key)
}

func (d disabledMemory[V]) peek(string) (V, bool) {
	var zero V
	return zero, false
}

// Exists returns false as this tier is disabled.
func (d disabledMemory[V]) Exists(string) bool {
	return false
}

// RemoveObject does nothing as this tier is disabled.
func (d disabledMemory[V]) RemoveObject(string) {
}

// RemoveAll does nothing as this tier is disabled.
func (d disabledMemory[V]) RemoveAll() {
}

// OnMemoryWarning does nothing as this tier is disabled.
func (d disabledMemory[V]) OnMemoryWarning() {
}

// OnEnterBackground does nothing as this tier is disabled.
func (d disabledMemory[V]) OnEnterBackground() {
}

// TotalCount returns 0 as this tier is disabled.
func (d disabledMemory[V]) TotalCount() int {
	return 0
}

// TotalCost returns 0 as this tier is disabled.
func (d disabledMemory[V]) TotalCost() int64 {
	return 0
}

// Stats returns empty statistics as this tier is disabled.
func (d disabledMemory[V]) Stats() types.MemoryCacheStats {
	return types.MemoryCacheStats{}
}

// Health reports the tier as unavailable.
func (d disabledMemory[V]) Health() types.MemoryHealthMetrics {
	return types.MemoryHealthMetrics{Status: types.HealthStatusUnhealthy}
}

// Close does nothing as this tier is disabled.
func (d disabledMemory[V]) Close() error {
	return nil
}

func (d disabledMemory[V]) keys() []string {
	return nil
}

func (d disabledMemory[V]) SetAsync(key string, _ V, _ int64, done func(string, bool)) {
	if done != nil {
		done(key, false)
	}
}

func (d disabledMemory[V]) GetAsync(key string, done func(string, V, bool)) {
	if done != nil {
		var zero V
		done(key, zero, false)
	}
}

func (d disabledMemory[V]) ExistsAsync(key string, done func(string, bool)) {
	if done != nil {
		done(key, false)
	}
}

func (d disabledMemory[V]) RemoveObjectAsync(_ string, done func()) {
	if done != nil {
		done()
	}
}

func (d disabledMemory[V]) RemoveAllAsync(done func()) {
	if done != nil {
		done()
	}
}

// disabledDisk stands in for a disk tier that is turned off or failed to open.
type disabledDisk[V any] struct {
	reason string
}

// Name returns the cache layer name.
func (d disabledDisk[V]) Name() string {
	return "disk-disabled"
}

// IsAvailable returns false as this tier is disabled.
func (d disabledDisk[V]) IsAvailable() bool {
	return false
}

// Set reports false as this tier is disabled.
func (d disabledDisk[V]) Set(string, V, int64) bool {
	return false
}

func (d disabledDisk[V]) set(string, V) (int, bool) {
	return 0, false
}

// Get always misses.
func (d disabledDisk[V]) Get(key string) (V, bool) {
	v, _, ok := d.get(key)
	return v, ok
}

func (d disabledDisk[V]) get(string) (V, int, bool) {
	var zero V
	return zero, 0, false
}

// Exists returns false as this tier is disabled.
func (d disabledDisk[V]) Exists(string) bool {
	return false
}

// RemoveObject does nothing as this tier is disabled.
func (d disabledDisk[V]) RemoveObject(string) {
}

// RemoveAll does nothing as this tier is disabled.
func (d disabledDisk[V]) RemoveAll() {
}

// RemoveAllExpired does nothing as this tier is disabled.
func (d disabledDisk[V]) RemoveAllExpired() {
}

// Sweep does nothing as this tier is disabled.
func (d disabledDisk[V]) Sweep() (SweepResult, error) {
	return SweepResult{}, nil
}

// Keys returns nil as this tier is disabled.
func (d disabledDisk[V]) Keys() []string {
	return nil
}

// TotalItemCount returns 0 as this tier is disabled.
func (d disabledDisk[V]) TotalItemCount() int64 {
	return 0
}

// TotalItemSize returns 0 as this tier is disabled.
func (d disabledDisk[V]) TotalItemSize() int64 {
	return 0
}

// Stats returns empty statistics as this tier is disabled.
func (d disabledDisk[V]) Stats() types.DiskCacheStats {
	return types.DiskCacheStats{}
}

// Health reports the tier as unavailable, carrying the open error if any.
func (d disabledDisk[V]) Health() types.DiskHealthMetrics {
	return types.DiskHealthMetrics{Status: types.HealthStatusUnhealthy, LastSweepError: d.reason}
}

// Close does nothing as this tier is disabled.
func (d disabledDisk[V]) Close() error {
	return nil
}

func (d disabledDisk[V]) SetAsync(key string, _ V, _ int64, done func(string, bool)) {
	if done != nil {
		done(key, false)
	}
}

func (d disabledDisk[V]) GetAsync(key string, done func(string, V, bool)) {
	if done != nil {
		var zero V
		done(key, zero, false)
	}
}

func (d disabledDisk[V]) ExistsAsync(key string, done func(string, bool)) {
	if done != nil {
		done(key, false)
	}
}

func (d disabledDisk[V]) RemoveObjectAsync(_ string, done func()) {
	if done != nil {
		done()
	}
}

func (d disabledDisk[V]) RemoveAllAsync(done func()) {
	if done != nil {
		done()
	}
}

var (
	_ memoryLayer[any] = disabledMemory[any]{}
	_ diskLayer[any]   = disabledDisk[any]{}
)
