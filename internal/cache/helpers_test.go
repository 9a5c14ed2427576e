package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/LavishGent/larder/internal/config"
	"github.com/LavishGent/larder/internal/types"
)

// recordingMetrics counts recorder calls per layer.
type recordingMetrics struct {
	mu         sync.Mutex
	hits       map[string]int
	misses     map[string]int
	sets       map[string]int
	deletes    map[string]int
	evictions  map[types.EvictReason]int
	promotions int
	errors     []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		hits:      make(map[string]int),
		misses:    make(map[string]int),
		sets:      make(map[string]int),
		deletes:   make(map[string]int),
		evictions: make(map[types.EvictReason]int),
	}
}

func (r *recordingMetrics) RecordHit(layer, _ string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[layer]++
}

func (r *recordingMetrics) RecordMiss(layer, _ string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses[layer]++
}

func (r *recordingMetrics) RecordSet(layer, _ string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[layer]++
}

func (r *recordingMetrics) RecordDelete(layer, _ string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes[layer]++
}

func (r *recordingMetrics) RecordEviction(_ string, reason types.EvictReason, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions[reason] += count
}

func (r *recordingMetrics) RecordPromotion(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promotions++
}

func (r *recordingMetrics) RecordSize(string, int64, int64) {}

func (r *recordingMetrics) RecordError(layer, operation string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, fmt.Sprintf("%s/%s: %v", layer, operation, err))
}

func (r *recordingMetrics) count(m map[string]int, layer string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return m[layer]
}

func (r *recordingMetrics) evicted(reason types.EvictReason) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictions[reason]
}

// recordingLogger captures log lines written through the types.Logger interface.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, args))
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }

func (l *recordingLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func memoryConfig(countLimit int, costLimit int64) *config.Config {
	cfg := config.ForTesting()
	cfg.Memory.TotalCountLimit = countLimit
	cfg.Memory.TotalCostLimit = costLimit
	return cfg
}
