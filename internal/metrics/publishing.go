package metrics

import (
	"time"

	"github.com/LavishGent/larder/internal/types"
)

// PublishingRecorder turns recorder calls into publisher counters and
// timings, so a statsd or logging publisher sees every cache operation.
type PublishingRecorder struct {
	publisher types.Publisher
}

// NewPublishingRecorder wraps publisher as a MetricsRecorder.
func NewPublishingRecorder(publisher types.Publisher) *PublishingRecorder {
	return &PublishingRecorder{publisher: publisher}
}

func (r *PublishingRecorder) RecordHit(layer string, key string, latency time.Duration) {
	r.publisher.Incr("cache.get", LayerTag(layer), StatusTag("hit"))
	r.publisher.Timing("cache.get.latency", latency, LayerTag(layer))
}

func (r *PublishingRecorder) RecordMiss(layer string, key string, latency time.Duration) {
	r.publisher.Incr("cache.get", LayerTag(layer), StatusTag("miss"))
	r.publisher.Timing("cache.get.latency", latency, LayerTag(layer))
}

func (r *PublishingRecorder) RecordSet(layer string, key string, size int, latency time.Duration) {
	r.publisher.Incr("cache.set", LayerTag(layer))
	r.publisher.Histogram("cache.set.size", float64(size), LayerTag(layer))
	r.publisher.Timing("cache.set.latency", latency, LayerTag(layer))
}

func (r *PublishingRecorder) RecordDelete(layer string, key string, latency time.Duration) {
	r.publisher.Incr("cache.delete", LayerTag(layer))
}

func (r *PublishingRecorder) RecordEviction(layer string, reason types.EvictReason, count int) {
	r.publisher.Count("cache.evictions", int64(count), LayerTag(layer), ReasonTag(reason))
}

func (r *PublishingRecorder) RecordPromotion(key string) {
	r.publisher.Incr("cache.promotions")
}

func (r *PublishingRecorder) RecordSize(layer string, entries int64, cost int64) {
	r.publisher.Gauge("cache.entries", float64(entries), LayerTag(layer))
	r.publisher.Gauge("cache.cost", float64(cost), LayerTag(layer))
}

func (r *PublishingRecorder) RecordError(layer string, operation string, err error) {
	r.publisher.Incr("cache.errors", LayerTag(layer), OperationTag(operation))
}

var _ types.MetricsRecorder = (*PublishingRecorder)(nil)
