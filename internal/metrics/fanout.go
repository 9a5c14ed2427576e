package metrics

import (
	"time"

	"github.com/LavishGent/larder/internal/types"
)

// FanOut forwards every call to each of its recorders in order.
type FanOut []types.MetricsRecorder

// Multi combines recorders, dropping nils. It returns nil when nothing is
// left and the single recorder when only one remains.
func Multi(recorders ...types.MetricsRecorder) types.MetricsRecorder {
	var out FanOut
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

func (f FanOut) RecordHit(layer string, key string, latency time.Duration) {
	for _, r := range f {
		r.RecordHit(layer, key, latency)
	}
}

func (f FanOut) RecordMiss(layer string, key string, latency time.Duration) {
	for _, r := range f {
		r.RecordMiss(layer, key, latency)
	}
}

func (f FanOut) RecordSet(layer string, key string, size int, latency time.Duration) {
	for _, r := range f {
		r.RecordSet(layer, key, size, latency)
	}
}

func (f FanOut) RecordDelete(layer string, key string, latency time.Duration) {
	for _, r := range f {
		r.RecordDelete(layer, key, latency)
	}
}

func (f FanOut) RecordEviction(layer string, reason types.EvictReason, count int) {
	for _, r := range f {
		r.RecordEviction(layer, reason, count)
	}
}

func (f FanOut) RecordPromotion(key string) {
	for _, r := range f {
		r.RecordPromotion(key)
	}
}

func (f FanOut) RecordSize(layer string, entries int64, cost int64) {
	for _, r := range f {
		r.RecordSize(layer, entries, cost)
	}
}

func (f FanOut) RecordError(layer string, operation string, err error) {
	for _, r := range f {
		r.RecordError(layer, operation, err)
	}
}

var _ types.MetricsRecorder = FanOut(nil)
