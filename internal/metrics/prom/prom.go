// Package prom exports cache tier metrics as Prometheus collectors.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LavishGent/larder/internal/types"
)

// Adapter implements types.MetricsRecorder and exports Prometheus
// counters, histograms and gauges labelled by tier.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	gets       *prometheus.CounterVec
	sets       *prometheus.CounterVec
	deletes    *prometheus.CounterVec
	evicts     *prometheus.CounterVec
	errors     *prometheus.CounterVec
	promotions prometheus.Counter
	latency    *prometheus.HistogramVec
	setBytes   *prometheus.HistogramVec
	sizeEnt    *prometheus.GaugeVec
	sizeCost   *prometheus.GaugeVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, labels)
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, []string{"layer"})
	}

	a := &Adapter{
		gets:    counter("gets_total", "Cache reads by tier and result", "layer", "result"),
		sets:    counter("sets_total", "Cache writes by tier", "layer"),
		deletes: counter("deletes_total", "Cache deletes by tier", "layer"),
		evicts:  counter("evictions_total", "Cache evictions by tier and reason", "layer", "reason"),
		errors:  counter("errors_total", "Cache errors by tier and operation", "layer", "operation"),
		promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "promotions_total",
			Help:        "Disk hits copied into memory",
			ConstLabels: constLabels,
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "operation_seconds",
			Help:        "Cache operation latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"layer", "operation"}),
		setBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "set_bytes",
			Help:        "Size of written values",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"layer"}),
		sizeEnt:  gauge("size_entries", "Number of resident entries"),
		sizeCost: gauge("size_cost", "Total resident cost or bytes"),
	}
	reg.MustRegister(
		a.gets, a.sets, a.deletes, a.evicts, a.errors, a.promotions,
		a.latency, a.setBytes, a.sizeEnt, a.sizeCost,
	)
	return a
}

// RecordHit increments the hit counter for layer.
func (a *Adapter) RecordHit(layer string, _ string, latency time.Duration) {
	a.gets.WithLabelValues(layer, "hit").Inc()
	a.latency.WithLabelValues(layer, "get").Observe(latency.Seconds())
}

// RecordMiss increments the miss counter for layer.
func (a *Adapter) RecordMiss(layer string, _ string, latency time.Duration) {
	a.gets.WithLabelValues(layer, "miss").Inc()
	a.latency.WithLabelValues(layer, "get").Observe(latency.Seconds())
}

func (a *Adapter) RecordSet(layer string, _ string, size int, latency time.Duration) {
	a.sets.WithLabelValues(layer).Inc()
	a.setBytes.WithLabelValues(layer).Observe(float64(size))
	a.latency.WithLabelValues(layer, "set").Observe(latency.Seconds())
}

func (a *Adapter) RecordDelete(layer string, _ string, latency time.Duration) {
	a.deletes.WithLabelValues(layer).Inc()
	a.latency.WithLabelValues(layer, "delete").Observe(latency.Seconds())
}

// RecordEviction adds count to the eviction counter with a reason label.
func (a *Adapter) RecordEviction(layer string, reason types.EvictReason, count int) {
	a.evicts.WithLabelValues(layer, reason.String()).Add(float64(count))
}

func (a *Adapter) RecordPromotion(string) {
	a.promotions.Inc()
}

// RecordSize updates gauges for the number of entries and total cost.
func (a *Adapter) RecordSize(layer string, entries int64, cost int64) {
	a.sizeEnt.WithLabelValues(layer).Set(float64(entries))
	a.sizeCost.WithLabelValues(layer).Set(float64(cost))
}

func (a *Adapter) RecordError(layer string, operation string, _ error) {
	a.errors.WithLabelValues(layer, operation).Inc()
}

// Compile-time check: ensure Adapter implements types.MetricsRecorder.
var _ types.MetricsRecorder = (*Adapter)(nil)
