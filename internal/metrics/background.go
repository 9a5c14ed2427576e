package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/LavishGent/larder/internal/types"
)

// BackgroundPublisher publishes health metrics at regular intervals
// with context-based cancellation support.
type BackgroundPublisher struct {
	publisher types.Publisher
	logger    *slog.Logger
	getHealth func() *types.PublisherHealthMetrics
	cancel    context.CancelFunc
	ctx       context.Context
	wg        sync.WaitGroup
	interval  time.Duration
	stopOnce  sync.Once
}

// NewBackgroundPublisher creates a new background publisher.
// The healthFn is called on each interval to get the current health metrics.
func NewBackgroundPublisher(
	publisher types.Publisher,
	interval time.Duration,
	healthFn func() *types.PublisherHealthMetrics,
	logger *slog.Logger,
) *BackgroundPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &BackgroundPublisher{
		publisher: publisher,
		interval:  interval,
		logger:    logger.With("component", "metrics-background"),
		getHealth: healthFn,
	}
}

// Start begins the background publishing loop.
// The provided context controls the lifecycle of the background goroutine.
func (b *BackgroundPublisher) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.run()
	b.logger.Info("Background metrics publisher started", "interval", b.interval)
}

// Stop cancels the background context and waits for the final publish.
// It is safe to call more than once.
func (b *BackgroundPublisher) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		b.wg.Wait()
		b.logger.Info("Background metrics publisher stopped")
	})
}

func (b *BackgroundPublisher) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			// Final publish before stopping
			b.publish()
			return
		case <-ticker.C:
			b.publish()
		}
	}
}

func (b *BackgroundPublisher) publish() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in metrics publisher", "panic", r)
		}
	}()

	if b.getHealth == nil {
		return
	}

	metrics := b.getHealth()
	if metrics != nil {
		b.publisher.PublishHealthMetrics(metrics)
	}
}

// PublishNow triggers an immediate metrics publish.
func (b *BackgroundPublisher) PublishNow() {
	b.publish()
}

// TrackerHealth adapts a Tracker snapshot and a cache health source into the
// batch a publisher expects. Latency comes from the tracker.
func TrackerHealth(tracker *Tracker, health func() *types.PublisherHealthMetrics) func() *types.PublisherHealthMetrics {
	return func() *types.PublisherHealthMetrics {
		var m *types.PublisherHealthMetrics
		if health != nil {
			m = health()
		}
		if m == nil {
			if tracker == nil {
				return nil
			}
			snapshot := tracker.Snapshot()
			m = &types.PublisherHealthMetrics{
				MemoryEntries: snapshot.MemoryEntries,
				MemoryCost:    snapshot.MemoryCost,
				DiskEntries:   snapshot.DiskEntries,
				DiskSizeBytes: snapshot.DiskSizeBytes,
				HitRatio:      snapshot.TotalHitRatio(),
			}
		}
		if tracker != nil {
			m.AverageLatencyMs = tracker.Snapshot().AvgLatencyMs
		}
		return m
	}
}
