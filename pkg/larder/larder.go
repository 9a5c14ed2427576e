package larder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LavishGent/larder/internal/cache"
	"github.com/LavishGent/larder/internal/config"
	"github.com/LavishGent/larder/internal/metrics"
	"github.com/LavishGent/larder/internal/metrics/datadog"
	"github.com/LavishGent/larder/internal/metrics/prom"
	"github.com/LavishGent/larder/internal/types"
)

// Cache is a MultiCache together with the metrics plumbing configured for
// it. Close stops publishing and closes both tiers.
type Cache[V any] struct {
	*cache.MultiCache[V]

	tracker    *metrics.Tracker
	publisher  types.Publisher
	background *metrics.BackgroundPublisher
}

// New creates a multi cache with default configuration.
func New[V any](opts ...Option) (*Cache[V], error) {
	return NewFromConfig[V](config.DefaultConfig(), opts...)
}

// NewFromFile creates a multi cache from a JSON config file with
// LARDER_* environment overrides applied.
func NewFromFile[V any](path string, opts ...Option) (*Cache[V], error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig[V](cfg, opts...)
}

// NewFromConfig creates a multi cache from configuration. When metrics are
// enabled a Tracker is installed and health metrics are published every
// metrics.publishInterval.
func NewFromConfig[V any](cfg *config.Config, opts ...Option) (*Cache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := applyOptions(opts)

	c := &Cache[V]{}
	if err := c.wireMetrics(cfg, s); err != nil {
		return nil, err
	}

	multi, err := cache.NewMultiCache[V](cfg, &s.Options)
	if err != nil {
		c.closePublisher()
		return nil, err
	}
	c.MultiCache = multi

	if cfg.Metrics.Enabled {
		logger := cache.NewLogger(&s.Options, "larder")
		c.background = metrics.NewBackgroundPublisher(
			c.publisher,
			cfg.Metrics.PublishInterval.Duration,
			metrics.TrackerHealth(c.tracker, multi.PublisherHealth),
			logger,
		)
		c.background.Start(context.Background())
	}
	return c, nil
}

func (c *Cache[V]) wireMetrics(cfg *config.Config, s *settings) error {
	recorders := []types.MetricsRecorder{s.Metrics}

	if s.registerer != nil || cfg.Metrics.Prometheus.Enabled {
		reg := s.registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		var labels prometheus.Labels
		if cfg.Disk.Name != "" {
			labels = prometheus.Labels{"cache": cfg.Disk.Name}
		}
		recorders = append(recorders, prom.New(reg, cfg.Metrics.Prometheus.Namespace, cfg.Metrics.Prometheus.Subsystem, labels))
	}

	if cfg.Metrics.Enabled {
		c.tracker = metrics.NewTracker()
		recorders = append(recorders, c.tracker)

		c.publisher = s.Publisher
		if c.publisher == nil {
			var err error
			c.publisher, err = newPublisher(cfg, s)
			if err != nil {
				return err
			}
		}
		if cfg.Metrics.DataDog.Enabled {
			recorders = append(recorders, metrics.NewPublishingRecorder(c.publisher))
		}
	}

	s.Metrics = metrics.Multi(recorders...)
	return nil
}

func newPublisher(cfg *config.Config, s *settings) (types.Publisher, error) {
	if cfg.Metrics.DataDog.Enabled {
		return datadog.NewPublisher(dataDogConfig(cfg), cache.NewLogger(&s.Options, "datadog"))
	}
	return metrics.NewLoggingPublisher(cache.NewLogger(&s.Options, "larder")), nil
}

// dataDogConfig returns the DataDog settings with the disk cache name added
// as a global tag, so several named caches can share one agent.
func dataDogConfig(cfg *config.Config) *config.DataDogConfig {
	dd := cfg.Metrics.DataDog
	dd.Tags = append([]string(nil), cfg.Metrics.DataDog.Tags...)
	if cfg.Disk.Name != "" {
		dd.Tags = append(dd.Tags, metrics.CacheTag(cfg.Disk.Name))
	}
	return &dd
}

// Snapshot returns the tracker counters. It is empty when metrics are disabled.
func (c *Cache[V]) Snapshot() MetricsSnapshot {
	if c.tracker == nil {
		return MetricsSnapshot{}
	}
	return c.tracker.Snapshot()
}

// Sweep runs one disk sweep and reports its duration to the publisher.
func (c *Cache[V]) Sweep() (SweepResult, error) {
	timer := metrics.NewTimer(c.publisher, "disk.sweep", metrics.LayerTag(types.LayerDisk))
	defer timer.Stop()
	return c.MultiCache.Sweep()
}

// Close publishes a final health batch, then closes both tiers and the
// publisher.
func (c *Cache[V]) Close() error {
	return c.closeWith(c.MultiCache.Close)
}

// CloseWithTimeout is Close with an explicit bound on waiting for async work.
func (c *Cache[V]) CloseWithTimeout(timeout time.Duration) error {
	return c.closeWith(func() error {
		return c.MultiCache.CloseWithTimeout(timeout)
	})
}

func (c *Cache[V]) closeWith(closeMulti func() error) error {
	if c.background != nil {
		c.background.Stop()
	}
	err := closeMulti()
	return errors.Join(err, c.closePublisher())
}

func (c *Cache[V]) closePublisher() error {
	if c.publisher == nil {
		return nil
	}
	p := c.publisher
	c.publisher = nil
	return p.Close()
}

// NewMemory creates a standalone memory tier.
func NewMemory[V any](cfg *config.Config, opts ...Option) (*MemoryCache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := applyOptions(opts)
	return cache.NewMemoryCache[V](cfg, &s.Options), nil
}

// NewDisk opens a standalone disk tier in cfg.Disk.Path/cfg.Disk.Name.
func NewDisk[V any](cfg *config.Config, opts ...Option) (*DiskCache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := applyOptions(opts)
	return cache.NewDiskCache[V](cfg, &s.Options)
}

// Config returns a default configuration that can be modified before creating a cache.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a configuration suitable for unit tests. Its disk
// tier lives in dir.
func TestConfig(dir string) *config.Config {
	return config.ForTestingAt(dir)
}

// LoadConfig reads a JSON config file with environment overrides applied.
func LoadConfig(path string) (*config.Config, error) {
	return config.LoadWithEnv(path)
}
