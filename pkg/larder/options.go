package larder

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LavishGent/larder/internal/types"
)

// Option configures the collaborators of a cache.
type Option func(*settings)

type settings struct {
	types.Options

	registerer prometheus.Registerer
}

func applyOptions(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithLogger(logger Logger) Option {
	return func(s *settings) {
		s.Logger = logger
	}
}

func WithMetrics(metrics MetricsRecorder) Option {
	return func(s *settings) {
		s.Metrics = metrics
	}
}

func WithSerializer(serializer Serializer) Option {
	return func(s *settings) {
		s.Serializer = serializer
	}
}

// WithPublisher sets the publisher used for periodic health metrics when
// metrics are enabled. It replaces the configured DataDog or logging publisher.
func WithPublisher(publisher Publisher) Option {
	return func(s *settings) {
		s.Publisher = publisher
	}
}

// WithClock overrides time.Now for disk access times and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.Clock = now
	}
}

// WithPrometheus registers the Prometheus recorder with reg, regardless of
// metrics.prometheus.enabled.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

// WithoutMemory runs a multi cache on its disk tier only.
func WithoutMemory() Option {
	return func(s *settings) {
		s.DisableMemory = true
	}
}

// WithoutDisk runs a multi cache on its memory tier only.
func WithoutDisk() Option {
	return func(s *settings) {
		s.DisableDisk = true
	}
}
