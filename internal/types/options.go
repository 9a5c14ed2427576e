package types

import "time"

// Options holds the collaborators injected into a cache tier.
type Options struct {
	// Logger is the structured logger to use.
	Logger Logger

	// Metrics is the metrics recorder.
	Metrics MetricsRecorder

	// Serializer encodes values for the disk tier.
	Serializer Serializer

	// Publisher receives periodic health metrics when metrics are enabled.
	Publisher Publisher

	// Clock overrides time.Now for access-time bookkeeping.
	Clock func() time.Time

	// DisableMemory replaces the memory tier of a multi cache with a no-op tier.
	DisableMemory bool

	// DisableDisk replaces the disk tier of a multi cache with a no-op tier.
	DisableDisk bool
}

// Now returns the configured clock reading or time.Now.
func (o *Options) Now() time.Time {
	if o != nil && o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}
