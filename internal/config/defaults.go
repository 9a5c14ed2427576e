package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultInlineThreshold is the largest encoded value stored inside the catalog row.
	DefaultInlineThreshold = 20 * 1024
	// DefaultEvictionBatchSize is how many oldest rows one eviction query fetches.
	DefaultEvictionBatchSize = 16
	// DefaultMaxCachePeriod is the disk expiry age.
	DefaultMaxCachePeriod = 7 * 24 * time.Hour
	// DefaultSweepInterval is the period of the disk sweeper.
	DefaultSweepInterval = 120 * time.Second
	// DefaultCacheName names the per-cache directory under disk.path.
	DefaultCacheName = "default"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Memory: MemoryConfig{
			Enabled:                   true,
			TotalCostLimit:            0,
			TotalCountLimit:           0,
			AutoRemoveOnMemoryWarning: true,
			AutoRemoveOnBackground:    true,
		},
		Disk: DiskConfig{
			Enabled:           true,
			Path:              defaultDiskPath(),
			Name:              DefaultCacheName,
			TotalCostLimit:    0,
			TotalCountLimit:   0,
			MaxCachePeriod:    Duration{DefaultMaxCachePeriod},
			SweepInterval:     Duration{DefaultSweepInterval},
			InlineThreshold:   DefaultInlineThreshold,
			EvictionBatchSize: DefaultEvictionBatchSize,
			Compress:          false,
		},
		Dispatch: DispatchConfig{
			MaxConcurrent:   8,
			ShutdownTimeout: Duration{30 * time.Second},
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: Duration{10 * time.Second},
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "larder",
				Tags:      []string{},
			},
			Prometheus: PrometheusConfig{
				Enabled:   false,
				Namespace: "larder",
			},
		},
		KeyValidation: KeyValidationConfig{
			Enabled:           true,
			MaxKeyLength:      4096,
			AllowEmpty:        false,
			AllowControlChars: false,
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests.
// The disk path is left empty; tests point it at t.TempDir().
func ForTesting() *Config {
	cfg := DefaultConfig()
	cfg.Disk.Path = ""
	cfg.Disk.Name = ""
	cfg.Disk.SweepInterval = Duration{time.Hour}
	cfg.Dispatch.MaxConcurrent = 4
	cfg.Dispatch.ShutdownTimeout = Duration{5 * time.Second}
	cfg.Metrics.PublishInterval = Duration{time.Second}
	return cfg
}

// ForTestingAt returns a test configuration whose disk tier lives in dir.
func ForTestingAt(dir string) *Config {
	cfg := ForTesting()
	cfg.Disk.Path = dir
	return cfg
}

func defaultDiskPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "larder")
}
