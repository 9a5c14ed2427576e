// Package config provides configuration management for larder.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/LavishGent/larder/internal/types"
)

// Config contains all configuration for the larder cache tiers.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Memory        MemoryConfig        `json:"memory"`
	Disk          DiskConfig          `json:"disk"`
	Dispatch      DispatchConfig      `json:"dispatch"`
	Metrics       MetricsConfig       `json:"metrics"`
	KeyValidation KeyValidationConfig `json:"keyValidation"`
}

// KeyValidationConfig contains configuration for cache key validation.
type KeyValidationConfig struct {
	MaxKeyLength      int  `json:"maxKeyLength"`
	Enabled           bool `json:"enabled"`
	AllowEmpty        bool `json:"allowEmpty"`
	AllowControlChars bool `json:"allowControlChars"`
}

// ToTypesConfig converts this config to a types.KeyValidationConfig.
func (c KeyValidationConfig) ToTypesConfig() types.KeyValidationConfig {
	return types.KeyValidationConfig{
		MaxKeyLength:      c.MaxKeyLength,
		AllowEmpty:        c.AllowEmpty,
		AllowControlChars: c.AllowControlChars,
	}
}

// MemoryConfig contains configuration for the memory tier.
// Zero limits mean unlimited.
type MemoryConfig struct {
	TotalCostLimit            int64 `json:"totalCostLimit"`
	TotalCountLimit           int   `json:"totalCountLimit"`
	Enabled                   bool  `json:"enabled"`
	AutoRemoveOnMemoryWarning bool  `json:"autoRemoveOnMemoryWarning"`
	AutoRemoveOnBackground    bool  `json:"autoRemoveOnBackground"`
}

// DiskConfig contains configuration for the disk tier.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type DiskConfig struct {
	// Path is the parent directory; each named cache lives in Path/Name.
	Path              string   `json:"path"`
	Name              string   `json:"name"`
	TotalCostLimit    int64    `json:"totalCostLimit"`
	TotalCountLimit   int      `json:"totalCountLimit"`
	MaxCachePeriod    Duration `json:"maxCachePeriod"`
	SweepInterval     Duration `json:"sweepInterval"`
	InlineThreshold   int      `json:"inlineThreshold"`
	EvictionBatchSize int      `json:"evictionBatchSize"`
	Enabled           bool     `json:"enabled"`
	// Compress wraps the disk serializer in zstd.
	Compress bool `json:"compress"`
}

// Dir returns the directory holding the catalog and blob files.
func (c DiskConfig) Dir() string {
	return filepath.Join(c.Path, c.Name)
}

// DispatchConfig bounds the worker pool running asynchronous operations.
type DispatchConfig struct {
	MaxConcurrent   int      `json:"maxConcurrent"`
	ShutdownTimeout Duration `json:"shutdownTimeout"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval Duration         `json:"publishInterval"`
	DataDog         DataDogConfig    `json:"datadog"`
	Prometheus      PrometheusConfig `json:"prometheus"`
	Enabled         bool             `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}

// PrometheusConfig controls the Prometheus metrics recorder.
type PrometheusConfig struct {
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
	Enabled   bool   `json:"enabled"`
}

// Duration is a time.Duration that reads either a Go duration string
// ("90s", "168h") or a plain number of seconds from JSON.
type Duration struct {
	time.Duration
}

// Seconds builds a Duration from whole seconds.
func Seconds(n int64) Duration {
	return Duration{time.Duration(n) * time.Second}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		d.Duration = time.Duration(v * float64(time.Second))
		return nil
	case string:
		parsed, ok := parseDurationStrict(v)
		if !ok {
			return fmt.Errorf("invalid duration %q", v)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
}
