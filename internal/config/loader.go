package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

// Load loads configuration from a JSON file. Comments and trailing commas
// are accepted. If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes JSONC data on top of the values already in cfg.
func Parse(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LARDER_MEMORY_ENABLED"); v != "" {
		cfg.Memory.Enabled = parseBool(v)
	}
	if v := os.Getenv("LARDER_MEMORY_COST_LIMIT"); v != "" {
		cfg.Memory.TotalCostLimit = parseInt64(v, cfg.Memory.TotalCostLimit)
	}
	if v := os.Getenv("LARDER_MEMORY_COUNT_LIMIT"); v != "" {
		cfg.Memory.TotalCountLimit = parseInt(v, cfg.Memory.TotalCountLimit)
	}
	if v := os.Getenv("LARDER_MEMORY_AUTO_REMOVE_ON_WARNING"); v != "" {
		cfg.Memory.AutoRemoveOnMemoryWarning = parseBool(v)
	}
	if v := os.Getenv("LARDER_MEMORY_AUTO_REMOVE_ON_BACKGROUND"); v != "" {
		cfg.Memory.AutoRemoveOnBackground = parseBool(v)
	}

	if v := os.Getenv("LARDER_DISK_ENABLED"); v != "" {
		cfg.Disk.Enabled = parseBool(v)
	}
	if v := os.Getenv("LARDER_DISK_PATH"); v != "" {
		cfg.Disk.Path = v
	}
	if v := os.Getenv("LARDER_DISK_NAME"); v != "" {
		cfg.Disk.Name = v
	}
	if v := os.Getenv("LARDER_DISK_COST_LIMIT"); v != "" {
		cfg.Disk.TotalCostLimit = parseInt64(v, cfg.Disk.TotalCostLimit)
	}
	if v := os.Getenv("LARDER_DISK_COUNT_LIMIT"); v != "" {
		cfg.Disk.TotalCountLimit = parseInt(v, cfg.Disk.TotalCountLimit)
	}
	if v := os.Getenv("LARDER_DISK_MAX_CACHE_PERIOD"); v != "" {
		cfg.Disk.MaxCachePeriod.Duration = parseDuration(v, cfg.Disk.MaxCachePeriod.Duration)
	}
	if v := os.Getenv("LARDER_DISK_SWEEP_INTERVAL"); v != "" {
		cfg.Disk.SweepInterval.Duration = parseDuration(v, cfg.Disk.SweepInterval.Duration)
	}
	if v := os.Getenv("LARDER_DISK_INLINE_THRESHOLD"); v != "" {
		cfg.Disk.InlineThreshold = parseInt(v, cfg.Disk.InlineThreshold)
	}
	if v := os.Getenv("LARDER_DISK_COMPRESS"); v != "" {
		cfg.Disk.Compress = parseBool(v)
	}

	if v := os.Getenv("LARDER_DISPATCH_MAX_CONCURRENT"); v != "" {
		cfg.Dispatch.MaxConcurrent = parseInt(v, cfg.Dispatch.MaxConcurrent)
	}

	if v := os.Getenv("LARDER_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("LARDER_PROMETHEUS_ENABLED"); v != "" {
		cfg.Metrics.Prometheus.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("DD_VERSION"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "version:"+v)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Memory.Enabled {
		if c.Memory.TotalCostLimit < 0 {
			return fmt.Errorf("memory.totalCostLimit must not be negative")
		}
		if c.Memory.TotalCountLimit < 0 {
			return fmt.Errorf("memory.totalCountLimit must not be negative")
		}
	}

	if c.Disk.Enabled {
		if c.Disk.TotalCostLimit < 0 {
			return fmt.Errorf("disk.totalCostLimit must not be negative")
		}
		if c.Disk.TotalCountLimit < 0 {
			return fmt.Errorf("disk.totalCountLimit must not be negative")
		}
		if c.Disk.MaxCachePeriod.Duration <= 0 {
			return fmt.Errorf("disk.maxCachePeriod must be positive")
		}
		if c.Disk.SweepInterval.Duration <= 0 {
			return fmt.Errorf("disk.sweepInterval must be positive")
		}
		if c.Disk.InlineThreshold < 0 {
			return fmt.Errorf("disk.inlineThreshold must not be negative")
		}
		if c.Disk.EvictionBatchSize <= 0 {
			return fmt.Errorf("disk.evictionBatchSize must be positive")
		}
		if strings.ContainsAny(c.Disk.Name, `/\`) {
			return fmt.Errorf("disk.name must not contain path separators")
		}
	}

	if c.Dispatch.MaxConcurrent <= 0 {
		return fmt.Errorf("dispatch.maxConcurrent must be positive")
	}

	if c.Metrics.Enabled && c.Metrics.PublishInterval.Duration <= 0 {
		return fmt.Errorf("metrics.publishInterval must be positive")
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseInt64(s string, defaultVal int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if d, ok := parseDurationStrict(s); ok {
		return d
	}
	return defaultVal
}

// parseDurationStrict accepts Go duration syntax or a plain count of seconds.
func parseDurationStrict(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, true
	}

	return 0, false
}
