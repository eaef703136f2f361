// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "github.com/pumpfest/crux/internal/adapters/cache"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// CachePath is the durable rank-history cache file. Empty disables
	// the durable tier; the engine then runs memory-only.
	CachePath string `koanf:"cache_path"`

	// CacheRetention caps durable cache entries kept per competition.
	CacheRetention int `koanf:"cache_retention"`

	// MemoryCacheMaxEntries bounds the in-memory cache tier.
	MemoryCacheMaxEntries int `koanf:"memory_cache_max_entries"`

	// CacheWriteQueueSize bounds the durable write-behind queue.
	CacheWriteQueueSize int `koanf:"cache_write_queue_size"`

	// SignificantChangeThreshold is the default rank-delta cutoff for
	// riser/faller detection.
	SignificantChangeThreshold int `koanf:"significant_change_threshold"`

	// HistoryInterval is the default rank-history step:
	// hourly, daily or weekly.
	HistoryInterval string `koanf:"history_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                   "info",
		CachePath:                  "crux-cache.db",
		CacheRetention:             cache.DefaultRetention,
		MemoryCacheMaxEntries:      1000,
		CacheWriteQueueSize:        256,
		SignificantChangeThreshold: 3,
		HistoryInterval:            "hourly",
	}
}
