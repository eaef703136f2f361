package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if CRUX_CONFIG is set
//  3. env (prefix CRUX_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("CRUX_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: CRUX_CACHE_PATH, CRUX_CACHE_RETENTION, ...
	// Map env keys like CRUX_CACHE_RETENTION -> cache_retention (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CRUX_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "crux_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.CacheRetention <= 0 {
		return nil, fmt.Errorf("%w: cache_retention must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.HistoryInterval) {
	case "hourly", "daily", "weekly":
	default:
		return nil, fmt.Errorf("%w: unknown history_interval %q", ErrInvalidConfig, cfg.HistoryInterval)
	}
	return &cfg, nil
}
