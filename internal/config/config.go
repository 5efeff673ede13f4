// Package config loads the daemon's YAML configuration: cache/store
// knobs, watcher debounce timing, and per-model context-window sizes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultContextWindow is the fallback context window size (in tokens)
// used when no model-specific entry or "default" key is found.
const DefaultContextWindow = 200_000

// Config is the root daemon configuration.
type Config struct {
	Cache  CacheConfig    `yaml:"cache"`
	Watch  WatchConfig    `yaml:"watch"`
	Store  StoreConfig    `yaml:"store"`
	Models map[string]int `yaml:"models"`
}

// CacheConfig controls the Session Cache.
type CacheConfig struct {
	// SessionCacheTTLMs is loaded and reported by Diff; the Session Cache
	// does not read it (GetView re-checks (size, mtime) on every call).
	SessionCacheTTLMs int `yaml:"session_cache_ttl_ms"`

	// WarmingConcurrency bounds parallelism when eagerly warming every
	// session under a project directory. Zero means runtime.NumCPU().
	WarmingConcurrency int `yaml:"warming_concurrency"`

	// PersistEnabled toggles writing the Session Cache's on-disk cache
	// (the daemon keeps it under {stateDir}/cache).
	PersistEnabled bool `yaml:"persist_enabled"`

	// AutoRefreshMs is the poll interval for consumers that want
	// cache-freshness checks without relying solely on watcher events.
	AutoRefreshMs int `yaml:"auto_refresh_ms"`
}

// WatchConfig controls the Session Watcher.
type WatchConfig struct {
	// WatchDebounceMs is the per-file event debounce window.
	WatchDebounceMs int `yaml:"watch_debounce_ms"`
}

// StoreConfig controls the Execution Store and Task Store.
type StoreConfig struct {
	// MaxEvents is loaded and reported by Diff; the Execution Store does
	// not read it and keeps every recorded event in memory.
	MaxEvents int `yaml:"max_events"`

	// MaxExecutions bounds the Execution Store's ring buffer.
	MaxExecutions int `yaml:"max_executions"`

	// CleanupAgeMs is loaded and reported by Diff; the Execution Store does
	// not read it and evicts terminal executions only when at capacity.
	CleanupAgeMs int64 `yaml:"cleanup_age_ms"`
}

func defaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			SessionCacheTTLMs:  60_000,
			WarmingConcurrency: 0,
			PersistEnabled:     true,
			AutoRefreshMs:      2_000,
		},
		Watch: WatchConfig{
			WatchDebounceMs: 500,
		},
		Store: StoreConfig{
			MaxEvents:     10_000,
			MaxExecutions: 1_000,
			CleanupAgeMs:  int64(7 * 24 * time.Hour / time.Millisecond),
		},
		Models: map[string]int{
			"default": DefaultContextWindow,
		},
	}
}

// Load reads and parses the YAML config at path, starting from defaults
// so an incomplete file still yields a usable configuration.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config at path, or returns the default
// configuration if the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return Load(path)
}

// MaxContextTokens resolves the context window size for a model.
// Resolution order: exact match → longest prefix match → "default" key →
// DefaultContextWindow. Config keys ending with "*" are treated as
// prefix patterns (e.g. "claude-*" matches "claude-opus-4-5-20251101").
func (c *Config) MaxContextTokens(model string) int {
	if n, ok := c.Models[model]; ok {
		return n
	}

	bestLen := 0
	bestVal := 0
	for key, val := range c.Models {
		if !strings.HasSuffix(key, "*") {
			continue
		}
		prefix := strings.TrimSuffix(key, "*")
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			bestLen = len(prefix)
			bestVal = val
		}
	}
	if bestLen > 0 {
		return bestVal
	}

	if n, ok := c.Models["default"]; ok {
		return n
	}
	return DefaultContextWindow
}

// Diff compares two configs and returns human-readable descriptions of
// what changed, for logging a hot reload.
func Diff(old, new *Config) []string {
	var changes []string

	for k, v := range new.Models {
		if ov, ok := old.Models[k]; !ok {
			changes = append(changes, fmt.Sprintf("models: added %s=%d", k, v))
		} else if ov != v {
			changes = append(changes, fmt.Sprintf("models: %s changed %d → %d", k, ov, v))
		}
	}
	for k := range old.Models {
		if _, ok := new.Models[k]; !ok {
			changes = append(changes, fmt.Sprintf("models: removed %s", k))
		}
	}

	if old.Cache.SessionCacheTTLMs != new.Cache.SessionCacheTTLMs {
		changes = append(changes, fmt.Sprintf("cache.session_cache_ttl_ms: %d → %d", old.Cache.SessionCacheTTLMs, new.Cache.SessionCacheTTLMs))
	}
	if old.Cache.WarmingConcurrency != new.Cache.WarmingConcurrency {
		changes = append(changes, fmt.Sprintf("cache.warming_concurrency: %d → %d", old.Cache.WarmingConcurrency, new.Cache.WarmingConcurrency))
	}
	if old.Cache.PersistEnabled != new.Cache.PersistEnabled {
		changes = append(changes, fmt.Sprintf("cache.persist_enabled: %v → %v", old.Cache.PersistEnabled, new.Cache.PersistEnabled))
	}
	if old.Watch.WatchDebounceMs != new.Watch.WatchDebounceMs {
		changes = append(changes, fmt.Sprintf("watch.watch_debounce_ms: %d → %d", old.Watch.WatchDebounceMs, new.Watch.WatchDebounceMs))
	}
	if old.Store.MaxEvents != new.Store.MaxEvents {
		changes = append(changes, fmt.Sprintf("store.max_events: %d → %d", old.Store.MaxEvents, new.Store.MaxEvents))
	}
	if old.Store.MaxExecutions != new.Store.MaxExecutions {
		changes = append(changes, fmt.Sprintf("store.max_executions: %d → %d", old.Store.MaxExecutions, new.Store.MaxExecutions))
	}
	if old.Store.CleanupAgeMs != new.Store.CleanupAgeMs {
		changes = append(changes, fmt.Sprintf("store.cleanup_age_ms: %d → %d", old.Store.CleanupAgeMs, new.Store.CleanupAgeMs))
	}

	return changes
}

func defaultConfigDir() string {
	if value := os.Getenv("XDG_CONFIG_HOME"); value != "" {
		return value
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// DefaultConfigPath returns the default XDG-compliant config file path.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "lm-assist", "config.yaml")
}

// DefaultStateDir returns the default XDG-compliant state directory.
func DefaultStateDir() string {
	if value := os.Getenv("XDG_STATE_HOME"); value != "" {
		return value
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "state")
}
