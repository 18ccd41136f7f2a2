package config

import (
	"strings"
	"time"
)

// Config is the root configuration for flipview.
type Config struct {
	App         AppConfig         `toml:"app"`
	Store       StoreConfig       `toml:"store"`
	Loader      LoaderConfig      `toml:"loader"`
	Accumulator AccumulatorConfig `toml:"accumulator"`
	Query       QueryConfig       `toml:"query"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

// StoreConfig selects and configures the remote object store serving partitions.
type StoreConfig struct {
	Backend         string `toml:"backend"` // http | gcs | fs
	BaseURL         string `toml:"base_url"`
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Root            string `toml:"root"`
	Endpoint        string `toml:"endpoint"`
	CredentialsFile string `toml:"credentials_file"`
	IndexPath       string `toml:"index_path"`
	ItemsPath       string `toml:"items_path"`
	Extension       string `toml:"extension"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

func (s StoreConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// BackendName returns the normalized backend identifier.
func (s StoreConfig) BackendName() string {
	return strings.ToLower(strings.TrimSpace(s.Backend))
}

// LoaderConfig tunes the bounded concurrent loader.
type LoaderConfig struct {
	PoolSize              int     `toml:"pool_size"`
	MaxRetries            int     `toml:"max_retries"`
	RetryDelayMS          int     `toml:"retry_delay_ms"`
	RetryBudget           int     `toml:"retry_budget"`
	LoadTimeoutSeconds    int     `toml:"load_timeout_seconds"`
	RateLimitPerSec       float64 `toml:"rate_limit_per_sec"` // 0 disables
	NegativeCacheMax      int     `toml:"negative_cache_max"`
	BreakerThreshold      int     `toml:"breaker_threshold"`
	BreakerCooldownSecond int     `toml:"breaker_cooldown_seconds"`
}

func (l LoaderConfig) RetryDelay() time.Duration {
	return time.Duration(l.RetryDelayMS) * time.Millisecond
}

func (l LoaderConfig) LoadTimeout() time.Duration {
	return time.Duration(l.LoadTimeoutSeconds) * time.Second
}

func (l LoaderConfig) BreakerCooldown() time.Duration {
	return time.Duration(l.BreakerCooldownSecond) * time.Second
}

type AccumulatorConfig struct {
	PageSize int `toml:"page_size"`
	BulkSize int `toml:"bulk_size"`
}

type QueryConfig struct {
	MinRecordCount int `toml:"min_record_count"`
	DefaultLimit   int `toml:"default_limit"`
}

// keySet tracks field paths that were explicitly set in a file or the environment.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes how one field receives its default value.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
