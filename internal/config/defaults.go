package config

import "strings"

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9991"
	defaultStoreBackend     = "http"
	defaultStoreBaseURL     = "http://localhost:8000"
	defaultStoreRoot        = "data"
	defaultStoreIndexPath   = "index.json"
	defaultStoreExtension   = ".csv"
	defaultStoreTimeout     = 15
	defaultPoolSize         = 8
	defaultMaxRetries       = 3
	defaultRetryDelayMS     = 250
	defaultRetryBudget      = 24
	defaultLoadTimeout      = 120
	defaultNegativeCacheMax = 4096
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30
	defaultPageSize         = 7
	defaultBulkSize         = 28
	defaultMinRecordCount   = 5
)

// applyDefaults fills every sub-config with its defaults.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Loader.applyDefaults(keys)
	c.Accumulator.applyDefaults(keys)
	c.Query.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.backend", &s.Backend, defaultStoreBackend),
		stringFieldDefault("store.index_path", &s.IndexPath, defaultStoreIndexPath),
		stringFieldDefault("store.extension", &s.Extension, defaultStoreExtension),
		positiveIntDefault("store.timeout_seconds", &s.TimeoutSeconds, defaultStoreTimeout),
	)
	switch s.BackendName() {
	case "http":
		applyFieldDefaults(keys, stringFieldDefault("store.base_url", &s.BaseURL, defaultStoreBaseURL))
	case "fs":
		applyFieldDefaults(keys, stringFieldDefault("store.root", &s.Root, defaultStoreRoot))
	}
	if s.Extension != "" && !strings.HasPrefix(s.Extension, ".") {
		s.Extension = "." + s.Extension
	}
	s.Prefix = strings.Trim(strings.TrimSpace(s.Prefix), "/")
}

func (l *LoaderConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		positiveIntDefault("loader.pool_size", &l.PoolSize, defaultPoolSize),
		fieldDefault{
			key:   "loader.max_retries",
			need:  func() bool { return l.MaxRetries == 0 },
			apply: func() { l.MaxRetries = defaultMaxRetries },
		},
		positiveIntDefault("loader.retry_delay_ms", &l.RetryDelayMS, defaultRetryDelayMS),
		positiveIntDefault("loader.retry_budget", &l.RetryBudget, defaultRetryBudget),
		positiveIntDefault("loader.load_timeout_seconds", &l.LoadTimeoutSeconds, defaultLoadTimeout),
		positiveIntDefault("loader.negative_cache_max", &l.NegativeCacheMax, defaultNegativeCacheMax),
		positiveIntDefault("loader.breaker_threshold", &l.BreakerThreshold, defaultBreakerThreshold),
		positiveIntDefault("loader.breaker_cooldown_seconds", &l.BreakerCooldownSecond, defaultBreakerCooldown),
	)
}

func (a *AccumulatorConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		positiveIntDefault("accumulator.page_size", &a.PageSize, defaultPageSize),
		positiveIntDefault("accumulator.bulk_size", &a.BulkSize, defaultBulkSize),
	)
}

func (q *QueryConfig) applyDefaults(keys keySet) {
	if q == nil {
		return
	}
	applyFieldDefaults(keys,
		positiveIntDefault("query.min_record_count", &q.MinRecordCount, defaultMinRecordCount),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func positiveIntDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
