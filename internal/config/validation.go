package config

import (
	"fmt"
	"strings"
)

// validate performs basic sanity checks after defaults are applied.
func validate(c *Config) error {
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Loader.validate(); err != nil {
		return err
	}
	if err := c.Accumulator.validate(); err != nil {
		return err
	}
	if c.Query.MinRecordCount < 0 {
		return fmt.Errorf("query.min_record_count must be >= 0")
	}
	if c.Query.DefaultLimit < 0 {
		return fmt.Errorf("query.default_limit must be >= 0")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	switch s.BackendName() {
	case "http":
		if strings.TrimSpace(s.BaseURL) == "" {
			return fmt.Errorf("store.base_url is required for the http backend")
		}
	case "gcs":
		if strings.TrimSpace(s.Bucket) == "" {
			return fmt.Errorf("store.bucket is required for the gcs backend")
		}
	case "fs":
		if strings.TrimSpace(s.Root) == "" {
			return fmt.Errorf("store.root is required for the fs backend")
		}
	default:
		return fmt.Errorf("unsupported store.backend: %s", s.Backend)
	}
	if strings.TrimSpace(s.IndexPath) == "" {
		return fmt.Errorf("store.index_path cannot be empty")
	}
	return nil
}

func (l *LoaderConfig) validate() error {
	if l.PoolSize <= 0 || l.PoolSize > 64 {
		return fmt.Errorf("loader.pool_size must be in [1,64]")
	}
	if l.MaxRetries < 0 || l.MaxRetries > 10 {
		return fmt.Errorf("loader.max_retries must be in [0,10]")
	}
	if l.RateLimitPerSec < 0 {
		return fmt.Errorf("loader.rate_limit_per_sec must be >= 0")
	}
	return nil
}

func (a *AccumulatorConfig) validate() error {
	if a.BulkSize < a.PageSize {
		return fmt.Errorf("accumulator.bulk_size (%d) must be >= page_size (%d)", a.BulkSize, a.PageSize)
	}
	return nil
}
