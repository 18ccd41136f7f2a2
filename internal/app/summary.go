package app

import (
	"fmt"
	"strings"

	"flipview/internal/config"
)

type StartupSummary struct {
	Env      string
	HTTPAddr string
	Store    StoreSummary
	Loader   config.LoaderConfig
	Pages    config.AccumulatorConfig
}

type StoreSummary struct {
	Backend   string
	Location  string
	IndexPath string
	ItemsPath string
}

func newStartupSummary(cfg *config.Config, backend string) *StartupSummary {
	loc := cfg.Store.BaseURL
	switch cfg.Store.BackendName() {
	case "gcs":
		loc = "gs://" + cfg.Store.Bucket
	case "fs":
		loc = cfg.Store.Root
	}
	if p := strings.Trim(cfg.Store.Prefix, "/"); p != "" {
		loc = strings.TrimRight(loc, "/") + "/" + p
	}
	return &StartupSummary{
		Env:      cfg.App.Env,
		HTTPAddr: cfg.App.HTTPAddr,
		Store: StoreSummary{
			Backend:   backend,
			Location:  loc,
			IndexPath: cfg.Store.IndexPath,
			ItemsPath: cfg.Store.ItemsPath,
		},
		Loader: cfg.Loader,
		Pages:  cfg.Accumulator,
	}
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)
	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "FLIPVIEW STARTUP SUMMARY")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "[app]    env=%s http=%s\n", orDash(s.Env), orDash(s.HTTPAddr))
	fmt.Fprintf(&b, "[store]  %s %s\n", s.Store.Backend, orDash(s.Store.Location))
	fmt.Fprintf(&b, "         index=%s items=%s\n", orDash(s.Store.IndexPath), orDash(s.Store.ItemsPath))
	fmt.Fprintf(&b, "[loader] pool=%d retries=%d delay=%dms budget=%d timeout=%ds rate=%.2f/s\n",
		s.Loader.PoolSize, s.Loader.MaxRetries, s.Loader.RetryDelayMS, s.Loader.RetryBudget,
		s.Loader.LoadTimeoutSeconds, s.Loader.RateLimitPerSec)
	fmt.Fprintf(&b, "         negative-cache=%d breaker=%d/%ds\n",
		s.Loader.NegativeCacheMax, s.Loader.BreakerThreshold, s.Loader.BreakerCooldownSecond)
	fmt.Fprintf(&b, "[pages]  page=%d bulk=%d days\n", s.Pages.PageSize, s.Pages.BulkSize)
	fmt.Fprint(&b, line)
	return b.String()
}

func (s *StartupSummary) Print() {
	fmt.Println(s.String())
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
