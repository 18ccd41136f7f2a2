package app

import (
	"context"
	"fmt"

	"flipview/internal/accumulator"
	"flipview/internal/config"
	"flipview/internal/engine"
	"flipview/internal/loader"
	"flipview/internal/logger"
	"flipview/internal/partition"
	"flipview/internal/pkg/circuit"
	"flipview/internal/query"
	apihttp "flipview/internal/transport/http"
)

// AppBuilder assembles the engine stack from a Config. The constructor hooks
// can be swapped in tests.
type AppBuilder struct {
	cfg        *config.Config
	configPath string

	storeFn func(context.Context, config.StoreConfig) (partition.ObjectStore, func() error, error)
	httpFn  func(config.AppConfig, config.LoaderConfig, *engine.Engine) (*apihttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithStore bypasses backend selection and serves partitions from store.
func WithStore(store partition.ObjectStore) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeFn = func(context.Context, config.StoreConfig) (partition.ObjectStore, func() error, error) {
			return store, nil, nil
		}
	}
}

// WithoutHTTP builds an App without the API server, e.g. for one-shot CLI queries.
func WithoutHTTP() AppBuilderOption {
	return func(b *AppBuilder) {
		b.httpFn = func(config.AppConfig, config.LoaderConfig, *engine.Engine) (*apihttp.Server, error) {
			return nil, nil
		}
	}
}

// WithConfigPath enables hot reload of the file the config was loaded from.
func WithConfigPath(path string) AppBuilderOption {
	return func(b *AppBuilder) { b.configPath = path }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:     cfg,
		storeFn: buildObjectStore,
		httpFn:  buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	store, closer, err := b.storeFn(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("build object store: %w", err)
	}
	breaker := circuit.NewCircuitBreaker("store:"+store.Name(), cfg.Loader.BreakerThreshold, cfg.Loader.BreakerCooldown())
	layout := partition.Layout{Prefix: cfg.Store.Prefix, Extension: cfg.Store.Extension}
	if cfg.Store.BackendName() == "gcs" {
		layout.Prefix = ""
	}
	fetcher := partition.NewFetcher(store, layout, partition.WithBreaker(breaker))
	ld := loader.New(fetcher, loader.NewNegativeCache(cfg.Loader.NegativeCacheMax), loaderOptions(cfg.Loader))
	eng := engine.New(fetcher, ld, engineOptions(cfg))

	srv, err := b.httpFn(cfg.App, cfg.Loader, eng)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:        cfg,
		configPath: b.configPath,
		engine:     eng,
		loader:     ld,
		breaker:    breaker,
		http:       srv,
		closer:     closer,
		Summary:    newStartupSummary(cfg, store.Name()),
	}, nil
}

func buildObjectStore(ctx context.Context, cfg config.StoreConfig) (partition.ObjectStore, func() error, error) {
	switch cfg.BackendName() {
	case "http":
		s, err := partition.NewHTTPStore(cfg.BaseURL, cfg.Timeout())
		return s, nil, err
	case "gcs":
		s, err := partition.NewGCSStore(ctx, partition.GCSOptions{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			Endpoint:        cfg.Endpoint,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "fs":
		s, err := partition.NewFSStore(cfg.Root)
		return s, nil, err
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}

func buildHTTPServer(appCfg config.AppConfig, loaderCfg config.LoaderConfig, eng *engine.Engine) (*apihttp.Server, error) {
	return apihttp.NewServer(apihttp.Config{
		Addr:           appCfg.HTTPAddr,
		Engine:         eng,
		RequestTimeout: loaderCfg.LoadTimeout(),
	})
}

func loaderOptions(cfg config.LoaderConfig) loader.Options {
	return loader.Options{
		PoolSize:    cfg.PoolSize,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay(),
		RetryBudget: cfg.RetryBudget,
		RateLimit:   cfg.RateLimitPerSec,
	}
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		IndexPath: cfg.Store.IndexPath,
		ItemsPath: cfg.Store.ItemsPath,
		Accumulator: accumulator.Options{
			PageSize:    cfg.Accumulator.PageSize,
			BulkSize:    cfg.Accumulator.BulkSize,
			LoadTimeout: cfg.Loader.LoadTimeout(),
		},
		Parser: query.Parser{
			MinRecordCount: cfg.Query.MinRecordCount,
			DefaultLimit:   cfg.Query.DefaultLimit,
		},
	}
}

// applyReload retunes the running stack from a reloaded config. Store and
// address changes need a restart and are only reported.
func (a *App) applyReload(next *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if next.Store != a.cfg.Store || next.App.HTTPAddr != a.cfg.App.HTTPAddr {
		logger.Warnf("[app] store or http settings changed; restart to apply")
	}
	logger.SetLevel(next.App.LogLevel)
	a.loader.Tune(loaderOptions(next.Loader))
	a.breaker.Tune(next.Loader.BreakerThreshold, next.Loader.BreakerCooldown())
	a.cfg = next
	opts := a.loader.Options()
	logger.Infof("[app] loader retuned: pool=%d retries=%d delay=%s budget=%d rate=%.2f/s",
		opts.PoolSize, opts.MaxRetries, opts.RetryDelay, opts.RetryBudget, opts.RateLimit)
}
