package app

import (
	"context"
	"fmt"
	"sync"

	"flipview/internal/config"
	"flipview/internal/engine"
	"flipview/internal/loader"
	"flipview/internal/logger"
	"flipview/internal/pkg/circuit"
	apihttp "flipview/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

// App wires the config, object store, engine and HTTP API together.
type App struct {
	mu         sync.Mutex
	cfg        *config.Config
	configPath string

	engine  *engine.Engine
	loader  *loader.Loader
	breaker *circuit.CircuitBreaker
	http    *apihttp.Server
	closer  func() error

	Summary *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, opts)
}

// Run serves the HTTP API until ctx is cancelled. With a config path it also
// hot-reloads loader settings.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.configPath != "" {
		if err := config.Watch(a.configPath, a.applyReload); err != nil {
			logger.Warnf("[app] config hot reload disabled: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		keys, err := a.engine.Partitions(ctx)
		if err != nil {
			logger.Warnf("[app] partition index warm-up failed: %v", err)
			return nil
		}
		logger.Infof("[app] partition index ready: %d days", len(keys))
		return nil
	})
	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	return group.Wait()
}

// Engine exposes the query engine, e.g. for CLI one-shot queries.
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Close releases the object store client.
func (a *App) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	closer := a.closer
	a.closer = nil
	return closer()
}
