package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"flipview/internal/accumulator"
	"flipview/internal/loader"
	"flipview/internal/logger"
	"flipview/internal/partition"
	"flipview/internal/query"
	"flipview/internal/strategy"
	"flipview/internal/types"
)

// ErrNoDataAvailable is returned together with an empty result when every
// attempted partition failed to load.
var ErrNoDataAvailable = errors.New("engine: no data available")

const (
	defaultLookbackDays = 30
	defaultMaxSpanDays  = 3660
)

type Options struct {
	IndexPath    string
	ItemsPath    string
	Accumulator  accumulator.Options
	Parser       query.Parser
	LookbackDays int
	MaxSpanDays  int
}

// Engine is the query entry point. Execute calls are serialized.
type Engine struct {
	fetcher *partition.Fetcher
	loader  *loader.Loader
	opts    Options
	now     func() time.Time

	execMu sync.Mutex

	indexMu     sync.Mutex
	index       []partition.Key
	indexLoaded bool
	hasIndex    bool

	browser *Browser
}

func New(fetcher *partition.Fetcher, ld *loader.Loader, opts Options) *Engine {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = defaultLookbackDays
	}
	if opts.MaxSpanDays <= 0 {
		opts.MaxSpanDays = defaultMaxSpanDays
	}
	e := &Engine{
		fetcher: fetcher,
		loader:  ld,
		opts:    opts,
		now:     time.Now,
	}
	e.browser = newBrowser(e)
	return e
}

func (e *Engine) Browser() *Browser { return e.browser }

func (e *Engine) Loader() *loader.Loader { return e.loader }

// Execute parses kind and params, runs the matching strategy and returns its
// result. Validation failures are *query.Error. When nothing could be loaded
// the empty result is returned along with ErrNoDataAvailable.
func (e *Engine) Execute(ctx context.Context, kind string, params map[string]string) (*strategy.Result, error) {
	d, err := e.opts.Parser.Parse(kind, params)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, d)
}

// Run executes an already parsed descriptor.
func (e *Engine) Run(ctx context.Context, d query.Descriptor) (*strategy.Result, error) {
	e.execMu.Lock()
	defer e.execMu.Unlock()

	start := time.Now()
	res, err := strategy.Execute(ctx, d, strategy.Sources{Records: e, Entities: e})
	if err != nil {
		return nil, err
	}
	logger.Infof("[engine] %s rows=%d matched=%d source=%s partial=%v in %s",
		d.Kind(), res.Rows(), res.Matched, res.Coverage.Source, res.Partial, time.Since(start).Round(time.Millisecond))
	if res.Coverage.Unavailable() {
		return res, ErrNoDataAvailable
	}
	return res, nil
}

// LoadRecords loads every partition of span through a fresh accumulator.
func (e *Engine) LoadRecords(ctx context.Context, span query.DateSpan) (strategy.Batch, error) {
	keys, err := e.ResolveSpan(ctx, span)
	if err != nil {
		return strategy.Batch{}, err
	}
	acc := accumulator.New(e.loader, e.opts.Accumulator)
	acc.SetPartitions(keys)
	if _, err := acc.LoadAll(ctx); err != nil {
		return strategy.Batch{}, fmt.Errorf("load %d partitions: %w", len(keys), err)
	}
	return strategy.Batch{Records: acc.Records(), Coverage: coverageOf(acc.Progress())}, nil
}

func coverageOf(p accumulator.Progress) strategy.Coverage {
	cov := strategy.Coverage{
		Source:    strategy.SourcePartitions,
		Requested: p.TotalDays,
		Loaded:    p.Found,
		Missing:   p.Missing,
	}
	for _, k := range p.Degraded {
		cov.Degraded = append(cov.Degraded, k.String())
	}
	return cov
}

// LoadEntities reads the pre-aggregated entity table, if one is configured.
func (e *Engine) LoadEntities(ctx context.Context) ([]types.EntityStats, error) {
	if e.opts.ItemsPath == "" {
		return nil, strategy.ErrNoTable
	}
	path := e.fetcher.Layout().Resolve(e.opts.ItemsPath)
	body, err := partition.LoadDocument(ctx, e.fetcher.Store(), path)
	if errors.Is(err, partition.ErrObjectNotFound) {
		return nil, strategy.ErrNoTable
	}
	if err != nil {
		return nil, err
	}
	return ParseEntityTable(body)
}

// Partitions returns the cached index, fetching it on first use. A nil slice
// with a nil error means no index exists.
func (e *Engine) Partitions(ctx context.Context) ([]partition.Key, error) {
	keys, _, err := e.indexSnapshot(ctx)
	return keys, err
}

func (e *Engine) indexSnapshot(ctx context.Context) ([]partition.Key, bool, error) {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()
	if !e.indexLoaded {
		if _, err := e.loadIndexLocked(ctx); err != nil {
			return nil, false, err
		}
	}
	return slices.Clone(e.index), e.hasIndex, nil
}

// RefreshIndex refetches the index, forgets cached not-found partitions and
// resets the browse session.
func (e *Engine) RefreshIndex(ctx context.Context) ([]partition.Key, error) {
	e.indexMu.Lock()
	e.indexLoaded = false
	keys, err := e.loadIndexLocked(ctx)
	e.indexMu.Unlock()
	if err != nil {
		return nil, err
	}
	e.loader.Cache().Clear()
	e.browser.Reset()
	return keys, nil
}

func (e *Engine) loadIndexLocked(ctx context.Context) ([]partition.Key, error) {
	if e.opts.IndexPath == "" {
		e.index, e.hasIndex, e.indexLoaded = nil, false, true
		return nil, nil
	}
	path := e.fetcher.Layout().Resolve(e.opts.IndexPath)
	keys, err := partition.LoadIndex(ctx, e.fetcher.Store(), path)
	switch {
	case errors.Is(err, partition.ErrObjectNotFound):
		logger.Infof("[engine] no partition index at %s, enumerating calendar days", path)
		e.index, e.hasIndex, e.indexLoaded = nil, false, true
		return nil, nil
	case err != nil:
		return nil, err
	}
	logger.Infof("[engine] partition index loaded: %d days", len(keys))
	e.index, e.hasIndex, e.indexLoaded = keys, true, true
	return slices.Clone(keys), nil
}
