package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"flipview/internal/logger"
	"flipview/internal/partition"
	"flipview/internal/types"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultPoolSize   = 8
	defaultRetryDelay = 250 * time.Millisecond
)

// Fetcher performs one fetch of one partition.
type Fetcher interface {
	Fetch(ctx context.Context, key partition.Key) partition.Outcome
}

// Options tunes a Loader. RetryBudget caps the retries spent across one
// LoadRange call; RateLimit (requests per second) is disabled when zero.
type Options struct {
	PoolSize    int
	MaxRetries  int
	RetryDelay  time.Duration
	RetryBudget int
	RateLimit   float64
}

func (o Options) normalized() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = defaultPoolSize
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.RetryBudget <= 0 {
		o.RetryBudget = o.PoolSize * o.MaxRetries
	}
	return o
}

// Report summarizes one LoadRange call. Records follow the order of the
// requested keys; within a partition they keep source order.
type Report struct {
	Records   []types.Record
	Attempted int
	Loaded    []partition.Key
	NotFound  []partition.Key
	Skipped   []partition.Key
	Degraded  []partition.Key
	Retries   int
}

// Unavailable reports that partitions were attempted but none could be read.
func (r Report) Unavailable() bool {
	return len(r.Loaded) == 0 && len(r.Degraded) > 0
}

// Loader fetches partitions in bounded concurrent windows, retrying transient
// failures and remembering missing partitions in a NegativeCache.
type Loader struct {
	fetcher Fetcher
	cache   *NegativeCache

	mu      sync.RWMutex
	opts    Options
	limiter *rate.Limiter
}

func New(fetcher Fetcher, cache *NegativeCache, opts Options) *Loader {
	if cache == nil {
		cache = NewNegativeCache(0)
	}
	l := &Loader{fetcher: fetcher, cache: cache}
	l.Tune(opts)
	return l
}

// Tune swaps the loader options; calls already running keep their snapshot.
func (l *Loader) Tune(opts Options) {
	opts = opts.normalized()
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.PoolSize
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	l.mu.Lock()
	l.opts = opts
	l.limiter = limiter
	l.mu.Unlock()
}

func (l *Loader) Options() Options {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.opts
}

func (l *Loader) Cache() *NegativeCache { return l.cache }

// LoadRange fetches keys window by window. Partition failures never surface
// as errors; the returned error is only set when ctx ends early, in which case
// Report.Attempted tells how many leading keys were processed and the
// interrupted window contributes nothing to the report.
func (l *Loader) LoadRange(ctx context.Context, keys []partition.Key) (Report, error) {
	l.mu.RLock()
	opts, limiter := l.opts, l.limiter
	l.mu.RUnlock()

	var rep Report
	var budget atomic.Int64
	budget.Store(int64(opts.RetryBudget))
	var retries atomic.Int64

	for start := 0; start < len(keys); start += opts.PoolSize {
		if err := ctx.Err(); err != nil {
			rep.Retries = int(retries.Load())
			return rep, err
		}
		end := min(start+opts.PoolSize, len(keys))
		window := keys[start:end]
		outcomes := make([]partition.Outcome, len(window))
		cached := make([]bool, len(window))

		var g errgroup.Group
		g.SetLimit(opts.PoolSize)
		for i, key := range window {
			if l.cache.Contains(key) {
				cached[i] = true
				continue
			}
			i, key := i, key
			g.Go(func() error {
				outcomes[i] = l.fetchWithRetry(ctx, key, opts, limiter, &budget, &retries)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			// Outcomes of an interrupted window are dropped so its keys stay unattempted.
			rep.Retries = int(retries.Load())
			logger.Debugf("[loader] window %d-%d interrupted: %v", start, end, err)
			return rep, err
		}

		for i, out := range outcomes {
			if cached[i] {
				rep.Skipped = append(rep.Skipped, window[i])
				continue
			}
			l.collect(&rep, out)
		}
		rep.Attempted = end
		logger.Debugf("[loader] window %d-%d done (%d records so far)", start, end, len(rep.Records))
	}
	rep.Retries = int(retries.Load())
	if len(keys) > 0 {
		logger.Infof("[loader] %d partitions: loaded=%d missing=%d cached-missing=%d degraded=%d records=%d retries=%d",
			len(keys), len(rep.Loaded), len(rep.NotFound), len(rep.Skipped), len(rep.Degraded), len(rep.Records), rep.Retries)
	}
	return rep, nil
}

func (l *Loader) collect(rep *Report, out partition.Outcome) {
	switch out.Kind {
	case partition.OutcomeOK:
		rep.Loaded = append(rep.Loaded, out.Key)
		rep.Records = append(rep.Records, out.Records...)
	case partition.OutcomeNotFound:
		l.cache.Add(out.Key)
		rep.NotFound = append(rep.NotFound, out.Key)
		logger.Debugf("[loader] %s not found, cached", out.Key)
	case partition.OutcomeTransient:
		rep.Degraded = append(rep.Degraded, out.Key)
		logger.Warnf("[loader] %s unavailable after retries, treated as empty: %v", out.Key, out.Err)
	case partition.OutcomeParseError:
		rep.Degraded = append(rep.Degraded, out.Key)
		logger.Warnf("[loader] %s could not be parsed, treated as empty: %v", out.Key, out.Err)
	}
}

func (l *Loader) fetchWithRetry(ctx context.Context, key partition.Key, opts Options, limiter *rate.Limiter, budget, retries *atomic.Int64) partition.Outcome {
	for attempt := 0; ; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return partition.Outcome{Key: key, Kind: partition.OutcomeTransient, Err: err}
			}
		}
		out := l.fetcher.Fetch(ctx, key)
		if out.Kind != partition.OutcomeTransient {
			return out
		}
		if attempt >= opts.MaxRetries || ctx.Err() != nil {
			return out
		}
		if budget.Add(-1) < 0 {
			logger.Warnf("[loader] retry budget exhausted, giving up on %s", key)
			return out
		}
		retries.Add(1)
		delay := opts.RetryDelay * time.Duration(attempt+1)
		logger.Debugf("[loader] %s transient failure (attempt %d): %v; retrying in %s", key, attempt+1, out.Err, delay)
		if err := sleepCtx(ctx, delay); err != nil {
			return out
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
