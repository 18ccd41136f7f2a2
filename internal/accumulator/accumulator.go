package accumulator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"flipview/internal/loader"
	"flipview/internal/logger"
	"flipview/internal/partition"
	"flipview/internal/types"
)

// ErrStaleResult is returned by a load that finished after Reset or a
// partition list change; its records were dropped.
var ErrStaleResult = errors.New("accumulator: stale result discarded")

const (
	defaultPageSize = 7
	defaultBulkSize = 28
)

// RangeLoader is the part of loader.Loader the accumulator drives.
type RangeLoader interface {
	LoadRange(ctx context.Context, keys []partition.Key) (loader.Report, error)
}

type Options struct {
	PageSize    int
	BulkSize    int
	LoadTimeout time.Duration
}

func (o Options) normalized() Options {
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	if o.BulkSize <= 0 {
		o.BulkSize = defaultBulkSize
	}
	if o.BulkSize < o.PageSize {
		o.BulkSize = o.PageSize
	}
	return o
}

// Progress is a point-in-time view of a LoadState. LoadedDays and
// LoadedRecords never decrease between resets.
type Progress struct {
	LoadedDays    int             `json:"loadedDays"`
	TotalDays     int             `json:"totalDays"`
	LoadedRecords int             `json:"loadedRecords"`
	Exhausted     bool            `json:"exhausted"`
	InFlight      bool            `json:"inFlight"`
	Found         int             `json:"found"`
	Missing       int             `json:"missing"`
	Degraded      []partition.Key `json:"degraded,omitempty"`
}

type loadState struct {
	cursor    int
	records   []types.Record
	seen      map[string]struct{}
	exhausted bool
	inFlight  bool
	found     int
	missing   int
	degraded  []partition.Key
}

// Accumulator pages through a fixed list of partitions, appending each
// window's records to a growing result set.
type Accumulator struct {
	loader RangeLoader
	opts   Options

	mu         sync.Mutex
	keys       []partition.Key
	state      loadState
	generation uint64
}

func New(l RangeLoader, opts Options) *Accumulator {
	a := &Accumulator{loader: l, opts: opts.normalized()}
	a.resetLocked()
	return a
}

// SetPartitions replaces the partition list. The state is reset only when
// the list actually differs from the current one.
func (a *Accumulator) SetPartitions(keys []partition.Key) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.keys != nil && slices.Equal(a.keys, keys) {
		return
	}
	a.keys = slices.Clone(keys)
	if a.keys == nil {
		a.keys = []partition.Key{}
	}
	a.generation++
	a.resetLocked()
}

func (a *Accumulator) Partitions() []partition.Key {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.keys)
}

// Reset drops everything loaded so far. A load still running when Reset is
// called finishes with ErrStaleResult.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	a.resetLocked()
}

func (a *Accumulator) resetLocked() {
	a.state = loadState{
		seen:      make(map[string]struct{}),
		exhausted: len(a.keys) == 0,
	}
}

// LoadMore loads the next page of partitions. It returns the number of new
// records; calling it while exhausted or while another load runs is a no-op.
func (a *Accumulator) LoadMore(ctx context.Context) (int, error) {
	added, _, err := a.step(ctx, a.opts.PageSize)
	return added, err
}

// LoadAll keeps loading bulk windows until every partition was attempted.
func (a *Accumulator) LoadAll(ctx context.Context) (int, error) {
	if a.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.LoadTimeout)
		defer cancel()
	}
	total := 0
	for {
		added, progressed, err := a.step(ctx, a.opts.BulkSize)
		total += added
		if err != nil {
			return total, err
		}
		if !progressed {
			return total, nil
		}
	}
}

func (a *Accumulator) step(ctx context.Context, size int) (int, bool, error) {
	a.mu.Lock()
	if a.state.exhausted || a.state.inFlight {
		a.mu.Unlock()
		return 0, false, nil
	}
	gen := a.generation
	start := a.state.cursor
	window := a.keys[start:min(start+size, len(a.keys))]
	a.state.inFlight = true
	a.mu.Unlock()

	rep, loadErr := a.loader.LoadRange(ctx, window)

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		logger.Debugf("[accumulator] dropping window %d-%d after reset", start, start+len(window))
		return 0, false, ErrStaleResult
	}
	a.state.inFlight = false
	added := 0
	for _, rec := range rep.Records {
		if _, dup := a.state.seen[rec.ID]; dup && rec.ID != "" {
			continue
		}
		a.state.seen[rec.ID] = struct{}{}
		a.state.records = append(a.state.records, rec)
		added++
	}
	a.state.cursor += rep.Attempted
	a.state.found += len(rep.Loaded)
	a.state.missing += len(rep.NotFound) + len(rep.Skipped)
	a.state.degraded = append(a.state.degraded, rep.Degraded...)
	if a.state.cursor >= len(a.keys) {
		a.state.exhausted = true
	}
	if loadErr != nil {
		return added, rep.Attempted > 0, fmt.Errorf("accumulator: load %d-%d: %w", start, start+len(window), loadErr)
	}
	return added, true, nil
}

// Records returns a copy of everything accumulated so far.
func (a *Accumulator) Records() []types.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.state.records)
}

func (a *Accumulator) Progress() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Progress{
		LoadedDays:    a.state.cursor,
		TotalDays:     len(a.keys),
		LoadedRecords: len(a.state.records),
		Exhausted:     a.state.exhausted,
		InFlight:      a.state.inFlight,
		Found:         a.state.found,
		Missing:       a.state.missing,
		Degraded:      slices.Clone(a.state.degraded),
	}
}
