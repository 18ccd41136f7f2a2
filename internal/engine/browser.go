package engine

import (
	"context"
	"errors"
	"sync"

	"flipview/internal/accumulator"
	"flipview/internal/query"
	"flipview/internal/types"
)

var ErrNoSession = errors.New("engine: no browse session open")

// Browser is the paginated view over one date span.
type Browser struct {
	engine *Engine
	acc    *accumulator.Accumulator

	mu     sync.Mutex
	span   query.DateSpan
	opened bool
}

// Page is a slice of the accumulated records.
type Page struct {
	Offset   int                  `json:"offset"`
	Total    int                  `json:"total"`
	Records  []types.Record       `json:"records"`
	Progress accumulator.Progress `json:"progress"`
}

func newBrowser(e *Engine) *Browser {
	return &Browser{engine: e, acc: accumulator.New(e.loader, e.opts.Accumulator)}
}

// Open points the session at span. Reopening the same partitions keeps what
// was already loaded.
func (b *Browser) Open(ctx context.Context, span query.DateSpan) (accumulator.Progress, error) {
	keys, err := b.engine.ResolveSpan(ctx, span)
	if err != nil {
		return accumulator.Progress{}, err
	}
	b.mu.Lock()
	b.span = span
	b.opened = true
	b.mu.Unlock()
	b.acc.SetPartitions(keys)
	return b.acc.Progress(), nil
}

func (b *Browser) Span() (query.DateSpan, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.span, b.opened
}

func (b *Browser) More(ctx context.Context) (accumulator.Progress, error) {
	if _, ok := b.Span(); !ok {
		return accumulator.Progress{}, ErrNoSession
	}
	_, err := b.acc.LoadMore(ctx)
	return b.acc.Progress(), err
}

func (b *Browser) All(ctx context.Context) (accumulator.Progress, error) {
	if _, ok := b.Span(); !ok {
		return accumulator.Progress{}, ErrNoSession
	}
	_, err := b.acc.LoadAll(ctx)
	return b.acc.Progress(), err
}

// Reset drops loaded records and cancels a load in flight.
func (b *Browser) Reset() {
	b.acc.Reset()
}

func (b *Browser) Progress() accumulator.Progress {
	return b.acc.Progress()
}

// Page returns up to limit records starting at offset. A limit of zero
// returns everything from offset on.
func (b *Browser) Page(offset, limit int) Page {
	records := b.acc.Records()
	offset = max(0, min(offset, len(records)))
	end := len(records)
	if limit > 0 {
		end = min(offset+limit, len(records))
	}
	return Page{
		Offset:   offset,
		Total:    len(records),
		Records:  records[offset:end],
		Progress: b.acc.Progress(),
	}
}
