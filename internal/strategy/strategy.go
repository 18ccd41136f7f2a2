package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flipview/internal/logger"
	"flipview/internal/query"
	"flipview/internal/types"

	"github.com/google/uuid"
)

// Batch is the records of a date span plus how completely it was read.
type Batch struct {
	Records  []types.Record
	Coverage Coverage
}

// RecordSource loads every record of a span.
type RecordSource interface {
	LoadRecords(ctx context.Context, span query.DateSpan) (Batch, error)
}

// EntitySource serves a pre-aggregated entity table. ErrNoTable means the
// table does not exist and aggregation should fall back to records.
type EntitySource interface {
	LoadEntities(ctx context.Context) ([]types.EntityStats, error)
}

var ErrNoTable = errors.New("strategy: entity table not available")

// Sources are the inputs a Strategy may read. Entities is optional.
type Sources struct {
	Records  RecordSource
	Entities EntitySource
}

// Strategy executes one query kind.
type Strategy interface {
	Execute(ctx context.Context, d query.Descriptor, src Sources) (*Result, error)
}

type Func func(ctx context.Context, d query.Descriptor, src Sources) (*Result, error)

func (f Func) Execute(ctx context.Context, d query.Descriptor, src Sources) (*Result, error) {
	return f(ctx, d, src)
}

var registry = map[query.Kind]Strategy{
	query.KindItemFlips:         Func(itemFlips),
	query.KindAggregateByProfit: Func(aggregateByProfit),
	query.KindAggregateByROI:    Func(aggregateByROI),
}

// For returns the strategy registered for kind.
func For(kind query.Kind) (Strategy, bool) {
	s, ok := registry[kind]
	return s, ok
}

// Execute dispatches d to its strategy.
func Execute(ctx context.Context, d query.Descriptor, src Sources) (*Result, error) {
	if d == nil {
		return nil, errors.New("strategy: nil descriptor")
	}
	s, ok := For(d.Kind())
	if !ok {
		return nil, fmt.Errorf("strategy: no strategy for %s", d.Kind())
	}
	if src.Records == nil {
		return nil, errors.New("strategy: record source is required")
	}
	return s.Execute(ctx, d, src)
}

func newResult(kind ResultKind, d query.Descriptor) *Result {
	return &Result{
		ID:          uuid.NewString(),
		Kind:        kind,
		Query:       d.Kind(),
		Descriptor:  d,
		GeneratedAt: time.Now().UTC(),
	}
}

func itemFlips(ctx context.Context, d query.Descriptor, src Sources) (*Result, error) {
	q, ok := d.(query.ItemFlips)
	if !ok {
		return nil, fmt.Errorf("strategy: item flips got %T", d)
	}
	batch, err := src.Records.LoadRecords(ctx, q.Span)
	if err != nil {
		return nil, err
	}
	rows := make([]types.Record, 0, len(batch.Records))
	for _, rec := range batch.Records {
		if q.EntityName != "" && rec.Entity != q.EntityName {
			continue
		}
		rows = append(rows, rec)
	}
	sortStable(rows, q.Sort.Desc, recordComparator(q.Sort.Field))

	res := newResult(ResultRawRecords, d)
	res.Matched = len(rows)
	res.Records = limit(rows, q.Limit)
	res.Summary = SummarizeRecords(res.Records)
	annotate(res, batch.Coverage)
	return res, nil
}

func aggregateByProfit(ctx context.Context, d query.Descriptor, src Sources) (*Result, error) {
	q, ok := d.(query.AggregateByProfit)
	if !ok {
		return nil, fmt.Errorf("strategy: aggregate by profit got %T", d)
	}
	return aggregated(ctx, d, src, func(st types.EntityStats) bool {
		p := float64(st.Profit)
		if p < q.MinProfit {
			return false
		}
		return q.MaxProfit == nil || p <= *q.MaxProfit
	})
}

func aggregateByROI(ctx context.Context, d query.Descriptor, src Sources) (*Result, error) {
	q, ok := d.(query.AggregateByROI)
	if !ok {
		return nil, fmt.Errorf("strategy: aggregate by roi got %T", d)
	}
	return aggregated(ctx, d, src, func(st types.EntityStats) bool {
		if st.RecordCount < q.MinRecordCount {
			return false
		}
		return q.MinROI == nil || st.ROI >= *q.MinROI
	})
}

func aggregated(ctx context.Context, d query.Descriptor, src Sources, keep func(types.EntityStats) bool) (*Result, error) {
	base := d.Base()
	table, cov, err := entityTable(ctx, base.Span, src)
	if err != nil {
		return nil, err
	}
	rows := make([]types.EntityStats, 0, len(table))
	for _, st := range table {
		if keep(st) {
			rows = append(rows, st)
		}
	}
	sortStable(rows, base.Sort.Desc, entityComparator(base.Sort.Field))

	res := newResult(ResultAggregatedEntities, d)
	res.Matched = len(rows)
	res.Entities = limit(rows, base.Limit)
	res.Summary = SummarizeEntities(res.Entities)
	annotate(res, cov)
	return res, nil
}

// entityTable prefers the pre-aggregated table for unbounded queries and
// aggregates loaded records otherwise.
func entityTable(ctx context.Context, span query.DateSpan, src Sources) ([]types.EntityStats, Coverage, error) {
	if span.Empty() && src.Entities != nil {
		table, err := src.Entities.LoadEntities(ctx)
		switch {
		case err == nil && len(table) > 0:
			return table, Coverage{Source: SourceTable}, nil
		case err == nil, errors.Is(err, ErrNoTable):
		case ctx.Err() != nil:
			return nil, Coverage{}, ctx.Err()
		default:
			logger.Warnf("[strategy] entity table unavailable, aggregating partitions: %v", err)
		}
	}
	batch, err := src.Records.LoadRecords(ctx, span)
	if err != nil {
		return nil, Coverage{}, err
	}
	return Aggregate(batch.Records), batch.Coverage, nil
}

func limit[T any](rows []T, n int) []T {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}
