package engine

import (
	"context"
	"time"

	"flipview/internal/logger"
	"flipview/internal/partition"
	"flipview/internal/query"
)

// ResolveSpan turns a date span into partition keys, most recent first.
// Index keys are filtered by the span; without an index the calendar days of
// the span are enumerated. A failing index fetch falls back to the calendar.
func (e *Engine) ResolveSpan(ctx context.Context, span query.DateSpan) ([]partition.Key, error) {
	from, to, err := parseSpan(span)
	if err != nil {
		return nil, err
	}
	index, hasIndex, err := e.indexSnapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warnf("[engine] partition index unavailable, enumerating calendar days: %v", err)
	}

	if hasIndex {
		var keys []partition.Key
		for _, k := range index {
			t := k.Time()
			if (!from.IsZero() && t.Before(from)) || (!to.IsZero() && t.After(to)) {
				continue
			}
			keys = append(keys, k)
		}
		return keys, nil
	}

	if to.IsZero() {
		to = e.now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -(e.opts.LookbackDays - 1))
	}
	if from.After(to) {
		return nil, nil
	}
	keys := partition.Span(from, to, e.opts.MaxSpanDays)
	return keys, nil
}

func parseSpan(span query.DateSpan) (from, to time.Time, err error) {
	if span.From != "" {
		if from, err = partition.ParseDate(span.From); err != nil {
			return time.Time{}, time.Time{}, &query.Error{Code: query.CodeInvalidParameter, Param: query.ParamDateFrom, Message: err.Error()}
		}
	}
	if span.To != "" {
		if to, err = partition.ParseDate(span.To); err != nil {
			return time.Time{}, time.Time{}, &query.Error{Code: query.CodeInvalidParameter, Param: query.ParamDateTo, Message: err.Error()}
		}
	}
	return from, to, nil
}
