package strategy

import (
	"cmp"
	"sort"
	"strings"

	"flipview/internal/query"
	"flipview/internal/types"
)

func sortStable[T any](rows []T, desc bool, compare func(a, b T) int) {
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i], rows[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func recordComparator(field string) func(a, b types.Record) int {
	switch field {
	case query.SortOpened:
		return func(a, b types.Record) int { return a.Opened.Compare(b.Opened) }
	case query.SortProfit:
		return func(a, b types.Record) int { return cmp.Compare(a.Profit, b.Profit) }
	case query.SortSpent:
		return func(a, b types.Record) int { return cmp.Compare(a.Spent, b.Spent) }
	case query.SortReceived:
		return func(a, b types.Record) int { return cmp.Compare(deref(a.Received), deref(b.Received)) }
	case query.SortQuantity:
		return func(a, b types.Record) int { return cmp.Compare(a.Quantity, b.Quantity) }
	case query.SortEntity:
		return func(a, b types.Record) int { return strings.Compare(strings.ToLower(a.Entity), strings.ToLower(b.Entity)) }
	default:
		return func(a, b types.Record) int { return cmp.Compare(a.ClosedUnix(), b.ClosedUnix()) }
	}
}

func entityComparator(field string) func(a, b types.EntityStats) int {
	switch field {
	case query.SortROI:
		return func(a, b types.EntityStats) int { return cmp.Compare(a.ROI, b.ROI) }
	case query.SortRecordCount:
		return func(a, b types.EntityStats) int { return cmp.Compare(a.RecordCount, b.RecordCount) }
	case query.SortAverageProfit:
		return func(a, b types.EntityStats) int { return cmp.Compare(a.AverageProfit, b.AverageProfit) }
	case query.SortSpent:
		return func(a, b types.EntityStats) int { return cmp.Compare(a.Spent, b.Spent) }
	case query.SortReceived:
		return func(a, b types.EntityStats) int { return cmp.Compare(a.Received, b.Received) }
	case query.SortQuantity:
		return func(a, b types.EntityStats) int { return cmp.Compare(a.Quantity, b.Quantity) }
	case query.SortEntity:
		return func(a, b types.EntityStats) int {
			return strings.Compare(strings.ToLower(a.Entity), strings.ToLower(b.Entity))
		}
	case query.SortLastClosed:
		return func(a, b types.EntityStats) int { return cmp.Compare(unixOrZero(a), unixOrZero(b)) }
	default:
		return func(a, b types.EntityStats) int { return cmp.Compare(a.Profit, b.Profit) }
	}
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func unixOrZero(st types.EntityStats) int64 {
	if st.LastClosed == nil {
		return 0
	}
	return st.LastClosed.UnixMilli()
}
