package strategy

import (
	"flipview/internal/types"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Aggregate builds one EntityStats per entity from finished records, in order
// of first appearance.
func Aggregate(records []types.Record) []types.EntityStats {
	index := make(map[string]int)
	var out []types.EntityStats
	for _, rec := range records {
		if rec.Status != types.StatusFinished || rec.Entity == "" {
			continue
		}
		i, ok := index[rec.Entity]
		if !ok {
			i = len(out)
			index[rec.Entity] = i
			out = append(out, types.EntityStats{Entity: rec.Entity})
		}
		st := &out[i]
		st.RecordCount++
		st.Quantity += rec.Quantity
		st.Spent += rec.Spent
		if rec.Received != nil {
			st.Received += *rec.Received
		}
		st.Profit += rec.Profit
		if rec.IsClosed() && (st.LastClosed == nil || rec.Closed.After(*st.LastClosed)) {
			closed := *rec.Closed
			st.LastClosed = &closed
		}
	}
	for i := range out {
		FinishStats(&out[i])
	}
	return out
}

// FinishStats fills the derived ROI and AverageProfit fields.
func FinishStats(st *types.EntityStats) {
	st.ROI = ROI(st.Profit, st.Spent)
	st.AverageProfit = 0
	if st.RecordCount > 0 {
		st.AverageProfit, _ = decimal.NewFromInt(st.Profit).Div(decimal.NewFromInt(int64(st.RecordCount))).Round(2).Float64()
	}
}

// ROI is profit over spent in percent, rounded to four decimals. It is zero
// when nothing was spent.
func ROI(profit, spent int64) float64 {
	if spent == 0 {
		return 0
	}
	roi, _ := decimal.NewFromInt(profit).Mul(hundred).Div(decimal.NewFromInt(spent)).Round(4).Float64()
	return roi
}
