package engine

import (
	"errors"
	"strings"

	"flipview/internal/normalize"
	"flipview/internal/partition"
	"flipview/internal/strategy"
	"flipview/internal/types"

	"github.com/tidwall/gjson"
)

var (
	itemEntityFields   = []string{"entity", "name", "item", "itemName", "item_name"}
	itemCountFields    = []string{"recordCount", "flips", "flipCount", "flip_count", "count"}
	itemQuantityFields = []string{"quantity", "qty", "totalQuantity"}
	itemSpentFields    = []string{"spent", "cost", "totalSpent", "total_spent"}
	itemReceivedFields = []string{"received", "revenue", "totalReceived", "total_received"}
	itemProfitFields   = []string{"profit", "totalProfit", "total_profit"}
	itemROIFields      = []string{"roi", "ROI"}
	itemLastFields     = []string{"lastClosed", "lastFlip", "last_flip", "closed"}
)

// ParseEntityTable reads {"items":[...]} or a bare array of per-entity rows.
// Field names follow the aliases above; numeric cells go through the
// normalizer. ROI and average profit are derived when missing.
func ParseEntityTable(body []byte) ([]types.EntityStats, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("entity table is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	items := doc
	if doc.IsObject() {
		items = doc.Get("items")
	}
	if !items.IsArray() {
		return nil, errors.New("entity table has no items array")
	}
	var out []types.EntityStats
	items.ForEach(func(_, row gjson.Result) bool {
		if !row.IsObject() {
			return true
		}
		name := strings.TrimSpace(firstOf(row, itemEntityFields).String())
		if name == "" {
			return true
		}
		st := types.EntityStats{
			Entity:      name,
			RecordCount: int(intOf(row, itemCountFields)),
			Quantity:    intOf(row, itemQuantityFields),
			Spent:       intOf(row, itemSpentFields),
			Received:    intOf(row, itemReceivedFields),
			Profit:      intOf(row, itemProfitFields),
		}
		strategy.FinishStats(&st)
		if roi := firstOf(row, itemROIFields); roi.Exists() {
			st.ROI = normalize.Number(roi.Value())
		}
		if last := firstOf(row, itemLastFields); last.Exists() {
			if t, ok := partition.ParseTimestamp(last.String()); ok {
				st.LastClosed = &t
			}
		}
		out = append(out, st)
		return true
	})
	return out, nil
}

func firstOf(row gjson.Result, names []string) gjson.Result {
	for _, n := range names {
		if v := row.Get(n); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func intOf(row gjson.Result, names []string) int64 {
	v := firstOf(row, names)
	if !v.Exists() {
		return 0
	}
	return normalize.Int(v.Value())
}
