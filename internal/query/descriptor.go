package query

import (
	"strings"
)

// Kind names one of the supported queries.
type Kind string

const (
	KindItemFlips         Kind = "ITEM_FLIPS"
	KindAggregateByProfit Kind = "AGGREGATE_BY_PROFIT"
	KindAggregateByROI    Kind = "AGGREGATE_BY_ROI"
)

// Kinds lists the supported kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindItemFlips, KindAggregateByProfit, KindAggregateByROI}
}

// ParseKind matches kind names case-insensitively, ignoring separators, so
// "item_flips", "itemFlips" and "ITEM-FLIPS" all resolve.
func ParseKind(raw string) (Kind, bool) {
	want := squash(raw)
	for _, k := range Kinds() {
		if squash(string(k)) == want {
			return k, true
		}
	}
	return "", false
}

// DateSpan bounds a query by day. Values are kept as the caller sent them and
// interpreted by the engine.
type DateSpan struct {
	From string `json:"dateFrom,omitempty"`
	To   string `json:"dateTo,omitempty"`
}

func (s DateSpan) Empty() bool { return s.From == "" && s.To == "" }

// Sort selects the ordering of result rows.
type Sort struct {
	Field string `json:"sortBy"`
	Desc  bool   `json:"desc"`
}

// Common holds the options every kind accepts.
type Common struct {
	Span  DateSpan `json:"span"`
	Sort  Sort     `json:"sort"`
	Limit int      `json:"limit,omitempty"`
}

func (c Common) Base() Common { return c }

// Descriptor is a parsed, validated query. The concrete type is one of
// ItemFlips, AggregateByProfit or AggregateByROI.
type Descriptor interface {
	Kind() Kind
	Base() Common
}

type ItemFlips struct {
	Common
	EntityName string `json:"entityName,omitempty"`
}

func (ItemFlips) Kind() Kind { return KindItemFlips }

type AggregateByProfit struct {
	Common
	MinProfit float64  `json:"minProfit"`
	MaxProfit *float64 `json:"maxProfit,omitempty"`
}

func (AggregateByProfit) Kind() Kind { return KindAggregateByProfit }

type AggregateByROI struct {
	Common
	MinROI         *float64 `json:"minROI,omitempty"`
	MinRecordCount int      `json:"minRecordCount"`
}

func (AggregateByROI) Kind() Kind { return KindAggregateByROI }

func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
