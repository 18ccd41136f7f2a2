package strategy

import (
	"fmt"
	"strings"
	"time"

	"flipview/internal/query"
	"flipview/internal/types"

	"github.com/shopspring/decimal"
)

// ResultKind tells the presentation layer which row type a Result carries.
type ResultKind string

const (
	ResultRawRecords         ResultKind = "RAW_RECORDS"
	ResultAggregatedEntities ResultKind = "AGGREGATED_ENTITIES"
)

// Summary is derived from the returned rows only.
type Summary struct {
	Count          int      `json:"count"`
	TotalProfit    *int64   `json:"totalProfit,omitempty"`
	AverageProfit  *float64 `json:"averageProfit,omitempty"`
	CombinedProfit *int64   `json:"combinedProfit,omitempty"`
}

// Coverage describes where the rows came from and which partitions could not
// be read.
type Coverage struct {
	Source    string   `json:"source"`
	Requested int      `json:"requested"`
	Loaded    int      `json:"loaded"`
	Missing   int      `json:"missing"`
	Degraded  []string `json:"degraded,omitempty"`
}

const (
	SourcePartitions = "partitions"
	SourceTable      = "table"
)

func (c Coverage) Partial() bool { return len(c.Degraded) > 0 }

// Unavailable reports that partitions were attempted and none loaded.
func (c Coverage) Unavailable() bool {
	return c.Source == SourcePartitions && c.Loaded == 0 && len(c.Degraded) > 0
}

// Result is the envelope handed to the presentation layer.
type Result struct {
	ID          string              `json:"id"`
	Kind        ResultKind          `json:"kind"`
	Query       query.Kind          `json:"query"`
	Descriptor  query.Descriptor    `json:"descriptor"`
	Records     []types.Record      `json:"records,omitempty"`
	Entities    []types.EntityStats `json:"entities,omitempty"`
	Matched     int                 `json:"matched"`
	Summary     Summary             `json:"summary"`
	Coverage    Coverage            `json:"coverage"`
	Partial     bool                `json:"partial"`
	Notes       []string            `json:"notes,omitempty"`
	Reason      string              `json:"reason,omitempty"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// Rows returns the number of rows regardless of kind.
func (r *Result) Rows() int {
	if r.Kind == ResultAggregatedEntities {
		return len(r.Entities)
	}
	return len(r.Records)
}

// SummarizeRecords returns count, total profit and average profit.
func SummarizeRecords(records []types.Record) Summary {
	var total int64
	for _, rec := range records {
		total += rec.Profit
	}
	avg := 0.0
	if len(records) > 0 {
		avg, _ = decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(len(records)))).Round(2).Float64()
	}
	return Summary{Count: len(records), TotalProfit: &total, AverageProfit: &avg}
}

// SummarizeEntities returns count and combined profit.
func SummarizeEntities(entities []types.EntityStats) Summary {
	var combined int64
	for _, e := range entities {
		combined += e.Profit
	}
	return Summary{Count: len(entities), CombinedProfit: &combined}
}

func annotate(res *Result, cov Coverage) {
	res.Coverage = cov
	res.Partial = cov.Partial()
	if cov.Missing > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("%d of %d days have no data", cov.Missing, cov.Requested))
	}
	if cov.Partial() {
		res.Notes = append(res.Notes, fmt.Sprintf("%d partitions unavailable: %s", len(cov.Degraded), strings.Join(cov.Degraded, ", ")))
	}
	switch {
	case cov.Unavailable():
		res.Reason = "no partition in range could be loaded"
	case cov.Source == SourcePartitions && cov.Requested == 0:
		res.Reason = "no partitions in range"
	case cov.Source == SourcePartitions && cov.Loaded == 0:
		res.Reason = "no data for the requested dates"
	}
}
