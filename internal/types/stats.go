package types

import "time"

// EntityStats aggregates every finished flip of one entity.
type EntityStats struct {
	Entity        string     `json:"entity"`
	RecordCount   int        `json:"recordCount"`
	Quantity      int64      `json:"quantity"`
	Spent         int64      `json:"spent"`
	Received      int64      `json:"received"`
	Profit        int64      `json:"profit"`
	ROI           float64    `json:"roi"`
	AverageProfit float64    `json:"averageProfit"`
	LastClosed    *time.Time `json:"lastClosed,omitempty"`
}
