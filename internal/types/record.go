package types

import (
	"strings"
	"time"
)

// Status is the lifecycle tag of a flip.
type Status string

const (
	StatusFinished  Status = "FINISHED"
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

var statusAliases = map[string]Status{
	"finished":  StatusFinished,
	"complete":  StatusFinished,
	"completed": StatusFinished,
	"sold":      StatusFinished,
	"done":      StatusFinished,
	"active":    StatusActive,
	"open":      StatusActive,
	"buying":    StatusActive,
	"bought":    StatusActive,
	"selling":   StatusActive,
	"cancelled": StatusCancelled,
	"canceled":  StatusCancelled,
	"aborted":   StatusCancelled,
}

// ParseStatus maps a source status label onto a canonical Status. Unknown
// labels resolve to FINISHED when the flip has closed and ACTIVE otherwise.
func ParseStatus(raw string, closed bool) Status {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return st
	}
	if closed {
		return StatusFinished
	}
	return StatusActive
}

// Record is one flip as read from a daily partition.
type Record struct {
	ID        string     `json:"id"`
	Entity    string     `json:"entity"`
	Quantity  int64      `json:"quantity"`
	Spent     int64      `json:"spent"`
	Received  *int64     `json:"received,omitempty"`
	Tax       *int64     `json:"tax,omitempty"`
	Profit    int64      `json:"profit"`
	Opened    time.Time  `json:"opened"`
	Closed    *time.Time `json:"closed,omitempty"`
	Status    Status     `json:"status"`
	Partition string     `json:"partition"`
}

// IsClosed reports whether the flip has a close timestamp.
func (r Record) IsClosed() bool {
	return r.Closed != nil && !r.Closed.IsZero()
}

// ClosedUnix returns the close time in unix milliseconds, or 0 when open.
func (r Record) ClosedUnix() int64 {
	if !r.IsClosed() {
		return 0
	}
	return r.Closed.UnixMilli()
}
