package partition

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"flipview/internal/normalize"
	"flipview/internal/types"

	"github.com/google/uuid"
)

type field int

const (
	fieldEntity field = iota
	fieldQuantity
	fieldSpent
	fieldReceived
	fieldProfit
	fieldTax
	fieldOpened
	fieldClosed
	fieldStatus
	fieldID
	fieldCount
)

// headerAliases maps normalized header names (lowercase, alphanumerics only)
// onto canonical fields.
var headerAliases = map[string]field{
	"entity": fieldEntity, "item": fieldEntity, "itemname": fieldEntity, "name": fieldEntity,
	"quantity": fieldQuantity, "qty": fieldQuantity,
	"spent": fieldSpent, "amountspent": fieldSpent, "cost": fieldSpent, "totalcost": fieldSpent, "spentgp": fieldSpent,
	"received": fieldReceived, "amountreceived": fieldReceived, "revenue": fieldReceived, "receivedgp": fieldReceived, "soldfor": fieldReceived,
	"profit": fieldProfit, "realizedprofit": fieldProfit, "pnl": fieldProfit,
	"tax": fieldTax, "taxpaid": fieldTax,
	"opened": fieldOpened, "openedtime": fieldOpened, "opentime": fieldOpened, "openedat": fieldOpened, "buytime": fieldOpened, "start": fieldOpened,
	"closed": fieldClosed, "closedtime": fieldClosed, "closetime": fieldClosed, "closedat": fieldClosed, "selltime": fieldClosed, "end": fieldClosed,
	"status": fieldStatus, "state": fieldStatus,
	"id": fieldID, "hash": fieldID, "uuid": fieldID, "flipid": fieldID,
}

// numericFields is the allow-list of columns run through the normalizer.
var numericFields = map[field]bool{
	fieldQuantity: true,
	fieldSpent:    true,
	fieldReceived: true,
	fieldProfit:   true,
	fieldTax:      true,
}

var recordNamespace = uuid.MustParse("5b1f6c1e-8f0e-4a53-9a0c-6f1d2f3c0b7a")

var errNoEntityColumn = errors.New("header has no entity column")

// DecodeRows parses a row file (header line + comma separated rows) into
// records stamped with key as provenance.
func DecodeRows(key Key, body []byte) ([]types.Record, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = false

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := mapHeader(header)
	if columns[fieldEntity] < 0 {
		return nil, errNoEntityColumn
	}

	var out []types.Record
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blankRow(row) {
			continue
		}
		out = append(out, decodeRow(key, columns, row))
	}
	return out, nil
}

func mapHeader(header []string) [fieldCount]int {
	var cols [fieldCount]int
	for i := range cols {
		cols[i] = -1
	}
	for i, name := range header {
		f, ok := headerAliases[normalizeHeader(name)]
		if ok && cols[f] < 0 {
			cols[f] = i
		}
	}
	return cols
}

func normalizeHeader(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func decodeRow(key Key, cols [fieldCount]int, row []string) types.Record {
	cell := func(f field) string {
		idx := cols[f]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	optional := func(f field) *int64 {
		raw := cell(f)
		if raw == "" || !numericFields[f] {
			return nil
		}
		v := normalize.Int(raw)
		return &v
	}

	rec := types.Record{
		ID:        cell(fieldID),
		Entity:    cell(fieldEntity),
		Quantity:  normalize.Int(cell(fieldQuantity)),
		Spent:     normalize.Int(cell(fieldSpent)),
		Received:  optional(fieldReceived),
		Tax:       optional(fieldTax),
		Partition: key.String(),
	}
	if rec.Quantity < 0 {
		rec.Quantity = 0
	}
	if profit := optional(fieldProfit); profit != nil {
		rec.Profit = *profit
	} else if rec.Received != nil {
		rec.Profit = *rec.Received - rec.Spent
		if rec.Tax != nil {
			rec.Profit -= *rec.Tax
		}
	}
	if opened, ok := ParseTimestamp(cell(fieldOpened)); ok {
		rec.Opened = opened
	}
	if closed, ok := ParseTimestamp(cell(fieldClosed)); ok {
		rec.Closed = &closed
	}
	rec.Status = types.ParseStatus(cell(fieldStatus), rec.IsClosed())
	if rec.ID == "" {
		rec.ID = uuid.NewSHA1(recordNamespace, []byte(key.String()+"|"+strings.Join(row, ","))).String()
	}
	return rec
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the supported layouts or unix seconds/milliseconds.
func ParseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, false
		}
		if n >= 1e11 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
