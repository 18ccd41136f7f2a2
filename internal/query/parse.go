package query

import (
	"math"
	"strconv"
	"strings"

	"flipview/internal/normalize"
)

const DefaultMinRecordCount = 5

// Canonical parameter names.
const (
	ParamEntityName     = "entityName"
	ParamDateFrom       = "dateFrom"
	ParamDateTo         = "dateTo"
	ParamMinProfit      = "minProfit"
	ParamMaxProfit      = "maxProfit"
	ParamMinROI         = "minROI"
	ParamMinRecordCount = "minRecordCount"
	ParamSortBy         = "sortBy"
	ParamOrder          = "order"
	ParamLimit          = "limit"
)

// paramAliases is keyed by the squashed spelling a caller may send.
var paramAliases = map[string]string{
	"entityname":     ParamEntityName,
	"entity":         ParamEntityName,
	"item":           ParamEntityName,
	"itemname":       ParamEntityName,
	"name":           ParamEntityName,
	"datefrom":       ParamDateFrom,
	"from":           ParamDateFrom,
	"startdate":      ParamDateFrom,
	"start":          ParamDateFrom,
	"dateto":         ParamDateTo,
	"to":             ParamDateTo,
	"enddate":        ParamDateTo,
	"end":            ParamDateTo,
	"minprofit":      ParamMinProfit,
	"maxprofit":      ParamMaxProfit,
	"minroi":         ParamMinROI,
	"minrecordcount": ParamMinRecordCount,
	"minflipcount":   ParamMinRecordCount,
	"minflips":       ParamMinRecordCount,
	"sortby":         ParamSortBy,
	"sort":           ParamSortBy,
	"order":          ParamOrder,
	"sortorder":      ParamOrder,
	"direction":      ParamOrder,
	"limit":          ParamLimit,
}

// Sort fields. Record queries accept the first group, entity tables the
// second; profit, spent, received, quantity and entity work for both.
const (
	SortClosed        = "closed"
	SortOpened        = "opened"
	SortProfit        = "profit"
	SortSpent         = "spent"
	SortReceived      = "received"
	SortQuantity      = "quantity"
	SortEntity        = "entity"
	SortROI           = "roi"
	SortRecordCount   = "recordCount"
	SortAverageProfit = "averageProfit"
	SortLastClosed    = "lastClosed"
)

var (
	recordSortFields = []string{SortClosed, SortOpened, SortProfit, SortSpent, SortReceived, SortQuantity, SortEntity}
	entitySortFields = []string{SortProfit, SortROI, SortRecordCount, SortAverageProfit, SortSpent, SortReceived, SortQuantity, SortEntity, SortLastClosed}
)

// Parser turns loosely typed parameters into a Descriptor.
type Parser struct {
	MinRecordCount int
	DefaultLimit   int
}

var defaultParser = Parser{MinRecordCount: DefaultMinRecordCount}

// Parse uses the built-in defaults.
func Parse(kind string, params map[string]string) (Descriptor, error) {
	return defaultParser.Parse(kind, params)
}

// Parse validates kind and params. Unparseable thresholds fall back to the
// permissive default of the field; structural problems such as an unknown
// sort field or an inverted profit range are reported as *Error.
func (p Parser) Parse(kind string, params map[string]string) (Descriptor, error) {
	k, ok := ParseKind(kind)
	if !ok {
		return nil, unknownKind(kind)
	}
	vals, err := canonicalParams(params)
	if err != nil {
		return nil, err
	}

	switch k {
	case KindItemFlips:
		common, err := p.common(vals, SortClosed, recordSortFields)
		if err != nil {
			return nil, err
		}
		return ItemFlips{Common: common, EntityName: vals[ParamEntityName]}, nil

	case KindAggregateByProfit:
		common, err := p.common(vals, SortProfit, entitySortFields)
		if err != nil {
			return nil, err
		}
		d := AggregateByProfit{Common: common}
		if v, ok := number(vals[ParamMinProfit]); ok {
			d.MinProfit = v
		}
		if v, ok := number(vals[ParamMaxProfit]); ok {
			d.MaxProfit = &v
		}
		if d.MaxProfit != nil && *d.MaxProfit < d.MinProfit {
			return nil, invalidParam(ParamMaxProfit, "maxProfit %v is below minProfit %v", *d.MaxProfit, d.MinProfit)
		}
		return d, nil

	default:
		common, err := p.common(vals, SortROI, entitySortFields)
		if err != nil {
			return nil, err
		}
		d := AggregateByROI{Common: common, MinRecordCount: p.minRecordCount()}
		if v, ok := number(vals[ParamMinROI]); ok {
			d.MinROI = &v
		}
		if v, ok := number(vals[ParamMinRecordCount]); ok {
			if v < 0 {
				return nil, invalidParam(ParamMinRecordCount, "must not be negative")
			}
			d.MinRecordCount = int(math.Ceil(v))
		}
		return d, nil
	}
}

func (p Parser) minRecordCount() int {
	if p.MinRecordCount > 0 {
		return p.MinRecordCount
	}
	return DefaultMinRecordCount
}

func (p Parser) common(vals map[string]string, defaultSort string, allowed []string) (Common, error) {
	c := Common{
		Span:  DateSpan{From: vals[ParamDateFrom], To: vals[ParamDateTo]},
		Sort:  Sort{Field: defaultSort, Desc: true},
		Limit: p.DefaultLimit,
	}
	if raw := vals[ParamSortBy]; raw != "" {
		field, ok := matchField(raw, allowed)
		if !ok {
			return Common{}, invalidParam(ParamSortBy, "unsupported sort field %q (want one of %s)", raw, strings.Join(allowed, ", "))
		}
		c.Sort.Field = field
	}
	switch strings.ToLower(vals[ParamOrder]) {
	case "", "desc", "descending":
	case "asc", "ascending":
		c.Sort.Desc = false
	default:
		return Common{}, invalidParam(ParamOrder, "order must be asc or desc, got %q", vals[ParamOrder])
	}
	if raw := vals[ParamLimit]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Common{}, invalidParam(ParamLimit, "limit must be a non-negative integer, got %q", raw)
		}
		c.Limit = n
	}
	return c, nil
}

func canonicalParams(params map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(params))
	for name, raw := range params {
		canon, ok := paramAliases[squash(name)]
		if !ok {
			continue
		}
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if prev, dup := out[canon]; dup && prev != val {
			return nil, invalidParam(canon, "given more than once with different values")
		}
		out[canon] = val
	}
	return out, nil
}

func matchField(raw string, allowed []string) (string, bool) {
	want := squash(raw)
	for _, f := range allowed {
		if squash(f) == want {
			return f, true
		}
	}
	return "", false
}

func number(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	return normalize.Shorthand(raw)
}
