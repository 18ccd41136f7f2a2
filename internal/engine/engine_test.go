package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"flipview/internal/loader"
	"flipview/internal/partition"
	"flipview/internal/query"
	"flipview/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "entity,quantity,spent,received,profit,closed,status\n"

type fixture struct {
	t    *testing.T
	root string
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, root: t.TempDir()}
}

func (f *fixture) write(name, body string) {
	f.t.Helper()
	full := filepath.Join(f.root, filepath.FromSlash(name))
	require.NoError(f.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(f.t, os.WriteFile(full, []byte(body), 0o644))
}

func (f *fixture) day(key partition.Key, rows string) {
	f.t.Helper()
	p, err := partition.Layout{}.Path(key)
	require.NoError(f.t, err)
	f.write(p, header+rows)
}

func (f *fixture) engine(opts Options) *Engine {
	f.t.Helper()
	store, err := partition.NewFSStore(f.root)
	require.NoError(f.t, err)
	fetcher := partition.NewFetcher(store, partition.Layout{})
	ld := loader.New(fetcher, loader.NewNegativeCache(0), loader.Options{PoolSize: 4, MaxRetries: 1, RetryDelay: time.Millisecond})
	if opts.IndexPath == "" {
		opts.IndexPath = "index.json"
	}
	return New(fetcher, ld, opts)
}

func ids(res *strategy.Result) []string {
	var out []string
	for _, r := range res.Records {
		out = append(out, r.Partition+"/"+r.Entity)
	}
	return out
}

func TestExecuteHappyPath(t *testing.T) {
	f := newFixture(t)
	f.write("index.json", `{"days":[{"date":"2024-01-15"}]}`)
	f.day("01-15-2024", "X,1,100,150,50,2024-01-15 12:00:00,FINISHED\nY,2,10,5,-5,2024-01-15 13:00:00,FINISHED\n")

	res, err := f.engine(Options{}).Execute(context.Background(), "ITEM_FLIPS",
		map[string]string{"entityName": "X", "dateFrom": "01-15-2024", "dateTo": "01-15-2024"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "X", rec.Entity)
	assert.Equal(t, int64(50), rec.Profit)
	assert.Equal(t, "01-15-2024", rec.Partition)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(50), *res.Summary.TotalProfit)
	assert.False(t, res.Partial)
	assert.Empty(t, res.Notes)
}

func TestMissingMiddlePartitionDegradesGracefully(t *testing.T) {
	f := newFixture(t)
	f.write("index.json", `{"days":[{"date":"2024-01-13"},{"date":"2024-01-14"},{"date":"2024-01-15"}]}`)
	f.day("01-15-2024", "A,1,10,20,10,2024-01-15 10:00:00,FINISHED\n")
	f.day("01-13-2024", "B,1,10,20,10,2024-01-13 10:00:00,FINISHED\n")

	e := f.engine(Options{})
	res, err := e.Execute(context.Background(), "ITEM_FLIPS", map[string]string{"dateFrom": "2024-01-13", "dateTo": "2024-01-15"})
	require.NoError(t, err)
	assert.Equal(t, []string{"01-15-2024/A", "01-13-2024/B"}, ids(res))
	assert.Equal(t, 3, res.Coverage.Requested)
	assert.Equal(t, 2, res.Coverage.Loaded)
	assert.Equal(t, 1, res.Coverage.Missing)
	assert.False(t, res.Partial)
	assert.True(t, e.Loader().Cache().Contains("01-14-2024"))
}

func TestMarkupPartitionIsReportedAsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.write("index.json", `{"days":[{"date":"2024-01-14"},{"date":"2024-01-15"}]}`)
	f.day("01-15-2024", "A,1,10,20,10,2024-01-15 10:00:00,FINISHED\n")
	f.write("2024/01/14.csv", "<!doctype html><html>rate limited</html>")

	res, err := f.engine(Options{}).Execute(context.Background(), "ITEM_FLIPS", nil)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.True(t, res.Partial)
	assert.Equal(t, []string{"01-14-2024"}, res.Coverage.Degraded)
	require.NotEmpty(t, res.Notes)
}

func TestNothingLoadableReturnsErrNoDataAvailable(t *testing.T) {
	f := newFixture(t)
	f.write("index.json", `{"days":[{"date":"2024-01-15"}]}`)
	f.write("2024/01/15.csv", "<html></html>")

	res, err := f.engine(Options{}).Execute(context.Background(), "AGGREGATE_BY_PROFIT", map[string]string{"dateFrom": "01-15-2024"})
	assert.ErrorIs(t, err, ErrNoDataAvailable)
	require.NotNil(t, res)
	assert.Empty(t, res.Entities)
	assert.NotEmpty(t, res.Reason)
}

func TestAllMissingIsEmptyWithoutError(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine(Options{}).Execute(context.Background(), "ITEM_FLIPS",
		map[string]string{"dateFrom": "01-01-2024", "dateTo": "01-03-2024"})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 3, res.Coverage.Missing)
	assert.NotEmpty(t, res.Reason)
}

func TestCalendarEnumerationWithoutIndex(t *testing.T) {
	f := newFixture(t)
	f.day("01-14-2024", "A,1,10,20,10,2024-01-14 10:00:00,FINISHED\n")
	e := f.engine(Options{})

	keys, err := e.ResolveSpan(context.Background(), query.DateSpan{From: "01-13-2024", To: "01-15-2024"})
	require.NoError(t, err)
	assert.Equal(t, []partition.Key{"01-15-2024", "01-14-2024", "01-13-2024"}, keys)

	e.now = func() time.Time { return time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC) }
	keys, err = e.ResolveSpan(context.Background(), query.DateSpan{})
	require.NoError(t, err)
	assert.Len(t, keys, defaultLookbackDays)
	assert.Equal(t, partition.Key("01-15-2024"), keys[0])

	keys, err = e.ResolveSpan(context.Background(), query.DateSpan{From: "01-15-2024", To: "01-10-2024"})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestResolveSpanFiltersIndex(t *testing.T) {
	f := newFixture(t)
	f.write("index.json", `{"days":[{"date":"2024-01-01"},{"date":"2024-01-05"},{"date":"2024-01-09"}]}`)
	e := f.engine(Options{})

	keys, err := e.ResolveSpan(context.Background(), query.DateSpan{From: "01-02-2024"})
	require.NoError(t, err)
	assert.Equal(t, []partition.Key{"01-09-2024", "01-05-2024"}, keys)

	keys, err = e.ResolveSpan(context.Background(), query.DateSpan{})
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestValidationErrors(t *testing.T) {
	e := newFixture(t).engine(Options{})
	_, err := e.Execute(context.Background(), "BEST_ITEMS", nil)
	var qerr *query.Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, query.CodeUnknownKind, qerr.Code)

	_, err = e.Execute(context.Background(), "ITEM_FLIPS", map[string]string{"dateFrom": "next tuesday"})
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, query.CodeInvalidParameter, qerr.Code)
	assert.Equal(t, query.ParamDateFrom, qerr.Param)
}

func TestUnboundedAggregateReadsEntityTable(t *testing.T) {
	f := newFixture(t)
	f.write("items.json", `{"items":[
		{"name":"A","flips":12,"spent":"4,000,000","profit":2000000},
		{"name":"B","flips":3,"spent":100,"profit":"999,999"}
	]}`)
	res, err := f.engine(Options{ItemsPath: "items.json"}).Execute(context.Background(), "AGGREGATE_BY_PROFIT", map[string]string{"minProfit": "1m"})
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "A", res.Entities[0].Entity)
	assert.Equal(t, 50.0, res.Entities[0].ROI)
	assert.Equal(t, strategy.SourceTable, res.Coverage.Source)
}

func TestRefreshIndexForgetsMissingPartitions(t *testing.T) {
	f := newFixture(t)
	f.write("index.json", `{"days":[{"date":"2024-01-15"},{"date":"2024-01-16"}]}`)
	f.day("01-15-2024", "A,1,10,20,10,2024-01-15 10:00:00,FINISHED\n")
	e := f.engine(Options{})

	res, err := e.Execute(context.Background(), "ITEM_FLIPS", nil)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.True(t, e.Loader().Cache().Contains("01-16-2024"))

	f.day("01-16-2024", "B,1,10,20,10,2024-01-16 10:00:00,FINISHED\n")
	res, err = e.Execute(context.Background(), "ITEM_FLIPS", nil)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1, "cached not-found partitions are not refetched")

	keys, err := e.RefreshIndex(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	res, err = e.Execute(context.Background(), "ITEM_FLIPS", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"01-16-2024/B", "01-15-2024/A"}, ids(res))
}

func TestBrowserPaginates(t *testing.T) {
	f := newFixture(t)
	for d := 1; d <= 5; d++ {
		k := partition.KeyFromTime(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC))
		f.day(k, "A,1,10,20,10,,FINISHED\nB,1,10,20,10,,FINISHED\n")
	}
	e := f.engine(Options{})
	e.opts.Accumulator.PageSize = 2
	e.browser = newBrowser(e)
	b := e.Browser()

	_, err := b.More(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	p, err := b.Open(context.Background(), query.DateSpan{From: "01-01-2024", To: "01-05-2024"})
	require.NoError(t, err)
	assert.Equal(t, 5, p.TotalDays)

	p, err = b.More(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.LoadedDays)
	page := b.Page(1, 2)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, "01-05-2024", page.Records[0].Partition)

	p, err = b.All(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Exhausted)
	assert.Equal(t, 10, p.LoadedRecords)
	assert.Len(t, b.Page(8, 0).Records, 2)
	assert.Empty(t, b.Page(50, 5).Records)

	b.Reset()
	assert.Zero(t, b.Progress().LoadedRecords)
}
