package apihttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"flipview/internal/engine"
	"flipview/internal/loader"
	"flipview/internal/partition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, body string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "index.json", `{"days":[{"date":"2024-01-14"},{"date":"2024-01-15"}]}`)
	writeFile(t, root, "2024/01/15.csv", "item,qty,cost,revenue,profit,sell time,state\nX,1,100,150,50,2024-01-15 12:00:00,sold\n")
	writeFile(t, root, "2024/01/14.csv", "item,qty,cost,revenue,profit,sell time,state\nY,1,100,90,-10,2024-01-14 12:00:00,sold\n")

	store, err := partition.NewFSStore(root)
	require.NoError(t, err)
	fetcher := partition.NewFetcher(store, partition.Layout{})
	ld := loader.New(fetcher, loader.NewNegativeCache(0), loader.Options{PoolSize: 2, RetryDelay: time.Millisecond})
	eng := engine.New(fetcher, ld, engine.Options{IndexPath: "index.json"})

	srv, err := NewServer(Config{Engine: eng, RequestTimeout: 5 * time.Second})
	require.NoError(t, err)
	return srv, root
}

func do(t *testing.T, srv *Server, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, body := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestQueryGet(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, body := do(t, srv, http.MethodGet, "/api/query/item_flips?itemName=X&from=01-15-2024&to=01-15-2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	result := body["result"].(map[string]any)
	assert.Equal(t, "RAW_RECORDS", result["kind"])
	records := result["records"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, "X", records[0].(map[string]any)["entity"])
	assert.EqualValues(t, 50, result["summary"].(map[string]any)["totalProfit"])
}

func TestQueryPostWithNumericParams(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, body := do(t, srv, http.MethodPost, "/api/query", map[string]any{
		"kind":   "AGGREGATE_BY_PROFIT",
		"params": map[string]any{"minProfit": 0, "dateFrom": "2024-01-14"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := body["result"].(map[string]any)
	entities := result["entities"].([]any)
	require.Len(t, entities, 1)
	assert.Equal(t, "X", entities[0].(map[string]any)["entity"])
}

func TestValidationErrorIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, body := do(t, srv, http.MethodGet, "/api/query/AGGREGATE_BY_PROFIT?minProfit=2m&maxProfit=1m", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", body["code"])
	assert.Equal(t, "maxProfit", body["param"])

	rec, body = do(t, srv, http.MethodGet, "/api/query/NOPE", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_QUERY_KIND", body["code"])
}

func TestNoDataAvailableIsServiceUnavailable(t *testing.T) {
	srv, root := newTestServer(t)
	writeFile(t, root, "2024/01/15.csv", "<html>maintenance</html>")
	writeFile(t, root, "2024/01/14.csv", "<html>maintenance</html>")
	rec, body := do(t, srv, http.MethodGet, "/api/query/ITEM_FLIPS", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	result := body["result"].(map[string]any)
	assert.NotEmpty(t, result["reason"])
}

func TestPartitionsAndRefresh(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, body := do(t, srv, http.MethodGet, "/api/partitions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"01-15-2024", "01-14-2024"}, body["partitions"])
	assert.Equal(t, true, body["indexed"])

	rec, body = do(t, srv, http.MethodPost, "/api/partitions/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["partitions"], 2)
}

func TestBrowseFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := do(t, srv, http.MethodPost, "/api/browse/more", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body := do(t, srv, http.MethodPost, "/api/browse", map[string]string{"dateFrom": "01-14-2024", "dateTo": "01-15-2024"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["progress"].(map[string]any)["totalDays"])

	rec, body = do(t, srv, http.MethodPost, "/api/browse/all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["progress"].(map[string]any)["exhausted"])

	rec, body = do(t, srv, http.MethodGet, "/api/browse/records?offset=1&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := body["page"].(map[string]any)
	assert.EqualValues(t, 2, page["total"])
	assert.Len(t, page["records"], 1)

	rec, _ = do(t, srv, http.MethodGet, "/api/browse/records?offset=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, srv, http.MethodPost, "/api/browse/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["progress"].(map[string]any)["loadedRecords"])

	rec, body = do(t, srv, http.MethodGet, "/api/browse/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["progress"].(map[string]any)["exhausted"])
}
