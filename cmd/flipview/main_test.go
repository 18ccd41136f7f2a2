package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"flipview/internal/query"
	"flipview/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"entityName=Dragon bones", "minProfit=1m", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"entityName": "Dragon bones", "minProfit": "1m", "note": "a=b"}, params)

	_, err = parseParams([]string{"oops"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=1"})
	assert.Error(t, err)
}

func TestWriteResultFormats(t *testing.T) {
	res := &strategy.Result{
		ID:         "r1",
		Kind:       strategy.ResultRawRecords,
		Query:      query.KindItemFlips,
		Descriptor: query.ItemFlips{EntityName: "X"},
		Summary:    strategy.SummarizeRecords(nil),
	}
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, res, "json"))
	assert.Contains(t, buf.String(), `"kind": "RAW_RECORDS"`)

	buf.Reset()
	require.NoError(t, writeResult(&buf, res, "yaml"))
	assert.Contains(t, buf.String(), "kind: RAW_RECORDS")
	assert.Contains(t, buf.String(), "entityName: X")

	assert.Error(t, writeResult(&buf, res, "xml"))
}

func TestQueryCommandAgainstFSStore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024", "01"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.json"), []byte(`{"days":[{"date":"2024-01-15"}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024", "01", "15.csv"),
		[]byte("entity,spent,profit,closed,status\nX,100,50,2024-01-15 10:00:00,FINISHED\n"), 0o644))
	t.Setenv("FLIPVIEW_STORE_BACKEND", "fs")
	t.Setenv("FLIPVIEW_STORE_ROOT", root)
	t.Setenv("FLIPVIEW_CONFIG", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"query", "item_flips", "entityName=X", "--output", "yaml"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "entity: X")
	assert.Contains(t, out.String(), "totalProfit: 50")

	out.Reset()
	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"partitions"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "01-15-2024\n", out.String())
}
