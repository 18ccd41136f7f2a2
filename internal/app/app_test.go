package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"flipview/internal/config"
	"flipview/internal/partition"
	"flipview/internal/pkg/circuit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	t.Setenv("FLIPVIEW_STORE_BACKEND", "fs")
	t.Setenv("FLIPVIEW_STORE_ROOT", root)
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestBuildAndQueryWithFSStore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024", "01"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.json"), []byte(`{"days":[{"date":"2024-01-15"}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024", "01", "15.csv"),
		[]byte("entity,spent,profit,closed,status\nX,100,50,2024-01-15 10:00:00,FINISHED\n"), 0o644))

	a, err := NewApp(testConfig(t, root), WithoutHTTP())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.http)

	res, err := a.Engine().Execute(context.Background(), "ITEM_FLIPS", map[string]string{"entityName": "X"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(50), res.Records[0].Profit)
}

func TestBuildWithInjectedStore(t *testing.T) {
	store, err := partition.NewFSStore(t.TempDir())
	require.NoError(t, err)
	cfg := testConfig(t, "unused")

	a, err := NewAppBuilder(cfg, WithStore(store)).Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a.http)
	assert.Equal(t, cfg.App.HTTPAddr, a.http.Addr())
	assert.Contains(t, a.Summary.String(), "fs")
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	_, _, err := buildObjectStore(context.Background(), config.StoreConfig{Backend: "ftp"})
	assert.Error(t, err)

	s, closer, err := buildObjectStore(context.Background(), config.StoreConfig{Backend: "http", BaseURL: "http://localhost:8000"})
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, "http", s.Name())
}

func TestApplyReloadRetunesLoader(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	a, err := NewApp(cfg, WithoutHTTP())
	require.NoError(t, err)

	next := *cfg
	next.Loader.PoolSize = 2
	next.Loader.MaxRetries = 1
	next.Loader.BreakerThreshold = 1
	a.applyReload(&next)

	opts := a.loader.Options()
	assert.Equal(t, 2, opts.PoolSize)
	assert.Equal(t, 1, opts.MaxRetries)
	assert.Equal(t, 2, a.cfg.Loader.PoolSize)

	a.breaker.RecordFailure()
	assert.Equal(t, circuit.StateOpen, a.breaker.State())
}
