package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wkfmanager/internal/config"
)

const initialCatalog = `
components:
  - name: cass
    port: 9042
  - name: restocker
    port: 5000
`

func writeCatalog(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestWatcher(t *testing.T) (*Watcher, *Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "components.yaml")
	writeCatalog(t, path, initialCatalog)

	cfg := config.GetDefaultConfig()
	cfg.CatalogPath = path

	c, err := FromConfig(cfg)
	require.NoError(t, err)
	store := NewStore(c)

	return NewWatcher(cfg, store, 20*time.Millisecond), store, path
}

func TestWatcher_Reload(t *testing.T) {
	w, store, path := newTestWatcher(t)
	assert.Equal(t, []string{"cass", "restocker"}, store.Current().Names())

	writeCatalog(t, path, initialCatalog+`
  - name: order-processor
    port: 6000
`)
	require.NoError(t, w.Reload())
	assert.Equal(t, []string{"cass", "order-processor", "restocker"}, store.Current().Names())
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	w, store, path := newTestWatcher(t)
	before := store.Current()

	writeCatalog(t, path, "components: [")
	assert.Error(t, w.Reload())
	assert.Same(t, before, store.Current())
}

func TestWatcher_DetectsWrites(t *testing.T) {
	w, store, path := newTestWatcher(t)

	reloaded := make(chan error, 4)
	w.OnReload(func(err error) { reloaded <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeCatalog(t, path, initialCatalog+`
  - name: stock-analyzer
    port: 4000
`)

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("catalog change was not picked up")
	}

	_, ok := store.Current().Lookup("stock-analyzer")
	assert.True(t, ok)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}
