package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"wkfmanager/internal/config"
	"wkfmanager/pkg/logging"
)

const watcherSubsystem = "Catalog"

// Watcher reloads the catalog file whenever it changes and swaps the result
// into a Store. A file that fails to load or validate leaves the previous
// catalog in effect.
type Watcher struct {
	mu sync.Mutex

	// path is the catalog file; its directory is what fsnotify watches, so
	// that editors replacing the file are noticed too
	path string

	store *Store
	build func([]config.ComponentConfig) (*Catalog, error)

	// debounceInterval is how long to wait for additional changes
	debounceInterval time.Duration
	timer            *time.Timer

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	running bool

	// onReload is called after every file triggered reload attempt
	onReload func(error)
}

// NewWatcher creates a watcher for the catalog file of cfg.
func NewWatcher(cfg config.Config, store *Store, debounceInterval time.Duration) *Watcher {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}
	return &Watcher{
		path:  filepath.Clean(cfg.CatalogPath),
		store: store,
		build: func(components []config.ComponentConfig) (*Catalog, error) {
			return New(components, cfg.InfraComponent, cfg.Runtime.ImagePrefix, cfg.Runtime.ImageTag)
		},
		debounceInterval: debounceInterval,
		stopCh:           make(chan struct{}),
	}
}

// OnReload registers fn to be called with the outcome of every reload the
// watcher triggers. Call it before Start.
func (w *Watcher) OnReload(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// Start begins watching for changes.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})

	go w.processEvents(ctx, watcher, w.stopCh)

	logging.Info(watcherSubsystem, "Watching %s for component catalog changes", w.path)
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher, stopCh chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return

		case <-stopCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error(watcherSubsystem, err, "Catalog watcher error")
		}
	}
}

// schedule debounces bursts of events into one reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	onReload := w.onReload
	w.timer = time.AfterFunc(w.debounceInterval, func() {
		err := w.Reload()
		if onReload != nil {
			onReload(err)
		}
	})
}

// Reload reads the catalog file and swaps it in.
func (w *Watcher) Reload() error {
	components, err := config.LoadComponents(w.path)
	if err != nil {
		logging.Error(watcherSubsystem, err, "Keeping previous component catalog")
		return err
	}
	c, err := w.build(components)
	if err != nil {
		logging.Error(watcherSubsystem, err, "Keeping previous component catalog")
		return err
	}
	w.store.Set(c)
	logging.Info(watcherSubsystem, "Reloaded component catalog with %d components", len(components))
	return nil
}
