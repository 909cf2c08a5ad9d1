package app

import (
	"fmt"
	"time"

	"wkfmanager/internal/catalog"
	"wkfmanager/internal/cluster"
	"wkfmanager/internal/config"
	"wkfmanager/internal/contract"
	"wkfmanager/internal/coordinator"
	"wkfmanager/internal/lifecycle"
	"wkfmanager/internal/metrics"
	"wkfmanager/internal/notify"
	"wkfmanager/internal/planner"
	"wkfmanager/internal/registry"
	"wkfmanager/internal/server"
	"wkfmanager/pkg/logging"
)

// Services holds every component of a running engine.
//
// The components are created in dependency order:
//  1. Component catalog and, when a catalog file is configured, its watcher
//  2. Metrics, notification client and component contract client
//  3. Lifecycle manager on top of the cluster runtime
//  4. Coordinator, registry and planner
//  5. REST server
type Services struct {
	Config config.Config

	Runtime     cluster.Runtime
	Catalogs    *catalog.Store
	Watcher     *catalog.Watcher // nil without a catalog file
	Metrics     *metrics.Metrics
	Notifier    *notify.Client
	Lifecycle   *lifecycle.Manager
	Coordinator *coordinator.Coordinator
	Registry    *registry.Registry
	Planner     *planner.Planner
	Server      *server.Server
}

// InitializeServices wires the engine on top of the given cluster runtime.
func InitializeServices(cfg config.Config, runtime cluster.Runtime) (*Services, error) {
	cat, err := catalog.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build component catalog: %w", err)
	}
	store := catalog.NewStore(cat)
	logging.Info("Bootstrap", "Component catalog: %v (infra: %s)", cat.Names(), cat.Infra())

	m := metrics.New()

	var watcher *catalog.Watcher
	if cfg.CatalogPath != "" {
		watcher = catalog.NewWatcher(cfg, store, 0)
		watcher.OnReload(m.RecordCatalogReload)
	}

	notifier := notify.NewClient(cfg.Notifications)

	lc := lifecycle.NewManager(runtime, contract.NewClient(cfg.Health.RequestTimeout, cfg.Health.Host), lifecycle.Options{
		Network:           cfg.Runtime.Network,
		Interval:          cfg.Health.Interval,
		InfraAttempts:     cfg.Health.InfraAttempts,
		ComponentAttempts: cfg.Health.ComponentAttempts,
		Notifier:          notifier,
	})
	lc.SetStateChangeCallback(func(instance string, oldState, newState lifecycle.State, err error) {
		m.RecordStateChange(string(newState))
		if err != nil {
			logging.Debug("Bootstrap", "Instance %s: %s -> %s (%v)", instance, oldState, newState, err)
		}
	})

	coord := coordinator.New(cfg.Coordinator.MaxParallel)
	coord.SetObserver(func(a coordinator.Action, elapsed time.Duration, err error) {
		m.ObserveAction(a.Verb, elapsed, err)
	})

	reg := registry.New()
	p := planner.New(planner.Config{
		Registry:    reg,
		Catalogs:    store,
		Lifecycle:   lc,
		Coordinator: coord,
		Notifier:    notifier,
		Metrics:     m,
	})

	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = server.WriteTimeoutFor(cfg.Health)
	}
	logging.Debug("Bootstrap", "Request write timeout: %s", cfg.Server.WriteTimeout)

	return &Services{
		Config:      cfg,
		Runtime:     runtime,
		Catalogs:    store,
		Watcher:     watcher,
		Metrics:     m,
		Notifier:    notifier,
		Lifecycle:   lc,
		Coordinator: coord,
		Registry:    reg,
		Planner:     p,
		Server:      server.New(cfg.Server, p, m.Handler()),
	}, nil
}
