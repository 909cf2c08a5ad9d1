// Package app bootstraps and runs the workflow engine.
//
// # Bootstrap
//
// NewApplication performs the complete initialization sequence:
//
//  1. Logging is set up from the debug flag and log format
//  2. The engine configuration is loaded from the YAML file (defaults when
//     the file is missing) and command line overrides are applied
//  3. The cluster runtime selected by runtime.type is created: swarm,
//     kubernetes or memory
//  4. InitializeServices wires catalog, metrics, notifications, lifecycle
//     manager, coordinator, registry, planner and REST server together
//
// Instrumentation is attached while wiring: instance state changes,
// component action durations and catalog reloads all feed the metrics
// registry served on /metrics.
//
// # Running
//
// Run serves the REST API until the context is cancelled or the process
// receives SIGINT or SIGTERM. On shutdown the server stops accepting
// requests and waits a bounded time for the running ones, the catalog
// watcher is stopped and the runtime connection closed.
//
// Example:
//
//	application, err := app.NewApplication(app.NewConfig(false, "json", "", "", 0))
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
