// Package metrics defines the Prometheus collectors of the engine and the
// handler that exposes them on /metrics.
package metrics
