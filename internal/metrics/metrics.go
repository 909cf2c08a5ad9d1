package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wkfmanager"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// Metrics holds the collectors of the engine. All methods are safe on a
// nil receiver, which disables collection.
type Metrics struct {
	registry *prometheus.Registry

	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	ComponentActions   *prometheus.CounterVec
	ActionDuration     *prometheus.HistogramVec
	InstanceStates     *prometheus.CounterVec
	Workflows          prometheus.Gauge
	InFlight           prometheus.Gauge
	CatalogReloads     *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of workflow transitions by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		TransitionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transition_duration_seconds",
				Help:      "Duration of workflow transitions",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"operation"},
		),

		ComponentActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "component_actions_total",
				Help:      "Total number of component actions by action and outcome",
			},
			[]string{"action", "outcome"},
		),

		ActionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "component_action_duration_seconds",
				Help:      "Duration of component actions",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"action"},
		),

		InstanceStates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instance_state_transitions_total",
				Help:      "Total number of component instance state changes by target state",
			},
			[]string{"state"},
		),

		Workflows: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workflows",
				Help:      "Number of fully deployed workflows",
			},
		),

		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transitions_in_flight",
				Help:      "Number of workflow transitions currently running",
			},
		),

		CatalogReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_reloads_total",
				Help:      "Total number of component catalog reloads by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTransition records one finished transition.
func (m *Metrics) ObserveTransition(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(operation, outcome).Inc()
	if outcome != OutcomeRejected {
		m.TransitionDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

// ObserveAction records one component action.
func (m *Metrics) ObserveAction(action string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.ComponentActions.WithLabelValues(action, outcome).Inc()
	m.ActionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// RecordStateChange counts an instance entering state.
func (m *Metrics) RecordStateChange(state string) {
	if m == nil {
		return
	}
	m.InstanceStates.WithLabelValues(state).Inc()
}

// SetWorkflows sets the number of deployed workflows.
func (m *Metrics) SetWorkflows(n int) {
	if m == nil {
		return
	}
	m.Workflows.Set(float64(n))
}

// SetInFlight sets the number of running transitions.
func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.InFlight.Set(float64(n))
}

// RecordCatalogReload counts a catalog reload attempt.
func (m *Metrics) RecordCatalogReload(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.CatalogReloads.WithLabelValues(outcome).Inc()
}
