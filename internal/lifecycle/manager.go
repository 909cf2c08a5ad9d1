package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"wkfmanager/internal/api"
	"wkfmanager/internal/catalog"
	"wkfmanager/internal/cluster"
	"wkfmanager/internal/notify"
	"wkfmanager/pkg/logging"
)

const lifecycleSubsystem = "Lifecycle"

// ComponentClient is the HTTP contract of ordinary components.
type ComponentClient interface {
	Health(ctx context.Context, inst catalog.Instance) error
	Assign(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error
	Update(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error
	Unassign(ctx context.Context, inst catalog.Instance, storeID string) error
}

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	Network           string
	Interval          time.Duration
	InfraAttempts     int
	ComponentAttempts int
	Clock             Clock
	Notifier          notify.Notifier
}

// Manager brings single component instances up and down: it creates the
// cluster service, polls it until healthy and hands it the workflow spec.
type Manager struct {
	runtime  cluster.Runtime
	client   ComponentClient
	notifier notify.Notifier
	clock    Clock
	network  string

	infraPolicy     Policy
	componentPolicy Policy

	locks  *keyedMutex
	health singleflight.Group

	mu            sync.RWMutex
	states        map[string]State
	stateChangeCb StateChangeCallback
}

// NewManager creates a lifecycle manager.
func NewManager(runtime cluster.Runtime, client ComponentClient, opts Options) *Manager {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.InfraAttempts <= 0 {
		opts.InfraAttempts = DefaultInfraAttempts
	}
	if opts.ComponentAttempts <= 0 {
		opts.ComponentAttempts = DefaultComponentAttempts
	}
	if opts.Clock == nil {
		opts.Clock = RealClock
	}

	backoff := NewConstant(opts.Interval)
	return &Manager{
		runtime:         runtime,
		client:          client,
		notifier:        opts.Notifier,
		clock:           opts.Clock,
		network:         opts.Network,
		infraPolicy:     Policy{Attempts: opts.InfraAttempts, Backoff: backoff},
		componentPolicy: Policy{Attempts: opts.ComponentAttempts, Backoff: backoff},
		locks:           newKeyedMutex(),
		states:          make(map[string]State),
	}
}

// EnsureCreated creates the cluster service of inst unless a service with
// exactly that name already exists. It reports whether this call created it.
func (m *Manager) EnsureCreated(ctx context.Context, inst catalog.Instance) (bool, error) {
	unlock := m.locks.Lock(inst.Name)
	defer unlock()

	_, exists, err := cluster.LookupService(ctx, m.runtime, inst.Name)
	if err != nil {
		return false, fmt.Errorf("failed to look up service %s: %w", inst.Name, err)
	}
	if exists {
		logging.Debug(lifecycleSubsystem, "Service %s already exists", inst.Name)
		return false, nil
	}

	m.setState(inst.Name, StateCreating, nil)
	_, err = m.runtime.CreateService(ctx, cluster.ServiceSpec{
		Name:          inst.Name,
		Image:         inst.Image,
		PublishedPort: inst.PublishedPort,
		TargetPort:    inst.TargetPort,
		Env:           inst.Env,
		Network:       m.network,
		Labels:        cluster.DefaultLabels(inst.Name, inst.Component),
	})
	if err != nil {
		m.setState(inst.Name, StateAbsent, nil)
		return false, fmt.Errorf("failed to create service %s: %w", inst.Name, err)
	}

	logging.Info(lifecycleSubsystem, "Created service %s (%s, port %d->%d)", inst.Name, inst.Image, inst.PublishedPort, inst.TargetPort)
	return true, nil
}

// WaitHealthy polls inst until it is healthy or its retry budget runs out,
// in which case a *api.DependencyTimeout is returned. The infra component is
// healthy once one of its tasks reports "started"; every other component
// once GET /health answers 200. Concurrent calls for the same instance share
// one poll.
func (m *Manager) WaitHealthy(ctx context.Context, inst catalog.Instance) error {
	_, err, shared := m.health.Do(inst.Name, func() (interface{}, error) {
		return nil, m.waitHealthy(ctx, inst)
	})
	if shared {
		logging.Debug(lifecycleSubsystem, "Joined running health check of %s", inst.Name)
	}
	return err
}

func (m *Manager) waitHealthy(ctx context.Context, inst catalog.Instance) error {
	m.setState(inst.Name, StateHealthChecking, nil)

	policy := m.componentPolicy
	probe := func(ctx context.Context) error { return m.client.Health(ctx, inst) }
	if inst.Infra {
		policy = m.infraPolicy
		probe = func(ctx context.Context) error { return m.infraStarted(ctx, inst.Name) }
	}

	attempts, err := poll(ctx, m.clock, policy, probe)
	if err == nil {
		logging.Info(lifecycleSubsystem, "%s healthy after %d attempt(s)", inst.Name, attempts)
		m.setState(inst.Name, StateHealthy, nil)
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		m.setState(inst.Name, StateTimedOut, err)
		return fmt.Errorf("health check of %s interrupted: %w", inst.Name, err)
	}

	timeout := &api.DependencyTimeout{
		Component: inst.Component,
		Instance:  inst.Name,
		Attempts:  attempts,
		Interval:  policy.Backoff.Delay(1),
		Last:      err,
	}
	logging.Warn(lifecycleSubsystem, "%v", timeout)
	m.setState(inst.Name, StateTimedOut, timeout)
	return timeout
}

// infraStarted reports nil once any task of the service reports "started".
func (m *Manager) infraStarted(ctx context.Context, service string) error {
	tasks, err := m.runtime.ListTasks(ctx, service)
	if err != nil {
		return err
	}
	last := "no tasks"
	for _, task := range tasks {
		status, err := m.runtime.InspectTaskStatus(ctx, task.ID)
		if err != nil {
			return err
		}
		if status == cluster.TaskStarted {
			return nil
		}
		last = status
	}
	return fmt.Errorf("%s not started yet (%s)", service, last)
}

// Remove deletes the cluster service of inst. Removing an absent service
// succeeds.
func (m *Manager) Remove(ctx context.Context, inst catalog.Instance) error {
	unlock := m.locks.Lock(inst.Name)
	defer unlock()

	if err := m.runtime.RemoveService(ctx, inst.Name); err != nil {
		if api.IsNotFound(err) {
			logging.Debug(lifecycleSubsystem, "Service %s already gone", inst.Name)
			m.setState(inst.Name, StateAbsent, nil)
			return nil
		}
		return fmt.Errorf("failed to remove service %s: %w", inst.Name, err)
	}

	logging.Info(lifecycleSubsystem, "Removed service %s", inst.Name)
	m.setState(inst.Name, StateAbsent, nil)
	return nil
}

// Start makes inst serve the workflow storeID: it ensures the service
// exists, waits until it is healthy and, for ordinary components, assigns
// the spec. A service created by this call that never becomes healthy is
// removed again. One notification is sent to the spec's origin either way.
func (m *Manager) Start(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error {
	data := notify.Data{StoreID: storeID, Component: inst.Component, Instance: inst.Name, Method: string(spec.Method)}

	created, err := m.EnsureCreated(ctx, inst)
	if err != nil {
		m.notifyFailure(ctx, spec.Origin, data, err)
		return err
	}

	if err := m.WaitHealthy(ctx, inst); err != nil {
		if created {
			if rmErr := m.Remove(ctx, inst); rmErr != nil {
				logging.Error(lifecycleSubsystem, rmErr, "Failed to remove unhealthy service %s", inst.Name)
			}
		}
		m.notifyFailure(ctx, spec.Origin, data, err)
		return err
	}

	if !inst.Infra {
		if err := m.client.Assign(ctx, inst, storeID, spec); err != nil {
			err = fmt.Errorf("failed to assign workflow %s to %s: %w", storeID, inst.Name, err)
			m.notifyFailure(ctx, spec.Origin, data, err)
			return err
		}
	}

	m.notify(ctx, spec.Origin, notify.ReasonComponentHealthy, data)
	return nil
}

// UpdateSpec replaces the spec an instance holds for storeID. The infra
// component has no HTTP contract and is always up to date.
func (m *Manager) UpdateSpec(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error {
	if inst.Infra {
		return nil
	}
	if err := m.client.Update(ctx, inst, storeID, spec); err != nil {
		return fmt.Errorf("failed to update workflow %s on %s: %w", storeID, inst.Name, err)
	}
	logging.Debug(lifecycleSubsystem, "Updated workflow %s on %s", storeID, inst.Name)
	return nil
}

// Unassign withdraws storeID from an instance that stays up for other
// workflows.
func (m *Manager) Unassign(ctx context.Context, inst catalog.Instance, storeID string) error {
	if inst.Infra {
		return nil
	}
	if err := m.client.Unassign(ctx, inst, storeID); err != nil {
		return fmt.Errorf("failed to unassign workflow %s from %s: %w", storeID, inst.Name, err)
	}
	logging.Debug(lifecycleSubsystem, "Unassigned workflow %s from %s", storeID, inst.Name)
	return nil
}

func (m *Manager) notifyFailure(ctx context.Context, origin string, data notify.Data, err error) {
	data.Error = err.Error()
	var timeout *api.DependencyTimeout
	if errors.As(err, &timeout) {
		data.Attempts = timeout.Attempts
		m.notify(ctx, origin, notify.ReasonComponentTimedOut, data)
		return
	}
	m.notify(ctx, origin, notify.ReasonComponentFailed, data)
}

func (m *Manager) notify(ctx context.Context, origin string, reason notify.Reason, data notify.Data) {
	if m.notifier != nil {
		m.notifier.Notify(ctx, origin, reason, data)
	}
}
