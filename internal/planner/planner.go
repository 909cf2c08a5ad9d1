package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wkfmanager/internal/api"
	"wkfmanager/internal/catalog"
	"wkfmanager/internal/coordinator"
	"wkfmanager/internal/metrics"
	"wkfmanager/internal/notify"
	"wkfmanager/internal/registry"
	"wkfmanager/pkg/logging"
)

const (
	plannerSubsystem = "Planner"
	tracerName       = "wkfmanager/internal/planner"
)

// Action verbs, also used as metric labels.
const (
	VerbStart    = "start"
	VerbUpdate   = "update"
	VerbRevert   = "revert"
	VerbUnassign = "unassign"
	VerbRemove   = "remove"
)

// Lifecycle brings component instances up and down.
type Lifecycle interface {
	Start(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error
	UpdateSpec(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error
	Unassign(ctx context.Context, inst catalog.Instance, storeID string) error
	Remove(ctx context.Context, inst catalog.Instance) error
}

// Config holds the collaborators of a Planner. Registry, Catalogs and
// Lifecycle are required.
type Config struct {
	Registry    *registry.Registry
	Catalogs    *catalog.Store
	Lifecycle   Lifecycle
	Coordinator *coordinator.Coordinator
	Notifier    notify.Notifier
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
}

// Planner turns create, update and teardown requests into component
// actions and keeps the registry consistent with their outcome: a
// workflow is registered only once every component of it is up.
type Planner struct {
	registry    *registry.Registry
	catalogs    *catalog.Store
	lifecycle   Lifecycle
	coordinator *coordinator.Coordinator
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

// New creates a planner.
func New(cfg Config) *Planner {
	if cfg.Coordinator == nil {
		cfg.Coordinator = coordinator.New(0)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	return &Planner{
		registry:    cfg.Registry,
		catalogs:    cfg.Catalogs,
		lifecycle:   cfg.Lifecycle,
		coordinator: cfg.Coordinator,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
	}
}

// transition carries the bookkeeping of one Create, Update or Teardown call.
type transition struct {
	id        string
	operation api.Operation
	storeID   string
	started   time.Time
	span      trace.Span
}

func (p *Planner) begin(ctx context.Context, op api.Operation, storeID string) (context.Context, *transition) {
	t := &transition{
		id:        uuid.NewString(),
		operation: op,
		storeID:   storeID,
		started:   time.Now(),
	}

	// An admitted transition runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	ctx, t.span = p.tracer.Start(ctx, "workflow."+string(op),
		trace.WithAttributes(
			attribute.String("wkfmanager.store_id", storeID),
			attribute.String("wkfmanager.transition_id", t.id),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	logging.Debug(plannerSubsystem, "[%s] %s of workflow %s requested", t.id, op, storeID)
	return ctx, t
}

func (p *Planner) finish(t *transition, err error) {
	elapsed := time.Since(t.started)
	outcome := metrics.OutcomeSuccess

	switch {
	case err == nil:
		t.span.SetStatus(codes.Ok, "")
		logging.Info(plannerSubsystem, "[%s] %s of workflow %s succeeded in %s", t.id, t.operation, t.storeID, elapsed.Round(time.Millisecond))
	case api.IsValidation(err), api.IsConflict(err), api.IsNotFound(err):
		outcome = metrics.OutcomeRejected
		t.span.SetStatus(codes.Error, err.Error())
		logging.Info(plannerSubsystem, "[%s] %s of workflow %s rejected: %v", t.id, t.operation, t.storeID, err)
	default:
		outcome = metrics.OutcomeFailure
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, err.Error())
		logging.Error(plannerSubsystem, err, "[%s] %s of workflow %s failed after %s", t.id, t.operation, t.storeID, elapsed.Round(time.Millisecond))
	}
	t.span.End()

	p.metrics.ObserveTransition(string(t.operation), outcome, elapsed)
}

// reserve claims storeID for t and returns the committed spec.
func (p *Planner) reserve(t *transition, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	old, err := p.registry.Reserve(t.storeID, t.operation, spec)
	if err != nil {
		return api.WorkflowSpec{}, err
	}
	p.metrics.SetInFlight(p.registry.InFlight())
	return old, nil
}

func (p *Planner) release(t *transition) {
	p.registry.Release(t.storeID)
	p.metrics.SetInFlight(p.registry.InFlight())
	p.metrics.SetWorkflows(p.registry.Len())
}

// Create deploys a new workflow. Edge workflows get a fresh offset; any
// client-supplied offset is ignored. If any component fails, every
// component of the attempt is torn down again and a *api.PartialFailure is
// returned with the registry left without storeID.
func (p *Planner) Create(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	ctx, t := p.begin(ctx, api.OperationCreate, storeID)
	spec, err := p.create(ctx, t, spec)
	p.finish(t, err)
	return spec, err
}

func (p *Planner) create(ctx context.Context, t *transition, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	cat := p.catalogs.Current()
	if err := validate(cat, t.storeID, spec); err != nil {
		return api.WorkflowSpec{}, err
	}

	spec = spec.Clone()
	spec.WorkflowOffset = 0
	if spec.Method == api.MethodEdge {
		spec.WorkflowOffset = p.registry.NextOffset()
	}

	if _, err := p.reserve(t, spec); err != nil {
		return api.WorkflowSpec{}, err
	}
	defer p.release(t)

	t.span.SetAttributes(
		attribute.String("wkfmanager.method", string(spec.Method)),
		attribute.Int("wkfmanager.offset", spec.WorkflowOffset),
		attribute.StringSlice("wkfmanager.components", spec.ComponentList),
	)

	instances := resolve(cat, spec.ComponentList, spec)
	failures := p.coordinator.Run(ctx, coordinator.PhaseBringUp, p.startActions(instances, t.storeID, spec))
	if len(failures) > 0 {
		p.compensate(ctx, t, spec, instances)
		err := &api.PartialFailure{StoreID: t.storeID, Operation: api.OperationCreate, Failures: failures}
		p.notify(ctx, spec.Origin, notify.ReasonWorkflowCreateFailed, t, spec, err.Components(), err)
		return api.WorkflowSpec{}, err
	}

	p.registry.Put(t.storeID, spec)
	p.notify(ctx, spec.Origin, notify.ReasonWorkflowCreated, t, spec, spec.ComponentList, nil)
	return spec, nil
}

// Update moves a deployed workflow to a new component list. Components only
// in the new list are started, those in both are handed the new spec and
// those only in the old list are torn down last. If starting or updating
// fails, the updated components are reverted to the old spec, the started
// ones torn down and a *api.PartialFailure returned; the registry keeps the
// old spec.
func (p *Planner) Update(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	ctx, t := p.begin(ctx, api.OperationUpdate, storeID)
	spec, err := p.update(ctx, t, spec)
	p.finish(t, err)
	return spec, err
}

func (p *Planner) update(ctx context.Context, t *transition, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	cat := p.catalogs.Current()
	if err := validate(cat, t.storeID, spec); err != nil {
		return api.WorkflowSpec{}, err
	}

	spec = spec.Clone()
	old, err := p.reserve(t, spec)
	if err != nil {
		return api.WorkflowSpec{}, err
	}
	defer p.release(t)

	if spec.Method != old.Method {
		return api.WorkflowSpec{}, api.NewValidationError("method",
			fmt.Sprintf("cannot change the method of workflow %s from %s to %s", t.storeID, old.Method, spec.Method))
	}
	spec.WorkflowOffset = old.WorkflowOffset

	diff := ComputeDiff(old, spec)
	t.span.SetAttributes(
		attribute.String("wkfmanager.method", string(spec.Method)),
		attribute.StringSlice("wkfmanager.to_start", diff.ToStart),
		attribute.StringSlice("wkfmanager.to_update", diff.ToUpdate),
		attribute.StringSlice("wkfmanager.to_teardown", diff.ToTeardown),
	)
	logging.Debug(plannerSubsystem, "[%s] Update of %s: start %v, update %v, teardown %v", t.id, t.storeID, diff.ToStart, diff.ToUpdate, diff.ToTeardown)

	toStart := resolve(cat, diff.ToStart, spec)
	toUpdate := resolve(cat, diff.ToUpdate, spec)
	toTeardown := resolve(cat, diff.ToTeardown, old)

	if failures := p.coordinator.Run(ctx, coordinator.PhaseBringUp, p.startActions(toStart, t.storeID, spec)); len(failures) > 0 {
		p.compensate(ctx, t, spec, toStart)
		return api.WorkflowSpec{}, p.updateFailed(ctx, t, spec, failures)
	}

	if failures := p.coordinator.Run(ctx, coordinator.PhaseBringUp, p.updateActions(toUpdate, t.storeID, spec, VerbUpdate)); len(failures) > 0 {
		failed := failedComponents(failures)
		var updated []catalog.Instance
		for _, inst := range toUpdate {
			if !failed[inst.Component] {
				updated = append(updated, inst)
			}
		}
		for _, f := range p.coordinator.Run(ctx, coordinator.PhaseBringUp, p.updateActions(updated, t.storeID, old, VerbRevert)) {
			logging.Error(plannerSubsystem, f, "[%s] Failed to revert workflow %s", t.id, t.storeID)
		}
		p.compensate(ctx, t, spec, toStart)
		return api.WorkflowSpec{}, p.updateFailed(ctx, t, spec, failures)
	}

	if failures := p.coordinator.Run(ctx, coordinator.PhaseTeardown, p.teardownActions(t.storeID, old, toTeardown)); len(failures) > 0 {
		p.reportIncompleteTeardown(ctx, t, old, failures)
	}

	p.registry.Put(t.storeID, spec)
	p.notify(ctx, spec.Origin, notify.ReasonWorkflowUpdated, t, spec, spec.ComponentList, nil)
	return spec, nil
}

func (p *Planner) updateFailed(ctx context.Context, t *transition, spec api.WorkflowSpec, failures []error) error {
	err := &api.PartialFailure{StoreID: t.storeID, Operation: api.OperationUpdate, Failures: failures}
	p.notify(ctx, spec.Origin, notify.ReasonWorkflowUpdateFailed, t, spec, err.Components(), err)
	return err
}

// Teardown removes a deployed workflow. Persistent instances other
// workflows still use are only told to drop the workflow. Removal failures
// are logged and reported to the origin but the workflow is unregistered
// regardless.
func (p *Planner) Teardown(ctx context.Context, storeID string) (api.WorkflowSpec, error) {
	ctx, t := p.begin(ctx, api.OperationTeardown, storeID)
	spec, err := p.teardown(ctx, t)
	p.finish(t, err)
	return spec, err
}

func (p *Planner) teardown(ctx context.Context, t *transition) (api.WorkflowSpec, error) {
	if t.storeID == "" {
		return api.WorkflowSpec{}, api.NewValidationError("storeId", "must not be empty")
	}

	old, err := p.reserve(t, api.WorkflowSpec{})
	if err != nil {
		return api.WorkflowSpec{}, err
	}
	defer p.release(t)

	cat := p.catalogs.Current()
	instances := resolve(cat, old.ComponentList, old)
	failures := p.coordinator.Run(ctx, coordinator.PhaseTeardown, p.teardownActions(t.storeID, old, instances))

	p.registry.Delete(t.storeID)
	if len(failures) > 0 {
		p.reportIncompleteTeardown(ctx, t, old, failures)
		return old, nil
	}
	p.notify(ctx, old.Origin, notify.ReasonWorkflowDeleted, t, old, old.ComponentList, nil)
	return old, nil
}

func (p *Planner) reportIncompleteTeardown(ctx context.Context, t *transition, spec api.WorkflowSpec, failures []error) {
	err := &api.PartialFailure{StoreID: t.storeID, Operation: api.OperationTeardown, Failures: failures}
	logging.Error(plannerSubsystem, err, "[%s] Teardown of workflow %s left instances behind", t.id, t.storeID)
	t.span.RecordError(err)
	p.notify(ctx, spec.Origin, notify.ReasonTeardownIncomplete, t, spec, err.Components(), err)
}

// Get returns the deployed spec of storeID.
func (p *Planner) Get(storeID string) (api.WorkflowSpec, error) {
	spec, ok := p.registry.Get(storeID)
	if !ok {
		return api.WorkflowSpec{}, api.NewWorkflowNotFoundError(storeID)
	}
	return spec, nil
}

// List returns every deployed workflow by storeId.
func (p *Planner) List() map[string]api.WorkflowSpec {
	return p.registry.List()
}

// compensate undoes the start of instances after a failed transition.
func (p *Planner) compensate(ctx context.Context, t *transition, spec api.WorkflowSpec, instances []catalog.Instance) {
	if len(instances) == 0 {
		return
	}
	logging.Warn(plannerSubsystem, "[%s] Rolling back %d component(s) of workflow %s", t.id, len(instances), t.storeID)
	for _, f := range p.coordinator.Run(ctx, coordinator.PhaseTeardown, p.teardownActions(t.storeID, spec, instances)) {
		logging.Error(plannerSubsystem, f, "[%s] Rollback of workflow %s incomplete", t.id, t.storeID)
	}
}

func (p *Planner) startActions(instances []catalog.Instance, storeID string, spec api.WorkflowSpec) []coordinator.Action {
	actions := make([]coordinator.Action, 0, len(instances))
	for _, inst := range instances {
		actions = append(actions, coordinator.Action{
			Component: inst.Component,
			Verb:      VerbStart,
			Infra:     inst.Infra,
			Run: func(ctx context.Context) error {
				return p.lifecycle.Start(ctx, inst, storeID, spec)
			},
		})
	}
	return actions
}

func (p *Planner) updateActions(instances []catalog.Instance, storeID string, spec api.WorkflowSpec, verb string) []coordinator.Action {
	actions := make([]coordinator.Action, 0, len(instances))
	for _, inst := range instances {
		actions = append(actions, coordinator.Action{
			Component: inst.Component,
			Verb:      verb,
			Infra:     inst.Infra,
			Run: func(ctx context.Context) error {
				return p.lifecycle.UpdateSpec(ctx, inst, storeID, spec)
			},
		})
	}
	return actions
}

// teardownActions removes the instances storeID used, except persistent
// ones another workflow still uses: those only drop storeID.
func (p *Planner) teardownActions(storeID string, spec api.WorkflowSpec, instances []catalog.Instance) []coordinator.Action {
	actions := make([]coordinator.Action, 0, len(instances))
	for _, inst := range instances {
		if spec.Method == api.MethodPersistent && p.sharedUsers(inst.Component, storeID) > 0 {
			logging.Debug(plannerSubsystem, "Keeping %s, still used by other workflows", inst.Name)
			actions = append(actions, coordinator.Action{
				Component: inst.Component,
				Verb:      VerbUnassign,
				Infra:     inst.Infra,
				Run: func(ctx context.Context) error {
					return p.lifecycle.Unassign(ctx, inst, storeID)
				},
			})
			continue
		}
		actions = append(actions, coordinator.Action{
			Component: inst.Component,
			Verb:      VerbRemove,
			Infra:     inst.Infra,
			Run: func(ctx context.Context) error {
				return p.lifecycle.Remove(ctx, inst)
			},
		})
	}
	return actions
}

// sharedUsers marks component as left by storeID and counts the other
// workflows still listing it, whose shared persistent instance must
// therefore stay up.
func (p *Planner) sharedUsers(component, storeID string) int {
	return p.registry.Leave(storeID, component)
}

func (p *Planner) notify(ctx context.Context, origin string, reason notify.Reason, t *transition, spec api.WorkflowSpec, components []string, err error) {
	if p.notifier == nil {
		return
	}
	data := notify.Data{
		StoreID:      t.storeID,
		TransitionID: t.id,
		Method:       string(spec.Method),
		Components:   components,
	}
	if err != nil {
		data.Error = err.Error()
	}
	p.notifier.Notify(ctx, origin, reason, data)
}

// validate rejects malformed requests before any cluster action.
func validate(cat *catalog.Catalog, storeID string, spec api.WorkflowSpec) error {
	if storeID == "" {
		return api.NewValidationError("storeId", "must not be empty")
	}
	if !spec.Method.Valid() {
		return api.NewValidationError("method", fmt.Sprintf("must be %s or %s, got %q", api.MethodPersistent, api.MethodEdge, spec.Method))
	}
	if len(spec.ComponentList) == 0 {
		return api.NewValidationError("component-list", "must list at least one component")
	}
	seen := make(map[string]bool, len(spec.ComponentList))
	for _, c := range spec.ComponentList {
		if seen[c] {
			return api.NewValidationError("component-list", fmt.Sprintf("component %s listed twice", c))
		}
		seen[c] = true
	}
	if spec.Origin == "" {
		return api.NewValidationError("origin", "must not be empty")
	}
	return cat.Validate(spec)
}

// resolve maps components to their instances within spec. Components the
// catalog no longer knows, for instance after a reload, are still resolved
// by name so they can be torn down.
func resolve(cat *catalog.Catalog, components []string, spec api.WorkflowSpec) []catalog.Instance {
	instances := make([]catalog.Instance, 0, len(components))
	for _, c := range components {
		inst, err := cat.Resolve(c, spec)
		if err != nil {
			logging.Warn(plannerSubsystem, "Component %s is not in the catalog any more", c)
			inst = catalog.Instance{
				Component: c,
				Name:      catalog.InstanceName(c, spec.Method, spec.WorkflowOffset),
				Infra:     cat.IsInfra(c),
				Method:    spec.Method,
			}
		}
		instances = append(instances, inst)
	}
	return instances
}

func failedComponents(failures []error) map[string]bool {
	failed := make(map[string]bool, len(failures))
	for _, f := range failures {
		var cf *api.ComponentFailure
		if errors.As(f, &cf) {
			failed[cf.Component] = true
		}
	}
	return failed
}
