package registry

import (
	"sort"
	"sync"

	"wkfmanager/internal/api"
	"wkfmanager/pkg/logging"
)

const registrySubsystem = "Registry"

type reservation struct {
	operation api.Operation
	spec      api.WorkflowSpec

	// leaving holds the components the transition has already decided to
	// give up; they no longer count as referenced by it
	leaving map[string]bool
}

// Registry holds the fully deployed workflows by storeId, plus the
// transitions currently in flight. It lives for the process lifetime only.
type Registry struct {
	mu         sync.RWMutex
	workflows  map[string]api.WorkflowSpec
	inflight   map[string]reservation
	lastOffset int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		workflows: make(map[string]api.WorkflowSpec),
		inflight:  make(map[string]reservation),
	}
}

// Get returns a copy of the committed spec of storeID.
func (r *Registry) Get(storeID string) (api.WorkflowSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, exists := r.workflows[storeID]
	if !exists {
		return api.WorkflowSpec{}, false
	}
	return spec.Clone(), true
}

// Put commits spec as the deployed state of storeID.
func (r *Registry) Put(storeID string, spec api.WorkflowSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[storeID] = spec.Clone()
}

// Delete removes storeID and reports whether it was present.
func (r *Registry) Delete(storeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workflows[storeID]; !exists {
		return false
	}
	delete(r.workflows, storeID)
	return true
}

// List returns a consistent snapshot of every committed workflow.
func (r *Registry) List() map[string]api.WorkflowSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]api.WorkflowSpec, len(r.workflows))
	for id, spec := range r.workflows {
		snapshot[id] = spec.Clone()
	}
	return snapshot
}

// IDs returns the committed storeIds in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.workflows))
	for id := range r.workflows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of committed workflows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workflows)
}

// CountReferencing returns how many persistent workflows other than
// excludeStoreID reference component. Transitions in flight count with both
// their committed and their target spec, unless they already left the
// component. Each storeId counts once.
func (r *Registry) CountReferencing(component, excludeStoreID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countReferencingLocked(component, excludeStoreID)
}

// Leave records that the in-flight transition of storeID gives up
// component and returns how many other persistent workflows still
// reference it. Marking and counting happen in one step, so of two
// workflows leaving a shared component at the same time the second one
// always sees zero and removes the instance.
func (r *Registry) Leave(storeID, component string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.inflight[storeID]; ok {
		if res.leaving == nil {
			res.leaving = make(map[string]bool)
		}
		res.leaving[component] = true
		r.inflight[storeID] = res
	} else {
		logging.Warn(registrySubsystem, "Workflow %s leaves %s without a transition in flight", storeID, component)
	}
	return r.countReferencingLocked(component, storeID)
}

func (r *Registry) countReferencingLocked(component, excludeStoreID string) int {
	uses := func(spec api.WorkflowSpec) bool {
		return spec.Method == api.MethodPersistent && spec.Has(component)
	}

	count := 0
	for id, spec := range r.workflows {
		if id == excludeStoreID {
			continue
		}
		res, busy := r.inflight[id]
		if busy && res.leaving[component] {
			continue
		}
		if uses(spec) || (busy && uses(res.spec)) {
			count++
		}
	}
	for id, res := range r.inflight {
		if id == excludeStoreID || res.leaving[component] {
			continue
		}
		if _, committed := r.workflows[id]; committed {
			continue
		}
		if uses(res.spec) {
			count++
		}
	}
	return count
}

// Reserve marks a transition of storeID as in flight and returns the
// committed spec it starts from (zero for a create). It fails with a
// *api.ConflictError when another transition of storeID is running, when
// creating an existing storeID or when updating a missing one, and with a
// *api.NotFoundError when tearing down a missing one. Every successful
// Reserve must be followed by Release.
func (r *Registry) Reserve(storeID string, op api.Operation, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res, busy := r.inflight[storeID]; busy {
		return api.WorkflowSpec{}, api.NewConflictError(storeID, "Workflow %s has a %s in progress", storeID, res.operation)
	}

	current, exists := r.workflows[storeID]
	switch op {
	case api.OperationCreate:
		if exists {
			return api.WorkflowSpec{}, api.NewConflictError(storeID, "Workflow %s already exists", storeID)
		}
	case api.OperationUpdate:
		if !exists {
			return api.WorkflowSpec{}, api.NewConflictError(storeID, "Workflow %s does not exist", storeID)
		}
	case api.OperationTeardown:
		if !exists {
			return api.WorkflowSpec{}, api.NewWorkflowNotFoundError(storeID)
		}
		spec = current
	}

	r.inflight[storeID] = reservation{operation: op, spec: spec.Clone()}
	logging.Debug(registrySubsystem, "Reserved %s for %s", storeID, op)
	return current.Clone(), nil
}

// Release ends the in-flight transition of storeID.
func (r *Registry) Release(storeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, storeID)
}

// InFlight returns the number of running transitions.
func (r *Registry) InFlight() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.inflight)
}

// NextOffset returns a new edge offset. Offsets start at 1 and are never
// reused during the process lifetime.
func (r *Registry) NextOffset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastOffset++
	return r.lastOffset
}
