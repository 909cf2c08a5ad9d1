package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"wkfmanager/internal/api"
	"wkfmanager/pkg/logging"
)

const memorySubsystem = "Memory"

// MemoryRuntime is an in-process Runtime. Services exist only as records; it
// backs dry runs (--runtime memory) and tests.
type MemoryRuntime struct {
	mu sync.Mutex

	services map[string]*memoryService
	nextID   int

	// taskMessages overrides the status message reported for a service's task
	taskMessages map[string]string
	createErrs   map[string]error
	removeErrs   map[string]error
	createCalls  map[string]int
	removeCalls  map[string]int
}

type memoryService struct {
	id   string
	spec ServiceSpec
}

// NewMemoryRuntime creates an empty in-process runtime.
func NewMemoryRuntime() *MemoryRuntime {
	return &MemoryRuntime{
		services:     make(map[string]*memoryService),
		taskMessages: make(map[string]string),
		createErrs:   make(map[string]error),
		removeErrs:   make(map[string]error),
		createCalls:  make(map[string]int),
		removeCalls:  make(map[string]int),
	}
}

// CreateService records a service.
func (m *MemoryRuntime) CreateService(ctx context.Context, spec ServiceSpec) (Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls[spec.Name]++
	if err := m.createErrs[spec.Name]; err != nil {
		return Service{}, err
	}
	if _, exists := m.services[spec.Name]; exists {
		return Service{}, fmt.Errorf("service %s already exists", spec.Name)
	}

	m.nextID++
	id := fmt.Sprintf("svc-%d", m.nextID)
	m.services[spec.Name] = &memoryService{id: id, spec: spec}
	logging.Debug(memorySubsystem, "Created service %s", spec.Name)
	return Service{ID: id, Name: spec.Name}, nil
}

// ListServices lists services whose name contains nameFilter.
func (m *MemoryRuntime) ListServices(ctx context.Context, nameFilter string) ([]Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Service
	for name, svc := range m.services {
		if strings.Contains(name, nameFilter) {
			result = append(result, Service{ID: svc.id, Name: name})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// RemoveService forgets a service.
func (m *MemoryRuntime) RemoveService(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeCalls[name]++
	if err := m.removeErrs[name]; err != nil {
		return err
	}
	if _, exists := m.services[name]; !exists {
		return api.NewNotFoundError("service", name)
	}
	delete(m.services, name)
	logging.Debug(memorySubsystem, "Removed service %s", name)
	return nil
}

// ListTasks returns one task per service, identified by the service name.
func (m *MemoryRuntime) ListTasks(ctx context.Context, service string) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	svc, exists := m.services[service]
	if !exists {
		return nil, nil
	}
	return []Task{{
		ID:        service,
		ServiceID: svc.id,
		State:     "running",
		Message:   m.taskMessageLocked(service),
	}}, nil
}

// InspectTaskStatus returns the status message of a task. Tasks report
// "started" unless SetTaskMessage says otherwise.
func (m *MemoryRuntime) InspectTaskStatus(ctx context.Context, taskID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.services[taskID]; !exists {
		return "", api.NewNotFoundError("task", taskID)
	}
	return m.taskMessageLocked(taskID), nil
}

// Close is a no-op.
func (m *MemoryRuntime) Close() error {
	return nil
}

func (m *MemoryRuntime) taskMessageLocked(service string) string {
	if msg, ok := m.taskMessages[service]; ok {
		return msg
	}
	return TaskStarted
}

// SetTaskMessage sets the status message reported for the task of a service.
func (m *MemoryRuntime) SetTaskMessage(service, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskMessages[service] = message
}

// FailCreate makes every CreateService call for name fail with err; nil clears it.
func (m *MemoryRuntime) FailCreate(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErrs[name] = err
}

// FailRemove makes every RemoveService call for name fail with err; nil clears it.
func (m *MemoryRuntime) FailRemove(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeErrs[name] = err
}

// Spec returns the spec a service was created with.
func (m *MemoryRuntime) Spec(name string) (ServiceSpec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[name]
	if !ok {
		return ServiceSpec{}, false
	}
	return svc.spec, true
}

// Names returns the names of every existing service, sorted.
func (m *MemoryRuntime) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateCalls returns how many times CreateService was called for name.
func (m *MemoryRuntime) CreateCalls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls[name]
}

// RemoveCalls returns how many times RemoveService was called for name.
func (m *MemoryRuntime) RemoveCalls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeCalls[name]
}
