package cluster

import (
	"context"
)

// TaskStarted is the task status message that marks an infra instance as
// ready for connections.
const TaskStarted = "started"

// Runtime defines the cluster operations the engine needs to place and
// remove component instances.
type Runtime interface {
	// CreateService creates a replicated service for one component instance
	CreateService(ctx context.Context, spec ServiceSpec) (Service, error)

	// ListServices lists services whose name contains nameFilter. Like the
	// Docker name filter this is a substring match: use LookupService for
	// an exact lookup.
	ListServices(ctx context.Context, nameFilter string) ([]Service, error)

	// RemoveService removes a service by name. Returns an *api.NotFoundError
	// if it does not exist.
	RemoveService(ctx context.Context, name string) error

	// ListTasks lists the tasks (running replicas) of a service
	ListTasks(ctx context.Context, service string) ([]Task, error)

	// InspectTaskStatus returns the status message of a task
	InspectTaskStatus(ctx context.Context, taskID string) (string, error)

	// Close releases the connection to the cluster
	Close() error
}

// ServiceSpec holds the configuration of a service to create
type ServiceSpec struct {
	Name          string            // Service name, also its DNS name on the network
	Image         string            // Container image
	PublishedPort int               // Port published on the cluster ingress
	TargetPort    int               // Port the container listens on
	Env           []string          // Environment variables as KEY=VALUE
	Network       string            // Overlay network to attach to
	Labels        map[string]string // Labels set on the service
}

// Service identifies a created service
type Service struct {
	ID   string
	Name string
}

// Task is one scheduled replica of a service
type Task struct {
	ID        string
	ServiceID string
	State     string
	Message   string
}

// LookupService returns the service with exactly the given name.
func LookupService(ctx context.Context, rt Runtime, name string) (Service, bool, error) {
	services, err := rt.ListServices(ctx, name)
	if err != nil {
		return Service{}, false, err
	}
	for _, svc := range services {
		if svc.Name == name {
			return svc, true, nil
		}
	}
	return Service{}, false, nil
}

// Labels returned by DefaultLabels.
const (
	LabelManagedBy = "app.kubernetes.io/managed-by"
	LabelName      = "app.kubernetes.io/name"
	LabelComponent = "wkfmanager.io/component"
	managerName    = "wkfmanager"
)

// DefaultLabels returns the labels every service created by the engine carries.
func DefaultLabels(instance, component string) map[string]string {
	return map[string]string{
		LabelManagedBy: managerName,
		LabelName:      instance,
		LabelComponent: component,
	}
}
