package cluster

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"wkfmanager/internal/api"
	"wkfmanager/pkg/logging"
)

const swarmSubsystem = "Swarm"

// SwarmRuntime implements Runtime on Docker Swarm services through the
// Docker Engine API.
type SwarmRuntime struct {
	cli *client.Client
}

// NewSwarmRuntime creates a swarm runtime. Without options the client is
// configured from the environment (DOCKER_HOST and friends) and negotiates
// the API version with the daemon.
func NewSwarmRuntime(opts ...client.Opt) (*SwarmRuntime, error) {
	if len(opts) == 0 {
		opts = []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &SwarmRuntime{cli: cli}, nil
}

// CreateService creates a single replica service published in VIP mode on
// the ingress network.
func (s *SwarmRuntime) CreateService(ctx context.Context, spec ServiceSpec) (Service, error) {
	svcSpec := swarm.ServiceSpec{
		Annotations: swarm.Annotations{
			Name:   spec.Name,
			Labels: spec.Labels,
		},
		TaskTemplate: swarm.TaskSpec{
			ContainerSpec: &swarm.ContainerSpec{
				Image: spec.Image,
				Env:   spec.Env,
			},
		},
		EndpointSpec: &swarm.EndpointSpec{
			Mode: swarm.ResolutionModeVIP,
			Ports: []swarm.PortConfig{{
				Protocol:      swarm.PortConfigProtocolTCP,
				TargetPort:    uint32(spec.TargetPort),
				PublishedPort: uint32(spec.PublishedPort),
				PublishMode:   swarm.PortConfigPublishModeIngress,
			}},
		},
	}
	if spec.Network != "" {
		svcSpec.TaskTemplate.Networks = []swarm.NetworkAttachmentConfig{{Target: spec.Network}}
	}

	logging.Debug(swarmSubsystem, "Creating service %s from %s (%d:%d)", spec.Name, spec.Image, spec.PublishedPort, spec.TargetPort)

	resp, err := s.cli.ServiceCreate(ctx, svcSpec, types.ServiceCreateOptions{})
	if err != nil {
		return Service{}, fmt.Errorf("failed to create service %s: %w", spec.Name, err)
	}
	for _, w := range resp.Warnings {
		logging.Warn(swarmSubsystem, "Service %s: %s", spec.Name, w)
	}

	logging.Info(swarmSubsystem, "Created service %s (%s)", spec.Name, shortID(resp.ID))
	return Service{ID: resp.ID, Name: spec.Name}, nil
}

// ListServices lists services whose name contains nameFilter.
func (s *SwarmRuntime) ListServices(ctx context.Context, nameFilter string) ([]Service, error) {
	opts := types.ServiceListOptions{}
	if nameFilter != "" {
		opts.Filters = filters.NewArgs(filters.Arg("name", nameFilter))
	}

	services, err := s.cli.ServiceList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	result := make([]Service, 0, len(services))
	for _, svc := range services {
		result = append(result, Service{ID: svc.ID, Name: svc.Spec.Name})
	}
	return result, nil
}

// RemoveService removes a service by name.
func (s *SwarmRuntime) RemoveService(ctx context.Context, name string) error {
	if err := s.cli.ServiceRemove(ctx, name); err != nil {
		if errdefs.IsNotFound(err) {
			return &api.NotFoundError{ResourceType: "service", ResourceName: name, Message: err.Error()}
		}
		return fmt.Errorf("failed to remove service %s: %w", name, err)
	}
	logging.Info(swarmSubsystem, "Removed service %s", name)
	return nil
}

// ListTasks lists the tasks of a service.
func (s *SwarmRuntime) ListTasks(ctx context.Context, service string) ([]Task, error) {
	tasks, err := s.cli.TaskList(ctx, types.TaskListOptions{
		Filters: filters.NewArgs(filters.Arg("service", service)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks of %s: %w", service, err)
	}

	result := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, Task{
			ID:        t.ID,
			ServiceID: t.ServiceID,
			State:     string(t.Status.State),
			Message:   t.Status.Message,
		})
	}
	return result, nil
}

// InspectTaskStatus returns the status message of a task.
func (s *SwarmRuntime) InspectTaskStatus(ctx context.Context, taskID string) (string, error) {
	task, _, err := s.cli.TaskInspectWithRaw(ctx, taskID)
	if err != nil {
		return "", fmt.Errorf("failed to inspect task %s: %w", taskID, err)
	}
	return task.Status.Message, nil
}

// Close closes the docker client.
func (s *SwarmRuntime) Close() error {
	return s.cli.Close()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
