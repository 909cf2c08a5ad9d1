package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wkfmanager/internal/api"
)

const fakeAPIVersion = "1.47"

// fakeEngine is a minimal Docker Engine API serving the swarm endpoints the
// runtime uses.
type fakeEngine struct {
	mu       sync.Mutex
	services map[string]swarm.ServiceSpec
	messages map[string]string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		services: make(map[string]swarm.ServiceSpec),
		messages: make(map[string]string),
	}
}

func (f *fakeEngine) handler() http.Handler {
	prefix := "/v" + fakeAPIVersion
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+prefix+"/services/create", func(w http.ResponseWriter, r *http.Request) {
		var spec swarm.ServiceSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeEngineError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.mu.Lock()
		f.services[spec.Name] = spec
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(swarm.ServiceCreateResponse{ID: "id-" + spec.Name})
	})

	mux.HandleFunc("GET "+prefix+"/services", func(w http.ResponseWriter, r *http.Request) {
		args, err := filters.FromJSON(r.URL.Query().Get("filters"))
		if err != nil {
			writeEngineError(w, http.StatusBadRequest, err.Error())
			return
		}
		names := args.Get("name")

		f.mu.Lock()
		var out []swarm.Service
		for name, spec := range f.services {
			if len(names) == 0 || strings.Contains(name, names[0]) {
				out = append(out, swarm.Service{ID: "id-" + name, Spec: spec})
			}
		}
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("DELETE "+prefix+"/services/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		f.mu.Lock()
		_, ok := f.services[name]
		delete(f.services, name)
		f.mu.Unlock()
		if !ok {
			writeEngineError(w, http.StatusNotFound, "service "+name+" not found")
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET "+prefix+"/tasks", func(w http.ResponseWriter, r *http.Request) {
		args, err := filters.FromJSON(r.URL.Query().Get("filters"))
		if err != nil {
			writeEngineError(w, http.StatusBadRequest, err.Error())
			return
		}
		service := args.Get("service")

		f.mu.Lock()
		var out []swarm.Task
		for name := range f.services {
			if len(service) > 0 && service[0] == name {
				out = append(out, f.taskLocked(name))
			}
		}
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("GET "+prefix+"/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.PathValue("id"), "task-")
		f.mu.Lock()
		_, ok := f.services[name]
		var task swarm.Task
		if ok {
			task = f.taskLocked(name)
		}
		f.mu.Unlock()
		if !ok {
			writeEngineError(w, http.StatusNotFound, "task not found")
			return
		}
		_ = json.NewEncoder(w).Encode(task)
	})

	return mux
}

func (f *fakeEngine) taskLocked(service string) swarm.Task {
	msg, ok := f.messages[service]
	if !ok {
		msg = TaskStarted
	}
	return swarm.Task{
		ID:        "task-" + service,
		ServiceID: "id-" + service,
		Status:    swarm.TaskStatus{State: swarm.TaskStateRunning, Message: msg},
	}
}

func writeEngineError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

func newTestSwarmRuntime(t *testing.T) (*SwarmRuntime, *fakeEngine) {
	t.Helper()
	engine := newFakeEngine()
	srv := httptest.NewServer(engine.handler())
	t.Cleanup(srv.Close)

	rt, err := NewSwarmRuntime(
		client.WithHost("tcp://"+srv.Listener.Addr().String()),
		client.WithVersion(fakeAPIVersion),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt, engine
}

func TestSwarmRuntime_CreateService(t *testing.T) {
	rt, engine := newTestSwarmRuntime(t)
	ctx := context.Background()

	svc, err := rt.CreateService(ctx, ServiceSpec{
		Name:          "restocker2",
		Image:         "trishaire/restocker:latest",
		PublishedPort: 5002,
		TargetPort:    5000,
		Env:           []string{"CASS_DB=cass2"},
		Network:       "myNet",
		Labels:        DefaultLabels("restocker2", "restocker"),
	})
	require.NoError(t, err)
	assert.Equal(t, Service{ID: "id-restocker2", Name: "restocker2"}, svc)

	engine.mu.Lock()
	spec := engine.services["restocker2"]
	engine.mu.Unlock()

	require.NotNil(t, spec.TaskTemplate.ContainerSpec)
	assert.Equal(t, "trishaire/restocker:latest", spec.TaskTemplate.ContainerSpec.Image)
	assert.Equal(t, []string{"CASS_DB=cass2"}, spec.TaskTemplate.ContainerSpec.Env)
	assert.Equal(t, []swarm.NetworkAttachmentConfig{{Target: "myNet"}}, spec.TaskTemplate.Networks)
	require.NotNil(t, spec.EndpointSpec)
	assert.Equal(t, swarm.ResolutionModeVIP, spec.EndpointSpec.Mode)
	require.Len(t, spec.EndpointSpec.Ports, 1)
	assert.Equal(t, uint32(5002), spec.EndpointSpec.Ports[0].PublishedPort)
	assert.Equal(t, uint32(5000), spec.EndpointSpec.Ports[0].TargetPort)
	assert.Equal(t, "restocker", spec.Labels[LabelComponent])
}

func TestSwarmRuntime_LookupIsExact(t *testing.T) {
	rt, _ := newTestSwarmRuntime(t)
	ctx := context.Background()

	_, err := rt.CreateService(ctx, ServiceSpec{Name: "restocker12", Image: "img", PublishedPort: 5012, TargetPort: 5000})
	require.NoError(t, err)

	services, err := rt.ListServices(ctx, "restocker1")
	require.NoError(t, err)
	assert.Len(t, services, 1, "the name filter is a substring match")

	_, found, err := LookupService(ctx, rt, "restocker1")
	require.NoError(t, err)
	assert.False(t, found)

	svc, found, err := LookupService(ctx, rt, "restocker12")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "restocker12", svc.Name)
}

func TestSwarmRuntime_Tasks(t *testing.T) {
	rt, engine := newTestSwarmRuntime(t)
	ctx := context.Background()

	_, err := rt.CreateService(ctx, ServiceSpec{Name: "cass", Image: "trishaire/cass", PublishedPort: 9042, TargetPort: 9042})
	require.NoError(t, err)

	engine.mu.Lock()
	engine.messages["cass"] = "preparing"
	engine.mu.Unlock()

	tasks, err := rt.ListTasks(ctx, "cass")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-cass", tasks[0].ID)
	assert.Equal(t, "preparing", tasks[0].Message)

	engine.mu.Lock()
	engine.messages["cass"] = TaskStarted
	engine.mu.Unlock()

	msg, err := rt.InspectTaskStatus(ctx, "task-cass")
	require.NoError(t, err)
	assert.Equal(t, TaskStarted, msg)
}

func TestSwarmRuntime_RemoveService(t *testing.T) {
	rt, _ := newTestSwarmRuntime(t)
	ctx := context.Background()

	_, err := rt.CreateService(ctx, ServiceSpec{Name: "order-verifier", Image: "img", PublishedPort: 1000, TargetPort: 1000})
	require.NoError(t, err)

	require.NoError(t, rt.RemoveService(ctx, "order-verifier"))

	err = rt.RemoveService(ctx, "order-verifier")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}
