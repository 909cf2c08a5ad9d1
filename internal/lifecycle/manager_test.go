package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wkfmanager/internal/api"
	"wkfmanager/internal/catalog"
	"wkfmanager/internal/cluster"
	"wkfmanager/internal/notify"
)

// fakeClock records sleeps and returns immediately
type fakeClock struct {
	mu      sync.Mutex
	sleeps  []time.Duration
	onSleep func(n int)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeClient is a scripted component contract
type fakeClient struct {
	mu          sync.Mutex
	healthyFrom int // Health succeeds from this call on; 0 means always
	healthCalls int
	assignErr   error
	assigned    map[string]api.WorkflowSpec
	updated     map[string]api.WorkflowSpec
	unassigned  []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		assigned: make(map[string]api.WorkflowSpec),
		updated:  make(map[string]api.WorkflowSpec),
	}
}

func (f *fakeClient) Health(ctx context.Context, inst catalog.Instance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthCalls++
	if f.healthyFrom < 0 || f.healthCalls < f.healthyFrom {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeClient) Assign(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assigned[inst.Name+"/"+storeID] = spec
	return nil
}

func (f *fakeClient) Update(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[inst.Name+"/"+storeID] = spec
	return nil
}

func (f *fakeClient) Unassign(ctx context.Context, inst catalog.Instance, storeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unassigned = append(f.unassigned, inst.Name+"/"+storeID)
	return nil
}

// recordingNotifier keeps every notification
type recordingNotifier struct {
	mu      sync.Mutex
	reasons []notify.Reason
	data    []notify.Data
}

func (r *recordingNotifier) Notify(ctx context.Context, origin string, reason notify.Reason, data notify.Data) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
	r.data = append(r.data, data)
}

func (r *recordingNotifier) Reasons() []notify.Reason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Reason(nil), r.reasons...)
}

var (
	cassInst = catalog.Instance{
		Component: "cass", Name: "cass", Image: "trishaire/cass:latest",
		PublishedPort: 9042, TargetPort: 9042, Infra: true, Method: api.MethodPersistent,
	}
	restockerInst = catalog.Instance{
		Component: "restocker", Name: "restocker2", Image: "trishaire/restocker:latest",
		PublishedPort: 5002, TargetPort: 5000, Method: api.MethodEdge,
		Env: []string{"CASS_DB=cass2"},
	}
	edgeSpec = api.WorkflowSpec{
		Method:         api.MethodEdge,
		ComponentList:  []string{"cass", "restocker"},
		Origin:         "owner",
		WorkflowOffset: 2,
	}
)

type fixture struct {
	runtime  *cluster.MemoryRuntime
	client   *fakeClient
	clock    *fakeClock
	notifier *recordingNotifier
	manager  *Manager
}

func newFixture() *fixture {
	f := &fixture{
		runtime:  cluster.NewMemoryRuntime(),
		client:   newFakeClient(),
		clock:    &fakeClock{},
		notifier: &recordingNotifier{},
	}
	f.manager = NewManager(f.runtime, f.client, Options{
		Network:  "myNet",
		Clock:    f.clock,
		Notifier: f.notifier,
	})
	return f
}

func TestEnsureCreated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.manager.EnsureCreated(ctx, restockerInst)
	require.NoError(t, err)
	assert.True(t, created)

	spec, ok := f.runtime.Spec("restocker2")
	require.True(t, ok)
	assert.Equal(t, "trishaire/restocker:latest", spec.Image)
	assert.Equal(t, 5002, spec.PublishedPort)
	assert.Equal(t, 5000, spec.TargetPort)
	assert.Equal(t, []string{"CASS_DB=cass2"}, spec.Env)
	assert.Equal(t, "myNet", spec.Network)
	assert.Equal(t, "restocker", spec.Labels[cluster.LabelComponent])
	assert.Equal(t, StateCreating, f.manager.State("restocker2"))

	created, err = f.manager.EnsureCreated(ctx, restockerInst)
	require.NoError(t, err)
	assert.False(t, created, "an existing service is reused")
	assert.Equal(t, 1, f.runtime.CreateCalls("restocker2"))
}

func TestEnsureCreatedExactNameMatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// restocker2 contains "restocker" but is a different instance
	_, err := f.manager.EnsureCreated(ctx, restockerInst)
	require.NoError(t, err)

	persistent := restockerInst
	persistent.Name = "restocker"
	created, err := f.manager.EnsureCreated(ctx, persistent)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestEnsureCreatedFailure(t *testing.T) {
	f := newFixture()
	f.runtime.FailCreate("restocker2", errors.New("no such image"))

	created, err := f.manager.EnsureCreated(context.Background(), restockerInst)
	require.Error(t, err)
	assert.False(t, created)
	assert.Contains(t, err.Error(), "no such image")
	assert.Equal(t, StateAbsent, f.manager.State("restocker2"))
}

func TestWaitHealthyInfra(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.manager.EnsureCreated(ctx, cassInst)
	require.NoError(t, err)
	f.runtime.SetTaskMessage("cass", "preparing")
	f.clock.onSleep = func(n int) {
		if n == 2 {
			f.runtime.SetTaskMessage("cass", cluster.TaskStarted)
		}
	}

	require.NoError(t, f.manager.WaitHealthy(ctx, cassInst))
	assert.Equal(t, []time.Duration{DefaultInterval, DefaultInterval}, f.clock.Sleeps())
	assert.Equal(t, StateHealthy, f.manager.State("cass"))
	assert.Zero(t, f.client.healthCalls, "infra is never probed over HTTP")
}

func TestWaitHealthyInfraTimeout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.manager.EnsureCreated(ctx, cassInst)
	require.NoError(t, err)
	f.runtime.SetTaskMessage("cass", "preparing")

	err = f.manager.WaitHealthy(ctx, cassInst)
	var timeout *api.DependencyTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, DefaultInfraAttempts, timeout.Attempts)
	assert.Equal(t, DefaultInterval, timeout.Interval)
	assert.Equal(t, "cass", timeout.Component)
	assert.Len(t, f.clock.Sleeps(), DefaultInfraAttempts-1, "no sleep after the last attempt")
	assert.Equal(t, StateTimedOut, f.manager.State("cass"))
}

func TestWaitHealthyComponentTimeout(t *testing.T) {
	f := newFixture()
	f.client.healthyFrom = -1

	err := f.manager.WaitHealthy(context.Background(), restockerInst)
	assert.True(t, api.IsDependencyTimeout(err))
	assert.Equal(t, DefaultComponentAttempts, f.client.healthCalls)
	assert.Len(t, f.clock.Sleeps(), DefaultComponentAttempts-1)
}

func TestWaitHealthyCancelled(t *testing.T) {
	f := newFixture()
	f.client.healthyFrom = -1
	ctx, cancel := context.WithCancel(context.Background())
	f.clock.onSleep = func(n int) { cancel() }

	err := f.manager.WaitHealthy(ctx, restockerInst)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, api.IsDependencyTimeout(err))
}

func TestStart(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var transitions []State
	f.manager.SetStateChangeCallback(func(instance string, oldState, newState State, err error) {
		if instance == "restocker2" {
			transitions = append(transitions, newState)
		}
	})

	require.NoError(t, f.manager.Start(ctx, cassInst, "store-a", edgeSpec))
	require.NoError(t, f.manager.Start(ctx, restockerInst, "store-a", edgeSpec))

	assert.Equal(t, []State{StateCreating, StateHealthChecking, StateHealthy}, transitions)
	assert.Equal(t, edgeSpec, f.client.assigned["restocker2/store-a"])
	assert.NotContains(t, f.client.assigned, "cass/store-a", "infra has no HTTP contract")
	assert.Equal(t, []notify.Reason{notify.ReasonComponentHealthy, notify.ReasonComponentHealthy}, f.notifier.Reasons())
	assert.Equal(t, []string{"cass", "restocker2"}, f.runtime.Names())
}

func TestStartRemovesOwnInstanceOnTimeout(t *testing.T) {
	f := newFixture()
	f.client.healthyFrom = -1

	err := f.manager.Start(context.Background(), restockerInst, "store-a", edgeSpec)
	assert.True(t, api.IsDependencyTimeout(err))
	assert.Empty(t, f.runtime.Names())
	assert.Equal(t, StateAbsent, f.manager.State("restocker2"))
	assert.Equal(t, []notify.Reason{notify.ReasonComponentTimedOut}, f.notifier.Reasons())
	assert.Equal(t, DefaultComponentAttempts, f.notifier.data[0].Attempts)
}

func TestStartKeepsSharedInstanceOnTimeout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	shared := restockerInst
	shared.Name = "restocker"
	_, err := f.manager.EnsureCreated(ctx, shared)
	require.NoError(t, err)

	f.client.healthyFrom = -1
	err = f.manager.Start(ctx, shared, "store-b", edgeSpec)
	assert.True(t, api.IsDependencyTimeout(err))
	assert.Equal(t, []string{"restocker"}, f.runtime.Names(), "instance created elsewhere is not removed")
	assert.Zero(t, f.runtime.RemoveCalls("restocker"))
}

func TestStartAssignFailure(t *testing.T) {
	f := newFixture()
	f.client.assignErr = errors.New("422 rejected")

	err := f.manager.Start(context.Background(), restockerInst, "store-a", edgeSpec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422 rejected")
	assert.Equal(t, []notify.Reason{notify.ReasonComponentFailed}, f.notifier.Reasons())
}

func TestUpdateSpecAndUnassign(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.manager.UpdateSpec(ctx, restockerInst, "store-a", edgeSpec))
	require.NoError(t, f.manager.UpdateSpec(ctx, cassInst, "store-a", edgeSpec))
	assert.Len(t, f.client.updated, 1)

	require.NoError(t, f.manager.Unassign(ctx, restockerInst, "store-a"))
	require.NoError(t, f.manager.Unassign(ctx, cassInst, "store-a"))
	assert.Equal(t, []string{"restocker2/store-a"}, f.client.unassigned)
}

func TestRemove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.manager.EnsureCreated(ctx, restockerInst)
	require.NoError(t, err)

	require.NoError(t, f.manager.Remove(ctx, restockerInst))
	assert.Empty(t, f.runtime.Names())

	require.NoError(t, f.manager.Remove(ctx, restockerInst), "removing an absent instance succeeds")

	f.runtime.FailRemove("restocker2", errors.New("daemon unavailable"))
	assert.Error(t, f.manager.Remove(ctx, restockerInst))
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("restocker")
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Empty(t, k.locks, "released keys are dropped")
}

func TestPoll(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	attempts, err := poll(context.Background(), clock, Policy{Attempts: 3, Backoff: NewConstant(time.Second)}, func(context.Context) error {
		calls++
		if calls == 3 {
			return nil
		}
		return errors.New("not yet")
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, clock.Sleeps(), 2)

	attempts, err = poll(context.Background(), clock, Policy{Attempts: 0, Backoff: NewConstant(time.Second)}, func(context.Context) error {
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, attempts, "a non-positive budget still probes once")
}

func TestRealClockHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RealClock.Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, RealClock.Sleep(context.Background(), time.Millisecond))
}
