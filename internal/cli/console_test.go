package cli

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wkfmanager/internal/api"
)

// scriptedInput replays lines, then reports end of input
type scriptedInput struct {
	lines   []string
	prompts []string
}

func (s *scriptedInput) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	if line == "^C" {
		return "", readline.ErrInterrupt
	}
	return line, nil
}

func (s *scriptedInput) SetPrompt(prompt string) {
	s.prompts = append(s.prompts, prompt)
}

// memoryClient keeps workflows in a map
type memoryClient struct {
	workflows map[string]api.WorkflowSpec
	calls     []string
}

func newMemoryClient() *memoryClient {
	return &memoryClient{workflows: map[string]api.WorkflowSpec{}}
}

func (m *memoryClient) Create(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	m.calls = append(m.calls, "create "+storeID)
	if _, ok := m.workflows[storeID]; ok {
		return api.WorkflowSpec{}, api.NewConflictError(storeID, "Workflow %s already exists", storeID)
	}
	m.workflows[storeID] = spec
	return spec, nil
}

func (m *memoryClient) Update(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	m.calls = append(m.calls, "update "+storeID)
	m.workflows[storeID] = spec
	return spec, nil
}

func (m *memoryClient) Delete(ctx context.Context, storeID string) error {
	m.calls = append(m.calls, "delete "+storeID)
	delete(m.workflows, storeID)
	return nil
}

func (m *memoryClient) Get(ctx context.Context, storeID string) (api.WorkflowSpec, error) {
	m.calls = append(m.calls, "get "+storeID)
	spec, ok := m.workflows[storeID]
	if !ok {
		return api.WorkflowSpec{}, api.NewWorkflowNotFoundError(storeID)
	}
	return spec, nil
}

func (m *memoryClient) List(ctx context.Context) (map[string]api.WorkflowSpec, error) {
	m.calls = append(m.calls, "list")
	return m.workflows, nil
}

var consoleComponents = []string{"order-verifier", "delivery-assigner", "cass", "restocker"}

func TestConsoleCreateAndTeardown(t *testing.T) {
	in := &scriptedInput{lines: []string{
		"D", "b", // invalid store, then B
		"1", "hybrid", "edge", "cass unknown", "CASS Restocker",
		"1", "persistent", "cass", // conflict is reported, not fatal
		"3",
		"2",
		"0",
	}}
	client := newMemoryClient()
	var out bytes.Buffer

	c := NewConsole(client, in, &out, "10.0.0.7", consoleComponents)
	require.NoError(t, c.Run(context.Background()))

	storeB := Stores[1].ID
	assert.Equal(t, storeB, c.StoreID())
	assert.Equal(t, []string{"create " + storeB, "create " + storeB, "get " + storeB, "delete " + storeB}, client.calls)
	assert.Empty(t, client.workflows)

	text := out.String()
	assert.Contains(t, text, "Workflow successfully deployed!")
	assert.Contains(t, text, "already exists")
	assert.Contains(t, text, `"restocker"`)
	assert.Contains(t, in.prompts, "Invalid selection. Pick A-C: ")
	assert.Contains(t, in.prompts, "Invalid selection. Pick persistent or edge: ")
}

func TestConsoleCreateSendsSpec(t *testing.T) {
	in := &scriptedInput{lines: []string{"A", "1", "edge", "cass restocker", "5", "edge", "cass", "4"}}
	client := newMemoryClient()
	var out bytes.Buffer

	c := NewConsole(client, in, &out, "10.0.0.7", consoleComponents)
	require.NoError(t, c.Run(context.Background()), "end of input ends the console")

	spec := client.workflows[Stores[0].ID]
	assert.Equal(t, api.WorkflowSpec{Method: api.MethodEdge, ComponentList: []string{"cass"}, Origin: "10.0.0.7"}, spec)
	assert.Equal(t, "list", client.calls[len(client.calls)-1])
}

func TestConsoleInterruptRePrompts(t *testing.T) {
	in := &scriptedInput{lines: []string{"^C", "C", "^C", "0"}}
	client := newMemoryClient()

	c := NewConsole(client, in, io.Discard, "o", consoleComponents)
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, Stores[2].ID, c.StoreID())
	assert.Empty(t, client.calls)
}

func TestConsoleStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := &scriptedInput{lines: []string{"A", "4"}}
	client := newMemoryClient()
	c := NewConsole(client, in, io.Discard, "o", consoleComponents)
	require.NoError(t, c.Run(ctx))
	assert.Empty(t, client.calls)
}
