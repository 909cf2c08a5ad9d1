package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wkfmanager/internal/api"
	"wkfmanager/internal/config"
)

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	cfg := config.GetDefaultConfig()
	c, err := FromConfig(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_Defaults(t *testing.T) {
	c := defaultCatalog(t)

	assert.Equal(t, "cass", c.Infra())
	assert.True(t, c.IsInfra("cass"))
	assert.False(t, c.IsInfra("restocker"))
	assert.Equal(t, []string{"cass", "delivery-assigner", "order-processor", "order-verifier", "restocker", "stock-analyzer"}, c.Names())

	restocker, ok := c.Lookup("restocker")
	require.True(t, ok)
	assert.Equal(t, Definition{Name: "restocker", Image: "trishaire/restocker:latest", Port: 5000, TargetPort: 5000}, restocker)

	cass, ok := c.Lookup("cass")
	require.True(t, ok)
	assert.Equal(t, "trishaire/cass", cass.Image)
	assert.True(t, cass.Infra)
}

func TestNew_Duplicate(t *testing.T) {
	_, err := New([]config.ComponentConfig{
		{Name: "restocker", Port: 5000},
		{Name: "restocker", Port: 5001},
	}, "cass", "", "")
	assert.Error(t, err)
}

func TestNew_MissingInfra(t *testing.T) {
	_, err := New([]config.ComponentConfig{{Name: "restocker", Port: 5000}}, "cass", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cass")
}

func TestValidate(t *testing.T) {
	c := defaultCatalog(t)

	assert.NoError(t, c.Validate(api.WorkflowSpec{ComponentList: []string{"cass", "restocker"}}))

	err := c.Validate(api.WorkflowSpec{ComponentList: []string{"restocker", "pizza-oven"}})
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))
	assert.Contains(t, err.Error(), "pizza-oven")
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "restocker", InstanceName("restocker", api.MethodPersistent, 3))
	assert.Equal(t, "restocker3", InstanceName("restocker", api.MethodEdge, 3))
}

func TestResolve(t *testing.T) {
	c := defaultCatalog(t)

	tests := []struct {
		name      string
		component string
		spec      api.WorkflowSpec
		want      Instance
	}{
		{
			name:      "persistent component uses shared infra",
			component: "order-verifier",
			spec: api.WorkflowSpec{
				Method:        api.MethodPersistent,
				ComponentList: []string{"cass", "order-verifier"},
			},
			want: Instance{
				Component:     "order-verifier",
				Name:          "order-verifier",
				Image:         "trishaire/order-verifier:latest",
				PublishedPort: 1000,
				TargetPort:    1000,
				Method:        api.MethodPersistent,
				Env:           []string{"CASS_DB=cass"},
			},
		},
		{
			name:      "edge component is offset and wired to its own infra",
			component: "restocker",
			spec: api.WorkflowSpec{
				Method:         api.MethodEdge,
				ComponentList:  []string{"restocker", "cass"},
				WorkflowOffset: 2,
			},
			want: Instance{
				Component:     "restocker",
				Name:          "restocker2",
				Image:         "trishaire/restocker:latest",
				PublishedPort: 5002,
				TargetPort:    5000,
				Method:        api.MethodEdge,
				Env:           []string{"CASS_DB=cass2"},
			},
		},
		{
			name:      "edge component without infra in the workflow uses the shared one",
			component: "restocker",
			spec: api.WorkflowSpec{
				Method:         api.MethodEdge,
				ComponentList:  []string{"restocker"},
				WorkflowOffset: 4,
			},
			want: Instance{
				Component:     "restocker",
				Name:          "restocker4",
				Image:         "trishaire/restocker:latest",
				PublishedPort: 5004,
				TargetPort:    5000,
				Method:        api.MethodEdge,
				Env:           []string{"CASS_DB=cass"},
			},
		},
		{
			name:      "edge infra",
			component: "cass",
			spec: api.WorkflowSpec{
				Method:         api.MethodEdge,
				ComponentList:  []string{"cass"},
				WorkflowOffset: 1,
			},
			want: Instance{
				Component:     "cass",
				Name:          "cass1",
				Image:         "trishaire/cass",
				PublishedPort: 9043,
				TargetPort:    9042,
				Infra:         true,
				Method:        api.MethodEdge,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Resolve(tt.component, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.Resolve("pizza-oven", api.WorkflowSpec{Method: api.MethodPersistent})
	assert.True(t, api.IsNotFound(err))
}

func TestStore(t *testing.T) {
	first := defaultCatalog(t)
	store := NewStore(first)
	assert.Same(t, first, store.Current())

	second, err := New([]config.ComponentConfig{{Name: "cass", Port: 9042}}, "cass", "", "")
	require.NoError(t, err)
	store.Set(second)
	assert.Same(t, second, store.Current())
}
