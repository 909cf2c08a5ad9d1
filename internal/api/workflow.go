package api

import "slices"

// Method selects how the components of a workflow are deployed.
type Method string

const (
	// MethodPersistent shares one instance per component across every
	// workflow that lists it.
	MethodPersistent Method = "persistent"

	// MethodEdge gives each workflow its own private instance of every
	// component, named and published with the workflow offset.
	MethodEdge Method = "edge"
)

// Valid reports whether m is one of the known deployment methods.
func (m Method) Valid() bool {
	return m == MethodPersistent || m == MethodEdge
}

// WorkflowSpec is the declarative description of one customer pipeline.
//
// The storeId is not part of the body: it is the path parameter of every
// request and the key under which the spec is registered.
type WorkflowSpec struct {
	// Method is the deployment mode of every component of the workflow.
	Method Method `json:"method" yaml:"method" jsonschema:"enum=persistent,enum=edge,description=Deployment mode of the workflow components"`

	// ComponentList is the ordered list of component names. The infra
	// component may appear anywhere; it is always handled first on create
	// and last on teardown.
	ComponentList []string `json:"component-list" yaml:"component-list" jsonschema:"minItems=1,uniqueItems=true,description=Ordered list of component names"`

	// Origin is the host notifications are sent to.
	Origin string `json:"origin" yaml:"origin" jsonschema:"minLength=1,description=Host that receives result notifications"`

	// WorkflowOffset is assigned by the engine for edge workflows and is
	// immutable afterwards. Client-supplied values are ignored.
	WorkflowOffset int `json:"workflow-offset,omitempty" yaml:"workflow-offset,omitempty" jsonschema:"minimum=0,description=Server-assigned port and name offset for edge workflows"`
}

// Clone returns a deep copy of the spec.
func (s WorkflowSpec) Clone() WorkflowSpec {
	s.ComponentList = slices.Clone(s.ComponentList)
	return s
}

// Has reports whether the workflow lists the given component.
func (s WorkflowSpec) Has(component string) bool {
	return slices.Contains(s.ComponentList, component)
}

// Operation names a transition of a workflow.
type Operation string

const (
	OperationCreate   Operation = "create"
	OperationUpdate   Operation = "update"
	OperationTeardown Operation = "teardown"
)
