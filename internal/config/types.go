package config

import "time"

// Config is the top-level configuration structure for wkfmanager.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Runtime       RuntimeConfig      `yaml:"runtime"`
	Health        HealthConfig       `yaml:"health"`
	Notifications NotificationConfig `yaml:"notifications"`
	Coordinator   CoordinatorConfig  `yaml:"coordinator"`

	// InfraComponent names the component every other component depends on.
	// It is started first and torn down last.
	InfraComponent string `yaml:"infraComponent"`

	// CatalogPath optionally points at a YAML file with a components list.
	// When set, it replaces Components and is watched for changes.
	CatalogPath string `yaml:"catalogPath,omitempty"`

	// Components is the built-in component catalog.
	Components []ComponentConfig `yaml:"components,omitempty"`
}

// ServerConfig defines where the REST API listens.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"` // Host to bind to (default: 0.0.0.0)
	Port int    `yaml:"port,omitempty"` // Port to listen on (default: 8080)

	// WriteTimeout bounds one request, transition included. Zero derives
	// it from the health budget.
	WriteTimeout time.Duration `yaml:"writeTimeout,omitempty"`
}

// RuntimeType selects the cluster runtime implementation.
type RuntimeType string

const (
	RuntimeTypeSwarm      RuntimeType = "swarm"
	RuntimeTypeKubernetes RuntimeType = "kubernetes"
	RuntimeTypeMemory     RuntimeType = "memory"
)

// RuntimeConfig defines how component instances are placed on the cluster.
type RuntimeConfig struct {
	Type        RuntimeType `yaml:"type,omitempty"`        // swarm, kubernetes or memory (default: swarm)
	Network     string      `yaml:"network,omitempty"`     // Overlay network services attach to (default: myNet)
	Namespace   string      `yaml:"namespace,omitempty"`   // Kubernetes namespace (default: default)
	ImagePrefix string      `yaml:"imagePrefix,omitempty"` // Prepended to component names (default: trishaire/)
	ImageTag    string      `yaml:"imageTag,omitempty"`    // Appended to component images (default: latest)
	DockerHost  string      `yaml:"dockerHost,omitempty"`  // Overrides DOCKER_HOST for the swarm runtime
}

// HealthConfig defines the health polling budget.
type HealthConfig struct {
	Interval          time.Duration `yaml:"interval,omitempty"`          // Pause between probes (default: 5s)
	InfraAttempts     int           `yaml:"infraAttempts,omitempty"`     // Probes for the infra component (default: 9)
	ComponentAttempts int           `yaml:"componentAttempts,omitempty"` // Probes for other components (default: 4)
	RequestTimeout    time.Duration `yaml:"requestTimeout,omitempty"`    // Timeout of one HTTP call to a component (default: 3s)

	// Host, when set, makes probes and spec pushes go to Host:PublishedPort
	// instead of InstanceName:TargetPort. Useful when the engine runs outside
	// the overlay network.
	Host string `yaml:"host,omitempty"`
}

// TransitionBudget is the longest a single transition can spend polling:
// the infra component and then the other components each exhaust their
// attempts, plus one spec push and one unassign.
func (h HealthConfig) TransitionBudget() time.Duration {
	perAttempt := h.Interval + h.RequestTimeout
	return time.Duration(h.InfraAttempts+h.ComponentAttempts)*perAttempt + 2*h.RequestTimeout
}

// NotificationConfig defines how result notifications reach the origin.
type NotificationConfig struct {
	Port     int           `yaml:"port,omitempty"`     // Port on the origin host (default: 8080)
	Path     string        `yaml:"path,omitempty"`     // Request path (default: /results)
	Timeout  time.Duration `yaml:"timeout,omitempty"`  // Per notification timeout (default: 5s)
	Disabled bool          `yaml:"disabled,omitempty"` // Suppress all notifications
}

// CoordinatorConfig bounds the fan-out of sibling actions.
type CoordinatorConfig struct {
	// MaxParallel limits concurrently running sibling actions; 0 means unbounded.
	MaxParallel int `yaml:"maxParallel,omitempty"`
}

// ComponentConfig describes one deployable component.
type ComponentConfig struct {
	Name       string `yaml:"name"`
	Port       int    `yaml:"port"`                 // Base published port
	TargetPort int    `yaml:"targetPort,omitempty"` // Port the container listens on (default: Port)
	Image      string `yaml:"image,omitempty"`      // Full image reference (default: ImagePrefix+Name+":"+ImageTag)
}
