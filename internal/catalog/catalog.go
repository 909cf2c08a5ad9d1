package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"wkfmanager/internal/api"
	"wkfmanager/internal/config"
)

// EnvInfraHost is the environment variable that tells a component which
// infra instance to connect to.
const EnvInfraHost = "CASS_DB"

// Definition is one deployable component of the catalog.
type Definition struct {
	Name       string
	Image      string
	Port       int
	TargetPort int
	Infra      bool
}

// Instance is a Definition resolved for one workflow: the concrete cluster
// service that backs the component for that workflow.
type Instance struct {
	Component     string
	Name          string
	Image         string
	PublishedPort int
	TargetPort    int
	Infra         bool
	Method        api.Method
	Env           []string
}

// Catalog is an immutable lookup table of components.
type Catalog struct {
	infra string
	defs  map[string]Definition
}

// New builds a catalog from component configs. Images default to
// imagePrefix + name + ":" + imageTag and target ports to the base port.
func New(components []config.ComponentConfig, infra, imagePrefix, imageTag string) (*Catalog, error) {
	c := &Catalog{
		infra: infra,
		defs:  make(map[string]Definition, len(components)),
	}

	for _, comp := range components {
		if _, dup := c.defs[comp.Name]; dup {
			return nil, fmt.Errorf("component %s defined twice", comp.Name)
		}
		def := Definition{
			Name:       comp.Name,
			Image:      comp.Image,
			Port:       comp.Port,
			TargetPort: comp.TargetPort,
			Infra:      comp.Name == infra,
		}
		if def.Image == "" {
			def.Image = imagePrefix + comp.Name
			if imageTag != "" {
				def.Image += ":" + imageTag
			}
		}
		if def.TargetPort == 0 {
			def.TargetPort = def.Port
		}
		c.defs[comp.Name] = def
	}
	if _, ok := c.defs[infra]; !ok {
		return nil, fmt.Errorf("infra component %q is not in the catalog", infra)
	}
	return c, nil
}

// FromConfig builds the catalog described by cfg, reading cfg.CatalogPath
// when it is set.
func FromConfig(cfg config.Config) (*Catalog, error) {
	components := cfg.Components
	if cfg.CatalogPath != "" {
		loaded, err := config.LoadComponents(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		components = loaded
	}
	return New(components, cfg.InfraComponent, cfg.Runtime.ImagePrefix, cfg.Runtime.ImageTag)
}

// Infra returns the name of the infra component.
func (c *Catalog) Infra() string {
	return c.infra
}

// IsInfra reports whether name is the infra component.
func (c *Catalog) IsInfra(name string) bool {
	return name == c.infra
}

// Lookup returns the definition of a component.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	def, ok := c.defs[name]
	return def, ok
}

// Names returns every component name in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate rejects workflows that list components the catalog does not know.
func (c *Catalog) Validate(spec api.WorkflowSpec) error {
	var unknown []string
	for _, name := range spec.ComponentList {
		if _, ok := c.defs[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return api.NewValidationError("component-list",
			fmt.Sprintf("unknown components %s (known: %s)", strings.Join(unknown, ", "), strings.Join(c.Names(), ", ")))
	}
	return nil
}

// InstanceName returns the cluster service name of a component within a
// workflow: the bare name when persistent, name+offset when edge.
func InstanceName(component string, method api.Method, offset int) string {
	if method == api.MethodEdge {
		return component + strconv.Itoa(offset)
	}
	return component
}

// Resolve turns a component of the given workflow into the instance that
// backs it. Components are wired to the workflow's own infra instance when
// the workflow lists one, and to the shared one otherwise.
func (c *Catalog) Resolve(component string, spec api.WorkflowSpec) (Instance, error) {
	def, ok := c.defs[component]
	if !ok {
		return Instance{}, api.NewNotFoundError("component", component)
	}

	inst := Instance{
		Component:     def.Name,
		Name:          InstanceName(def.Name, spec.Method, spec.WorkflowOffset),
		Image:         def.Image,
		PublishedPort: def.Port,
		TargetPort:    def.TargetPort,
		Infra:         def.Infra,
		Method:        spec.Method,
	}
	if spec.Method == api.MethodEdge {
		inst.PublishedPort += spec.WorkflowOffset
	}

	if !def.Infra {
		infraHost := c.infra
		if spec.Has(c.infra) {
			infraHost = InstanceName(c.infra, spec.Method, spec.WorkflowOffset)
		}
		inst.Env = []string{EnvInfraHost + "=" + infraHost}
	}
	return inst, nil
}

// Store holds the current catalog and lets a watcher swap it atomically.
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore creates a store holding c.
func NewStore(c *Catalog) *Store {
	s := &Store{}
	s.current.Store(c)
	return s
}

// Current returns the catalog in effect.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Set replaces the catalog in effect.
func (s *Store) Set(c *Catalog) {
	s.current.Store(c)
}
