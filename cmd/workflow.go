package cmd

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"wkfmanager/internal/api"
	"wkfmanager/internal/cli"
)

// specFlags holds the flags describing a workflow request.
type specFlags struct {
	file       string
	method     string
	components []string
	origin     string
}

// spec builds the workflow request from --file or from the individual flags.
// Flags given together with --file override the file values.
func (f *specFlags) spec() (api.WorkflowSpec, error) {
	var spec api.WorkflowSpec
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return api.WorkflowSpec{}, fmt.Errorf("failed to read %s: %w", f.file, err)
		}
		// YAML is a superset of JSON, so both formats are accepted.
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return api.WorkflowSpec{}, fmt.Errorf("failed to parse %s: %w", f.file, err)
		}
	}

	if f.method != "" {
		spec.Method = api.Method(f.method)
	}
	if len(f.components) > 0 {
		spec.ComponentList = f.components
	}
	if f.origin != "" {
		spec.Origin = f.origin
	}
	if spec.Origin == "" {
		spec.Origin = cli.DefaultOrigin()
	}

	if !spec.Method.Valid() {
		return api.WorkflowSpec{}, fmt.Errorf("--method must be persistent or edge, got %q", spec.Method)
	}
	if len(spec.ComponentList) == 0 {
		return api.WorkflowSpec{}, fmt.Errorf("--components must list at least one component")
	}
	return spec, nil
}
