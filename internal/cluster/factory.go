package cluster

import (
	"fmt"
	"strings"

	"github.com/docker/docker/client"
	ctrl "sigs.k8s.io/controller-runtime"

	"wkfmanager/internal/config"
)

// NewRuntime creates the cluster runtime selected in the configuration
func NewRuntime(cfg config.RuntimeConfig) (Runtime, error) {
	rt := config.RuntimeType(strings.ToLower(string(cfg.Type)))

	switch rt {
	case config.RuntimeTypeSwarm, "":
		// Default to Swarm if not specified
		opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
		if cfg.DockerHost != "" {
			opts = append(opts, client.WithHost(cfg.DockerHost))
		}
		return NewSwarmRuntime(opts...)
	case config.RuntimeTypeKubernetes:
		restConfig, err := ctrl.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load kubernetes configuration: %w", err)
		}
		return NewKubernetesRuntimeFromConfig(restConfig, cfg.Namespace)
	case config.RuntimeTypeMemory:
		return NewMemoryRuntime(), nil
	default:
		return nil, fmt.Errorf("unsupported cluster runtime: %s", cfg.Type)
	}
}
