// Package cluster abstracts the container cluster component instances run on.
//
// The Runtime interface is deliberately small: create a service, list
// services by name, remove a service, and look at its tasks. Three
// implementations are provided:
//
//   - SwarmRuntime: Docker Swarm services through the Docker Engine API,
//     published in VIP mode on the ingress network
//   - KubernetesRuntime: a Deployment plus a Service per instance through
//     controller-runtime; pods play the role of tasks
//   - MemoryRuntime: an in-process fake for dry runs and tests
//
// NewRuntime picks one from the runtime section of the configuration.
package cluster
