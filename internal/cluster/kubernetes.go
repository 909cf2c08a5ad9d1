package cluster

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"wkfmanager/internal/api"
	"wkfmanager/pkg/logging"
)

const (
	kubernetesSubsystem = "Kubernetes"

	// AnnotationPublishedPort records the published port of an instance;
	// Kubernetes services expose the target port inside the cluster.
	AnnotationPublishedPort = "wkfmanager.io/published-port"
)

// KubernetesRuntime implements Runtime with one Deployment and one Service
// per component instance. Tasks map to the pods of the Deployment.
type KubernetesRuntime struct {
	client    client.Client
	namespace string
}

// NewKubernetesRuntime creates a runtime on top of an existing controller-runtime client.
func NewKubernetesRuntime(c client.Client, namespace string) *KubernetesRuntime {
	return &KubernetesRuntime{client: c, namespace: namespace}
}

// NewKubernetesRuntimeFromConfig creates a runtime from a REST configuration.
func NewKubernetesRuntimeFromConfig(config *rest.Config, namespace string) (*KubernetesRuntime, error) {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	k8sClient, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	return NewKubernetesRuntime(k8sClient, namespace), nil
}

// CreateService creates the Deployment and the Service of an instance.
func (k *KubernetesRuntime) CreateService(ctx context.Context, spec ServiceSpec) (Service, error) {
	labels := map[string]string{}
	for key, value := range spec.Labels {
		labels[key] = value
	}
	labels[LabelName] = spec.Name
	labels[LabelManagedBy] = managerName

	selector := map[string]string{LabelName: spec.Name}
	replicas := int32(1)
	annotations := map[string]string{AnnotationPublishedPort: strconv.Itoa(spec.PublishedPort)}

	if spec.Network != "" {
		logging.Debug(kubernetesSubsystem, "Ignoring network %s for %s: pods share the cluster network", spec.Network, spec.Name)
	}

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:        spec.Name,
			Namespace:   k.namespace,
			Labels:      labels,
			Annotations: annotations,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  spec.Name,
						Image: spec.Image,
						Env:   envVars(spec.Env),
						Ports: []corev1.ContainerPort{{
							ContainerPort: int32(spec.TargetPort),
							Protocol:      corev1.ProtocolTCP,
						}},
					}},
				},
			},
		},
	}

	if err := k.client.Create(ctx, deployment); err != nil {
		return Service{}, fmt.Errorf("failed to create deployment %s: %w", spec.Name, err)
	}

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:        spec.Name,
			Namespace:   k.namespace,
			Labels:      labels,
			Annotations: annotations,
		},
		Spec: corev1.ServiceSpec{
			Selector: selector,
			Ports: []corev1.ServicePort{{
				Name:       "http",
				Protocol:   corev1.ProtocolTCP,
				Port:       int32(spec.TargetPort),
				TargetPort: intstr.FromInt32(int32(spec.TargetPort)),
			}},
		},
	}

	if err := k.client.Create(ctx, service); err != nil && !apierrors.IsAlreadyExists(err) {
		// Do not leave a deployment nobody can reach.
		if delErr := k.client.Delete(ctx, deployment); delErr != nil {
			logging.Error(kubernetesSubsystem, delErr, "Failed to clean up deployment %s", spec.Name)
		}
		return Service{}, fmt.Errorf("failed to create service %s: %w", spec.Name, err)
	}

	logging.Info(kubernetesSubsystem, "Created deployment and service %s/%s", k.namespace, spec.Name)
	return Service{ID: string(deployment.UID), Name: spec.Name}, nil
}

// ListServices lists the deployments managed by the engine whose name
// contains nameFilter.
func (k *KubernetesRuntime) ListServices(ctx context.Context, nameFilter string) ([]Service, error) {
	list := &appsv1.DeploymentList{}
	if err := k.client.List(ctx, list,
		client.InNamespace(k.namespace),
		client.MatchingLabels{LabelManagedBy: managerName},
	); err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	var result []Service
	for _, d := range list.Items {
		if strings.Contains(d.Name, nameFilter) {
			result = append(result, Service{ID: string(d.UID), Name: d.Name})
		}
	}
	return result, nil
}

// RemoveService deletes the Deployment and the Service of an instance.
func (k *KubernetesRuntime) RemoveService(ctx context.Context, name string) error {
	meta := metav1.ObjectMeta{Name: name, Namespace: k.namespace}

	err := k.client.Delete(ctx, &appsv1.Deployment{ObjectMeta: meta})
	if apierrors.IsNotFound(err) {
		return api.NewNotFoundError("service", name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete deployment %s: %w", name, err)
	}

	if err := k.client.Delete(ctx, &corev1.Service{ObjectMeta: meta}); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete service %s: %w", name, err)
	}

	logging.Info(kubernetesSubsystem, "Removed deployment and service %s/%s", k.namespace, name)
	return nil
}

// ListTasks lists the pods of an instance.
func (k *KubernetesRuntime) ListTasks(ctx context.Context, service string) ([]Task, error) {
	pods := &corev1.PodList{}
	if err := k.client.List(ctx, pods,
		client.InNamespace(k.namespace),
		client.MatchingLabels{LabelName: service},
	); err != nil {
		return nil, fmt.Errorf("failed to list pods of %s: %w", service, err)
	}

	result := make([]Task, 0, len(pods.Items))
	for i := range pods.Items {
		pod := &pods.Items[i]
		result = append(result, Task{
			ID:        pod.Name,
			ServiceID: service,
			State:     string(pod.Status.Phase),
			Message:   podStatusMessage(pod),
		})
	}
	return result, nil
}

// InspectTaskStatus returns "started" once the pod's container runs, the
// waiting reason or phase otherwise.
func (k *KubernetesRuntime) InspectTaskStatus(ctx context.Context, taskID string) (string, error) {
	pod := &corev1.Pod{}
	if err := k.client.Get(ctx, client.ObjectKey{Namespace: k.namespace, Name: taskID}, pod); err != nil {
		return "", fmt.Errorf("failed to get pod %s: %w", taskID, err)
	}
	return podStatusMessage(pod), nil
}

// Close is a no-op; controller-runtime clients hold no connection.
func (k *KubernetesRuntime) Close() error {
	return nil
}

func podStatusMessage(pod *corev1.Pod) string {
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Running != nil {
			return TaskStarted
		}
		if cs.State.Waiting != nil && cs.State.Waiting.Reason != "" {
			return strings.ToLower(cs.State.Waiting.Reason)
		}
	}
	return strings.ToLower(string(pod.Status.Phase))
}

func envVars(env []string) []corev1.EnvVar {
	vars := make([]corev1.EnvVar, 0, len(env))
	for _, kv := range env {
		name, value, _ := strings.Cut(kv, "=")
		vars = append(vars, corev1.EnvVar{Name: name, Value: value})
	}
	return vars
}
