package k8s

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// PodFailure describes one unhealthy pod.
type PodFailure struct {
	Namespace string
	Pod       string
	Reason    string
}

func (f PodFailure) String() string {
	return fmt.Sprintf("%s/%s: %s", f.Namespace, f.Pod, f.Reason)
}

// FindPodFailures lists the unhealthy pods of the given namespaces. Namespaces
// that cannot be listed are reported as a failure entry with an empty pod name.
func FindPodFailures(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespaces []string,
) []PodFailure {
	var failures []PodFailure

	for _, namespace := range namespaces {
		pods, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			failures = append(failures, PodFailure{
				Namespace: namespace,
				Reason:    fmt.Sprintf("failed to list pods: %v", err),
			})

			continue
		}

		for i := range pods.Items {
			pod := &pods.Items[i]
			if isPodHealthy(pod) {
				continue
			}

			failures = append(failures, PodFailure{
				Namespace: namespace,
				Pod:       pod.Name,
				Reason:    describePodFailure(pod),
			})
		}
	}

	return failures
}

// DiagnosePodFailures renders FindPodFailures as indented lines grouped by
// namespace. It returns an empty string when every pod is healthy.
func DiagnosePodFailures(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespaces []string,
) string {
	var builder strings.Builder

	current := ""

	for _, failure := range FindPodFailures(ctx, clientset, namespaces) {
		if failure.Namespace != current {
			current = failure.Namespace
			fmt.Fprintf(&builder, "\nFailing pods in %s namespace:", current)
		}

		builder.WriteString("\n  ")

		if failure.Pod != "" {
			builder.WriteString(failure.Pod + ": ")
		}

		builder.WriteString(failure.Reason)
	}

	return builder.String()
}

// IsPodReady reports whether the pod is Running and its Ready condition is True.
func IsPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}

	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}

	return false
}

// isPodHealthy: Running with all containers ready, or Succeeded.
func isPodHealthy(pod *corev1.Pod) bool {
	switch pod.Status.Phase {
	case corev1.PodRunning:
		for _, container := range pod.Status.ContainerStatuses {
			if !container.Ready {
				return false
			}
		}

		return true
	case corev1.PodSucceeded:
		return true
	case corev1.PodPending, corev1.PodFailed, corev1.PodUnknown:
		return false
	}

	return false
}

func describePodFailure(pod *corev1.Pod) string {
	// ImagePullBackOff, CrashLoopBackOff and friends.
	for _, container := range pod.Status.ContainerStatuses {
		if container.State.Waiting != nil && container.State.Waiting.Reason != "" {
			return fmt.Sprintf("%s for %s", container.State.Waiting.Reason, container.Image)
		}

		if container.State.Terminated != nil && container.State.Terminated.ExitCode != 0 {
			return fmt.Sprintf(
				"terminated with exit code %d (%s)",
				container.State.Terminated.ExitCode, container.State.Terminated.Reason,
			)
		}
	}

	for _, container := range pod.Status.InitContainerStatuses {
		if container.State.Waiting != nil && container.State.Waiting.Reason != "" {
			return fmt.Sprintf(
				"init container %s: %s for %s",
				container.Name, container.State.Waiting.Reason, container.Image,
			)
		}
	}

	if pod.Status.Reason != "" {
		return fmt.Sprintf("%s (%s)", pod.Status.Phase, pod.Status.Reason)
	}

	if pod.Status.Phase == corev1.PodRunning {
		return "containers not ready"
	}

	return string(pod.Status.Phase)
}
